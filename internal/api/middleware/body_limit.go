package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"csm-matcher/pkg/response"
)

// BodyLimit 按路由限制请求体大小，JSON 接口与文件导入使用不同上限。
// 声明的 Content-Length 已超限时直接 413；未声明长度（分块传输）的请求在读取时
// 由 http.MaxBytesReader 截断，处理器据 *http.MaxBytesError 返回 413。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.TooLarge(c, maxBytes)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
