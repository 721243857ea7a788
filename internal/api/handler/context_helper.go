package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"csm-matcher/internal/service"
	"csm-matcher/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetCaller 提取 JWT 中间件注入的调用者身份
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Caller{}, false
	}
	email, ok := mustGetString(c, "email")
	if !ok {
		return service.Caller{}, false
	}
	role, ok := mustGetString(c, "role")
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{UserID: userID, Email: email, Role: role}, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// parseCourseID 解析路径参数 :course_id，失败时写入 400
func parseCourseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("course_id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "course_id 无效")
		return 0, false
	}
	return id, true
}

// courseAndCaller 大多数接口的公共前置：课程 ID + 调用者
func courseAndCaller(c *gin.Context) (int64, service.Caller, bool) {
	courseID, ok := parseCourseID(c)
	if !ok {
		return 0, service.Caller{}, false
	}
	caller, ok := MustGetCaller(c)
	if !ok {
		return 0, service.Caller{}, false
	}
	return courseID, caller, true
}
