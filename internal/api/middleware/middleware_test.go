package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"csm-matcher/config"
	"csm-matcher/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret: "middleware-test-secret-0123456789",
		Issuer:    "csm-web",
		DevTTL:    time.Hour,
	})
}

func TestJWTAuth(t *testing.T) {
	mgr := newJWT()
	token, err := mgr.GenerateToken("u-1", "mentor@berkeley.edu", jwt.RoleMember)
	if err != nil {
		t.Fatalf("签发 Token 失败: %v", err)
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotEmail, gotRole string
			r := gin.New()
			r.GET("/x", JWTAuth(mgr, nil), func(c *gin.Context) {
				gotEmail = c.GetString("email")
				gotRole = c.GetString("role")
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("期望 %d，实际 %d", tc.status, w.Code)
			}
			if tc.status == http.StatusOK && (gotEmail != "mentor@berkeley.edu" || gotRole != jwt.RoleMember) {
				t.Errorf("上下文注入错误: email=%s role=%s", gotEmail, gotRole)
			}
		})
	}
}

func TestRoleAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin",
		func(c *gin.Context) { c.Set("role", jwt.RoleMember); c.Next() },
		RoleAuth(jwt.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("期望 403，实际 %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("应沿用请求头中的 ID，实际 %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("超长 ID 应被替换为 UUID，实际 %q", got)
	}
}

func TestRateLimit_NilRedisPasses(t *testing.T) {
	r := gin.New()
	r.POST("/x", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求期望 200，实际 %d", i+1, w.Code)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	handlerCalled := false
	r := gin.New()
	r.POST("/x", BodyLimit(8), func(c *gin.Context) {
		handlerCalled = true
		c.Status(http.StatusOK)
	})

	// 声明的长度超限：不进入处理器
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/x", strings.NewReader(`{"k":"0123456789"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际 %d", w.Code)
	}
	if handlerCalled {
		t.Error("超限请求不应进入处理器")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/x", strings.NewReader(`{}`)))
	if w.Code != http.StatusOK {
		t.Errorf("未超限期望 200，实际 %d", w.Code)
	}
}

func TestBodyLimit_ChunkedReadFails(t *testing.T) {
	var readErr error
	r := gin.New()
	r.POST("/x", BodyLimit(8), func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/x", strings.NewReader(strings.Repeat("a", 64)))
	req.ContentLength = -1
	r.ServeHTTP(httptest.NewRecorder(), req)

	var mbe *http.MaxBytesError
	if !errors.As(readErr, &mbe) || mbe.Limit != 8 {
		t.Errorf("期望 *http.MaxBytesError(limit=8)，实际 %v", readErr)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name      string
		method    string
		origin    string
		preflight bool
		status    int
		allowed   bool
	}{
		{name: "白名单内", method: "GET", origin: "http://localhost:3000", status: http.StatusOK, allowed: true},
		{name: "白名单外", method: "GET", origin: "http://evil.example", status: http.StatusOK},
		{name: "无 Origin", method: "GET", status: http.StatusOK},
		{name: "预检通过", method: "OPTIONS", origin: "http://localhost:3000", preflight: true, status: http.StatusNoContent, allowed: true},
		{name: "预检拒绝", method: "OPTIONS", origin: "http://evil.example", preflight: true, status: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, "/x", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Errorf("期望 %d，实际 %d", tc.status, w.Code)
			}
			got := w.Header().Get("Access-Control-Allow-Origin")
			if tc.allowed && got != tc.origin {
				t.Errorf("应回显 Origin，实际 %q", got)
			}
			if !tc.allowed && got != "" {
				t.Errorf("不应设置 Allow-Origin，实际 %q", got)
			}
			if tc.allowed && !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
				t.Error("应暴露 Content-Disposition 以便读取导出文件名")
			}
		})
	}
}
