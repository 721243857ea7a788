package router

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csm-matcher/config"
	"csm-matcher/internal/api/handler"
	"csm-matcher/internal/calendar"
	"csm-matcher/internal/dto"
	"csm-matcher/internal/service"
	"csm-matcher/pkg/jwt"
)

// 只实现路由测试会调用到的方法，其余方法调用即 panic
type stubMatcherService struct {
	service.MatcherService
	closed int64
}

func (s *stubMatcherService) CloseExpired(_ context.Context, _ time.Time) (int64, error) {
	return s.closed, nil
}

type stubSlotService struct {
	service.SlotService
	gotBytes int
}

func (s *stubSlotService) ImportICS(_ context.Context, _ int64, r io.Reader, _ service.Caller) (*dto.ImportResponse, error) {
	b, _ := io.ReadAll(r)
	s.gotBytes = len(b)
	return &dto.ImportResponse{Slots: []calendar.Slot{}}, nil
}

func setupRouter(t *testing.T) (http.Handler, *jwt.Manager, *stubSlotService) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 1024},
		Auth:   config.AuthConfig{JWTSecret: "router-test-secret-0123456789", Issuer: "csm-web", DevTTL: time.Hour},
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	slots := &stubSlotService{}
	h := &handler.Handler{
		Matcher: handler.NewMatcherHandler(&stubMatcherService{closed: 1}),
		Slot:    handler.NewSlotHandler(slots),
	}

	r, err := Setup(cfg, h, jwtMgr, nil, zap.NewNop())
	require.NoError(t, err)
	return r, jwtMgr, slots
}

func bearer(t *testing.T, mgr *jwt.Manager, role string) string {
	t.Helper()
	token, err := mgr.GenerateToken("u-1", "coord@berkeley.edu", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	r, mgr, _ := setupRouter(t)

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{name: "未认证", auth: "", status: http.StatusUnauthorized},
		{name: "普通成员", auth: bearer(t, mgr, jwt.RoleMember), status: http.StatusForbidden},
		{name: "管理员", auth: bearer(t, mgr, jwt.RoleAdmin), status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/admin/forms/close-expired", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestBodyLimit_PerRoute(t *testing.T) {
	r, mgr, slots := setupRouter(t)
	auth := bearer(t, mgr, jwt.RoleMember)

	// JSON 接口：超过 max_body_bytes 直接 413，不进入处理器
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/matcher/61/slots", strings.NewReader(`{"slots":[],"pad":"`+strings.Repeat("x", 2048)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// 导入接口使用 ICS 上限，同样大小的请求体可以通过
	ics := "BEGIN:VCALENDAR\r\n" + strings.Repeat("X-PAD:0\r\n", 512) + "END:VCALENDAR\r\n"
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/v1/matcher/61/slots/import", bytes.NewBufferString(ics))
	req.Header.Set("Content-Type", "text/calendar")
	req.Header.Set("Authorization", auth)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, len(ics), slots.gotBytes)
}
