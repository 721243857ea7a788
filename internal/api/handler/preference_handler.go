package handler

import (
	"github.com/gin-gonic/gin"

	"csm-matcher/internal/dto"
	"csm-matcher/internal/service"
	"csm-matcher/pkg/response"
)

// PreferenceHandler 偏好模块 HTTP 处理器
type PreferenceHandler struct {
	prefSvc service.PreferenceService
}

// NewPreferenceHandler 创建 PreferenceHandler
func NewPreferenceHandler(prefSvc service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefSvc: prefSvc}
}

// ListPreferences 协调员查看全部偏好
// GET /api/v1/matcher/:course_id/preferences
func (h *PreferenceHandler) ListPreferences(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.prefSvc.ListForCourse(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetMyPreferences 导师查看自己的偏好
// GET /api/v1/matcher/:course_id/preferences/me
func (h *PreferenceHandler) GetMyPreferences(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.prefSvc.ListMine(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// SubmitPreferences 导师提交偏好（整体原子写入）
// POST /api/v1/matcher/:course_id/preferences
func (h *PreferenceHandler) SubmitPreferences(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	var req []dto.SubmitPreference
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.prefSvc.Submit(c.Request.Context(), courseID, req, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}
