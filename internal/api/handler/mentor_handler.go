package handler

import (
	"github.com/gin-gonic/gin"

	"csm-matcher/internal/dto"
	"csm-matcher/internal/service"
	"csm-matcher/pkg/response"
)

// MentorHandler 导师名单 HTTP 处理器
type MentorHandler struct {
	mentorSvc service.MentorService
}

// NewMentorHandler 创建 MentorHandler
func NewMentorHandler(mentorSvc service.MentorService) *MentorHandler {
	return &MentorHandler{mentorSvc: mentorSvc}
}

// ListMentors 导师名单
// GET /api/v1/matcher/:course_id/mentors
func (h *MentorHandler) ListMentors(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.mentorSvc.List(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// AddMentors 批量添加导师
// POST /api/v1/matcher/:course_id/mentors
func (h *MentorHandler) AddMentors(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	var req dto.MentorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.mentorSvc.Add(c.Request.Context(), courseID, req.Mentors, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// RemoveMentors 批量删除导师
// DELETE /api/v1/matcher/:course_id/mentors
func (h *MentorHandler) RemoveMentors(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	var req dto.MentorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.mentorSvc.Remove(c.Request.Context(), courseID, req.Mentors, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}
