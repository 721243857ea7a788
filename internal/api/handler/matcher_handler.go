package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"csm-matcher/internal/dto"
	"csm-matcher/internal/service"
	"csm-matcher/pkg/response"
)

// MatcherHandler 匹配流程 HTTP 处理器：阶段、配置、求解、分配与提交
type MatcherHandler struct {
	matcherSvc service.MatcherService
}

// NewMatcherHandler 创建 MatcherHandler
func NewMatcherHandler(matcherSvc service.MatcherService) *MatcherHandler {
	return &MatcherHandler{matcherSvc: matcherSvc}
}

// ListActive 调用者参与的活跃匹配器
// GET /api/v1/matcher/active
func (h *MatcherHandler) ListActive(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.matcherSvc.Active(c.Request.Context(), caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// CloseExpired 立即关闭所有已到截止时间的表单，与定时任务等效
// POST /api/v1/admin/forms/close-expired（仅管理员）
func (h *MatcherHandler) CloseExpired(c *gin.Context) {
	if _, ok := MustGetUserID(c); !ok {
		return
	}

	n, err := h.matcherSvc.CloseExpired(c.Request.Context(), time.Now())
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, dto.CloseExpiredResponse{Closed: n})
}

// GetStage 当前流程阶段
// GET /api/v1/matcher/:course_id/stage
func (h *MatcherHandler) GetStage(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.matcherSvc.Stage(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetConfig 当前配置
// GET /api/v1/matcher/:course_id/configure
func (h *MatcherHandler) GetConfig(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.matcherSvc.GetConfig(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// Configure 修改表单开关、截止时间与人数上下限，可选执行求解
// POST /api/v1/matcher/:course_id/configure
func (h *MatcherHandler) Configure(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	var req dto.ConfigureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.matcherSvc.Configure(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetAssignment 当前分配结果
// GET /api/v1/matcher/:course_id/assignment
func (h *MatcherHandler) GetAssignment(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.matcherSvc.GetAssignment(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// UpdateAssignment 整体替换编辑后的分配
// PUT /api/v1/matcher/:course_id/assignment
func (h *MatcherHandler) UpdateAssignment(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	var req dto.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.matcherSvc.UpdateAssignment(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// Commit 将分配提交为正式班级并关闭匹配器
// POST /api/v1/matcher/:course_id/create
func (h *MatcherHandler) Commit(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.matcherSvc.Commit(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.Created(c, resp)
}
