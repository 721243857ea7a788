package handler

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"csm-matcher/internal/dto"
	"csm-matcher/internal/service"
	"csm-matcher/pkg/response"
)

// MaxImportBytes 导入接口的请求体上限：文件上限外加 multipart 头部余量
const MaxImportBytes = service.ICSMaxFileSize + 64<<10

// SlotHandler 时段模块 HTTP 处理器
type SlotHandler struct {
	slotSvc service.SlotService
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc}
}

// ListSlots 获取课程全部时段
// GET /api/v1/matcher/:course_id/slots
func (h *SlotHandler) ListSlots(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.slotSvc.List(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// ReplaceSlots 整体替换时段；空列表清空
// POST /api/v1/matcher/:course_id/slots
func (h *SlotHandler) ReplaceSlots(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	var req dto.ReplaceSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.slotSvc.Replace(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// TileSlots 平铺预览，不落库
// POST /api/v1/matcher/:course_id/slots/tile
func (h *SlotHandler) TileSlots(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	var req dto.TileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.slotSvc.Tile(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// ImportSlots 从 iCalendar 文件生成时段预览，不落库
// POST /api/v1/matcher/:course_id/slots/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - 原始内容: text/calendar 请求体
func (h *SlotHandler) ImportSlots(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		resp, err := h.slotSvc.ImportICS(c.Request.Context(), courseID, file, caller)
		if err != nil {
			handleMatcherError(c, err)
			return
		}
		response.OK(c, resp)
		return
	}
	if bodyTooLarge(c, err) {
		return
	}

	if c.ContentType() != "text/calendar" || c.Request.Body == nil {
		response.BadRequest(c, 10001, "请上传 ICS 文件")
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if !bodyTooLarge(c, err) {
			response.BadRequest(c, 10001, "读取请求体失败")
		}
		return
	}

	resp, err := h.slotSvc.ImportICS(c.Request.Context(), courseID, bytes.NewReader(data), caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetCalendar 已保存时段的周视图布局
// GET /api/v1/matcher/:course_id/calendar
func (h *SlotHandler) GetCalendar(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	resp, err := h.slotSvc.Calendar(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	response.OK(c, resp)
}
