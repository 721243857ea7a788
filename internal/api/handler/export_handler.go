package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"csm-matcher/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAssignment 导出分配结果
// GET /api/v1/matcher/:course_id/assignment/export
func (h *ExportHandler) ExportAssignment(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportAssignment(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportSlotsICS 导出时段日历
// GET /api/v1/matcher/:course_id/slots/ics
func (h *ExportHandler) ExportSlotsICS(c *gin.Context) {
	courseID, caller, ok := courseAndCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSlotsICS(c.Request.Context(), courseID, caller)
	if err != nil {
		handleMatcherError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头并写出文件内容
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
