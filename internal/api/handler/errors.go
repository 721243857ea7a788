package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"csm-matcher/internal/matcher"
	"csm-matcher/internal/service"
	"csm-matcher/internal/solver"
	apperrors "csm-matcher/pkg/errors"
	"csm-matcher/pkg/response"
)

// handleMatcherError 将 Service 层错误映射为 HTTP 响应
//
// 错误码：
//   - 10001 参数校验失败
//   - 201xx 资源不存在
//   - 203xx 无权限
//   - 209xx 状态冲突
//   - 210xx 求解器
func handleMatcherError(c *gin.Context, err error) {
	if ve, ok := apperrors.AsValidation(err); ok {
		response.Invalid(c, ve)
		return
	}

	switch {
	case errors.Is(err, service.ErrMatcherNotFound):
		response.NotFound(c, 20101, "该课程没有匹配器")
	case errors.Is(err, service.ErrSlotNotFound):
		response.ErrorWithDetails(c, http.StatusNotFound, 20102, "时段不存在或不属于该课程", err.Error())
	case errors.Is(err, service.ErrMentorNotFound):
		response.ErrorWithDetails(c, http.StatusNotFound, 20103, "导师不存在或不属于该课程", err.Error())

	case errors.Is(err, service.ErrNotCoordinator):
		response.Forbidden(c, 20301, "仅课程协调员可执行此操作")
	case errors.Is(err, service.ErrNotMentor):
		response.Forbidden(c, 20302, "不在该课程的导师名单中")

	case errors.Is(err, service.ErrMatcherInactive):
		response.Conflict(c, 20901, "匹配结果已提交，匹配器不可再修改")
	case errors.Is(err, service.ErrFormClosed):
		response.Conflict(c, 20902, "偏好表单未开放")
	case errors.Is(err, service.ErrFormOpen):
		response.Conflict(c, 20903, "偏好表单仍在开放，请先关闭")
	case errors.Is(err, service.ErrNoSlots):
		response.Conflict(c, 20904, "尚未创建任何时段")
	case errors.Is(err, service.ErrNoAssignment):
		response.Conflict(c, 20905, "尚无分配结果")
	case errors.Is(err, service.ErrMatcherExists):
		response.Conflict(c, 20906, "该课程已存在匹配器")
	case errors.Is(err, apperrors.ErrOptimisticLock):
		response.Conflict(c, 20907, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrSlotOverfilled):
		response.ErrorWithDetails(c, http.StatusConflict, 20908, "时段分配人数超过上限", err.Error())

	case errors.Is(err, matcher.ErrInfeasible):
		response.Error(c, http.StatusUnprocessableEntity, 21001, "当前人数限制下无可行分配，请调整时段上下限")
	case errors.Is(err, solver.ErrNotConfigured):
		response.Error(c, http.StatusServiceUnavailable, 21002, "未配置分配求解器")
	case errors.Is(err, solver.ErrTimeout):
		response.Error(c, http.StatusGatewayTimeout, 21003, "分配求解超时")
	case errors.Is(err, service.ErrSolverFailed):
		response.BadGateway(c, 21004, "分配求解失败", err.Error())

	default:
		response.InternalError(c)
	}
}
