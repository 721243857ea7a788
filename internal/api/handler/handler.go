package handler

import "csm-matcher/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Matcher    *MatcherHandler
	Slot       *SlotHandler
	Preference *PreferenceHandler
	Mentor     *MentorHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Matcher:    NewMatcherHandler(svc.Matcher),
		Slot:       NewSlotHandler(svc.Slot),
		Preference: NewPreferenceHandler(svc.Preference),
		Mentor:     NewMentorHandler(svc.Mentor),
		Export:     NewExportHandler(svc.Export),
	}
}
