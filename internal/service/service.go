package service

import (
	"go.uber.org/zap"

	"csm-matcher/config"
	"csm-matcher/internal/repository"
	"csm-matcher/internal/solver"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Matcher    MatcherService
	Slot       SlotService
	Preference PreferenceService
	Mentor     MentorService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	slv solver.Solver,
	logger *zap.Logger,
) *Service {
	return &Service{
		Matcher:    NewMatcherService(&cfg.Matcher, repo, slv, logger),
		Slot:       NewSlotService(&cfg.Matcher, repo, logger),
		Preference: NewPreferenceService(&cfg.Matcher, repo, logger),
		Mentor:     NewMentorService(repo, logger),
		Export:     NewExportService(&cfg.Matcher, repo, logger),
	}
}
