package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"csm-matcher/config"
	"csm-matcher/internal/dto"
	"csm-matcher/internal/matcher"
	"csm-matcher/internal/model"
	"csm-matcher/internal/repository"
	apperrors "csm-matcher/pkg/errors"
)

// PreferenceService 导师偏好业务接口
type PreferenceService interface {
	// ListForCourse 协调员查看全部偏好
	ListForCourse(ctx context.Context, courseID int64, caller Caller) (*dto.PreferencesResponse, error)
	// ListMine 导师查看自己的偏好
	ListMine(ctx context.Context, courseID int64, caller Caller) (*dto.MyPreferencesResponse, error)
	// Submit 导师提交偏好，整批写入
	Submit(ctx context.Context, courseID int64, req []dto.SubmitPreference, caller Caller) (*dto.SubmitPreferencesResponse, error)
}

type preferenceService struct {
	access
	cfg *config.MatcherConfig
}

// NewPreferenceService 创建 PreferenceService 实例
func NewPreferenceService(cfg *config.MatcherConfig, repo *repository.Repository, logger *zap.Logger) PreferenceService {
	return &preferenceService{access: access{repo: repo, logger: logger}, cfg: cfg}
}

func (s *preferenceService) ListForCourse(ctx context.Context, courseID int64, caller Caller) (*dto.PreferencesResponse, error) {
	m, err := s.requireCoordinator(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Preference.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询偏好失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	prefs := toPreferences(rows)
	return &dto.PreferencesResponse{
		Open:      m.IsOpen,
		Responses: prefs,
		BySlot:    matcher.PreferencesBySlot(prefs),
	}, nil
}

func (s *preferenceService) ListMine(ctx context.Context, courseID int64, caller Caller) (*dto.MyPreferencesResponse, error) {
	m, mentor, err := s.requireMentor(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Preference.ListByMentor(ctx, mentor.MentorID)
	if err != nil {
		s.logger.Error("查询导师偏好失败", zap.Int64("mentor_id", mentor.MentorID), zap.Error(err))
		return nil, err
	}

	byMentor := matcher.PreferencesByMentor(toPreferences(rows))
	prefs := byMentor[matcher.MentorID(mentor.MentorID)]
	if prefs == nil {
		prefs = []matcher.SlotPreference{}
	}

	return &dto.MyPreferencesResponse{Open: m.IsOpen, MentorID: mentor.MentorID, Preferences: prefs}, nil
}

func (s *preferenceService) Submit(ctx context.Context, courseID int64, req []dto.SubmitPreference, caller Caller) (*dto.SubmitPreferencesResponse, error) {
	m, mentor, err := s.requireMentor(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, ErrMatcherInactive
	}
	if !m.IsOpen {
		return nil, ErrFormClosed
	}

	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	known := make(map[int64]bool, len(slots))
	for _, slot := range slots {
		known[slot.SlotID] = true
	}

	seen := make(map[int64]bool, len(req))
	rows := make([]model.MatcherPreference, 0, len(req))
	for i, p := range req {
		field := fmt.Sprintf("[%d]", i)
		if !known[p.ID] {
			return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, p.ID)
		}
		if seen[p.ID] {
			return nil, apperrors.Invalid(field+".id", "时段 %d 重复提交", p.ID)
		}
		seen[p.ID] = true
		if p.Preference == nil {
			return nil, apperrors.Invalid(field+".preference", "偏好不能为空")
		}
		if v := *p.Preference; v < 0 || v > s.cfg.MaxPreference {
			return nil, apperrors.Invalid(field+".preference", "偏好取值应在 0 到 %d 之间，实际为 %d", s.cfg.MaxPreference, v)
		}
		rows = append(rows, model.MatcherPreference{
			SlotID:     p.ID,
			MentorID:   mentor.MentorID,
			Preference: *p.Preference,
		})
	}

	if err := s.repo.Preference.Upsert(ctx, rows); err != nil {
		s.logger.Error("保存偏好失败",
			zap.Int64("course_id", courseID),
			zap.Int64("mentor_id", mentor.MentorID),
			zap.Error(err),
		)
		return nil, err
	}

	return &dto.SubmitPreferencesResponse{Count: len(rows)}, nil
}

func toPreferences(rows []model.MatcherPreference) []matcher.Preference {
	out := make([]matcher.Preference, 0, len(rows))
	for _, r := range rows {
		out = append(out, matcher.Preference{
			Slot:   matcher.SlotID(r.SlotID),
			Mentor: matcher.MentorID(r.MentorID),
			Value:  r.Preference,
		})
	}
	return out
}
