package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"csm-matcher/internal/dto"
	"csm-matcher/internal/model"
	"csm-matcher/internal/repository"
)

// MentorService 导师名单业务接口
type MentorService interface {
	List(ctx context.Context, courseID int64, caller Caller) (*dto.MentorListResponse, error)
	// Add 批量添加；已存在、重复或格式无效的邮箱放入 skipped 返回
	Add(ctx context.Context, courseID int64, emails []string, caller Caller) (*dto.AddMentorsResponse, error)
	// Remove 批量移除，不存在的邮箱忽略
	Remove(ctx context.Context, courseID int64, emails []string, caller Caller) (*dto.RemoveMentorsResponse, error)
}

type mentorService struct {
	access
	validate *validator.Validate
}

// NewMentorService 创建 MentorService 实例
func NewMentorService(repo *repository.Repository, logger *zap.Logger) MentorService {
	return &mentorService{access: access{repo: repo, logger: logger}, validate: validator.New()}
}

func (s *mentorService) List(ctx context.Context, courseID int64, caller Caller) (*dto.MentorListResponse, error) {
	if _, err := s.requireCoordinator(ctx, courseID, caller); err != nil {
		return nil, err
	}

	rows, err := s.repo.Mentor.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询导师名单失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	resp := &dto.MentorListResponse{Mentors: make([]dto.MentorResponse, 0, len(rows))}
	for _, r := range rows {
		resp.Mentors = append(resp.Mentors, dto.MentorResponse{ID: r.MentorID, Email: r.Email})
	}
	return resp, nil
}

func (s *mentorService) Add(ctx context.Context, courseID int64, emails []string, caller Caller) (*dto.AddMentorsResponse, error) {
	if _, err := s.requireEditable(ctx, courseID, caller); err != nil {
		return nil, err
	}

	existing, err := s.repo.Mentor.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询导师名单失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	seen := make(map[string]bool, len(existing)+len(emails))
	for _, m := range existing {
		seen[m.Email] = true
	}

	skipped := make([]string, 0)
	rows := make([]model.MatcherMentor, 0, len(emails))
	for _, raw := range emails {
		email := normalizeEmail(raw)
		if seen[email] || s.validate.Var(email, "required,email,max=254") != nil {
			skipped = append(skipped, raw)
			continue
		}
		seen[email] = true
		rows = append(rows, model.MatcherMentor{CourseID: courseID, Email: email})
	}

	if err := s.repo.Mentor.CreateBatch(ctx, rows); err != nil {
		s.logger.Error("添加导师失败", zap.Int64("course_id", courseID), zap.Int("count", len(rows)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("导师名单已更新",
		zap.Int64("course_id", courseID),
		zap.Int("added", len(rows)),
		zap.Int("skipped", len(skipped)),
	)
	return &dto.AddMentorsResponse{Skipped: skipped}, nil
}

func (s *mentorService) Remove(ctx context.Context, courseID int64, emails []string, caller Caller) (*dto.RemoveMentorsResponse, error) {
	if _, err := s.requireEditable(ctx, courseID, caller); err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		normalized = append(normalized, normalizeEmail(e))
	}

	n, err := s.repo.Mentor.DeleteByEmails(ctx, courseID, normalized)
	if err != nil {
		s.logger.Error("移除导师失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return &dto.RemoveMentorsResponse{Removed: n}, nil
}
