package repository

import (
	"context"

	"gorm.io/gorm"

	"csm-matcher/internal/model"
)

// MentorRepository 导师名单数据访问接口
type MentorRepository interface {
	ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherMentor, error)
	GetByEmail(ctx context.Context, courseID int64, email string) (*model.MatcherMentor, error)
	CreateBatch(ctx context.Context, mentors []model.MatcherMentor) error
	DeleteByEmails(ctx context.Context, courseID int64, emails []string) (int64, error)
}

type mentorRepo struct {
	db *gorm.DB
}

// NewMentorRepo 创建 MentorRepository 实例
func NewMentorRepo(db *gorm.DB) MentorRepository {
	return &mentorRepo{db: db}
}

func (r *mentorRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherMentor, error) {
	var list []model.MatcherMentor
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("email").
		Find(&list).Error
	return list, err
}

func (r *mentorRepo) GetByEmail(ctx context.Context, courseID int64, email string) (*model.MatcherMentor, error) {
	var m model.MatcherMentor
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND email = ?", courseID, email).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mentorRepo) CreateBatch(ctx context.Context, mentors []model.MatcherMentor) error {
	if len(mentors) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&mentors).Error
}

// DeleteByEmails 删除导师；其偏好与分配由外键级联删除
func (r *mentorRepo) DeleteByEmails(ctx context.Context, courseID int64, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("course_id = ? AND email IN ?", courseID, emails).
		Delete(&model.MatcherMentor{})
	return result.RowsAffected, result.Error
}
