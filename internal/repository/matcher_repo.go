package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"csm-matcher/internal/model"
	pkgerrors "csm-matcher/pkg/errors"
)

// MatcherRepository 匹配器数据访问接口
type MatcherRepository interface {
	Create(ctx context.Context, m *model.Matcher) error
	GetByCourse(ctx context.Context, courseID int64) (*model.Matcher, error)
	Update(ctx context.Context, m *model.Matcher) error
	ListActive(ctx context.Context) ([]model.Matcher, error)
	ListActiveForEmail(ctx context.Context, email string) ([]model.Matcher, error)
	CloseExpired(ctx context.Context, now time.Time) (int64, error)

	AddCoordinator(ctx context.Context, courseID int64, email string) error
	IsCoordinator(ctx context.Context, courseID int64, email string) (bool, error)
}

type matcherRepo struct {
	db *gorm.DB
}

// NewMatcherRepo 创建 MatcherRepository 实例
func NewMatcherRepo(db *gorm.DB) MatcherRepository {
	return &matcherRepo{db: db}
}

func (r *matcherRepo) Create(ctx context.Context, m *model.Matcher) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *matcherRepo) GetByCourse(ctx context.Context, courseID int64) (*model.Matcher, error) {
	var m model.Matcher
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Update 乐观锁更新：version 不一致时返回 ErrOptimisticLock
func (r *matcherRepo) Update(ctx context.Context, m *model.Matcher) error {
	oldVersion := m.Version
	result := r.db.WithContext(ctx).
		Model(&model.Matcher{}).
		Where("course_id = ? AND version = ?", m.CourseID, oldVersion).
		Updates(map[string]interface{}{
			"course_name": m.CourseName,
			"is_open":     m.IsOpen,
			"close_at":    m.CloseAt,
			"active":      m.Active,
			"updated_by":  m.UpdatedBy,
			"updated_at":  gorm.Expr("NOW()"),
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	m.Version = oldVersion + 1
	return nil
}

func (r *matcherRepo) ListActive(ctx context.Context) ([]model.Matcher, error) {
	var list []model.Matcher
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("course_id").
		Find(&list).Error
	return list, err
}

// ListActiveForEmail 该邮箱作为协调员或导师参与的活跃匹配器
func (r *matcherRepo) ListActiveForEmail(ctx context.Context, email string) ([]model.Matcher, error) {
	var list []model.Matcher
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where(
			r.db.Where("course_id IN (?)", r.db.Model(&model.MatcherCoordinator{}).Select("course_id").Where("email = ?", email)).
				Or("course_id IN (?)", r.db.Model(&model.MatcherMentor{}).Select("course_id").Where("email = ?", email)),
		).
		Order("course_id").
		Find(&list).Error
	return list, err
}

// CloseExpired 关闭所有已过截止时间的表单，返回受影响的课程数
func (r *matcherRepo) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Matcher{}).
		Where("is_open = ? AND close_at IS NOT NULL AND close_at <= ?", true, now).
		Updates(map[string]interface{}{
			"is_open":    false,
			"updated_at": gorm.Expr("NOW()"),
			"version":    gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *matcherRepo) AddCoordinator(ctx context.Context, courseID int64, email string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.MatcherCoordinator{CourseID: courseID, Email: email}).Error
}

func (r *matcherRepo) IsCoordinator(ctx context.Context, courseID int64, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MatcherCoordinator{}).
		Where("course_id = ? AND email = ?", courseID, email).
		Count(&count).Error
	return count > 0, err
}
