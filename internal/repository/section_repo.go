package repository

import (
	"context"

	"gorm.io/gorm"

	"csm-matcher/internal/model"
)

// SectionRepository 正式班级数据访问接口
type SectionRepository interface {
	CreateBatch(ctx context.Context, sections []model.Section) error
	ListByCourse(ctx context.Context, courseID int64) ([]model.Section, error)
}

type sectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo 创建 SectionRepository 实例
func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

// CreateBatch 连同 Spacetimes 一并写入
func (r *sectionRepo) CreateBatch(ctx context.Context, sections []model.Section) error {
	if len(sections) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&sections).Error
}

func (r *sectionRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.Section, error) {
	var list []model.Section
	err := r.db.WithContext(ctx).
		Preload("Spacetimes").
		Where("course_id = ?", courseID).
		Order("section_id").
		Find(&list).Error
	return list, err
}
