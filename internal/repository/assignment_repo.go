package repository

import (
	"context"

	"gorm.io/gorm"

	"csm-matcher/internal/model"
)

// AssignmentRepository 分配结果数据访问接口
type AssignmentRepository interface {
	ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherAssignment, error)
	ReplaceAll(ctx context.Context, courseID int64, list []model.MatcherAssignment) error
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherAssignment, error) {
	var list []model.MatcherAssignment
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("slot_id, mentor_id").
		Find(&list).Error
	return list, err
}

// ReplaceAll 整体替换课程的分配结果（单事务）
func (r *assignmentRepo) ReplaceAll(ctx context.Context, courseID int64, list []model.MatcherAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", courseID).Delete(&model.MatcherAssignment{}).Error; err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}
		for i := range list {
			list[i].CourseID = courseID
			list[i].AssignmentID = 0
		}
		return tx.Create(&list).Error
	})
}
