package repository

import (
	"context"

	"gorm.io/gorm"

	"csm-matcher/internal/model"
)

// SlotRepository 候选时段数据访问接口
type SlotRepository interface {
	ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherSlot, error)
	ReplaceAll(ctx context.Context, courseID int64, slots []model.MatcherSlot) error
	UpdateBounds(ctx context.Context, slotID int64, minMentors, maxMentors int) error
}

type slotRepo struct {
	db *gorm.DB
}

// NewSlotRepo 创建 SlotRepository 实例
func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherSlot, error) {
	var slots []model.MatcherSlot
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("slot_id").
		Find(&slots).Error
	return slots, err
}

// ReplaceAll 整体替换课程的全部时段（单事务）。
// 旧时段上的偏好与分配随外键级联删除；slots 为空即清空。
func (r *slotRepo) ReplaceAll(ctx context.Context, courseID int64, slots []model.MatcherSlot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", courseID).Delete(&model.MatcherSlot{}).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		for i := range slots {
			slots[i].CourseID = courseID
			slots[i].SlotID = 0
		}
		return tx.Create(&slots).Error
	})
}

func (r *slotRepo) UpdateBounds(ctx context.Context, slotID int64, minMentors, maxMentors int) error {
	return r.db.WithContext(ctx).
		Model(&model.MatcherSlot{}).
		Where("slot_id = ?", slotID).
		Updates(map[string]interface{}{
			"min_mentors": minMentors,
			"max_mentors": maxMentors,
		}).Error
}
