package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"csm-matcher/internal/model"
)

// PreferenceRepository 偏好数据访问接口
type PreferenceRepository interface {
	ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherPreference, error)
	ListByMentor(ctx context.Context, mentorID int64) ([]model.MatcherPreference, error)
	Upsert(ctx context.Context, prefs []model.MatcherPreference) error
}

type preferenceRepo struct {
	db *gorm.DB
}

// NewPreferenceRepo 创建 PreferenceRepository 实例
func NewPreferenceRepo(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.MatcherPreference, error) {
	var prefs []model.MatcherPreference
	err := r.db.WithContext(ctx).
		Joins("JOIN matcher_slots ON matcher_slots.slot_id = matcher_preferences.slot_id").
		Where("matcher_slots.course_id = ?", courseID).
		Order("matcher_preferences.preference_id").
		Find(&prefs).Error
	return prefs, err
}

func (r *preferenceRepo) ListByMentor(ctx context.Context, mentorID int64) ([]model.MatcherPreference, error) {
	var prefs []model.MatcherPreference
	err := r.db.WithContext(ctx).
		Where("mentor_id = ?", mentorID).
		Order("slot_id").
		Find(&prefs).Error
	return prefs, err
}

// Upsert 按 (slot_id, mentor_id) 插入或更新，整批在一条语句内完成
func (r *preferenceRepo) Upsert(ctx context.Context, prefs []model.MatcherPreference) error {
	if len(prefs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_id"}, {Name: "mentor_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"preference": gorm.Expr("EXCLUDED.preference"), "updated_at": gorm.Expr("NOW()")}),
		}).
		Create(&prefs).Error
}
