package model

import "time"

// MatcherPreference 导师对时段的偏好，对应 matcher_preferences
// 0 表示不可用，数值越大越倾向
type MatcherPreference struct {
	PreferenceID int64     `gorm:"primaryKey"                                     json:"preference_id"`
	SlotID       int64     `gorm:"not null;uniqueIndex:uq_preference_slot_mentor" json:"slot_id"`
	MentorID     int64     `gorm:"not null;uniqueIndex:uq_preference_slot_mentor" json:"mentor_id"`
	Preference   int       `gorm:"not null"                                       json:"preference"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (MatcherPreference) TableName() string { return "matcher_preferences" }
