package model

import (
	"time"

	"gorm.io/datatypes"

	"csm-matcher/internal/calendar"
)

// MatcherSlot 候选时段，对应 matcher_slots
// Times 以 JSONB 存储 [{day, startTime, endTime}]，与接口格式一致
type MatcherSlot struct {
	SlotID     int64                               `gorm:"primaryKey"                         json:"slot_id"`
	CourseID   int64                               `gorm:"not null;index"                     json:"course_id"`
	Times      datatypes.JSONType[[]calendar.Time] `gorm:"type:jsonb;not null"                json:"times"`
	MinMentors int                                 `gorm:"not null;default:1"                 json:"min_mentors"`
	MaxMentors int                                 `gorm:"not null;default:1"                 json:"max_mentors"`
	CreatedAt  time.Time                           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (MatcherSlot) TableName() string { return "matcher_slots" }

// CalendarSlot 转为日历时段
func (s *MatcherSlot) CalendarSlot() calendar.Slot {
	id := s.SlotID
	return calendar.Slot{ID: &id, Times: s.Times.Data()}
}
