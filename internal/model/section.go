package model

import "time"

// Section 提交分配后生成的正式班级，对应 sections
type Section struct {
	SectionID   int64              `gorm:"primaryKey"                            json:"section_id"`
	CourseID    int64              `gorm:"not null;index"                        json:"course_id"`
	MentorID    int64              `gorm:"not null"                              json:"mentor_id"`
	Capacity    int                `gorm:"not null;default:0"                    json:"capacity"`
	Description string             `gorm:"type:varchar(100);not null;default:''" json:"description"`
	CreatedAt   time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"    json:"created_at"`
	Spacetimes  []SectionSpacetime `gorm:"foreignKey:SectionID"                  json:"spacetimes,omitempty"`
}

// TableName 指定表名
func (Section) TableName() string { return "sections" }

// SectionSpacetime 班级的每周上课时间，对应 section_spacetimes
type SectionSpacetime struct {
	SpacetimeID     int64  `gorm:"primaryKey"                json:"spacetime_id"`
	SectionID       int64  `gorm:"not null;index"            json:"section_id"`
	Day             string `gorm:"type:varchar(9);not null"  json:"day"`        // Monday … Friday
	StartTime       string `gorm:"type:time;not null"        json:"start_time"` // HH:mm
	DurationMinutes int    `gorm:"not null"                  json:"duration_minutes"`
}

// TableName 指定表名
func (SectionSpacetime) TableName() string { return "section_spacetimes" }
