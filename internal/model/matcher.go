package model

import "time"

// Matcher 课程的匹配器，对应 matchers
type Matcher struct {
	CourseID   int64      `gorm:"primaryKey;autoIncrement:false"  json:"course_id"`
	CourseName string     `gorm:"type:varchar(100);not null"      json:"course_name"`
	IsOpen     bool       `gorm:"not null;default:false"          json:"is_open"`  // 偏好表单是否对导师开放
	CloseAt    *time.Time `gorm:"type:timestamptz"                json:"close_at"` // 到期后由定时任务关闭表单
	Active     bool       `gorm:"not null;default:true"           json:"active"`   // 提交为正式班级后置为 false
	VersionedModel
}

// TableName 指定表名
func (Matcher) TableName() string { return "matchers" }

// MatcherCoordinator 协调员，对应 matcher_coordinators
type MatcherCoordinator struct {
	CourseID  int64     `gorm:"primaryKey;autoIncrement:false"     json:"course_id"`
	Email     string    `gorm:"type:varchar(254);primaryKey"       json:"email"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (MatcherCoordinator) TableName() string { return "matcher_coordinators" }

// MatcherMentor 允许提交偏好的导师，对应 matcher_mentors
type MatcherMentor struct {
	MentorID  int64     `gorm:"primaryKey"                                   json:"mentor_id"`
	CourseID  int64     `gorm:"not null;uniqueIndex:uq_mentor_course_email"  json:"course_id"`
	Email     string    `gorm:"type:varchar(254);not null;uniqueIndex:uq_mentor_course_email" json:"email"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"           json:"created_at"`
}

// TableName 指定表名
func (MatcherMentor) TableName() string { return "matcher_mentors" }
