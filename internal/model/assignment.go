package model

// MatcherAssignment 求解或人工编辑后的分配，对应 matcher_assignments
type MatcherAssignment struct {
	AssignmentID int64  `gorm:"primaryKey"                              json:"assignment_id"`
	CourseID     int64  `gorm:"not null;uniqueIndex:uq_assignment_mentor" json:"course_id"`
	SlotID       int64  `gorm:"not null"                                json:"slot_id"`
	MentorID     int64  `gorm:"not null;uniqueIndex:uq_assignment_mentor" json:"mentor_id"`
	Capacity     int    `gorm:"not null;default:0"                      json:"capacity"`
	Description  string `gorm:"type:varchar(100);not null;default:''"   json:"description"`
}

// TableName 指定表名
func (MatcherAssignment) TableName() string { return "matcher_assignments" }
