package dto

import (
	"time"

	"csm-matcher/internal/calendar"
	"csm-matcher/internal/matcher"
)

// ── 时段 ──

// SlotPayload 提交的单个时段；id 为空表示新建
type SlotPayload struct {
	ID         *int64          `json:"id,omitempty"`
	Times      []calendar.Time `json:"times"`
	MinMentors *int            `json:"minMentors,omitempty" binding:"omitempty,min=0"`
	MaxMentors *int            `json:"maxMentors,omitempty" binding:"omitempty,min=0"`
}

// ReplaceSlotsRequest 整体替换时段；空列表表示清空
type ReplaceSlotsRequest struct {
	Slots []SlotPayload `json:"slots" binding:"dive"`
}

// SlotResponse 已保存的时段
type SlotResponse struct {
	ID         int64           `json:"id"`
	Times      []calendar.Time `json:"times"`
	MinMentors int             `json:"minMentors"`
	MaxMentors int             `json:"maxMentors"`
}

// SlotListResponse GET slots
type SlotListResponse struct {
	Slots []SlotResponse `json:"slots"`
}

// ReplaceSlotsResponse 替换结果
type ReplaceSlotsResponse struct {
	calendar.Submission
	Slots []SlotResponse `json:"slots"`
}

// TileRequest 平铺预览参数
type TileRequest struct {
	StartTime string   `json:"startTime" binding:"required,hhmm"`
	EndTime   string   `json:"endTime"   binding:"required,hhmm"`
	Length    int      `json:"length"    binding:"required,min=1,max=1440"`
	Days      []string `json:"days"      binding:"required,min=1,max=5,dive,weekday"`
	LinkDays  bool     `json:"linkDays"`
}

// TileResponse 平铺预览结果（未持久化）
type TileResponse struct {
	Slots []calendar.Slot `json:"slots"`
}

// ImportResponse iCalendar 导入预览（未持久化）
type ImportResponse struct {
	Slots   []calendar.Slot `json:"slots"`
	Skipped int             `json:"skipped"` // 周末或跨天等无法表示的事件数
}

// CalendarEvent 布局后的日历事件
type CalendarEvent struct {
	SlotID      int64  `json:"slotId"`
	TimeIndex   int    `json:"timeIndex"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Track       int    `json:"track"`
	TotalTracks int    `json:"totalTracks"`
}

// CalendarDay 单日布局
type CalendarDay struct {
	Day    calendar.Day    `json:"day"`
	Events []CalendarEvent `json:"events"`
}

// CalendarResponse 一周布局，周一至周五各一项
type CalendarResponse struct {
	DayStart string        `json:"dayStart"`
	DayEnd   string        `json:"dayEnd"`
	Interval int           `json:"interval"`
	Days     []CalendarDay `json:"days"`
}

// ── 偏好 ──

// PreferencesResponse 协调员查看全部偏好；bySlot 供按时段审阅
type PreferencesResponse struct {
	Open      bool                                          `json:"open"`
	Responses []matcher.Preference                          `json:"responses"`
	BySlot    map[matcher.SlotID][]matcher.MentorPreference `json:"bySlot"`
}

// MyPreferencesResponse 导师查看自己的偏好
type MyPreferencesResponse struct {
	Open        bool                     `json:"open"`
	MentorID    int64                    `json:"mentorId"`
	Preferences []matcher.SlotPreference `json:"preferences"`
}

// SubmitPreference 导师对一个时段的评分
type SubmitPreference struct {
	ID         int64 `json:"id"         binding:"required"`
	Preference *int  `json:"preference" binding:"required,min=0"`
}

// SubmitPreferencesResponse 提交结果
type SubmitPreferencesResponse struct {
	Count int `json:"count"`
}

// ── 配置 / 求解 ──

// SlotBounds 时段人数上下限
type SlotBounds struct {
	ID         int64 `json:"id"         binding:"required"`
	MinMentors int   `json:"minMentors" binding:"min=0"`
	MaxMentors int   `json:"maxMentors" binding:"min=0,gtefield=MinMentors"`
}

// ConfigureRequest 所有字段可选；run 在其他修改生效后执行
type ConfigureRequest struct {
	Open    *bool        `json:"open"`
	CloseAt *time.Time   `json:"closeAt"`
	Slots   []SlotBounds `json:"slots" binding:"dive"`
	Run     bool         `json:"run"`
}

// ConfigResponse 当前配置
type ConfigResponse struct {
	Open    bool         `json:"open"`
	CloseAt *time.Time   `json:"closeAt"`
	Slots   []SlotBounds `json:"slots"`
}

// RunResult 求解结果摘要
type RunResult struct {
	Assigned  int      `json:"assigned"`
	Unmatched []string `json:"unmatched"` // 未分配到时段的导师邮箱
}

// ConfigureResponse POST configure
type ConfigureResponse struct {
	ConfigResponse
	Run *RunResult `json:"run,omitempty"`
}

// ── 分配 ──

// SectionInfo 分配对应班级的信息
type SectionInfo struct {
	Capacity    int    `json:"capacity"    binding:"min=0"`
	Description string `json:"description" binding:"max=100"`
}

// AssignmentEntry 一条分配
type AssignmentEntry struct {
	Slot    int64       `json:"slot"    binding:"required"`
	Mentor  int64       `json:"mentor"  binding:"required"`
	Section SectionInfo `json:"section"`
}

// AssignmentResponse GET assignment
type AssignmentResponse struct {
	Assignment []AssignmentEntry `json:"assignment"`
}

// AssignmentRequest PUT assignment
type AssignmentRequest struct {
	Assignment []AssignmentEntry `json:"assignment" binding:"dive"`
}

// StageResponse 当前阶段与推导依据
type StageResponse struct {
	Stage matcher.Stage `json:"stage"`
	Facts matcher.Facts `json:"facts"`
}

// CloseExpiredResponse 运维接口：本次关闭的表单数
type CloseExpiredResponse struct {
	Closed int64 `json:"closed"`
}

// CommitResponse 提交为正式班级
type CommitResponse struct {
	Sections int `json:"sections"`
}

// ── 导师名单 ──

// MentorsRequest 批量添加/删除导师
type MentorsRequest struct {
	Mentors []string `json:"mentors" binding:"required,min=1,dive,required"`
}

// AddMentorsResponse skipped 为已存在或格式无效的邮箱
type AddMentorsResponse struct {
	Skipped []string `json:"skipped"`
}

// RemoveMentorsResponse 删除结果
type RemoveMentorsResponse struct {
	Removed int64 `json:"removed"`
}

// MentorResponse 名单中的导师
type MentorResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// MentorListResponse GET mentors
type MentorListResponse struct {
	Mentors []MentorResponse `json:"mentors"`
}

// ── 活跃匹配器 ──

// ActiveMatcher 调用者参与的匹配器
type ActiveMatcher struct {
	CourseID   int64  `json:"courseId"`
	CourseName string `json:"courseName"`
	Role       string `json:"role"` // coordinator | mentor
	Open       bool   `json:"open"`
}

// ActiveResponse GET /matcher/active
type ActiveResponse struct {
	Matchers []ActiveMatcher `json:"matchers"`
}
