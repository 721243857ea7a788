package calendar

import (
	"fmt"
	"sort"

	apperrors "csm-matcher/pkg/errors"
)

// Slot 一个候选的每周固定时段，可能由多个关联（linked）时间组成。
// ID 为空表示尚未持久化。
type Slot struct {
	ID    *int64 `json:"id,omitempty"`
	Times []Time `json:"times"`
}

// Linked 是否为关联时段（同一时段在一周内的多个时间）
func (s Slot) Linked() bool {
	return len(s.Times) > 1
}

// Persisted 是否已有服务端分配的 ID
func (s Slot) Persisted() bool {
	return s.ID != nil && *s.ID > 0
}

// Validate times 非空且每个时间合法
func (s Slot) Validate() error {
	if len(s.Times) == 0 {
		return apperrors.Invalid("times", "时段至少包含一个时间")
	}
	for i, t := range s.Times {
		if err := t.Validate(); err != nil {
			return apperrors.Within(fmt.Sprintf("times[%d]", i), err)
		}
	}
	return nil
}

// Clone 深拷贝，避免调用方与草稿共享底层数组
func (s Slot) Clone() Slot {
	out := Slot{Times: append([]Time(nil), s.Times...)}
	if s.ID != nil {
		id := *s.ID
		out.ID = &id
	}
	return out
}

// ValidateSlots 逐个校验整组时段
func ValidateSlots(slots []Slot) error {
	for i, s := range slots {
		if err := s.Validate(); err != nil {
			return apperrors.Within(fmt.Sprintf("slots[%d]", i), err)
		}
	}
	return nil
}

// SortTimes 按 星期 → 开始时间 → 结束时间 排序（原地）
func SortTimes(times []Time) {
	sort.SliceStable(times, func(i, j int) bool {
		if times[i].Day != times[j].Day {
			return times[i].Day < times[j].Day
		}
		if times[i].Interval.Start != times[j].Interval.Start {
			return times[i].Interval.Start < times[j].Interval.Start
		}
		return times[i].Interval.End < times[j].Interval.End
	})
}

// ── 提交确认 ──

// SubmissionKind 整体替换提交的类型
type SubmissionKind string

const (
	// SubmissionClear 空列表：清空该课程全部时段
	SubmissionClear SubmissionKind = "clear"
	// SubmissionReplace 非空列表：以新列表整体覆盖
	SubmissionReplace SubmissionKind = "replace"
)

// Submission 提交前的确认摘要
type Submission struct {
	Kind        SubmissionKind `json:"kind"`
	SlotCount   int            `json:"slotCount"`
	LinkedCount int            `json:"linkedCount"`
	TimeCount   int            `json:"timeCount"`
}

// DescribeSubmission 生成确认摘要；空列表是合法请求，语义为清空
func DescribeSubmission(slots []Slot) Submission {
	sub := Submission{Kind: SubmissionReplace, SlotCount: len(slots)}
	if len(slots) == 0 {
		sub.Kind = SubmissionClear
		return sub
	}
	for _, s := range slots {
		if s.Linked() {
			sub.LinkedCount++
		}
		sub.TimeCount += len(s.Times)
	}
	return sub
}
