package matcher

import (
	"errors"
	"fmt"
)

// ErrInfeasible 分配问题在求解前即可判定无解
var ErrInfeasible = errors.New("分配问题无可行解")

// SlotBounds 单个时段可分配的导师人数上下限
type SlotBounds struct {
	ID  SlotID `json:"id"`
	Min int    `json:"min_mentors"`
	Max int    `json:"max_mentors"`
}

// Problem 交给外部求解器的输入
type Problem struct {
	Mentors     []MentorID   `json:"mentors"`
	Slots       []SlotBounds `json:"slots"`
	Preferences []Preference `json:"preferences"` // 偏好为 0 的配对不可分配
}

// Solution 求解结果
type Solution struct {
	Assignments []Assignment `json:"assignments"`
	Unmatched   []MentorID   `json:"unmatched"`
}

// Validate 求解前的可行性检查：
// 每个时段 0 <= min <= max；Σmin <= Σmax；导师数 <= Σmax；Σmin <= 导师数
func (p *Problem) Validate() error {
	if len(p.Slots) == 0 {
		return fmt.Errorf("%w: 没有任何时段", ErrInfeasible)
	}
	if len(p.Mentors) == 0 {
		return fmt.Errorf("%w: 没有任何导师", ErrInfeasible)
	}

	var totalMin, totalMax int
	for _, s := range p.Slots {
		if s.Min < 0 || s.Max < 0 {
			return fmt.Errorf("%w: 时段 %d 的人数上下限不能为负", ErrInfeasible, s.ID)
		}
		if s.Min > s.Max {
			return fmt.Errorf("%w: 时段 %d 的最少人数 %d 大于最多人数 %d", ErrInfeasible, s.ID, s.Min, s.Max)
		}
		totalMin += s.Min
		totalMax += s.Max
	}

	mentors := len(p.Mentors)
	if totalMin > totalMax {
		return fmt.Errorf("%w: 最少人数总和 %d 大于最多人数总和 %d", ErrInfeasible, totalMin, totalMax)
	}
	if mentors > totalMax {
		return fmt.Errorf("%w: 导师数 %d 超过时段容量总和 %d", ErrInfeasible, mentors, totalMax)
	}
	if totalMin > mentors {
		return fmt.Errorf("%w: 最少人数总和 %d 超过导师数 %d", ErrInfeasible, totalMin, mentors)
	}
	return nil
}

// Check 校验求解结果与问题一致：配对只引用已知导师/时段，每位导师至多一次，
// 偏好为 0 的配对与人数上限都不能违反
func (p *Problem) Check(sol *Solution) error {
	bounds := make(map[SlotID]SlotBounds, len(p.Slots))
	for _, s := range p.Slots {
		bounds[s.ID] = s
	}
	known := make(map[MentorID]bool, len(p.Mentors))
	for _, m := range p.Mentors {
		known[m] = true
	}
	zero := make(map[Assignment]bool)
	for _, pref := range p.Preferences {
		if pref.Value == 0 {
			zero[Assignment{Slot: pref.Slot, Mentor: pref.Mentor}] = true
		}
	}

	seen := make(map[MentorID]bool, len(sol.Assignments))
	perSlot := make(map[SlotID]int)
	for _, a := range sol.Assignments {
		if _, ok := bounds[a.Slot]; !ok {
			return fmt.Errorf("求解结果引用了未知时段 %d", a.Slot)
		}
		if !known[a.Mentor] {
			return fmt.Errorf("求解结果引用了未知导师 %d", a.Mentor)
		}
		if seen[a.Mentor] {
			return fmt.Errorf("导师 %d 被重复分配", a.Mentor)
		}
		if zero[a] {
			return fmt.Errorf("导师 %d 被分配到其不可用的时段 %d", a.Mentor, a.Slot)
		}
		seen[a.Mentor] = true
		perSlot[a.Slot]++
	}
	for id, n := range perSlot {
		if n > bounds[id].Max {
			return fmt.Errorf("时段 %d 分配人数 %d 超过上限 %d", id, n, bounds[id].Max)
		}
	}
	return nil
}
