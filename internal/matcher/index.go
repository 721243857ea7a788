package matcher

// SlotID 时段 ID
type SlotID int64

// MentorID 导师 ID（课程内）
type MentorID int64

// Preference 服务端的扁平偏好记录
type Preference struct {
	Slot   SlotID   `json:"slot"`
	Mentor MentorID `json:"mentor"`
	Value  int      `json:"preference"`
}

// SlotPreference 按导师分组后的条目
type SlotPreference struct {
	Slot  SlotID `json:"slot"`
	Value int    `json:"preference"`
}

// MentorPreference 按时段分组后的条目
type MentorPreference struct {
	Mentor MentorID `json:"mentor"`
	Value  int      `json:"preference"`
}

// Assignment 一条导师-时段配对
type Assignment struct {
	Slot   SlotID   `json:"slot"`
	Mentor MentorID `json:"mentor"`
}

// PreferencesByMentor 按导师分组；组内保持输入顺序
func PreferencesByMentor(prefs []Preference) map[MentorID][]SlotPreference {
	out := make(map[MentorID][]SlotPreference)
	for _, p := range prefs {
		out[p.Mentor] = append(out[p.Mentor], SlotPreference{Slot: p.Slot, Value: p.Value})
	}
	return out
}

// PreferencesBySlot 按时段分组；组内保持输入顺序
func PreferencesBySlot(prefs []Preference) map[SlotID][]MentorPreference {
	out := make(map[SlotID][]MentorPreference)
	for _, p := range prefs {
		out[p.Slot] = append(out[p.Slot], MentorPreference{Mentor: p.Mentor, Value: p.Value})
	}
	return out
}

// AssignmentsBySlot 按时段分组
func AssignmentsBySlot(assignments []Assignment) map[SlotID][]MentorID {
	out := make(map[SlotID][]MentorID)
	for _, a := range assignments {
		out[a.Slot] = append(out[a.Slot], a.Mentor)
	}
	return out
}

// AssignmentsByMentor 每位导师被分到的时段
func AssignmentsByMentor(assignments []Assignment) map[MentorID][]SlotID {
	out := make(map[MentorID][]SlotID)
	for _, a := range assignments {
		out[a.Mentor] = append(out[a.Mentor], a.Slot)
	}
	return out
}
