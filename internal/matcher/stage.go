package matcher

import (
	"encoding/json"
	"fmt"
)

// Stage 协调员视角的工作流阶段。只由观测到的事实推导，从不落库。
type Stage int

const (
	StageCreate Stage = iota
	StageRelease
	StageConfigure
	StageEdit
)

var stageNames = [...]string{"CREATE", "RELEASE", "CONFIGURE", "EDIT"}

func (s Stage) String() string {
	if s < StageCreate || s > StageEdit {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Stage) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range stageNames {
		if n == name {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("未知阶段: %q", name)
}

// Facts 推导阶段所需的四项事实
type Facts struct {
	FormOpen        bool `json:"formOpen"`
	SlotCount       int  `json:"slotCount"`
	MentorsWithPref int  `json:"mentorsWithPreferences"` // PreferencesByMentor 的键数
	AssignmentCount int  `json:"assignmentCount"`
}

// DeriveStage 优先级：已有分配 > 表单开放 > 已有偏好 > 默认 CREATE。
// SlotCount 不参与判定：无时段且表单关闭同样落到 CREATE。
func DeriveStage(f Facts) Stage {
	switch {
	case f.AssignmentCount > 0:
		return StageEdit
	case f.FormOpen:
		return StageRelease
	case f.MentorsWithPref > 0:
		return StageConfigure
	default:
		return StageCreate
	}
}
