package calendar

import (
	apperrors "csm-matcher/pkg/errors"
)

// TileSpec 平铺参数：在 Days 的 Range 内按固定 Length 切分
type TileSpec struct {
	Range    Interval
	Length   int // 分钟
	Days     []Day
	LinkDays bool // 同一子区间跨天合并为一个关联时段
}

// Validate 校验平铺参数
func (s TileSpec) Validate() error {
	if err := s.Range.Validate(); err != nil {
		return apperrors.Within("range", err)
	}
	if s.Length <= 0 {
		return apperrors.Invalid("length", "时长必须大于 0")
	}
	if len(s.Days) == 0 {
		return apperrors.Invalid("days", "至少选择一天")
	}
	seen := make(map[Day]bool, len(s.Days))
	for _, d := range s.Days {
		if !d.Valid() {
			return apperrors.Invalid("days", "无效的星期 %d", int(d))
		}
		if seen[d] {
			return apperrors.Invalid("days", "重复的星期 %s", d)
		}
		seen[d] = true
	}
	return nil
}

// Intervals 从 Range.Start 起连续切分，直到下一段会越过 Range.End
func (s TileSpec) Intervals() []Interval {
	var out []Interval
	length := Clock(s.Length)
	for t := s.Range.Start; t+length <= s.Range.End; t += length {
		out = append(out, Interval{Start: t, End: t + length})
	}
	return out
}

// Tile 生成平铺时段：
//   - LinkDays: 每个子区间一个时段，Times 按 Days 顺序各含一天
//   - 否则: 每个 (子区间, 天) 一个独立时段
func Tile(spec TileSpec) ([]Slot, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	intervals := spec.Intervals()
	slots := make([]Slot, 0, len(intervals)*len(spec.Days))
	for _, iv := range intervals {
		if spec.LinkDays {
			times := make([]Time, 0, len(spec.Days))
			for _, d := range spec.Days {
				times = append(times, Time{Day: d, Interval: iv})
			}
			slots = append(slots, Slot{Times: times})
			continue
		}
		for _, d := range spec.Days {
			slots = append(slots, Slot{Times: []Time{{Day: d, Interval: iv}}})
		}
	}
	return slots, nil
}
