package calendar

import (
	"fmt"
	"sort"

	apperrors "csm-matcher/pkg/errors"
)

// ── 日历重叠布局 ──────────────────────────────────────────────
//
// 同一天内的事件按扫描线分配列（track）：
//   - 每个事件产生 START/END 两个标记，共享同一个 *Placement
//   - 按时间升序；同一时刻 END 先于 START（首尾相接的事件可复用同一列）
//   - START 取当前未占用的最小列号，END 释放该列
//   - overlapping 从 0 回到 0 之间为一个簇，簇内事件共享 TotalTracks = 簇内最大并发数
// ─────────────────────────────────────────────────────────────

// EventKind 日历事件来源
type EventKind string

const (
	EventSaved    EventKind = "saved"    // 已持久化的时段
	EventUnsaved  EventKind = "unsaved"  // 草稿中已创建但未提交
	EventCreating EventKind = "creating" // 正在拖拽创建
)

// Event 日历上的一个事件（某个时段的某一个时间）
type Event struct {
	Slot     int       `json:"slot"` // 所属时段下标；正在创建的事件为 -1
	Time     int       `json:"time"` // 在时段 Times 中的下标
	Kind     EventKind `json:"kind"`
	Day      Day       `json:"day"`
	Interval Interval  `json:"-"`
}

// Placement 事件的布局结果
type Placement struct {
	Event
	Track       int `json:"track"`
	TotalTracks int `json:"totalTracks"`
}

// Geometry 按列宽计算水平偏移与宽度
func (p Placement) Geometry(width float64) (left, eventWidth float64) {
	if p.TotalTracks <= 0 {
		return 0, width
	}
	eventWidth = width / float64(p.TotalTracks)
	return float64(p.Track) * eventWidth, eventWidth
}

type markerKind int

// END 排在 START 之前
const (
	markerEnd markerKind = iota
	markerStart
)

type marker struct {
	at    Clock
	kind  markerKind
	order int
	place *Placement
}

// Arrange 计算单日事件布局，输出顺序与输入一致。
// 起止时间相同或倒置的事件直接拒绝（应在上游校验）。
func Arrange(events []Event) ([]Placement, error) {
	placements := make([]Placement, len(events))
	markers := make([]marker, 0, 2*len(events))

	for i, ev := range events {
		if err := ev.Interval.Validate(); err != nil {
			return nil, apperrors.Within(fmt.Sprintf("events[%d]", i), err)
		}
		placements[i] = Placement{Event: ev, Track: -1}
		p := &placements[i]
		markers = append(markers,
			marker{at: ev.Interval.Start, kind: markerStart, order: i, place: p},
			marker{at: ev.Interval.End, kind: markerEnd, order: i, place: p},
		)
	}

	sort.Slice(markers, func(i, j int) bool {
		a, b := markers[i], markers[j]
		if a.at != b.at {
			return a.at < b.at
		}
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		return a.order < b.order
	})

	var (
		occupied    []bool
		overlapping int
		maxOverlap  int
		cluster     []*Placement
	)

	for _, m := range markers {
		switch m.kind {
		case markerStart:
			track := lowestFree(occupied)
			if track == len(occupied) {
				occupied = append(occupied, true)
			} else {
				occupied[track] = true
			}
			m.place.Track = track
			overlapping++
			if overlapping > maxOverlap {
				maxOverlap = overlapping
			}
			cluster = append(cluster, m.place)

		case markerEnd:
			occupied[m.place.Track] = false
			overlapping--
			if overlapping == 0 {
				for _, p := range cluster {
					p.TotalTracks = maxOverlap
				}
				cluster = cluster[:0]
				maxOverlap = 0
				occupied = occupied[:0]
			}
		}
	}

	return placements, nil
}

func lowestFree(occupied []bool) int {
	for i, used := range occupied {
		if !used {
			return i
		}
	}
	return len(occupied)
}

// ArrangeWeek 按星期分组后分别布局，不同星期的事件互不影响
func ArrangeWeek(events []Event) (map[Day][]Placement, error) {
	byDay := make(map[Day][]Event)
	for _, ev := range events {
		if !ev.Day.Valid() {
			return nil, apperrors.Invalid("day", "无效的星期 %d", int(ev.Day))
		}
		byDay[ev.Day] = append(byDay[ev.Day], ev)
	}

	result := make(map[Day][]Placement, len(byDay))
	for day, dayEvents := range byDay {
		placed, err := Arrange(dayEvents)
		if err != nil {
			return nil, apperrors.Within(day.String(), err)
		}
		result[day] = placed
	}
	return result, nil
}

// SlotEvents 将时段展开为日历事件（每个时间一个事件）
func SlotEvents(slots []Slot, kind EventKind) []Event {
	var events []Event
	for si, s := range slots {
		for ti, t := range s.Times {
			events = append(events, Event{
				Slot:     si,
				Time:     ti,
				Kind:     kind,
				Day:      t.Day,
				Interval: t.Interval,
			})
		}
	}
	return events
}
