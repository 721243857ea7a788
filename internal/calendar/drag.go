package calendar

import (
	"errors"
	"fmt"

	apperrors "csm-matcher/pkg/errors"
)

var (
	ErrDragActive   = errors.New("已有正在进行的拖拽创建")
	ErrDragFinished = errors.New("拖拽已结束")
	ErrNoPending    = errors.New("没有待合并的时间")
)

// Grid 日历网格：可视范围与单元格长度
type Grid struct {
	Bounds Interval
	Cell   int // 分钟
}

// DefaultGrid 08:00-18:00，30 分钟一格
var DefaultGrid = Grid{Bounds: Interval{Start: At(8, 0), End: At(18, 0)}, Cell: 30}

// Validate 校验网格参数
func (g Grid) Validate() error {
	if err := g.Bounds.Validate(); err != nil {
		return apperrors.Within("bounds", err)
	}
	if g.Cell <= 0 || g.Bounds.Duration()%g.Cell != 0 {
		return apperrors.Invalid("cell", "单元格长度 %d 无法整除可视范围", g.Cell)
	}
	return nil
}

// CellAt 将任意时刻对齐到所在单元格起点；越界返回 false
func (g Grid) CellAt(c Clock) (Clock, bool) {
	if !g.Bounds.Contains(c) {
		return 0, false
	}
	offset := int(c-g.Bounds.Start) / g.Cell * g.Cell
	return g.Bounds.Start + Clock(offset), true
}

// ── 草稿 ──

// Draft 创建阶段的临时时段集合，提交前不落库。
// 非并发安全：只由单个编辑会话持有。
type Draft struct {
	grid    Grid
	slots   []Slot
	pending []Time // 连续拖拽得到、尚未合并为一个关联时段的时间
	active  *Drag
}

// NewDraft 以已有时段为初始内容创建草稿
func NewDraft(grid Grid, initial []Slot) (*Draft, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	d := &Draft{grid: grid, slots: make([]Slot, 0, len(initial))}
	for _, s := range initial {
		d.slots = append(d.slots, s.Clone())
	}
	return d, nil
}

// Slots 返回当前时段副本
func (d *Draft) Slots() []Slot {
	out := make([]Slot, len(d.slots))
	for i, s := range d.slots {
		out[i] = s.Clone()
	}
	return out
}

// Pending 尚未合并的时间
func (d *Draft) Pending() []Time {
	return append([]Time(nil), d.pending...)
}

// Creating 是否处于拖拽创建模式
func (d *Draft) Creating() bool {
	return d.active != nil
}

// BeginDrag 进入创建模式，返回作用域对象；调用方须 defer drag.Close()
func (d *Draft) BeginDrag(day Day, at Clock) (*Drag, error) {
	if d.active != nil {
		return nil, ErrDragActive
	}
	if !day.Valid() {
		return nil, apperrors.Invalid("day", "无效的星期 %d", int(day))
	}
	cell, ok := d.grid.CellAt(at)
	if !ok {
		return nil, apperrors.Invalid("start", "%s 不在日历范围 %s 内", at, d.grid.Bounds)
	}
	drag := &Drag{draft: d, day: day, anchor: cell, current: cell}
	d.active = drag
	return drag, nil
}

// FinishSlot 将待合并时间作为一个（可能关联的）时段加入草稿
func (d *Draft) FinishSlot() (Slot, error) {
	if len(d.pending) == 0 {
		return Slot{}, ErrNoPending
	}
	slot := Slot{Times: d.pending}
	d.pending = nil
	d.slots = append(d.slots, slot)
	return slot.Clone(), nil
}

// DiscardPending 丢弃待合并时间
func (d *Draft) DiscardPending() {
	d.pending = nil
}

// AddTiled 追加平铺生成的时段
func (d *Draft) AddTiled(spec TileSpec) ([]Slot, error) {
	tiled, err := Tile(spec)
	if err != nil {
		return nil, err
	}
	d.slots = append(d.slots, tiled...)
	return tiled, nil
}

// Remove 删除第 i 个时段
func (d *Draft) Remove(i int) error {
	if i < 0 || i >= len(d.slots) {
		return fmt.Errorf("时段下标越界: %d", i)
	}
	d.slots = append(d.slots[:i], d.slots[i+1:]...)
	return nil
}

// Events 草稿的日历事件：已保存/未保存时段、待合并时间以及正在拖拽的时间
func (d *Draft) Events() []Event {
	var events []Event
	for si, s := range d.slots {
		kind := EventUnsaved
		if s.Persisted() {
			kind = EventSaved
		}
		for ti, t := range s.Times {
			events = append(events, Event{Slot: si, Time: ti, Kind: kind, Day: t.Day, Interval: t.Interval})
		}
	}
	for ti, t := range d.pending {
		events = append(events, Event{Slot: len(d.slots), Time: ti, Kind: EventUnsaved, Day: t.Day, Interval: t.Interval})
	}
	if d.active != nil {
		cur := d.active.Current()
		events = append(events, Event{Slot: -1, Kind: EventCreating, Day: cur.Day, Interval: cur.Interval})
	}
	return events
}

// ── 拖拽 ──

// Drag 一次拖拽创建。进入创建模式时获取，Release/Cancel/Close 任一都会释放，
// 释放后草稿回到非创建模式。
type Drag struct {
	draft   *Draft
	day     Day
	anchor  Clock // 按下时所在单元格
	current Clock // 当前所在单元格
	done    bool
}

// Extend 拖动到新的单元格；越界位置忽略（离开后回到范围内可继续）
func (g *Drag) Extend(at Clock) error {
	if g.done {
		return ErrDragFinished
	}
	if cell, ok := g.draft.grid.CellAt(at); ok {
		g.current = cell
	}
	return nil
}

// Current 当前拖拽覆盖的时间；向锚点上方拖动时交换起止，区间始终包含锚点单元格
func (g *Drag) Current() Time {
	cell := Clock(g.draft.grid.Cell)
	iv := Interval{Start: g.anchor, End: g.current + cell}
	if g.current < g.anchor {
		iv = Interval{Start: g.current, End: g.anchor + cell}
	}
	return Time{Day: g.day, Interval: iv}
}

// Release 在 at 处松开。落在日历范围外视为取消，不产生任何时间。
func (g *Drag) Release(at Clock) (Time, bool, error) {
	if g.done {
		return Time{}, false, ErrDragFinished
	}
	cell, ok := g.draft.grid.CellAt(at)
	if !ok {
		g.finish()
		return Time{}, false, nil
	}
	g.current = cell
	t := g.Current()
	g.draft.pending = append(g.draft.pending, t)
	g.finish()
	return t, true, nil
}

// Cancel 窗口失焦等异常退出：丢弃本次拖拽
func (g *Drag) Cancel() {
	if !g.done {
		g.finish()
	}
}

// Close 释放作用域；未松开时等同 Cancel
func (g *Drag) Close() {
	g.Cancel()
}

func (g *Drag) finish() {
	g.done = true
	if g.draft.active == g {
		g.draft.active = nil
	}
}
