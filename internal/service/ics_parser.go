package service

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"csm-matcher/internal/calendar"
	"csm-matcher/internal/model"
)

// ── iCalendar 读写 ──────────────────────────────────────────
//
// 导出：每个时段的每个时间生成一个 VEVENT，RRULE:FREQ=WEEKLY，
// DTSTART 取 now 之后（含当天）该星期的第一次出现，带 TZID 保持墙上时间。
// 同一时段的多个时间共享 SUMMARY，导入时据此还原为关联时段。
//
// 导入：只取 DTSTART/DTEND 的星期与时刻，周末和跨天事件跳过。
// ─────────────────────────────────────────────────────────────

// ICSMaxFileSize 导入文件大小上限
const ICSMaxFileSize = 5 * 1024 * 1024 // 5MB

const (
	icsProductID   = "-//csm-matcher//slots//ZH"
	icsLocalLayout = "20060102T150405"
)

// BuildSlotsICS 生成课程时段的 iCalendar 文本
func BuildSlotsICS(courseName string, slots []model.MatcherSlot, loc *time.Location, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(courseName)

	now = now.In(loc)
	tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{loc.String()}}
	for _, slot := range slots {
		summary := fmt.Sprintf("%s 时段 #%d", courseName, slot.SlotID)
		for i, t := range slot.Times.Data() {
			start := nextOccurrence(now, t.Day, t.Interval.Start, loc)
			end := start.Add(time.Duration(t.Interval.Duration()) * time.Minute)

			event := cal.AddEvent(fmt.Sprintf("slot-%d-%d@csm-matcher", slot.SlotID, i))
			event.SetDtStampTime(now)
			event.SetSummary(summary)
			event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalLayout), tzid)
			event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsLocalLayout), tzid)
			event.AddRrule("FREQ=WEEKLY")
		}
	}
	return cal.Serialize()
}

// nextOccurrence 从 from 所在日期起（含当天）下一个 day 的 at 时刻
func nextOccurrence(from time.Time, day calendar.Day, at calendar.Clock, loc *time.Location) time.Time {
	// calendar.Day 1=周一；time.Weekday 0=周日
	offset := (int(day)%7 - int(from.Weekday()) + 7) % 7
	date := from.AddDate(0, 0, offset)
	return time.Date(date.Year(), date.Month(), date.Day(), at.Hour(), at.Minute(), 0, 0, loc)
}

// ParseSlotsICS 解析 iCalendar 为候选时段；同一 SUMMARY 的事件合并为一个关联时段。
// 返回值 skipped 为无法表示为工作日时间的事件数。
func ParseSlotsICS(reader io.Reader, loc *time.Location) (slots []calendar.Slot, skipped int, err error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, ICSMaxFileSize))
	if err != nil {
		return nil, 0, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	index := make(map[string]int)
	seen := make(map[string]bool)
	for _, evt := range cal.Events() {
		t, ok := parseSlotTime(evt, loc)
		if !ok {
			skipped++
			continue
		}

		name := ""
		if summary := evt.GetProperty(ics.ComponentPropertySummary); summary != nil {
			name = strings.TrimSpace(summary.Value)
		}
		if seen[name+"|"+t.String()] {
			continue
		}
		seen[name+"|"+t.String()] = true

		// 无标题事件各自成为独立时段
		if i, ok := index[name]; ok && name != "" {
			slots[i].Times = append(slots[i].Times, t)
			continue
		}
		index[name] = len(slots)
		slots = append(slots, calendar.Slot{Times: []calendar.Time{t}})
	}

	for i := range slots {
		calendar.SortTimes(slots[i].Times)
	}
	return slots, skipped, nil
}

func parseSlotTime(evt *ics.VEvent, loc *time.Location) (calendar.Time, bool) {
	start, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return calendar.Time{}, false
	}
	end, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		return calendar.Time{}, false
	}

	day := calendar.Day((int(start.Weekday())+6)%7 + 1)
	if !day.Valid() {
		return calendar.Time{}, false
	}
	t := calendar.Time{Day: day, Interval: calendar.Interval{
		Start: calendar.At(start.Hour(), start.Minute()),
		End:   calendar.At(end.Hour(), end.Minute()),
	}}
	// 恰好结束于次日零点视为 24:00
	if end.Format("20060102") != start.Format("20060102") {
		if end.Hour() != 0 || end.Minute() != 0 || end.Sub(start) > 24*time.Hour {
			return calendar.Time{}, false
		}
		t.Interval.End = calendar.EndOfDay
	}
	if t.Validate() != nil {
		return calendar.Time{}, false
	}
	return t, true
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", icsLocalLayout} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
