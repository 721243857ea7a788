package calendar

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "csm-matcher/pkg/errors"
)

// ── 星期 ──

// Day 星期（仅周一至周五），数值与 time_slots.day_of_week 约定一致：1=周一 … 5=周五
type Day int

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

// Weekdays 按顺序列出所有可用星期
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayNames = map[Day]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
}

// Valid 是否为周一至周五
func (d Day) Valid() bool {
	return d >= Monday && d <= Friday
}

func (d Day) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Day(%d)", int(d))
}

// ParseDay 解析英文星期名（大小写不敏感），周末不在模型内
func ParseDay(s string) (Day, error) {
	for d, name := range dayNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return d, nil
		}
	}
	return 0, apperrors.Invalid("day", "无效的星期 %q", s)
}

func (d Day) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("无效的星期: %d", int(d))
	}
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperrors.Invalid("day", "星期必须为字符串")
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ── 时刻 ──

// Clock 当日时刻，以午夜起的分钟数表示。墙上时间，不做任何时区换算。
type Clock int

// EndOfDay 允许作为区间结束的最大时刻 24:00
const EndOfDay Clock = 24 * 60

// At 由时、分构造 Clock
func At(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock 解析 "HH:mm"；兼容 PostgreSQL time 类型的 "HH:mm:ss"（秒被舍弃）
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, apperrors.Invalid("", "时间格式应为 HH:mm，实际为 %q", s)
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, apperrors.Invalid("", "时间格式应为 HH:mm，实际为 %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, apperrors.Invalid("", "无效的小时 %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, apperrors.Invalid("", "无效的分钟 %q", parts[1])
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return 0, apperrors.Invalid("", "时间超出范围 %q", s)
	}
	c := At(hour, minute)
	if c > EndOfDay {
		return 0, apperrors.Invalid("", "时间超出范围 %q", s)
	}
	return c, nil
}

// MustParseClock 仅用于常量与测试
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hour 小时部分
func (c Clock) Hour() int { return int(c) / 60 }

// Minute 分钟部分
func (c Clock) Minute() int { return int(c) % 60 }

// String 序列化为 24 小时制 "HH:mm"
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperrors.Invalid("", "时间必须为 HH:mm 字符串")
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ── 区间 ──

// Interval 当日半开区间 [Start, End)
type Interval struct {
	Start Clock
	End   Clock
}

// Validate 校验 Start < End 且落在当日范围内
func (iv Interval) Validate() error {
	if iv.Start < 0 || iv.End > EndOfDay {
		return apperrors.Invalid("", "区间 %s 超出当日范围", iv)
	}
	if iv.Start >= iv.End {
		return apperrors.Invalid("", "开始时间 %s 必须早于结束时间 %s", iv.Start, iv.End)
	}
	return nil
}

// Duration 区间长度（分钟）
func (iv Interval) Duration() int {
	return int(iv.End - iv.Start)
}

// Overlaps 半开语义：首尾相接不算重叠
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains 时刻 c 是否落在 [Start, End) 内
func (iv Interval) Contains(c Clock) bool {
	return iv.Start <= c && c < iv.End
}

// Covers other 是否完全落在 iv 内
func (iv Interval) Covers(other Interval) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

// Union 返回包含两者的最小区间；仅在调用方已确认二者相关时才有意义
func (iv Interval) Union(other Interval) Interval {
	u := iv
	if other.Start < u.Start {
		u.Start = other.Start
	}
	if other.End > u.End {
		u.End = other.End
	}
	return u
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s,%s)", iv.Start, iv.End)
}

// ── 单次时间 ──

// Time 某个星期上的一个区间
type Time struct {
	Day      Day
	Interval Interval
}

// Validate 校验星期与区间
func (t Time) Validate() error {
	if !t.Day.Valid() {
		return apperrors.Invalid("day", "无效的星期 %d", int(t.Day))
	}
	if err := t.Interval.Validate(); err != nil {
		return apperrors.Within("interval", err)
	}
	return nil
}

// Overlaps 同一天且区间重叠
func (t Time) Overlaps(other Time) bool {
	return t.Day == other.Day && t.Interval.Overlaps(other.Interval)
}

func (t Time) String() string {
	return fmt.Sprintf("%s %s-%s", t.Day, t.Interval.Start, t.Interval.End)
}

// wireTime 传输格式 {day, startTime, endTime}
type wireTime struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (t Time) MarshalJSON() ([]byte, error) {
	if !t.Day.Valid() {
		return nil, fmt.Errorf("无效的星期: %d", int(t.Day))
	}
	return json.Marshal(wireTime{
		Day:       t.Day.String(),
		StartTime: t.Interval.Start.String(),
		EndTime:   t.Interval.End.String(),
	})
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var w wireTime
	if err := json.Unmarshal(b, &w); err != nil {
		return apperrors.Invalid("", "时间格式无效")
	}
	parsed, err := ParseWireTime(w.Day, w.StartTime, w.EndTime)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseWireTime 由三个字符串字段构造并校验 Time
func ParseWireTime(day, startTime, endTime string) (Time, error) {
	if day == "" || startTime == "" || endTime == "" {
		return Time{}, apperrors.Invalid("", "day/startTime/endTime 均不能为空")
	}
	d, err := ParseDay(day)
	if err != nil {
		return Time{}, err
	}
	start, err := ParseClock(startTime)
	if err != nil {
		return Time{}, apperrors.Within("startTime", err)
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return Time{}, apperrors.Within("endTime", err)
	}
	t := Time{Day: d, Interval: Interval{Start: start, End: end}}
	if err := t.Validate(); err != nil {
		return Time{}, err
	}
	return t, nil
}
