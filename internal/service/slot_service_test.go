package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"csm-matcher/internal/calendar"
	"csm-matcher/internal/dto"
	"csm-matcher/internal/matcher"
	"csm-matcher/internal/model"
	apperrors "csm-matcher/pkg/errors"
)

// ── Replace 测试 ──

func TestSlotService_Replace_Success(t *testing.T) {
	env := setupTestEnv(t)

	linked := append(mon("09:00", "10:00"), calendar.Time{Day: calendar.Wednesday, Interval: calendar.Interval{
		Start: calendar.At(9, 0), End: calendar.At(10, 0),
	}})
	req := &dto.ReplaceSlotsRequest{Slots: []dto.SlotPayload{
		{Times: linked},
		{Times: mon("11:00", "12:00"), MinMentors: intPtr(2), MaxMentors: intPtr(3)},
	}}

	resp, err := env.svc.Slot.Replace(context.Background(), testCourseID, req, coordinator)
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if resp.Kind != calendar.SubmissionReplace || resp.SlotCount != 2 || resp.LinkedCount != 1 || resp.TimeCount != 3 {
		t.Errorf("提交摘要错误: %+v", resp.Submission)
	}
	if len(resp.Slots) != 2 || resp.Slots[0].ID == 0 {
		t.Fatalf("期望返回 2 个已分配 ID 的时段，实际: %+v", resp.Slots)
	}
	if resp.Slots[0].MinMentors != 1 || resp.Slots[0].MaxMentors != 1 {
		t.Errorf("未指定上下限时应使用默认值 1/1，实际: %d/%d", resp.Slots[0].MinMentors, resp.Slots[0].MaxMentors)
	}
	if resp.Slots[1].MinMentors != 2 || resp.Slots[1].MaxMentors != 3 {
		t.Errorf("期望 2/3，实际: %d/%d", resp.Slots[1].MinMentors, resp.Slots[1].MaxMentors)
	}

	list, err := env.svc.Slot.List(context.Background(), testCourseID, coordinator)
	if err != nil {
		t.Fatalf("查询时段失败: %v", err)
	}
	if len(list.Slots) != 2 || len(list.Slots[0].Times) != 2 {
		t.Errorf("持久化结果错误: %+v", list.Slots)
	}
}

func TestSlotService_Replace_EmptyClearsAndCascades(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ids := env.seedSlots(t, mon("09:00", "10:00"))
	mentorID := env.mentors.add(testCourseID, "m1@berkeley.edu")
	_ = env.preferences.Upsert(ctx, []model.MatcherPreference{{SlotID: ids[0], MentorID: mentorID, Preference: 3}})
	_ = env.assignments.ReplaceAll(ctx, testCourseID, []model.MatcherAssignment{{SlotID: ids[0], MentorID: mentorID}})

	resp, err := env.svc.Slot.Replace(ctx, testCourseID, &dto.ReplaceSlotsRequest{}, coordinator)
	if err != nil {
		t.Fatalf("空列表应为合法请求，实际错误: %v", err)
	}
	if resp.Kind != calendar.SubmissionClear || resp.SlotCount != 0 {
		t.Errorf("期望 clear 摘要，实际: %+v", resp.Submission)
	}
	if len(resp.Slots) != 0 {
		t.Errorf("期望无时段，实际: %d", len(resp.Slots))
	}
	if len(env.preferences.prefs) != 0 {
		t.Errorf("替换时段后偏好应被清除，实际剩余 %d 条", len(env.preferences.prefs))
	}
	if len(env.assignments.byCourse[testCourseID]) != 0 {
		t.Error("替换时段后分配应被清除")
	}

	stage, err := env.svc.Matcher.Stage(ctx, testCourseID, coordinator)
	if err != nil {
		t.Fatalf("查询阶段失败: %v", err)
	}
	if stage.Stage != matcher.StageCreate {
		t.Errorf("清空后期望回到 CREATE，实际: %s", stage.Stage)
	}
}

func TestSlotService_Replace_Invalid(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name  string
		slot  dto.SlotPayload
		field string
	}{
		{
			name:  "无时间",
			slot:  dto.SlotPayload{Times: nil},
			field: "slots[0].times",
		},
		{
			name:  "上限小于下限",
			slot:  dto.SlotPayload{Times: mon("09:00", "10:00"), MinMentors: intPtr(3), MaxMentors: intPtr(2)},
			field: "slots[0].maxMentors",
		},
		{
			name:  "默认上限小于指定下限",
			slot:  dto.SlotPayload{Times: mon("09:00", "10:00"), MinMentors: intPtr(2)},
			field: "slots[0].maxMentors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &dto.ReplaceSlotsRequest{Slots: []dto.SlotPayload{tt.slot}}
			_, err := env.svc.Slot.Replace(context.Background(), testCourseID, req, coordinator)
			ve, ok := apperrors.AsValidation(err)
			if !ok {
				t.Fatalf("期望 ValidationError，实际: %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("期望字段 %s，实际: %s", tt.field, ve.Field)
			}
		})
	}
	if len(env.slots.slots) != 0 {
		t.Error("校验失败时不应写入任何时段")
	}
}

func TestSlotService_Replace_Permissions(t *testing.T) {
	env := setupTestEnv(t)
	env.mentors.add(testCourseID, "m1@berkeley.edu")
	req := &dto.ReplaceSlotsRequest{Slots: []dto.SlotPayload{{Times: mon("09:00", "10:00")}}}

	if _, err := env.svc.Slot.Replace(context.Background(), testCourseID, req, mentorCaller("m1@berkeley.edu")); !errors.Is(err, ErrNotCoordinator) {
		t.Errorf("导师替换时段期望 ErrNotCoordinator，实际: %v", err)
	}
	if _, err := env.svc.Slot.Replace(context.Background(), 999, req, coordinator); !errors.Is(err, ErrMatcherNotFound) {
		t.Errorf("期望 ErrMatcherNotFound，实际: %v", err)
	}
	if _, err := env.svc.Slot.Replace(context.Background(), testCourseID, req, admin); err != nil {
		t.Errorf("管理员应视同协调员，实际错误: %v", err)
	}

	env.matchers.matchers[testCourseID].Active = false
	if _, err := env.svc.Slot.Replace(context.Background(), testCourseID, req, coordinator); !errors.Is(err, ErrMatcherInactive) {
		t.Errorf("已提交的匹配器期望 ErrMatcherInactive，实际: %v", err)
	}
}

func TestSlotService_List_Access(t *testing.T) {
	env := setupTestEnv(t)
	env.seedSlots(t, mon("09:00", "10:00"))
	env.mentors.add(testCourseID, "m1@berkeley.edu")

	if _, err := env.svc.Slot.List(context.Background(), testCourseID, mentorCaller("M1@berkeley.edu")); err != nil {
		t.Errorf("导师（邮箱大小写不同）应可查看时段，实际错误: %v", err)
	}
	if _, err := env.svc.Slot.List(context.Background(), testCourseID, outsider); !errors.Is(err, ErrNotMentor) {
		t.Errorf("非成员期望 ErrNotMentor，实际: %v", err)
	}
}

// ── Tile 测试 ──

func TestSlotService_Tile(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := env.svc.Slot.Tile(context.Background(), testCourseID, &dto.TileRequest{
		StartTime: "09:00",
		EndTime:   "11:00",
		Length:    30,
		Days:      []string{"Monday", "wednesday"},
		LinkDays:  true,
	}, coordinator)
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if len(resp.Slots) != 4 {
		t.Fatalf("期望 4 个时段，实际: %d", len(resp.Slots))
	}
	for _, s := range resp.Slots {
		if len(s.Times) != 2 || s.Times[1].Day != calendar.Wednesday {
			t.Errorf("每个时段应关联周一与周三，实际: %v", s.Times)
		}
	}
	if len(env.slots.slots) != 0 {
		t.Error("平铺预览不应写入时段")
	}

	_, err = env.svc.Slot.Tile(context.Background(), testCourseID, &dto.TileRequest{
		StartTime: "11:00", EndTime: "09:00", Length: 30, Days: []string{"Monday"},
	}, coordinator)
	if _, ok := apperrors.AsValidation(err); !ok {
		t.Errorf("倒置区间期望 ValidationError，实际: %v", err)
	}
}

func TestSlotService_Tile_RequiresCoordinator(t *testing.T) {
	env := setupTestEnv(t)
	env.mentors.add(testCourseID, "m1@berkeley.edu")
	req := &dto.TileRequest{StartTime: "09:00", EndTime: "10:00", Length: 30, Days: []string{"Monday"}}

	if _, err := env.svc.Slot.Tile(context.Background(), 9999, req, coordinator); !errors.Is(err, ErrMatcherNotFound) {
		t.Errorf("未知课程期望 ErrMatcherNotFound，实际: %v", err)
	}
	if _, err := env.svc.Slot.Tile(context.Background(), testCourseID, req, mentorCaller("m1@berkeley.edu")); !errors.Is(err, ErrNotCoordinator) {
		t.Errorf("导师期望 ErrNotCoordinator，实际: %v", err)
	}
	if _, err := env.svc.Slot.Tile(context.Background(), testCourseID, req, outsider); !errors.Is(err, ErrNotCoordinator) {
		t.Errorf("非成员期望 ErrNotCoordinator，实际: %v", err)
	}
	if _, err := env.svc.Slot.Tile(context.Background(), testCourseID, req, admin); err != nil {
		t.Errorf("管理员应可平铺，实际: %v", err)
	}
}

// ── Calendar 测试 ──

func TestSlotService_Calendar(t *testing.T) {
	env := setupTestEnv(t)
	ids := env.seedSlots(t,
		mon("09:00", "10:00"),
		mon("09:30", "10:30"),
		mon("10:00", "11:00"),
	)

	resp, err := env.svc.Slot.Calendar(context.Background(), testCourseID, coordinator)
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if len(resp.Days) != 5 {
		t.Fatalf("期望周一至周五 5 项，实际: %d", len(resp.Days))
	}
	if resp.DayStart != "08:00" || resp.Interval != 30 {
		t.Errorf("日历范围错误: %+v", resp)
	}

	monday := resp.Days[0]
	if monday.Day != calendar.Monday || len(monday.Events) != 3 {
		t.Fatalf("周一期望 3 个事件，实际: %+v", monday)
	}
	tracks := map[int64]int{}
	for _, ev := range monday.Events {
		tracks[ev.SlotID] = ev.Track
		if ev.TotalTracks != 2 {
			t.Errorf("时段 %d 期望 totalTracks=2，实际: %d", ev.SlotID, ev.TotalTracks)
		}
	}
	// 09:00-10:00 与 10:00-11:00 首尾相接，共用第 0 列
	if tracks[ids[0]] != 0 || tracks[ids[1]] != 1 || tracks[ids[2]] != 0 {
		t.Errorf("列分配错误: %v", tracks)
	}
	for _, d := range resp.Days[1:] {
		if len(d.Events) != 0 {
			t.Errorf("%s 不应有事件", d.Day)
		}
	}
}

// ── ImportICS 测试 ──

func TestSlotService_ImportICS(t *testing.T) {
	env := setupTestEnv(t)

	content := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:a",
		"SUMMARY:Section A",
		"DTSTART;TZID=America/Los_Angeles:20260907T090000",
		"DTEND;TZID=America/Los_Angeles:20260907T100000",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"SUMMARY:Section A",
		"DTSTART;TZID=America/Los_Angeles:20260909T090000",
		"DTEND;TZID=America/Los_Angeles:20260909T100000",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:c",
		"SUMMARY:Weekend",
		"DTSTART;TZID=America/Los_Angeles:20260912T090000",
		"DTEND;TZID=America/Los_Angeles:20260912T100000",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	resp, err := env.svc.Slot.ImportICS(context.Background(), testCourseID, strings.NewReader(content), coordinator)
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if resp.Skipped != 1 {
		t.Errorf("周六事件应被跳过，实际 skipped=%d", resp.Skipped)
	}
	if len(resp.Slots) != 1 || len(resp.Slots[0].Times) != 2 {
		t.Fatalf("同名事件应合并为一个关联时段，实际: %+v", resp.Slots)
	}
	if got := resp.Slots[0].Times[1].String(); got != "Wednesday 09:00-10:00" {
		t.Errorf("期望 Wednesday 09:00-10:00，实际: %s", got)
	}
}
