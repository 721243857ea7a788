package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"csm-matcher/internal/calendar"
	"csm-matcher/internal/model"
)

// ── ExportAssignment 测试 ──

func TestExportService_ExportAssignment_NoAssignment(t *testing.T) {
	env := setupTestEnv(t)

	_, _, err := env.svc.Export.ExportAssignment(context.Background(), testCourseID, coordinator)
	if !errors.Is(err, ErrNoAssignment) {
		t.Errorf("期望 ErrNoAssignment，实际: %v", err)
	}
}

func TestExportService_ExportAssignment_Success(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ids := env.seedSlots(t, mon("09:00", "10:00"))
	m1 := env.mentors.add(testCourseID, "m1@berkeley.edu")
	env.mentors.add(testCourseID, "m2@berkeley.edu")
	_ = env.assignments.ReplaceAll(ctx, testCourseID, []model.MatcherAssignment{
		{SlotID: ids[0], MentorID: m1, Capacity: 6, Description: "Cory 521"},
	})

	buf, filename, err := env.svc.Export.ExportAssignment(ctx, testCourseID, coordinator)
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if filename != "分配结果_CS 61A.xlsx" {
		t.Errorf("文件名错误: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("生成的文件无法打开: %v", err)
	}
	defer f.Close()

	checks := map[string]string{
		"A1": "CS 61A - 分配结果",
		"C2": "导师",
		"B3": "Monday 09:00-10:00",
		"C3": "m1@berkeley.edu",
		"D3": "6",
		"E3": "Cory 521",
		"B4": "未分配",
		"C4": "m2@berkeley.edu",
	}
	for axis, want := range checks {
		got, _ := f.GetCellValue("分配结果", axis)
		if got != want {
			t.Errorf("%s 期望 %q，实际: %q", axis, want, got)
		}
	}
}

// ── ExportSlotsICS 测试 ──

func TestExportService_ExportSlotsICS_RoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	linked := append(mon("09:00", "10:30"), calendar.Time{Day: calendar.Friday, Interval: calendar.Interval{
		Start: calendar.At(14, 0), End: calendar.At(15, 0),
	}})
	env.seedSlots(t, linked, mon("16:00", "17:00"))
	env.mentors.add(testCourseID, "m1@berkeley.edu")

	svc := env.svc.Export.(*exportService)
	// 2026-10-14 是周三，周一的首次出现应为 10-19
	svc.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }

	buf, filename, err := svc.ExportSlotsICS(context.Background(), testCourseID, mentorCaller("m1@berkeley.edu"))
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名错误: %s", filename)
	}
	content := buf.String()
	for _, want := range []string{"RRULE:FREQ=WEEKLY", "20261019T090000", "20261016T140000", "America/Los_Angeles"} {
		if !strings.Contains(content, want) {
			t.Errorf("导出内容缺少 %q", want)
		}
	}

	slots, skipped, err := ParseSlotsICS(strings.NewReader(content), svc.loc)
	if err != nil {
		t.Fatalf("重新解析失败: %v", err)
	}
	if skipped != 0 || len(slots) != 2 {
		t.Fatalf("期望 2 个时段、无跳过，实际: %d, %d", len(slots), skipped)
	}
	if len(slots[0].Times) != 2 || slots[0].Times[0].String() != "Monday 09:00-10:30" || slots[0].Times[1].String() != "Friday 14:00-15:00" {
		t.Errorf("关联时段还原错误: %v", slots[0].Times)
	}
}

func TestExportService_ExportSlotsICS_NoSlots(t *testing.T) {
	env := setupTestEnv(t)

	_, _, err := env.svc.Export.ExportSlotsICS(context.Background(), testCourseID, coordinator)
	if !errors.Is(err, ErrNoSlots) {
		t.Errorf("期望 ErrNoSlots，实际: %v", err)
	}
}
