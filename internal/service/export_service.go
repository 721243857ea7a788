package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"csm-matcher/config"
	"csm-matcher/internal/model"
	"csm-matcher/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写入：
//   - 分配结果 → Excel (.xlsx)，每行一位导师
//   - 候选时段 → iCalendar (.ics)，每周重复
type ExportService interface {
	// ExportAssignment 导出当前分配为 Excel
	ExportAssignment(ctx context.Context, courseID int64, caller Caller) (*bytes.Buffer, string, error)
	// ExportSlotsICS 导出候选时段为 iCalendar
	ExportSlotsICS(ctx context.Context, courseID int64, caller Caller) (*bytes.Buffer, string, error)
}

type exportService struct {
	access
	loc *time.Location
	now func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.MatcherConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{
		access: access{repo: repo, logger: logger},
		loc:    cfg.Location(),
		now:    time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportAssignment 导出分配结果为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：课程名 - 分配结果
//   - 表头：时段 | 时间 | 导师 | 容量 | 描述
//   - 按时段 ID、导师邮箱排序；未分配的导师追加在末尾，时段列为空

func (s *exportService) ExportAssignment(ctx context.Context, courseID int64, caller Caller) (*bytes.Buffer, string, error) {
	m, err := s.requireCoordinator(ctx, courseID, caller)
	if err != nil {
		return nil, "", err
	}

	assignments, err := s.repo.Assignment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, "", err
	}
	if len(assignments) == 0 {
		return nil, "", ErrNoAssignment
	}
	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, "", err
	}
	mentors, err := s.repo.Mentor.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询导师名单失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, "", err
	}

	slotByID := make(map[int64]model.MatcherSlot, len(slots))
	for _, slot := range slots {
		slotByID[slot.SlotID] = slot
	}
	emailByID := make(map[int64]string, len(mentors))
	for _, mt := range mentors {
		emailByID[mt.MentorID] = mt.Email
	}

	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].SlotID != assignments[j].SlotID {
			return assignments[i].SlotID < assignments[j].SlotID
		}
		return emailByID[assignments[i].MentorID] < emailByID[assignments[j].MentorID]
	})

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "分配结果"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 36)
	f.SetColWidth(sheetName, "C", "C", 28)
	f.SetColWidth(sheetName, "D", "D", 8)
	f.SetColWidth(sheetName, "E", "E", 30)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s - 分配结果", m.CourseName))
	f.MergeCell(sheetName, "A1", "E1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, title := range []string{"时段", "时间", "导师", "容量", "描述"} {
		f.SetCellValue(sheetName, cell(colName(i), row), title)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell("E", row), headerStyle)

	// 数据行
	row = 3
	assigned := make(map[int64]bool, len(assignments))
	for _, a := range assignments {
		assigned[a.MentorID] = true
		f.SetCellValue(sheetName, cell("A", row), a.SlotID)
		f.SetCellValue(sheetName, cell("B", row), describeSlotTimes(slotByID[a.SlotID]))
		f.SetCellValue(sheetName, cell("C", row), emailByID[a.MentorID])
		f.SetCellValue(sheetName, cell("D", row), a.Capacity)
		f.SetCellValue(sheetName, cell("E", row), a.Description)
		row++
	}
	for _, mt := range mentors {
		if assigned[mt.MentorID] {
			continue
		}
		f.SetCellValue(sheetName, cell("B", row), "未分配")
		f.SetCellValue(sheetName, cell("C", row), mt.Email)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("分配结果_%s.xlsx", m.CourseName), nil
}

// ═══════════════════════════════════════════════════════════
// ExportSlotsICS 导出候选时段为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportSlotsICS(ctx context.Context, courseID int64, caller Caller) (*bytes.Buffer, string, error) {
	m, err := s.requireMember(ctx, courseID, caller)
	if err != nil {
		return nil, "", err
	}

	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, "", err
	}
	if len(slots) == 0 {
		return nil, "", ErrNoSlots
	}

	content := BuildSlotsICS(m.CourseName, slots, s.loc, s.now())
	return bytes.NewBufferString(content), fmt.Sprintf("时段_%s.ics", m.CourseName), nil
}

// ── 辅助函数 ──

func describeSlotTimes(slot model.MatcherSlot) string {
	times := slot.Times.Data()
	parts := make([]string, 0, len(times))
	for _, t := range times {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, "; ")
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
