package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"csm-matcher/config"
	"csm-matcher/internal/calendar"
	"csm-matcher/internal/dto"
	"csm-matcher/internal/model"
	"csm-matcher/internal/repository"
	apperrors "csm-matcher/pkg/errors"
)

// ── 时段模块业务错误 ──

var (
	ErrSlotNotFound = errors.New("时段不存在或不属于该课程")
)

// SlotService 候选时段业务接口
type SlotService interface {
	List(ctx context.Context, courseID int64, caller Caller) (*dto.SlotListResponse, error)
	// Replace 整体替换；空列表清空全部时段（连同偏好与分配）
	Replace(ctx context.Context, courseID int64, req *dto.ReplaceSlotsRequest, caller Caller) (*dto.ReplaceSlotsResponse, error)
	// Tile 平铺预览，不落库；仅协调员可用
	Tile(ctx context.Context, courseID int64, req *dto.TileRequest, caller Caller) (*dto.TileResponse, error)
	// ImportICS 从 iCalendar 文件预览时段，不落库
	ImportICS(ctx context.Context, courseID int64, r io.Reader, caller Caller) (*dto.ImportResponse, error)
	// Calendar 已保存时段的一周重叠布局
	Calendar(ctx context.Context, courseID int64, caller Caller) (*dto.CalendarResponse, error)
}

type slotService struct {
	access
	cfg *config.MatcherConfig
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(cfg *config.MatcherConfig, repo *repository.Repository, logger *zap.Logger) SlotService {
	return &slotService{access: access{repo: repo, logger: logger}, cfg: cfg}
}

// ────────────────────── List ──────────────────────

func (s *slotService) List(ctx context.Context, courseID int64, caller Caller) (*dto.SlotListResponse, error) {
	if _, err := s.requireMember(ctx, courseID, caller); err != nil {
		return nil, err
	}

	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	return &dto.SlotListResponse{Slots: toSlotResponses(slots)}, nil
}

// ────────────────────── Replace ──────────────────────

func (s *slotService) Replace(ctx context.Context, courseID int64, req *dto.ReplaceSlotsRequest, caller Caller) (*dto.ReplaceSlotsResponse, error) {
	if _, err := s.requireEditable(ctx, courseID, caller); err != nil {
		return nil, err
	}

	slots := make([]calendar.Slot, 0, len(req.Slots))
	rows := make([]model.MatcherSlot, 0, len(req.Slots))
	for i, p := range req.Slots {
		slot := calendar.Slot{Times: append([]calendar.Time(nil), p.Times...)}
		if err := slot.Validate(); err != nil {
			return nil, apperrors.Within(fmt.Sprintf("slots[%d]", i), err)
		}
		calendar.SortTimes(slot.Times)

		minMentors, maxMentors := s.cfg.DefaultMinMentors, s.cfg.DefaultMaxMentors
		if p.MinMentors != nil {
			minMentors = *p.MinMentors
		}
		if p.MaxMentors != nil {
			maxMentors = *p.MaxMentors
		}
		if minMentors < 0 || minMentors > maxMentors {
			return nil, apperrors.Invalid(fmt.Sprintf("slots[%d].maxMentors", i), "最多人数 %d 不能小于最少人数 %d", maxMentors, minMentors)
		}

		slots = append(slots, slot)
		rows = append(rows, model.MatcherSlot{
			CourseID:   courseID,
			Times:      datatypes.NewJSONType(slot.Times),
			MinMentors: minMentors,
			MaxMentors: maxMentors,
		})
	}

	if err := s.repo.Slot.ReplaceAll(ctx, courseID, rows); err != nil {
		s.logger.Error("替换时段失败", zap.Int64("course_id", courseID), zap.Int("count", len(rows)), zap.Error(err))
		return nil, err
	}

	sub := calendar.DescribeSubmission(slots)
	s.logger.Info("时段已替换",
		zap.Int64("course_id", courseID),
		zap.String("kind", string(sub.Kind)),
		zap.Int("slots", sub.SlotCount),
		zap.String("by", caller.UserID),
	)

	return &dto.ReplaceSlotsResponse{Submission: sub, Slots: toSlotResponses(rows)}, nil
}

// ────────────────────── Tile ──────────────────────

func (s *slotService) Tile(ctx context.Context, courseID int64, req *dto.TileRequest, caller Caller) (*dto.TileResponse, error) {
	if _, err := s.requireCoordinator(ctx, courseID, caller); err != nil {
		return nil, err
	}

	start, err := calendar.ParseClock(req.StartTime)
	if err != nil {
		return nil, apperrors.Within("startTime", err)
	}
	end, err := calendar.ParseClock(req.EndTime)
	if err != nil {
		return nil, apperrors.Within("endTime", err)
	}
	days := make([]calendar.Day, 0, len(req.Days))
	for i, name := range req.Days {
		d, err := calendar.ParseDay(name)
		if err != nil {
			return nil, apperrors.Within(fmt.Sprintf("days[%d]", i), err)
		}
		days = append(days, d)
	}

	slots, err := calendar.Tile(calendar.TileSpec{
		Range:    calendar.Interval{Start: start, End: end},
		Length:   req.Length,
		Days:     days,
		LinkDays: req.LinkDays,
	})
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []calendar.Slot{}
	}

	return &dto.TileResponse{Slots: slots}, nil
}

// ────────────────────── ImportICS ──────────────────────

func (s *slotService) ImportICS(ctx context.Context, courseID int64, r io.Reader, caller Caller) (*dto.ImportResponse, error) {
	if _, err := s.requireCoordinator(ctx, courseID, caller); err != nil {
		return nil, err
	}

	slots, skipped, err := ParseSlotsICS(r, s.cfg.Location())
	if err != nil {
		return nil, apperrors.Invalid("file", "%v", err)
	}
	if slots == nil {
		slots = []calendar.Slot{}
	}
	return &dto.ImportResponse{Slots: slots, Skipped: skipped}, nil
}

// ────────────────────── Calendar ──────────────────────

func (s *slotService) Calendar(ctx context.Context, courseID int64, caller Caller) (*dto.CalendarResponse, error) {
	if _, err := s.requireMember(ctx, courseID, caller); err != nil {
		return nil, err
	}

	rows, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	slots := make([]calendar.Slot, len(rows))
	for i := range rows {
		slots[i] = rows[i].CalendarSlot()
	}

	byDay, err := calendar.ArrangeWeek(calendar.SlotEvents(slots, calendar.EventSaved))
	if err != nil {
		// 已保存的时段在写入时校验过，这里出错说明数据被绕过接口修改
		s.logger.Error("时段布局失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	resp := &dto.CalendarResponse{
		DayStart: s.cfg.DayStart,
		DayEnd:   s.cfg.DayEnd,
		Interval: s.cfg.IntervalMinutes,
		Days:     make([]dto.CalendarDay, 0, len(calendar.Weekdays)),
	}
	for _, day := range calendar.Weekdays {
		events := make([]dto.CalendarEvent, 0, len(byDay[day]))
		for _, p := range byDay[day] {
			events = append(events, dto.CalendarEvent{
				SlotID:      rows[p.Slot].SlotID,
				TimeIndex:   p.Time,
				StartTime:   p.Interval.Start.String(),
				EndTime:     p.Interval.End.String(),
				Track:       p.Track,
				TotalTracks: p.TotalTracks,
			})
		}
		resp.Days = append(resp.Days, dto.CalendarDay{Day: day, Events: events})
	}

	return resp, nil
}

func toSlotResponses(rows []model.MatcherSlot) []dto.SlotResponse {
	out := make([]dto.SlotResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.SlotResponse{
			ID:         r.SlotID,
			Times:      r.Times.Data(),
			MinMentors: r.MinMentors,
			MaxMentors: r.MaxMentors,
		})
	}
	return out
}
