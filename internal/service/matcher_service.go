package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"csm-matcher/config"
	"csm-matcher/internal/dto"
	"csm-matcher/internal/matcher"
	"csm-matcher/internal/model"
	"csm-matcher/internal/repository"
	"csm-matcher/internal/solver"
	apperrors "csm-matcher/pkg/errors"
)

// ── 匹配流程业务错误 ──

var (
	ErrMatcherExists  = errors.New("该课程已存在匹配器")
	ErrFormClosed     = errors.New("偏好表单未开放")
	ErrFormOpen       = errors.New("偏好表单仍在开放，请先关闭")
	ErrNoSlots        = errors.New("尚未创建任何时段")
	ErrMentorNotFound = errors.New("导师不存在或不属于该课程")
	ErrNoAssignment   = errors.New("尚无分配结果")
	ErrSlotOverfilled = errors.New("时段分配人数超过上限")
	ErrSolverFailed   = errors.New("分配求解失败")
)

// 调用者在课程中的身份
const (
	RoleCoordinator = "coordinator"
	RoleMentor      = "mentor"
)

// MatcherService 匹配流程业务接口
type MatcherService interface {
	// Create 为课程创建匹配器并登记协调员（运维命令使用）
	Create(ctx context.Context, courseID int64, courseName string, coordinators []string, createdBy string) (*model.Matcher, error)
	// Active 调用者参与的活跃匹配器
	Active(ctx context.Context, caller Caller) (*dto.ActiveResponse, error)
	// Stage 由当前数据推导流程阶段
	Stage(ctx context.Context, courseID int64, caller Caller) (*dto.StageResponse, error)

	GetConfig(ctx context.Context, courseID int64, caller Caller) (*dto.ConfigResponse, error)
	// Configure 依次应用人数上下限、表单开关，最后按需运行求解器
	Configure(ctx context.Context, courseID int64, req *dto.ConfigureRequest, caller Caller) (*dto.ConfigureResponse, error)

	GetAssignment(ctx context.Context, courseID int64, caller Caller) (*dto.AssignmentResponse, error)
	UpdateAssignment(ctx context.Context, courseID int64, req *dto.AssignmentRequest, caller Caller) (*dto.AssignmentResponse, error)
	// Commit 将分配提交为正式班级并关闭匹配器
	Commit(ctx context.Context, courseID int64, caller Caller) (*dto.CommitResponse, error)

	// CloseExpired 关闭所有已过截止时间的表单
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

type matcherService struct {
	access
	cfg    *config.MatcherConfig
	solver solver.Solver
}

// NewMatcherService 创建 MatcherService 实例
func NewMatcherService(cfg *config.MatcherConfig, repo *repository.Repository, slv solver.Solver, logger *zap.Logger) MatcherService {
	return &matcherService{access: access{repo: repo, logger: logger}, cfg: cfg, solver: slv}
}

// ────────────────────── Create ──────────────────────

func (s *matcherService) Create(ctx context.Context, courseID int64, courseName string, coordinators []string, createdBy string) (*model.Matcher, error) {
	if courseID <= 0 {
		return nil, apperrors.Invalid("course_id", "课程 ID 必须为正整数")
	}
	if len(coordinators) == 0 {
		return nil, apperrors.Invalid("coordinators", "至少需要一名协调员")
	}

	_, err := s.repo.Matcher.GetByCourse(ctx, courseID)
	if err == nil {
		return nil, ErrMatcherExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询匹配器失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	m := &model.Matcher{CourseID: courseID, CourseName: courseName, Active: true}
	m.CreatedBy = &createdBy
	m.UpdatedBy = &createdBy

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Matcher.Create(ctx, m); err != nil {
			return err
		}
		for _, email := range coordinators {
			if err := txRepo.Matcher.AddCoordinator(ctx, courseID, normalizeEmail(email)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("创建匹配器失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("匹配器已创建", zap.Int64("course_id", courseID), zap.Strings("coordinators", coordinators))
	return m, nil
}

// ────────────────────── Active ──────────────────────

func (s *matcherService) Active(ctx context.Context, caller Caller) (*dto.ActiveResponse, error) {
	var (
		list []model.Matcher
		err  error
	)
	if caller.IsAdmin() {
		list, err = s.repo.Matcher.ListActive(ctx)
	} else {
		list, err = s.repo.Matcher.ListActiveForEmail(ctx, normalizeEmail(caller.Email))
	}
	if err != nil {
		s.logger.Error("查询活跃匹配器失败", zap.String("email", caller.Email), zap.Error(err))
		return nil, err
	}

	resp := &dto.ActiveResponse{Matchers: make([]dto.ActiveMatcher, 0, len(list))}
	for _, m := range list {
		role := RoleMentor
		ok, err := s.isCoordinator(ctx, m.CourseID, caller)
		if err != nil {
			return nil, err
		}
		if ok {
			role = RoleCoordinator
		}
		resp.Matchers = append(resp.Matchers, dto.ActiveMatcher{
			CourseID:   m.CourseID,
			CourseName: m.CourseName,
			Role:       role,
			Open:       m.IsOpen,
		})
	}
	return resp, nil
}

// ────────────────────── Stage ──────────────────────

func (s *matcherService) Stage(ctx context.Context, courseID int64, caller Caller) (*dto.StageResponse, error) {
	m, err := s.requireCoordinator(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}

	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	prefs, err := s.repo.Preference.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询偏好失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	assignments, err := s.repo.Assignment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	facts := matcher.Facts{
		FormOpen:        m.IsOpen,
		SlotCount:       len(slots),
		MentorsWithPref: len(matcher.PreferencesByMentor(toPreferences(prefs))),
		AssignmentCount: len(assignments),
	}
	return &dto.StageResponse{Stage: matcher.DeriveStage(facts), Facts: facts}, nil
}

// ────────────────────── Configure ──────────────────────

func (s *matcherService) GetConfig(ctx context.Context, courseID int64, caller Caller) (*dto.ConfigResponse, error) {
	m, err := s.requireCoordinator(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}
	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return toConfigResponse(m, slots), nil
}

func (s *matcherService) Configure(ctx context.Context, courseID int64, req *dto.ConfigureRequest, caller Caller) (*dto.ConfigureResponse, error) {
	m, err := s.requireEditable(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}

	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	known := make(map[int64]bool, len(slots))
	for _, slot := range slots {
		known[slot.SlotID] = true
	}
	for i, b := range req.Slots {
		if !known[b.ID] {
			return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, b.ID)
		}
		if b.MinMentors < 0 || b.MinMentors > b.MaxMentors {
			return nil, apperrors.Invalid(fmt.Sprintf("slots[%d].maxMentors", i), "最多人数 %d 不能小于最少人数 %d", b.MaxMentors, b.MinMentors)
		}
	}
	if req.Open != nil && *req.Open && len(slots) == 0 {
		return nil, ErrNoSlots
	}
	// 求解要求表单处于关闭状态（以本次修改后的状态为准），在写入任何修改前拒绝
	willOpen := m.IsOpen
	if req.Open != nil {
		willOpen = *req.Open
	}
	if req.Run && willOpen {
		return nil, ErrFormOpen
	}

	changed := false
	if req.Open != nil && *req.Open != m.IsOpen {
		m.IsOpen = *req.Open
		changed = true
	}
	if req.CloseAt != nil {
		closeAt := req.CloseAt.UTC()
		m.CloseAt = &closeAt
		changed = true
	}
	m.UpdatedBy = &caller.UserID

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		for _, b := range req.Slots {
			if err := txRepo.Slot.UpdateBounds(ctx, b.ID, b.MinMentors, b.MaxMentors); err != nil {
				return err
			}
		}
		if changed {
			return txRepo.Matcher.Update(ctx, m)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("更新匹配配置失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	// 重新读取，返回生效后的上下限
	if len(req.Slots) > 0 {
		if slots, err = s.repo.Slot.ListByCourse(ctx, courseID); err != nil {
			s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
			return nil, err
		}
	}

	resp := &dto.ConfigureResponse{ConfigResponse: *toConfigResponse(m, slots)}
	if req.Run {
		result, err := s.run(ctx, courseID, slots)
		if err != nil {
			return nil, err
		}
		resp.Run = result
	}
	return resp, nil
}

// run 组装求解问题、调用外部求解器并整体替换分配结果
func (s *matcherService) run(ctx context.Context, courseID int64, slots []model.MatcherSlot) (*dto.RunResult, error) {
	mentors, err := s.repo.Mentor.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询导师名单失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	prefs, err := s.repo.Preference.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询偏好失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	problem := &matcher.Problem{
		Mentors:     make([]matcher.MentorID, 0, len(mentors)),
		Slots:       make([]matcher.SlotBounds, 0, len(slots)),
		Preferences: toPreferences(prefs),
	}
	emails := make(map[matcher.MentorID]string, len(mentors))
	for _, mt := range mentors {
		problem.Mentors = append(problem.Mentors, matcher.MentorID(mt.MentorID))
		emails[matcher.MentorID(mt.MentorID)] = mt.Email
	}
	for _, slot := range slots {
		problem.Slots = append(problem.Slots, matcher.SlotBounds{
			ID:  matcher.SlotID(slot.SlotID),
			Min: slot.MinMentors,
			Max: slot.MaxMentors,
		})
	}

	sol, err := s.solver.Solve(ctx, problem)
	if err != nil {
		if errors.Is(err, matcher.ErrInfeasible) {
			return nil, err
		}
		s.logger.Error("分配求解失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSolverFailed, err)
	}

	rows := make([]model.MatcherAssignment, 0, len(sol.Assignments))
	for _, a := range sol.Assignments {
		rows = append(rows, model.MatcherAssignment{
			CourseID: courseID,
			SlotID:   int64(a.Slot),
			MentorID: int64(a.Mentor),
			Capacity: s.cfg.DefaultCapacity,
		})
	}
	if err := s.repo.Assignment.ReplaceAll(ctx, courseID, rows); err != nil {
		s.logger.Error("保存分配结果失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	// 以服务端计算为准，不依赖求解器自报的 unmatched
	assigned := matcher.AssignmentsByMentor(sol.Assignments)
	unmatched := make([]string, 0)
	for _, id := range problem.Mentors {
		if len(assigned[id]) == 0 {
			unmatched = append(unmatched, emails[id])
		}
	}

	s.logger.Info("分配求解完成",
		zap.Int64("course_id", courseID),
		zap.Int("assigned", len(rows)),
		zap.Int("unmatched", len(unmatched)),
	)
	return &dto.RunResult{Assigned: len(rows), Unmatched: unmatched}, nil
}

// ────────────────────── Assignment ──────────────────────

func (s *matcherService) GetAssignment(ctx context.Context, courseID int64, caller Caller) (*dto.AssignmentResponse, error) {
	if _, err := s.requireCoordinator(ctx, courseID, caller); err != nil {
		return nil, err
	}
	rows, err := s.repo.Assignment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return toAssignmentResponse(rows), nil
}

func (s *matcherService) UpdateAssignment(ctx context.Context, courseID int64, req *dto.AssignmentRequest, caller Caller) (*dto.AssignmentResponse, error) {
	if _, err := s.requireEditable(ctx, courseID, caller); err != nil {
		return nil, err
	}

	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	mentors, err := s.repo.Mentor.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询导师名单失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	knownSlots := make(map[int64]bool, len(slots))
	for _, slot := range slots {
		knownSlots[slot.SlotID] = true
	}
	knownMentors := make(map[int64]bool, len(mentors))
	for _, mt := range mentors {
		knownMentors[mt.MentorID] = true
	}

	seen := make(map[int64]bool, len(req.Assignment))
	rows := make([]model.MatcherAssignment, 0, len(req.Assignment))
	for i, a := range req.Assignment {
		if !knownSlots[a.Slot] {
			return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, a.Slot)
		}
		if !knownMentors[a.Mentor] {
			return nil, fmt.Errorf("%w: %d", ErrMentorNotFound, a.Mentor)
		}
		if seen[a.Mentor] {
			return nil, apperrors.Invalid(fmt.Sprintf("assignment[%d].mentor", i), "导师 %d 被重复分配", a.Mentor)
		}
		seen[a.Mentor] = true
		rows = append(rows, model.MatcherAssignment{
			CourseID:    courseID,
			SlotID:      a.Slot,
			MentorID:    a.Mentor,
			Capacity:    a.Section.Capacity,
			Description: a.Section.Description,
		})
	}
	if err := checkSlotCapacity(slots, rows); err != nil {
		return nil, err
	}

	if err := s.repo.Assignment.ReplaceAll(ctx, courseID, rows); err != nil {
		s.logger.Error("保存分配失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return toAssignmentResponse(rows), nil
}

// ────────────────────── Commit ──────────────────────

func (s *matcherService) Commit(ctx context.Context, courseID int64, caller Caller) (*dto.CommitResponse, error) {
	m, err := s.requireEditable(ctx, courseID, caller)
	if err != nil {
		return nil, err
	}
	if m.IsOpen {
		return nil, ErrFormOpen
	}

	assignments, err := s.repo.Assignment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, ErrNoAssignment
	}
	slots, err := s.repo.Slot.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	// 编辑后仍可能调低上限，提交前再检查一次
	if err := checkSlotCapacity(slots, assignments); err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.MatcherSlot, len(slots))
	for i := range slots {
		byID[slots[i].SlotID] = &slots[i]
	}

	sections := make([]model.Section, 0, len(assignments))
	for _, a := range assignments {
		slot, ok := byID[a.SlotID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, a.SlotID)
		}
		times := slot.Times.Data()
		spacetimes := make([]model.SectionSpacetime, 0, len(times))
		for _, t := range times {
			spacetimes = append(spacetimes, model.SectionSpacetime{
				Day:             t.Day.String(),
				StartTime:       t.Interval.Start.String(),
				DurationMinutes: t.Interval.Duration(),
			})
		}
		sections = append(sections, model.Section{
			CourseID:    courseID,
			MentorID:    a.MentorID,
			Capacity:    a.Capacity,
			Description: a.Description,
			Spacetimes:  spacetimes,
		})
	}

	m.Active = false
	m.IsOpen = false
	m.UpdatedBy = &caller.UserID

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Section.CreateBatch(ctx, sections); err != nil {
			return err
		}
		return txRepo.Matcher.Update(ctx, m)
	})
	if err != nil {
		s.logger.Error("提交分配失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("分配已提交为正式班级", zap.Int64("course_id", courseID), zap.Int("sections", len(sections)))
	return &dto.CommitResponse{Sections: len(sections)}, nil
}

// ────────────────────── CloseExpired ──────────────────────

func (s *matcherService) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.Matcher.CloseExpired(ctx, now)
	if err != nil {
		s.logger.Error("关闭到期表单失败", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("已关闭到期表单", zap.Int64("count", n))
	}
	return n, nil
}

// checkSlotCapacity 每个时段的分配人数不得超过 max_mentors
func checkSlotCapacity(slots []model.MatcherSlot, rows []model.MatcherAssignment) error {
	pairs := make([]matcher.Assignment, len(rows))
	for i, r := range rows {
		pairs[i] = matcher.Assignment{Slot: matcher.SlotID(r.SlotID), Mentor: matcher.MentorID(r.MentorID)}
	}
	bySlot := matcher.AssignmentsBySlot(pairs)
	for _, slot := range slots {
		if n := len(bySlot[matcher.SlotID(slot.SlotID)]); n > slot.MaxMentors {
			return fmt.Errorf("%w: 时段 %d 分配 %d 人，上限 %d", ErrSlotOverfilled, slot.SlotID, n, slot.MaxMentors)
		}
	}
	return nil
}

func toConfigResponse(m *model.Matcher, slots []model.MatcherSlot) *dto.ConfigResponse {
	resp := &dto.ConfigResponse{
		Open:    m.IsOpen,
		CloseAt: m.CloseAt,
		Slots:   make([]dto.SlotBounds, 0, len(slots)),
	}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, dto.SlotBounds{
			ID:         slot.SlotID,
			MinMentors: slot.MinMentors,
			MaxMentors: slot.MaxMentors,
		})
	}
	return resp
}

func toAssignmentResponse(rows []model.MatcherAssignment) *dto.AssignmentResponse {
	resp := &dto.AssignmentResponse{Assignment: make([]dto.AssignmentEntry, 0, len(rows))}
	for _, r := range rows {
		resp.Assignment = append(resp.Assignment, dto.AssignmentEntry{
			Slot:    r.SlotID,
			Mentor:  r.MentorID,
			Section: dto.SectionInfo{Capacity: r.Capacity, Description: r.Description},
		})
	}
	return resp
}
