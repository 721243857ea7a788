package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"csm-matcher/config"
	"csm-matcher/internal/calendar"
	"csm-matcher/internal/matcher"
	"csm-matcher/internal/model"
	"csm-matcher/internal/repository"
	"csm-matcher/pkg/jwt"
)

// ── 测试辅助 ──

const testCourseID int64 = 61

var (
	coordinator = Caller{UserID: "u-coord", Email: "coord@berkeley.edu", Role: jwt.RoleMember}
	admin       = Caller{UserID: "u-admin", Email: "root@berkeley.edu", Role: jwt.RoleAdmin}
	outsider    = Caller{UserID: "u-out", Email: "nobody@berkeley.edu", Role: jwt.RoleMember}
)

func mentorCaller(email string) Caller {
	return Caller{UserID: "u-" + email, Email: email, Role: jwt.RoleMember}
}

// fakeSolver 记录收到的问题并返回预设结果
type fakeSolver struct {
	solution *matcher.Solution
	err      error
	got      *matcher.Problem
}

func (f *fakeSolver) Solve(_ context.Context, p *matcher.Problem) (*matcher.Solution, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return f.solution, nil
}

type testEnv struct {
	cfg *config.MatcherConfig

	matchers    *mockMatcherRepo
	mentors     *mockMentorRepo
	slots       *mockSlotRepo
	preferences *mockPreferenceRepo
	assignments *mockAssignmentRepo
	sections    *mockSectionRepo
	solver      *fakeSolver

	svc *Service
}

func testMatcherConfig() *config.MatcherConfig {
	return &config.MatcherConfig{
		Timezone:          "America/Los_Angeles",
		DayStart:          "08:00",
		DayEnd:            "18:00",
		IntervalMinutes:   30,
		MaxPreference:     5,
		DefaultMinMentors: 1,
		DefaultMaxMentors: 1,
		DefaultCapacity:   4,
		FormCloseInterval: time.Minute,
	}
}

// setupTestEnv 创建全部 mock 与服务，并为 testCourseID 建好匹配器与协调员
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mentors := newMockMentorRepo()
	slots := newMockSlotRepo()
	prefs := newMockPreferenceRepo(slots)
	assignments := newMockAssignmentRepo()
	slots.preferences = prefs
	slots.assignments = assignments

	env := &testEnv{
		cfg:         testMatcherConfig(),
		matchers:    newMockMatcherRepo(mentors),
		mentors:     mentors,
		slots:       slots,
		preferences: prefs,
		assignments: assignments,
		sections:    newMockSectionRepo(),
		solver:      &fakeSolver{},
	}
	repo := &repository.Repository{
		Matcher:    env.matchers,
		Mentor:     env.mentors,
		Slot:       env.slots,
		Preference: env.preferences,
		Assignment: env.assignments,
		Section:    env.sections,
	}
	cfg := &config.Config{Matcher: *env.cfg}
	env.svc = NewService(cfg, repo, env.solver, zap.NewNop())

	_, err := env.svc.Matcher.Create(context.Background(), testCourseID, "CS 61A", []string{"Coord@Berkeley.edu"}, "admin")
	if err != nil {
		t.Fatalf("创建匹配器失败: %v", err)
	}
	return env
}

// seedSlots 直接写入时段，返回按输入顺序的 ID
func (e *testEnv) seedSlots(t *testing.T, times ...[]calendar.Time) []int64 {
	t.Helper()
	rows := make([]model.MatcherSlot, len(times))
	for i, ts := range times {
		rows[i] = model.MatcherSlot{Times: datatypes.NewJSONType(ts), MinMentors: 1, MaxMentors: 1}
	}
	if err := e.slots.ReplaceAll(context.Background(), testCourseID, rows); err != nil {
		t.Fatalf("写入时段失败: %v", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.SlotID
	}
	return ids
}

// setOpen 直接修改表单状态
func (e *testEnv) setOpen(open bool) {
	e.matchers.matchers[testCourseID].IsOpen = open
}

func mon(start, end string) []calendar.Time {
	return []calendar.Time{{Day: calendar.Monday, Interval: calendar.Interval{
		Start: calendar.MustParseClock(start),
		End:   calendar.MustParseClock(end),
	}}}
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
