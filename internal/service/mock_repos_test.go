package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"csm-matcher/internal/model"
	pkgerrors "csm-matcher/pkg/errors"
)

// ── Mock MatcherRepository ──

type mockMatcherRepo struct {
	matchers     map[int64]*model.Matcher
	coordinators map[int64]map[string]bool
	mentors      *mockMentorRepo
}

func newMockMatcherRepo(mentors *mockMentorRepo) *mockMatcherRepo {
	return &mockMatcherRepo{
		matchers:     make(map[int64]*model.Matcher),
		coordinators: make(map[int64]map[string]bool),
		mentors:      mentors,
	}
}

func (m *mockMatcherRepo) Create(_ context.Context, mt *model.Matcher) error {
	if _, ok := m.matchers[mt.CourseID]; ok {
		return fmt.Errorf("duplicate key: course_id=%d", mt.CourseID)
	}
	mt.Version = 1
	c := *mt
	m.matchers[mt.CourseID] = &c
	return nil
}

func (m *mockMatcherRepo) GetByCourse(_ context.Context, courseID int64) (*model.Matcher, error) {
	if mt, ok := m.matchers[courseID]; ok {
		c := *mt
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMatcherRepo) Update(_ context.Context, mt *model.Matcher) error {
	stored, ok := m.matchers[mt.CourseID]
	if !ok || stored.Version != mt.Version {
		return pkgerrors.ErrOptimisticLock
	}
	mt.Version++
	c := *mt
	m.matchers[mt.CourseID] = &c
	return nil
}

func (m *mockMatcherRepo) ListActive(_ context.Context) ([]model.Matcher, error) {
	var result []model.Matcher
	for _, mt := range m.matchers {
		if mt.Active {
			result = append(result, *mt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CourseID < result[j].CourseID })
	return result, nil
}

func (m *mockMatcherRepo) ListActiveForEmail(ctx context.Context, email string) ([]model.Matcher, error) {
	all, _ := m.ListActive(ctx)
	var result []model.Matcher
	for _, mt := range all {
		if m.coordinators[mt.CourseID][email] {
			result = append(result, mt)
			continue
		}
		if _, err := m.mentors.GetByEmail(ctx, mt.CourseID, email); err == nil {
			result = append(result, mt)
		}
	}
	return result, nil
}

func (m *mockMatcherRepo) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, mt := range m.matchers {
		if mt.IsOpen && mt.CloseAt != nil && !mt.CloseAt.After(now) {
			mt.IsOpen = false
			mt.Version++
			n++
		}
	}
	return n, nil
}

func (m *mockMatcherRepo) AddCoordinator(_ context.Context, courseID int64, email string) error {
	if m.coordinators[courseID] == nil {
		m.coordinators[courseID] = make(map[string]bool)
	}
	m.coordinators[courseID][email] = true
	return nil
}

func (m *mockMatcherRepo) IsCoordinator(_ context.Context, courseID int64, email string) (bool, error) {
	return m.coordinators[courseID][email], nil
}

// ── Mock MentorRepository ──

type mockMentorRepo struct {
	mentors map[int64]*model.MatcherMentor
	nextID  int64
}

func newMockMentorRepo() *mockMentorRepo {
	return &mockMentorRepo{mentors: make(map[int64]*model.MatcherMentor), nextID: 100}
}

func (m *mockMentorRepo) ListByCourse(_ context.Context, courseID int64) ([]model.MatcherMentor, error) {
	var result []model.MatcherMentor
	for _, mt := range m.mentors {
		if mt.CourseID == courseID {
			result = append(result, *mt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MentorID < result[j].MentorID })
	return result, nil
}

func (m *mockMentorRepo) GetByEmail(_ context.Context, courseID int64, email string) (*model.MatcherMentor, error) {
	for _, mt := range m.mentors {
		if mt.CourseID == courseID && mt.Email == email {
			c := *mt
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMentorRepo) CreateBatch(ctx context.Context, mentors []model.MatcherMentor) error {
	for i := range mentors {
		if _, err := m.GetByEmail(ctx, mentors[i].CourseID, mentors[i].Email); err == nil {
			return fmt.Errorf("duplicate key: %s", mentors[i].Email)
		}
		m.nextID++
		mentors[i].MentorID = m.nextID
		c := mentors[i]
		m.mentors[c.MentorID] = &c
	}
	return nil
}

func (m *mockMentorRepo) DeleteByEmails(_ context.Context, courseID int64, emails []string) (int64, error) {
	targets := make(map[string]bool, len(emails))
	for _, e := range emails {
		targets[e] = true
	}
	var n int64
	for id, mt := range m.mentors {
		if mt.CourseID == courseID && targets[mt.Email] {
			delete(m.mentors, id)
			n++
		}
	}
	return n, nil
}

// add 测试辅助：直接登记一名导师并返回其 ID
func (m *mockMentorRepo) add(courseID int64, email string) int64 {
	m.nextID++
	m.mentors[m.nextID] = &model.MatcherMentor{MentorID: m.nextID, CourseID: courseID, Email: email}
	return m.nextID
}

// ── Mock SlotRepository ──

type mockSlotRepo struct {
	slots       map[int64]*model.MatcherSlot
	nextID      int64
	preferences *mockPreferenceRepo
	assignments *mockAssignmentRepo
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[int64]*model.MatcherSlot)}
}

func (m *mockSlotRepo) ListByCourse(_ context.Context, courseID int64) ([]model.MatcherSlot, error) {
	var result []model.MatcherSlot
	for _, s := range m.slots {
		if s.CourseID == courseID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotID < result[j].SlotID })
	return result, nil
}

// ReplaceAll 与数据库外键一致：删除时段时级联删除偏好与分配
func (m *mockSlotRepo) ReplaceAll(_ context.Context, courseID int64, slots []model.MatcherSlot) error {
	for id, s := range m.slots {
		if s.CourseID != courseID {
			continue
		}
		delete(m.slots, id)
		if m.preferences != nil {
			m.preferences.deleteSlot(id)
		}
	}
	if m.assignments != nil {
		delete(m.assignments.byCourse, courseID)
	}
	for i := range slots {
		m.nextID++
		slots[i].SlotID = m.nextID
		slots[i].CourseID = courseID
		c := slots[i]
		m.slots[c.SlotID] = &c
	}
	return nil
}

func (m *mockSlotRepo) UpdateBounds(_ context.Context, slotID int64, minMentors, maxMentors int) error {
	s, ok := m.slots[slotID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.MinMentors = minMentors
	s.MaxMentors = maxMentors
	return nil
}

// ── Mock PreferenceRepository ──

type prefKey struct {
	slot, mentor int64
}

type mockPreferenceRepo struct {
	prefs  map[prefKey]*model.MatcherPreference
	nextID int64
	slots  *mockSlotRepo
}

func newMockPreferenceRepo(slots *mockSlotRepo) *mockPreferenceRepo {
	return &mockPreferenceRepo{prefs: make(map[prefKey]*model.MatcherPreference), slots: slots}
}

func (m *mockPreferenceRepo) ListByCourse(_ context.Context, courseID int64) ([]model.MatcherPreference, error) {
	var result []model.MatcherPreference
	for k, p := range m.prefs {
		if s, ok := m.slots.slots[k.slot]; ok && s.CourseID == courseID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PreferenceID < result[j].PreferenceID })
	return result, nil
}

func (m *mockPreferenceRepo) ListByMentor(_ context.Context, mentorID int64) ([]model.MatcherPreference, error) {
	var result []model.MatcherPreference
	for k, p := range m.prefs {
		if k.mentor == mentorID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotID < result[j].SlotID })
	return result, nil
}

func (m *mockPreferenceRepo) Upsert(_ context.Context, prefs []model.MatcherPreference) error {
	for _, p := range prefs {
		k := prefKey{slot: p.SlotID, mentor: p.MentorID}
		if existing, ok := m.prefs[k]; ok {
			existing.Preference = p.Preference
			continue
		}
		m.nextID++
		p.PreferenceID = m.nextID
		c := p
		m.prefs[k] = &c
	}
	return nil
}

func (m *mockPreferenceRepo) deleteSlot(slotID int64) {
	for k := range m.prefs {
		if k.slot == slotID {
			delete(m.prefs, k)
		}
	}
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	byCourse map[int64][]model.MatcherAssignment
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{byCourse: make(map[int64][]model.MatcherAssignment)}
}

func (m *mockAssignmentRepo) ListByCourse(_ context.Context, courseID int64) ([]model.MatcherAssignment, error) {
	return append([]model.MatcherAssignment(nil), m.byCourse[courseID]...), nil
}

func (m *mockAssignmentRepo) ReplaceAll(_ context.Context, courseID int64, list []model.MatcherAssignment) error {
	stored := make([]model.MatcherAssignment, len(list))
	for i, a := range list {
		a.AssignmentID = int64(i + 1)
		a.CourseID = courseID
		stored[i] = a
	}
	m.byCourse[courseID] = stored
	return nil
}

// ── Mock SectionRepository ──

type mockSectionRepo struct {
	sections []model.Section
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{}
}

func (m *mockSectionRepo) CreateBatch(_ context.Context, sections []model.Section) error {
	for i := range sections {
		sections[i].SectionID = int64(len(m.sections) + 1)
		m.sections = append(m.sections, sections[i])
	}
	return nil
}

func (m *mockSectionRepo) ListByCourse(_ context.Context, courseID int64) ([]model.Section, error) {
	var result []model.Section
	for _, s := range m.sections {
		if s.CourseID == courseID {
			result = append(result, s)
		}
	}
	return result, nil
}
