package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"tutorhub/backend/internal/model"
	"tutorhub/backend/internal/repository"
	"tutorhub/backend/internal/scheduling"
	pkgerrors "tutorhub/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id 或 "email:" + email
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if _, ok := m.users["email:"+user.Email]; ok {
		return fmt.Errorf("duplicate email")
	}
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	m.users["email:"+user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+strings.ToLower(strings.TrimSpace(email))]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	_, ok := m.users["email:"+strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	if semester.SemesterID == "" {
		semester.SemesterID = "sem-" + semester.Name
	}
	m.semesters[semester.SemesterID] = semester
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetActive(_ context.Context) (*model.Semester, error) {
	for _, s := range m.semesters {
		if s.IsActive {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range m.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

func (m *mockSemesterRepo) FindOverlapping(_ context.Context, start, end time.Time) (*model.Semester, error) {
	for _, s := range m.semesters {
		if !s.StartDate.After(end) && !s.EndDate.Before(start) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) Activate(_ context.Context, semester *model.Semester, updatedBy string) error {
	stored, ok := m.semesters[semester.SemesterID]
	if !ok || stored.Version != semester.Version {
		return pkgerrors.ErrOptimisticLock
	}
	for _, s := range m.semesters {
		s.IsActive = false
	}
	stored.IsActive = true
	stored.UpdatedBy = &updatedBy
	stored.Version++
	semester.IsActive = true
	semester.Version = stored.Version
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[string]*model.Subject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	for _, s := range m.subjects {
		if s.Code == subject.Code {
			return uniqueViolation()
		}
	}
	if subject.SubjectID == "" {
		subject.SubjectID = "subj-" + subject.Code
	}
	subject.Version = 1
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context, keyword string, offset, limit int) ([]model.Subject, int64, error) {
	var all []model.Subject
	for _, s := range m.subjects {
		if keyword != "" && !strings.Contains(s.Code, keyword) && !strings.Contains(s.Name, keyword) {
			continue
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Subject{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	stored, ok := m.subjects[subject.SubjectID]
	if !ok {
		return pkgerrors.ErrOptimisticLock
	}
	if stored != subject && stored.Version != subject.Version {
		return pkgerrors.ErrOptimisticLock
	}
	subject.Version++
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.subjects, id)
	return nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct {
	classes  map[string]*model.TutoringClass
	sessions *mockSessionRepo
	nextID   int

	// beforeSubmit 在 recheck 之前执行，用于模拟并发提交
	beforeSubmit func()
}

func newMockClassRepo(sessions *mockSessionRepo) *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*model.TutoringClass), sessions: sessions}
}

func (m *mockClassRepo) Create(_ context.Context, class *model.TutoringClass) error {
	for _, c := range m.classes {
		if c.ClassCode == class.ClassCode {
			return uniqueViolation()
		}
	}
	if class.ClassID == "" {
		m.nextID++
		class.ClassID = fmt.Sprintf("cls-%03d", m.nextID)
	}
	for i := range class.Slots {
		class.Slots[i].ClassID = class.ClassID
	}
	class.Version = 1
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.TutoringClass, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) List(_ context.Context, filter repository.ClassFilter, offset, limit int) ([]model.TutoringClass, int64, error) {
	var all []model.TutoringClass
	for _, c := range m.classes {
		if filter.SemesterID != "" && c.SemesterID != filter.SemesterID {
			continue
		}
		if filter.SubjectID != "" && c.SubjectID != filter.SubjectID {
			continue
		}
		if filter.TutorID != "" && c.TutorID != filter.TutorID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ClassCode < all[j].ClassCode })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.TutoringClass{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockClassRepo) ReplaceSlots(_ context.Context, classID string, slots []model.ClassSlot, _ string) error {
	c, ok := m.classes[classID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Slots = slots
	return nil
}

func (m *mockClassRepo) ListSubmittedByTutor(_ context.Context, tutorID, semesterID, excludeClassID string) ([]model.TutoringClass, error) {
	var result []model.TutoringClass
	for _, c := range m.classes {
		if c.TutorID == tutorID && c.SemesterID == semesterID &&
			c.Status == model.ClassStatusSubmitted && c.ClassID != excludeClassID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClassID < result[j].ClassID })
	return result, nil
}

func (m *mockClassRepo) Submit(ctx context.Context, class *model.TutoringClass, sessions []model.Session, recheck repository.ClassRecheckFunc) error {
	if m.beforeSubmit != nil {
		m.beforeSubmit()
	}
	if recheck != nil {
		existing, _ := m.ListSubmittedByTutor(ctx, class.TutorID, class.SemesterID, class.ClassID)
		if err := recheck(existing); err != nil {
			return err
		}
	}

	stored, ok := m.classes[class.ClassID]
	if !ok || stored.Status != model.ClassStatusDraft {
		return pkgerrors.ErrOptimisticLock
	}

	now := time.Now()
	class.Status = model.ClassStatusSubmitted
	class.SubmittedAt = &now
	class.Version++
	m.classes[class.ClassID] = class

	for i := range sessions {
		sess := sessions[i]
		sess.Class = class
		m.sessions.add(&sess)
	}
	return nil
}

func (m *mockClassRepo) Close(_ context.Context, class *model.TutoringClass, cancelFrom time.Time, reason string) (int64, error) {
	stored, ok := m.classes[class.ClassID]
	if !ok || stored.Status != model.ClassStatusSubmitted {
		return 0, pkgerrors.ErrOptimisticLock
	}
	class.Status = model.ClassStatusClosed
	class.Version++
	m.classes[class.ClassID] = class

	from := cancelFrom.Format(dateLayout)
	var cancelled int64
	for _, s := range m.sessions.sessions {
		if s.ClassID == class.ClassID && s.Status == string(scheduling.SessionScheduled) && s.Date().Format(dateLayout) >= from {
			s.Status = string(scheduling.SessionCancelled)
			s.CancelReason = reason
			s.Version++
			cancelled++
		}
	}
	return cancelled, nil
}

// ── Mock RegistrationRepository ──

type mockRegistrationRepo struct {
	regs    map[string]*model.Registration
	classes *mockClassRepo
	nextID  int
}

func newMockRegistrationRepo(classes *mockClassRepo) *mockRegistrationRepo {
	return &mockRegistrationRepo{regs: make(map[string]*model.Registration), classes: classes}
}

func (m *mockRegistrationRepo) Create(ctx context.Context, reg *model.Registration, recheck repository.RegistrationRecheckFunc) error {
	if recheck != nil {
		var semesterID string
		if c, ok := m.classes.classes[reg.ClassID]; ok {
			semesterID = c.SemesterID
		}
		existing, _ := m.ListActiveClassesByMentee(ctx, reg.MenteeID, semesterID)
		var activeCount int64
		for _, r := range m.regs {
			if r.ClassID == reg.ClassID && r.Status == model.RegistrationActive {
				activeCount++
			}
		}
		if err := recheck(existing, activeCount); err != nil {
			return err
		}
	}

	m.nextID++
	reg.RegistrationID = fmt.Sprintf("reg-%03d", m.nextID)
	reg.CreatedAt = time.Date(2026, 3, 1, 0, 0, m.nextID, 0, time.UTC)
	m.regs[reg.RegistrationID] = reg
	return nil
}

func (m *mockRegistrationRepo) GetByID(_ context.Context, id string) (*model.Registration, error) {
	if r, ok := m.regs[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRegistrationRepo) ListByMentee(_ context.Context, menteeID, status string) ([]model.Registration, error) {
	var result []model.Registration
	for _, r := range m.regs {
		if r.MenteeID != menteeID || (status != "" && r.Status != status) {
			continue
		}
		reg := *r
		reg.Class = m.classes.classes[r.ClassID]
		result = append(result, reg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockRegistrationRepo) ListActiveClassesByMentee(_ context.Context, menteeID, semesterID string) ([]model.TutoringClass, error) {
	var regs []*model.Registration
	for _, r := range m.regs {
		if r.MenteeID == menteeID && r.Status == model.RegistrationActive {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.Before(regs[j].CreatedAt) })

	result := make([]model.TutoringClass, 0, len(regs))
	for _, r := range regs {
		c, ok := m.classes.classes[r.ClassID]
		if ok && c.SemesterID == semesterID && c.Status == model.ClassStatusSubmitted {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockRegistrationRepo) Withdraw(_ context.Context, id string, updatedBy string) error {
	r, ok := m.regs[id]
	if !ok || r.Status != model.RegistrationActive {
		return nil
	}
	now := time.Now()
	r.Status = model.RegistrationWithdrawn
	r.WithdrawnAt = &now
	r.UpdatedBy = &updatedBy
	return nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	sessions map[string]*model.Session
	regs     *mockRegistrationRepo
	nextID   int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) add(s *model.Session) {
	if s.SessionID == "" {
		m.nextID++
		s.SessionID = fmt.Sprintf("sess-%03d", m.nextID)
	}
	if s.Version == 0 {
		s.Version = 1
	}
	m.sessions[s.SessionID] = s
}

func (m *mockSessionRepo) List(_ context.Context, filter repository.SessionFilter) ([]model.Session, error) {
	var result []model.Session
	for _, s := range m.sessions {
		if filter.ClassID != "" && s.ClassID != filter.ClassID {
			continue
		}
		if filter.TutorID != "" && (s.Class == nil || s.Class.TutorID != filter.TutorID) {
			continue
		}
		if filter.MenteeID != "" && !m.registered(filter.MenteeID, s.ClassID) {
			continue
		}
		d := s.Date().Format(dateLayout)
		if filter.From != nil && d < filter.From.Format(dateLayout) {
			continue
		}
		if filter.To != nil && d > filter.To.Format(dateLayout) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		di, dj := result[i].Date(), result[j].Date()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return result[i].StartPeriod < result[j].StartPeriod
	})
	return result, nil
}

func (m *mockSessionRepo) registered(menteeID, classID string) bool {
	if m.regs == nil {
		return false
	}
	for _, r := range m.regs.regs {
		if r.MenteeID == menteeID && r.ClassID == classID && r.Status == model.RegistrationActive {
			return true
		}
	}
	return false
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, session *model.Session) error {
	stored, ok := m.sessions[session.SessionID]
	if !ok || stored.Version != session.Version {
		return pkgerrors.ErrOptimisticLock
	}
	session.Version++
	copied := *session
	m.sessions[session.SessionID] = &copied
	return nil
}

// ── 组装 ──

type mockRepos struct {
	users         *mockUserRepo
	semesters     *mockSemesterRepo
	subjects      *mockSubjectRepo
	classes       *mockClassRepo
	registrations *mockRegistrationRepo
	sessions      *mockSessionRepo
}

// newMockRepository 组装 db 为 nil 的 Repository，事务方法按无事务处理
func newMockRepository() (*repository.Repository, *mockRepos) {
	sessions := newMockSessionRepo()
	classes := newMockClassRepo(sessions)
	regs := newMockRegistrationRepo(classes)
	sessions.regs = regs

	m := &mockRepos{
		users:         newMockUserRepo(),
		semesters:     newMockSemesterRepo(),
		subjects:      newMockSubjectRepo(),
		classes:       classes,
		registrations: regs,
		sessions:      sessions,
	}
	repo := &repository.Repository{
		User:         m.users,
		Semester:     m.semesters,
		Subject:      m.subjects,
		Class:        m.classes,
		Registration: m.registrations,
		Session:      m.sessions,
	}
	return repo, m
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{tokens: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.tokens[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.tokens[jti]
	return ok, nil
}

// uniqueViolation 模拟 PostgreSQL 唯一约束冲突
func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}
