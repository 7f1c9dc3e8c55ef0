package usecase

import (
	"fmt"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// fakeSessionRepo is an in-memory domain.SessionRepository.
type fakeSessionRepo struct {
	sessions map[string]domain.Session
	nextID   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]domain.Session{}}
}

func (f *fakeSessionRepo) Create(_ domain.Context, s domain.Session) (string, error) {
	f.nextID++
	if s.ID == "" {
		s.ID = fmt.Sprintf("sess-%d", f.nextID)
	}
	f.sessions[s.ID] = s
	return s.ID, nil
}

func (f *fakeSessionRepo) Get(_ domain.Context, id string) (domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("op=fake.get: %w", domain.ErrNotFound)
	}
	return s, nil
}

func (f *fakeSessionRepo) ListByStudent(_ domain.Context, studentID string) ([]domain.Session, error) {
	var out []domain.Session
	for _, s := range f.sessions {
		if s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) UpdateTurns(_ domain.Context, id string, turns []domain.ChatTurn) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Turns = turns
	f.sessions[id] = s
	return nil
}

func (f *fakeSessionRepo) Delete(_ domain.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

// fakeCompleter records what it was asked and returns a canned outcome.
type fakeCompleter struct {
	prompt  string
	history []domain.ChatTurn
	keys    []string
	out     domain.DispatchOutcome
}

func (f *fakeCompleter) Complete(_ domain.Context, prompt string, history []domain.ChatTurn, keys []string) domain.DispatchOutcome {
	f.prompt = prompt
	f.history = history
	f.keys = keys
	return f.out
}

// suffixEnricher appends a fixed marker, standing in for a reference lookup.
type suffixEnricher struct{ suffix string }

func (e suffixEnricher) Enrich(_ domain.Context, prompt string) string { return prompt + e.suffix }

// fakeAppConfigRepo returns a fixed config row.
type fakeAppConfigRepo struct {
	cfg domain.AppConfig
	err error
}

func (f *fakeAppConfigRepo) Get(domain.Context) (domain.AppConfig, error) { return f.cfg, f.err }
func (f *fakeAppConfigRepo) Put(domain.Context, domain.AppConfig) error   { return nil }

// fakeSink collects published events.
type fakeSink struct{ events []domain.ChatEvent }

func (f *fakeSink) Publish(_ domain.Context, e domain.ChatEvent) error {
	f.events = append(f.events, e)
	return nil
}

// fakeStudentRepo is an in-memory domain.StudentRepository.
type fakeStudentRepo struct {
	students map[string]domain.Student
	nextID   int
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: map[string]domain.Student{}}
}

func (f *fakeStudentRepo) Create(_ domain.Context, s domain.Student) (string, error) {
	for _, existing := range f.students {
		if existing.NIM == s.NIM || existing.Username == s.Username {
			return "", domain.ErrConflict
		}
	}
	f.nextID++
	if s.ID == "" {
		s.ID = fmt.Sprintf("stu-%d", f.nextID)
	}
	f.students[s.ID] = s
	return s.ID, nil
}

func (f *fakeStudentRepo) FindByLogin(_ domain.Context, login string) (domain.Student, error) {
	for _, s := range f.students {
		if s.NIM == login || s.Username == login {
			return s, nil
		}
	}
	return domain.Student{}, domain.ErrNotFound
}

func (f *fakeStudentRepo) List(domain.Context) ([]domain.Student, error) {
	var out []domain.Student
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStudentRepo) SetVerified(_ domain.Context, id string, verified bool) error {
	s, ok := f.students[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.IsVerified = verified
	f.students[id] = s
	return nil
}

func (f *fakeStudentRepo) Delete(_ domain.Context, id string) error {
	if _, ok := f.students[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.students, id)
	return nil
}

// plainHasher is a trivial PasswordHasher for tests.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error)    { return "hashed:" + pw, nil }
func (plainHasher) Verify(pw, encoded string) bool    { return encoded == "hashed:"+pw }
