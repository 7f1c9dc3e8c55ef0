package usecase

import (
	"fmt"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// SessionService exposes a student's conversation history. Every operation
// is scoped to the owning student; another student's session behaves as if
// it does not exist.
type SessionService struct {
	Sessions domain.SessionRepository
}

func NewSessionService(sessions domain.SessionRepository) SessionService {
	return SessionService{Sessions: sessions}
}

// List returns the student's sessions, newest first, without turn bodies.
func (s SessionService) List(ctx domain.Context, studentID string) ([]domain.Session, error) {
	return s.Sessions.ListByStudent(ctx, studentID)
}

// Get loads one full session including its turns.
func (s SessionService) Get(ctx domain.Context, studentID, id string) (domain.Session, error) {
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.StudentID != studentID {
		return domain.Session{}, fmt.Errorf("op=session.get id=%s: %w", id, domain.ErrNotFound)
	}
	return sess, nil
}

// Delete removes one session after an ownership check.
func (s SessionService) Delete(ctx domain.Context, studentID, id string) error {
	if _, err := s.Get(ctx, studentID, id); err != nil {
		return err
	}
	return s.Sessions.Delete(ctx, id)
}
