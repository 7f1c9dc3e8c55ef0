package usecase

import (
	"fmt"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// PasswordHasher abstracts the password hashing scheme so the service stays
// independent of the concrete algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

const minPasswordLen = 8

// AuthService handles student registration and login. New accounts start
// unverified and cannot log in until an admin flips the flag.
type AuthService struct {
	Students domain.StudentRepository
	Hasher   PasswordHasher
}

func NewAuthService(students domain.StudentRepository, hasher PasswordHasher) AuthService {
	return AuthService{Students: students, Hasher: hasher}
}

// Register creates an unverified student account. Duplicate nim or username
// surfaces as domain.ErrConflict from the repository.
func (a AuthService) Register(ctx domain.Context, s domain.Student, password string) (string, error) {
	if s.NIM == "" || s.Name == "" || s.Username == "" {
		return "", fmt.Errorf("%w: nim, name, and username are required", domain.ErrInvalidArgument)
	}
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLen)
	}
	hash, err := a.Hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("op=auth.register: %w", err)
	}
	s.PasswordHash = hash
	s.IsVerified = false
	return a.Students.Create(ctx, s)
}

// Login authenticates by nim or username. Unknown accounts and wrong
// passwords are indistinguishable to the caller.
func (a AuthService) Login(ctx domain.Context, login, password string) (domain.Student, error) {
	s, err := a.Students.FindByLogin(ctx, login)
	if err != nil {
		return domain.Student{}, fmt.Errorf("op=auth.login: %w", domain.ErrUnauthorized)
	}
	if !a.Hasher.Verify(password, s.PasswordHash) {
		return domain.Student{}, fmt.Errorf("op=auth.login: %w", domain.ErrUnauthorized)
	}
	if !s.IsVerified {
		return domain.Student{}, fmt.Errorf("op=auth.login account pending verification: %w", domain.ErrUnauthorized)
	}
	return s, nil
}

// ListStudents returns all accounts for the admin dashboard.
func (a AuthService) ListStudents(ctx domain.Context) ([]domain.Student, error) {
	return a.Students.List(ctx)
}

// SetVerified flips the login gate for one account.
func (a AuthService) SetVerified(ctx domain.Context, id string, verified bool) error {
	return a.Students.SetVerified(ctx, id, verified)
}

// DeleteStudent removes an account.
func (a AuthService) DeleteStudent(ctx domain.Context, id string) error {
	return a.Students.Delete(ctx, id)
}
