// Package domain holds the core entities, ports, and error taxonomy.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
	// ErrNoCredentials means the merged key pool was empty; no network call is made.
	ErrNoCredentials = errors.New("no credentials available")
	// ErrEmptyCompletion means a 2xx provider response without the expected text field.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrModelNotFound is the Google 404-on-model case, recovered by trying the
	// next configured model id with the same credential.
	ErrModelNotFound = errors.New("model not found")
	ErrInternal      = errors.New("internal error")
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatTurn is one entry of a conversation, insertion order significant.
// The newest user prompt is appended by the dispatcher and must not already be
// present in the history handed to it.
type ChatTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Provider tags a classified credential. Unknown keys are never dialed.
type Provider string

const (
	ProviderGoogle      Provider = "google"
	ProviderHuggingFace Provider = "huggingface"
	ProviderGroq        Provider = "groq"
	ProviderOpenRouter  Provider = "openrouter"
	ProviderDeepSeek    Provider = "deepseek"
	ProviderUnknown     Provider = "unknown"
)

// Session is a stored conversation of a student.
type Session struct {
	ID        string
	StudentID string
	Title     string
	Turns     []ChatTurn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Student mirrors the students table used by login/registration.
type Student struct {
	ID           string
	NIM          string
	Name         string
	FullName     string
	Prodi        string
	Username     string
	PasswordHash string
	Position     string
	IsVerified   bool
	CreatedAt    time.Time
}

// AppConfig is the single-row runtime configuration editable from the admin
// dashboard. APIKeys merges with the env default pool at dispatch time.
type AppConfig struct {
	Description  string
	DownloadLink string
	APIKeys      string
	UpdatedAt    time.Time
}

// ChatEvent is the audit record emitted after every completed dispatch.
type ChatEvent struct {
	SessionID    string `json:"session_id"`
	StudentID    string `json:"student_id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	LatencyMS    int64  `json:"latency_ms"`
	PromptTokens int    `json:"prompt_tokens"`
	ReplyTokens  int    `json:"reply_tokens"`
	Failed       bool   `json:"failed"`
}

// Repositories (ports)

type SessionRepository interface {
	Create(ctx Context, s Session) (string, error)
	Get(ctx Context, id string) (Session, error)
	ListByStudent(ctx Context, studentID string) ([]Session, error)
	UpdateTurns(ctx Context, id string, turns []ChatTurn) error
	Delete(ctx Context, id string) error
}

type StudentRepository interface {
	Create(ctx Context, s Student) (string, error)
	FindByLogin(ctx Context, nimOrUsername string) (Student, error)
	List(ctx Context) ([]Student, error)
	SetVerified(ctx Context, id string, verified bool) error
	Delete(ctx Context, id string) error
}

type AppConfigRepository interface {
	Get(ctx Context) (AppConfig, error)
	Put(ctx Context, c AppConfig) error
}

// DispatchOutcome is the result of one dispatch. Text is always usable as the
// reply shown to the student; on total failure it carries the apology message
// and Failed is set. Success and failure are mutually exclusive.
type DispatchOutcome struct {
	Text     string
	Provider Provider
	Model    string
	Failed   bool
}

// Completer is the outbound dispatch port: one prompt plus truncated history
// plus a raw key pool in, one best-effort reply out. Implementations never
// return an error to the caller; total failure is folded into the outcome.
type Completer interface {
	Complete(ctx Context, prompt string, history []ChatTurn, keys []string) DispatchOutcome
}

// Enricher rewrites an outgoing prompt. By construction it cannot fail: any
// lookup problem returns the prompt unchanged.
type Enricher interface {
	Enrich(ctx Context, prompt string) string
}

// EventSink receives chat audit events, fire and forget.
type EventSink interface {
	Publish(ctx Context, e ChatEvent) error
}

// Context is an alias so the domain stays decoupled from std context in
// signatures; adapters and usecases pass context.Context through.
type Context = context.Context
