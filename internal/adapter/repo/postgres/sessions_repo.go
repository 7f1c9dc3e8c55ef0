package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// SessionRepo persists conversations. Turns are stored as a single jsonb
// column because a session is always read and rewritten whole.
type SessionRepo struct{ Pool PgxPool }

func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

// Create stores a new session and returns its id (generates one if empty).
func (r *SessionRepo) Create(ctx domain.Context, s domain.Session) (string, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "sessions"),
	)
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	turns, err := json.Marshal(s.Turns)
	if err != nil {
		return "", fmt.Errorf("op=session.create.marshal: %w", err)
	}
	now := time.Now().UTC()
	q := `INSERT INTO sessions (id, student_id, title, turns, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, id, s.StudentID, s.Title, turns, now, now); err != nil {
		return "", fmt.Errorf("op=session.create: %w", err)
	}
	return id, nil
}

// Get loads a session by id.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "sessions"),
	)
	q := `SELECT id, student_id, title, turns, created_at, updated_at FROM sessions WHERE id=$1`
	var s domain.Session
	var turns []byte
	err := r.Pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.StudentID, &s.Title, &turns, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("op=session.get id=%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	if err := json.Unmarshal(turns, &s.Turns); err != nil {
		return domain.Session{}, fmt.Errorf("op=session.get.unmarshal: %w", err)
	}
	return s, nil
}

// ListByStudent returns the sessions of one student, newest first. Turn
// bodies are omitted to keep the listing cheap.
func (r *SessionRepo) ListByStudent(ctx domain.Context, studentID string) ([]domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.ListByStudent")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "sessions"),
	)
	q := `SELECT id, student_id, title, created_at, updated_at FROM sessions WHERE student_id=$1 ORDER BY updated_at DESC`
	rows, err := r.Pool.Query(ctx, q, studentID)
	if err != nil {
		return nil, fmt.Errorf("op=session.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=session.list.scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=session.list.rows: %w", err)
	}
	return out, nil
}

// UpdateTurns replaces the stored conversation of a session.
func (r *SessionRepo) UpdateTurns(ctx domain.Context, id string, turns []domain.ChatTurn) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.UpdateTurns")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "sessions"),
	)
	b, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("op=session.update_turns.marshal: %w", err)
	}
	q := `UPDATE sessions SET turns=$2, updated_at=$3 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, b, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=session.update_turns: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.update_turns id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a session by id.
func (r *SessionRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "sessions"),
	)
	tag, err := r.Pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=session.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.delete id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}
