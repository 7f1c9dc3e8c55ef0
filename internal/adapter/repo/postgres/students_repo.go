package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// StudentRepo persists student accounts.
type StudentRepo struct{ Pool PgxPool }

func NewStudentRepo(p PgxPool) *StudentRepo { return &StudentRepo{Pool: p} }

const studentColumns = `id, nim, name, full_name, prodi, username, password_hash, position, is_verified, created_at`

// Create stores a new student. A duplicate nim or username maps to
// domain.ErrConflict.
func (r *StudentRepo) Create(ctx domain.Context, s domain.Student) (string, error) {
	tracer := otel.Tracer("repo.students")
	ctx, span := tracer.Start(ctx, "students.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "students"),
	)
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO students (` + studentColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.Pool.Exec(ctx, q, id, s.NIM, s.Name, s.FullName, s.Prodi, s.Username, s.PasswordHash, s.Position, s.IsVerified, time.Now().UTC())
	if isUniqueViolation(err) {
		return "", fmt.Errorf("op=student.create nim=%s: %w", s.NIM, domain.ErrConflict)
	}
	if err != nil {
		return "", fmt.Errorf("op=student.create: %w", err)
	}
	return id, nil
}

// FindByLogin resolves a student by nim or username.
func (r *StudentRepo) FindByLogin(ctx domain.Context, nimOrUsername string) (domain.Student, error) {
	tracer := otel.Tracer("repo.students")
	ctx, span := tracer.Start(ctx, "students.FindByLogin")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "students"),
	)
	q := `SELECT ` + studentColumns + ` FROM students WHERE nim=$1 OR username=$1`
	var s domain.Student
	err := r.Pool.QueryRow(ctx, q, nimOrUsername).Scan(
		&s.ID, &s.NIM, &s.Name, &s.FullName, &s.Prodi, &s.Username,
		&s.PasswordHash, &s.Position, &s.IsVerified, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Student{}, fmt.Errorf("op=student.find: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("op=student.find: %w", err)
	}
	return s, nil
}

// List returns all students, newest first.
func (r *StudentRepo) List(ctx domain.Context) ([]domain.Student, error) {
	tracer := otel.Tracer("repo.students")
	ctx, span := tracer.Start(ctx, "students.List")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "students"),
	)
	q := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=student.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Student
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(
			&s.ID, &s.NIM, &s.Name, &s.FullName, &s.Prodi, &s.Username,
			&s.PasswordHash, &s.Position, &s.IsVerified, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("op=student.list.scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=student.list.rows: %w", err)
	}
	return out, nil
}

// SetVerified flips the verification flag used to gate login.
func (r *StudentRepo) SetVerified(ctx domain.Context, id string, verified bool) error {
	tracer := otel.Tracer("repo.students")
	ctx, span := tracer.Start(ctx, "students.SetVerified")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "students"),
	)
	tag, err := r.Pool.Exec(ctx, `UPDATE students SET is_verified=$2 WHERE id=$1`, id, verified)
	if err != nil {
		return fmt.Errorf("op=student.set_verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=student.set_verified id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a student account.
func (r *StudentRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.students")
	ctx, span := tracer.Start(ctx, "students.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "students"),
	)
	tag, err := r.Pool.Exec(ctx, `DELETE FROM students WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=student.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=student.delete id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}
