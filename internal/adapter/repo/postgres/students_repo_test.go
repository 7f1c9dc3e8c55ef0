package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haziqlabs/haziq-ai/internal/adapter/repo/postgres"
	"github.com/haziqlabs/haziq-ai/internal/domain"
)

func TestStudentRepo_Create_DuplicateMapsToConflict(t *testing.T) {
	t.Parallel()

	p := &poolStub{execErr: &pgconn.PgError{Code: "23505"}}
	r := postgres.NewStudentRepo(p)

	_, err := r.Create(context.Background(), domain.Student{NIM: "2110001", Username: "siti"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestStudentRepo_Create_Success(t *testing.T) {
	t.Parallel()

	p := &poolStub{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	r := postgres.NewStudentRepo(p)

	id, err := r.Create(context.Background(), domain.Student{NIM: "2110001", Name: "Siti"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "2110001", p.execArgs[1])
}

func TestStudentRepo_FindByLogin_NotFound(t *testing.T) {
	t.Parallel()

	p := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	r := postgres.NewStudentRepo(p)

	_, err := r.FindByLogin(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStudentRepo_FindByLogin_Success(t *testing.T) {
	t.Parallel()

	p := &poolStub{row: rowStub{scan: func(dest ...any) error {
		setStr(dest[0], "stu-1")
		setStr(dest[1], "2110001")
		setStr(dest[2], "Siti")
		setStr(dest[3], "Siti Aminah")
		setStr(dest[4], "Informatika")
		setStr(dest[5], "siti")
		setStr(dest[6], "$argon2id$hash")
		setStr(dest[7], "mahasiswa")
		*(dest[8].(*bool)) = true
		*(dest[9].(*time.Time)) = time.Now().UTC()
		return nil
	}}}
	r := postgres.NewStudentRepo(p)

	s, err := r.FindByLogin(context.Background(), "2110001")
	require.NoError(t, err)
	assert.Equal(t, "siti", s.Username)
	assert.True(t, s.IsVerified)
}

func TestStudentRepo_SetVerified(t *testing.T) {
	t.Parallel()

	p := &poolStub{execTag: pgconn.NewCommandTag("UPDATE 1")}
	r := postgres.NewStudentRepo(p)
	require.NoError(t, r.SetVerified(context.Background(), "stu-1", true))

	p.execTag = pgconn.NewCommandTag("UPDATE 0")
	require.ErrorIs(t, r.SetVerified(context.Background(), "missing", true), domain.ErrNotFound)
}
