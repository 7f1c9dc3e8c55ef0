package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// AppConfigRepo stores the single runtime configuration row edited from the
// admin dashboard.
type AppConfigRepo struct{ Pool PgxPool }

func NewAppConfigRepo(p PgxPool) *AppConfigRepo { return &AppConfigRepo{Pool: p} }

// Get loads the configuration row. A missing row yields zero values, not an
// error, so a fresh database behaves like an empty admin form.
func (r *AppConfigRepo) Get(ctx domain.Context) (domain.AppConfig, error) {
	tracer := otel.Tracer("repo.appconfig")
	ctx, span := tracer.Start(ctx, "appconfig.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "app_config"),
	)
	q := `SELECT description, download_link, api_keys, updated_at FROM app_config WHERE id=1`
	var c domain.AppConfig
	err := r.Pool.QueryRow(ctx, q).Scan(&c.Description, &c.DownloadLink, &c.APIKeys, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AppConfig{}, nil
	}
	if err != nil {
		return domain.AppConfig{}, fmt.Errorf("op=appconfig.get: %w", err)
	}
	return c, nil
}

// Put upserts the configuration row.
func (r *AppConfigRepo) Put(ctx domain.Context, c domain.AppConfig) error {
	tracer := otel.Tracer("repo.appconfig")
	ctx, span := tracer.Start(ctx, "appconfig.Put")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.sql.table", "app_config"),
	)
	q := `INSERT INTO app_config (id, description, download_link, api_keys, updated_at)
	      VALUES (1, $1, $2, $3, $4)
	      ON CONFLICT (id) DO UPDATE SET description=$1, download_link=$2, api_keys=$3, updated_at=$4`
	if _, err := r.Pool.Exec(ctx, q, c.Description, c.DownloadLink, c.APIKeys, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=appconfig.put: %w", err)
	}
	return nil
}
