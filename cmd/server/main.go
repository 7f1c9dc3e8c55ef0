// Command server starts the Haziq AI chat backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/haziqlabs/haziq-ai/internal/adapter/ai"
	"github.com/haziqlabs/haziq-ai/internal/adapter/enrich"
	"github.com/haziqlabs/haziq-ai/internal/adapter/events"
	httpserver "github.com/haziqlabs/haziq-ai/internal/adapter/httpserver"
	"github.com/haziqlabs/haziq-ai/internal/adapter/observability"
	"github.com/haziqlabs/haziq-ai/internal/adapter/repo/postgres"
	"github.com/haziqlabs/haziq-ai/internal/app"
	"github.com/haziqlabs/haziq-ai/internal/config"
	"github.com/haziqlabs/haziq-ai/internal/domain"
	"github.com/haziqlabs/haziq-ai/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	sessRepo := postgres.NewSessionRepo(pool)
	studentRepo := postgres.NewStudentRepo(pool)
	appConfigRepo := postgres.NewAppConfigRepo(pool)

	// Redis backs the enrichment cache; without it lookups go straight to
	// the upstream APIs on every citation.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, enrichment cache disabled", slog.Any("error", err))
			rdb = nil
		}
	}

	var sink domain.EventSink
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			slog.Error("kafka producer connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				slog.Error("failed to close events producer", slog.Any("error", err))
			}
		}()
		sink = producer
	} else {
		slog.Info("no kafka brokers configured, chat events disabled")
		sink = events.NewNopSink()
	}

	dispatcher := ai.NewDispatcher(cfg)

	enrichClient := &http.Client{
		Timeout:   cfg.EnrichTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	var enrichRedis redis.UniversalClient
	if rdb != nil {
		enrichRedis = rdb
	}
	enrichers := []domain.Enricher{
		enrich.NewQuranEnricher(cfg.QuranAPIBaseURL, enrichClient, enrichRedis, cfg.EnrichCacheTTL, cfg.EnrichRetryMax),
		enrich.NewHadithEnricher(cfg.HadithAPIBaseURL, enrichClient, enrichRedis, cfg.EnrichCacheTTL, cfg.EnrichRetryMax),
	}

	chatSvc := usecase.NewChatService(sessRepo, appConfigRepo, dispatcher, enrichers, sink,
		cfg.APIKeys, cfg.HistoryMaxTurns, cfg.MaxPromptChars)
	historySvc := usecase.NewSessionService(sessRepo)
	authSvc := usecase.NewAuthService(studentRepo, httpserver.NewArgon2Hasher())

	var redisClient app.RedisClient
	if rdb != nil {
		redisClient = redisAdapter{rdb}
	}
	dbCheck, redisCheck := app.BuildReadinessChecks(pool, redisClient)

	srv := httpserver.NewServer(cfg, chatSvc, historySvc, authSvc, appConfigRepo, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// redisAdapter narrows *redis.Client to the readiness interface.
type redisAdapter struct{ rdb *redis.Client }

func (a redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return a.rdb.Ping(ctx) }
