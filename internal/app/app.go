// Package app builds the dependencies shared by cmd/api and cmd/worker.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/mileage-logbook/internal/config"
	"github.com/pkordes/mileage-logbook/internal/lock"
	"github.com/pkordes/mileage-logbook/internal/repo"
	"github.com/pkordes/mileage-logbook/internal/routing"
	"github.com/pkordes/mileage-logbook/internal/service"
	"github.com/pkordes/mileage-logbook/migrations"
)

// NewLogger returns a JSON logger at the named level. Unknown levels mean info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// OpenPool connects to Postgres and verifies the connection.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("app.OpenPool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.OpenPool: ping: %w", err)
	}
	return pool, nil
}

// Migrate applies every pending migration embedded in migrations.FS.
func Migrate(ctx context.Context, databaseURL string, log *slog.Logger) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("app.Migrate: open: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("app.Migrate: provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("app.Migrate: up: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// RedisOptions returns the go-redis options for cfg.
func RedisOptions(cfg config.Config) *redis.Options {
	return &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// AsynqRedis returns the asynq connection options for cfg.
func AsynqRedis(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewLocker returns a Redis-backed import lock when rdb is set, and an
// in-process one otherwise.
func NewLocker(cfg config.Config, rdb redis.UniversalClient, log *slog.Logger) lock.Locker {
	if rdb == nil {
		return lock.NewLocalLocker()
	}
	return lock.NewRedisLocker(rdb, cfg.ImportLockTTL, log)
}

// NewImportService wires the import engine to Postgres and the routing API.
func NewImportService(cfg config.Config, pool *pgxpool.Pool, locker lock.Locker, log *slog.Logger) *service.ImportService {
	directions := routing.NewDirectionsClient(
		cfg.RoutingBaseURL,
		&http.Client{},
		routing.RetryConfig{
			MaxRetries: cfg.RoutingMaxRetries,
			BaseDelay:  routing.DefaultRetryConfig.BaseDelay,
			MaxDelay:   routing.DefaultRetryConfig.MaxDelay,
			Timeout:    cfg.RoutingTimeout,
		},
		log,
	)

	return service.NewImportService(service.ImportDeps{
		Entries:  repo.NewScheduleRepo(pool),
		Files:    repo.NewProcessedFileRepo(pool),
		Logs:     repo.NewImportLogRepo(pool),
		Settings: repo.NewSettingsRepo(pool),
		Stitcher: routing.NewStitcher(directions),
		Locker:   locker,
		Logger:   log,
	})
}
