// Package main is the entry point for the background import worker.
// It consumes schedule:import tasks queued by the API's ?async=true imports.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/mileage-logbook/internal/app"
	"github.com/pkordes/mileage-logbook/internal/config"
	"github.com/pkordes/mileage-logbook/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.RedisAddr == "" {
		slog.Error("configuration error", "error", "REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The lock must be shared with the API so a queued import and a
	// synchronous one never run for the same user at once.
	rdb := redis.NewClient(app.RedisOptions(cfg))
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	imports := app.NewImportService(cfg, pool, app.NewLocker(cfg, rdb, logger), logger)

	srv := asynq.NewServer(
		app.AsynqRedis(cfg),
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				worker.QueueImports: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				slog.ErrorContext(ctx, "import task failed",
					"type", task.Type(), "retry", retried, "max_retry", maxRetry, "error", err)
			}),
			Logger: worker.NewAsynqLogger(logger),
		},
	)

	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, worker.NewImportHandler(imports, logger))

	// Run blocks until SIGTERM or SIGINT, then drains in-flight tasks.
	slog.Info("worker starting", "concurrency", cfg.WorkerConcurrency, "queue", worker.QueueImports)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
