// Package main is the entry point for the mileage logbook API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/mileage-logbook/internal/app"
	"github.com/pkordes/mileage-logbook/internal/config"
	"github.com/pkordes/mileage-logbook/internal/handler"
	"github.com/pkordes/mileage-logbook/internal/middleware"
	"github.com/pkordes/mileage-logbook/internal/repo"
	"github.com/pkordes/mileage-logbook/internal/service"
	"github.com/pkordes/mileage-logbook/internal/worker"
	"github.com/pkordes/mileage-logbook/spec"
)

// taskRetention is how long finished import results stay readable in Redis.
const taskRetention = 24 * time.Hour

func main() {
	migrate := flag.Bool("migrate", false, "apply pending database migrations before serving")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Database ---------------------------------------------------------
	if *migrate {
		if err := app.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("database connection established")

	// --- Redis (optional) -------------------------------------------------
	// Without Redis the import lock is per-process and ?async=true is refused.
	var (
		rdb   redis.UniversalClient
		queue handler.ImportEnqueuer
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(app.RedisOptions(cfg))
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		rdb = client

		asynqClient := asynq.NewClient(app.AsynqRedis(cfg))
		defer asynqClient.Close()
		queue = worker.NewEnqueuer(asynqClient, taskRetention)
		slog.Info("redis connection established", "addr", cfg.RedisAddr)
	}

	// --- Services ---------------------------------------------------------
	locker := app.NewLocker(cfg, rdb, logger)
	scheduleRepo := repo.NewScheduleRepo(pool)

	server := handler.NewServer(handler.Deps{
		Imports:  app.NewImportService(cfg, pool, locker, logger),
		Queue:    queue,
		Schedule: service.NewScheduleService(scheduleRepo),
		Export:   service.NewExportService(scheduleRepo),
		Settings: service.NewSettingsService(repo.NewSettingsRepo(pool)),
		OpenAPI:  spec.OpenAPI,
		Logger:   logger,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → MaxBodySize.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes))

	r.Mount("/", server.Routes(middleware.NewAuth([]byte(cfg.JWTSecret))))

	// --- HTTP Server ------------------------------------------------------
	// A synchronous import makes one routing call per leg, so the write
	// timeout is far longer than a plain CRUD API needs.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
