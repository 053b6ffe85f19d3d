// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server and the worker.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// JWTSecret signs and verifies bearer tokens. Required.
	JWTSecret string

	// RedisAddr enables the shared import lock and the background queue.
	// Empty means in-process locking and synchronous imports only.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RoutingBaseURL is the directions API origin. Defaults to Google Maps.
	RoutingBaseURL string

	// RoutingTimeout bounds each routing attempt. Defaults to 15s.
	RoutingTimeout time.Duration

	// RoutingMaxRetries is the number of retries after a transient routing failure. Defaults to 2.
	RoutingMaxRetries int

	// ImportLockTTL is how long a crashed import can block its user. Defaults to 10m.
	ImportLockTTL time.Duration

	// MaxUploadBytes caps request bodies. Defaults to 10 MiB.
	MaxUploadBytes int64

	// WorkerConcurrency is the number of import tasks the worker runs at once. Defaults to 2.
	WorkerConcurrency int
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or any
// variables that could not be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RoutingBaseURL: strings.TrimRight(getEnv("ROUTING_BASE_URL", "https://maps.googleapis.com"), "/"),
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	p := parser{invalid: &invalid}
	cfg.RedisDB = p.int("REDIS_DB", 0)
	cfg.RoutingTimeout = p.duration("ROUTING_TIMEOUT", 15*time.Second)
	cfg.RoutingMaxRetries = p.int("ROUTING_MAX_RETRIES", 2)
	cfg.ImportLockTTL = p.duration("IMPORT_LOCK_TTL", 10*time.Minute)
	cfg.MaxUploadBytes = int64(p.int("MAX_UPLOAD_BYTES", 10<<20))
	cfg.WorkerConcurrency = p.int("WORKER_CONCURRENCY", 2)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// parser reads typed env vars, recording the names of unparseable ones.
type parser struct {
	invalid *[]string
}

func (p parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*p.invalid = append(*p.invalid, key)
		return fallback
	}
	return n
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*p.invalid = append(*p.invalid, key)
		return fallback
	}
	return d
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
