package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig bounds how often and how long a provider call is retried.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Timeout    time.Duration // per attempt
}

// DefaultRetryConfig is used when the client is built without an explicit config.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 2,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   5 * time.Second,
	Timeout:    15 * time.Second,
}

// permanentError marks a failure that another attempt cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so WithRetry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithRetry runs operation until it succeeds, returns a Permanent error, or
// the retry budget is spent. Each attempt gets its own timeout.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, log *slog.Logger, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		opCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			opCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		result, err := operation(opCtx)
		cancel()

		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if attempt >= cfg.MaxRetries {
			return zero, fmt.Errorf("operation failed after %d attempts: %w", attempt+1, err)
		}

		delay := backoffDelay(attempt, cfg.BaseDelay, cfg.MaxDelay)
		log.DebugContext(ctx, "retrying provider call",
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func backoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	// 2^30 is the largest shift that cannot overflow.
	delay := time.Duration(1<<min(attempt, 30)) * base
	if delay > maxDelay {
		delay = maxDelay
	}
	// Jitter between 0.5x and 1.5x.
	delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
