package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Config controls retry behavior with exponential backoff and jitter.
// The pipeline's collaborator contract is one retry on transient failure,
// so the default allows two attempts total.
type Config struct {
	// Attempts is the total number of attempts including the first try.
	Attempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt.
	Multiplier float64

	// Jitter adds random noise as a fraction of the computed delay.
	Jitter float64

	// Operation names the call in retry logs.
	Operation string
}

// DefaultConfig returns the retry configuration for external collaborator
// calls: two attempts, half-second initial backoff.
func DefaultConfig(operation string) Config {
	return Config{
		Attempts:       2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.25,
		Operation:      operation,
	}
}

// Do executes fn, retrying transient failures per cfg. Context cancellation
// stops retries immediately; non-transient errors return at once.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions returning a value.
func DoVal[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(lastErr) || attempt >= cfg.Attempts-1 {
			break
		}

		zap.L().Warn("retrying operation",
			zap.String("operation", cfg.Operation),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg Config) Config {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return cfg
}

func backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * cfg.Jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
