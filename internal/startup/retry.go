package startup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/metadata"
)

// RetryConfig configures the exponential backoff retry behavior.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
}

// DefaultRetryConfig returns sensible defaults for network retry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 5 * time.Second,
		MaxDelay:     5 * time.Minute,
		MaxAttempts:  5,
		Multiplier:   2.0,
	}
}

// WithRetry executes fn with exponential backoff for temporary failures
// only. Other errors fail immediately without retry.
func WithRetry(ctx context.Context, name string, cfg RetryConfig, fn func(context.Context) error, logger zerolog.Logger) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("operation", name).Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !metadata.IsTemporary(err) {
			logger.Error().Err(err).Str("operation", name).Msg("permanent error, not retrying")
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay = waitAndBackoff(ctx, logger, name, attempt, cfg, delay, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	logger.Error().Err(lastErr).Str("operation", name).Int("attempts", cfg.MaxAttempts).
		Msg("operation failed after all retries")
	return lastErr
}

func waitAndBackoff(ctx context.Context, logger zerolog.Logger, name string, attempt int, cfg RetryConfig, delay time.Duration, err error) time.Duration {
	logger.Warn().
		Err(err).
		Str("operation", name).
		Int("attempt", attempt).
		Int("maxAttempts", cfg.MaxAttempts).
		Dur("nextRetryIn", delay).
		Msg("temporary error, will retry")

	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}

	next := time.Duration(float64(delay) * cfg.Multiplier)
	if next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return next
}

// Tester is a remote source that can verify its connection.
type Tester interface {
	Name() string
	Test(ctx context.Context) error
}

// CheckSources verifies each source with retry and returns the names of the
// sources that could not be reached. Failures are logged, never fatal.
func CheckSources(ctx context.Context, sources []Tester, cfg RetryConfig, logger zerolog.Logger) []string {
	var failed []string
	for _, s := range sources {
		if err := WithRetry(ctx, "test "+s.Name(), cfg, s.Test, logger); err != nil {
			if ctx.Err() != nil {
				return failed
			}
			logger.Warn().Err(err).Str("scanner", s.Name()).Msg("Scanner unreachable at startup, scans will retry")
			failed = append(failed, s.Name())
			continue
		}
		logger.Info().Str("scanner", s.Name()).Msg("Scanner connection verified")
	}
	return failed
}
