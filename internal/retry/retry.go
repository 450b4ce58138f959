// Package retry provides a bounded retry executor with pluggable delay
// schedules for transient provider failures.
package retry

import (
	"context"
	"fmt"
	"time"
)

// DelaySchedule returns the delay to wait before retry number attempt.
// The first retry passes attempt=1.
type DelaySchedule func(attempt int) time.Duration

// Incremental grows the delay linearly: attempt × base (2s, 4s, 6s, ...).
func Incremental(base time.Duration) DelaySchedule {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// Exponential doubles the delay each retry: base × 2^(attempt-1), capped at
// maxDelay.
func Exponential(base, maxDelay time.Duration) DelaySchedule {
	return func(attempt int) time.Duration {
		delay := base
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay >= maxDelay {
				return maxDelay
			}
		}
		if delay > maxDelay {
			return maxDelay
		}
		return delay
	}
}

// Constant waits the same delay before every retry.
func Constant(d time.Duration) DelaySchedule {
	return func(int) time.Duration {
		return d
	}
}

// None waits no delay at all. Used by tests to keep retry paths fast and
// deterministic.
func None() DelaySchedule {
	return func(int) time.Duration {
		return 0
	}
}

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// Schedule computes the delay before each retry.
	Schedule DelaySchedule

	// IsRetryable decides whether a failed attempt should be retried.
	// A nil predicate retries every error.
	IsRetryable func(error) bool

	// OnRetry is called once per retry, after attempt number attempt failed
	// and before the delay. Used to count retried provider calls.
	OnRetry func(attempt int)
}

// Do executes fn up to cfg.MaxAttempts times. Non-retryable errors propagate
// immediately; once attempts are exhausted the last error is surfaced
// unchanged so callers can classify it.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.IsRetryable != nil && !cfg.IsRetryable(err) {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt)
		}

		var delay time.Duration
		if cfg.Schedule != nil {
			delay = cfg.Schedule(attempt)
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
