package platforms

import (
	"context"
	"fmt"
	"time"

	"github.com/aimaq/crosspost/internal/models"
)

// PollKind is the normalized result of one status check. Each adapter maps
// its provider's status vocabulary into these four cases exactly once, at
// the adapter boundary; raw provider strings never leave the adapter.
type PollKind int

const (
	// PollWaiting means the job is still processing; keep polling.
	PollWaiting PollKind = iota
	// PollReady means the job finished and may be finalized.
	PollReady
	// PollFailed means the provider reported a terminal failure.
	PollFailed
	// PollExpired means the remote resource expired before finishing.
	PollExpired
)

// PollOutcome is the normalized result of a status check.
type PollOutcome struct {
	Kind PollKind

	// PublicID carries the public post identifier for variants where the
	// terminal poll response itself contains it.
	PublicID string

	// Reason carries the provider's failure reason for Failed/Expired.
	Reason string
}

// PollConfig bounds a poll loop. Total wait is capped at roughly
// Interval × MaxAttempts.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int

	// DelayFirst sleeps one interval before the first status check, for
	// providers whose jobs are never ready immediately.
	DelayFirst bool
}

// Poll runs check on a fixed interval until it reports a terminal outcome or
// the attempt budget runs out. An exhausted budget returns a PollTimeoutError;
// errors from check itself propagate unchanged.
func Poll(ctx context.Context, platform models.Platform, jobID string, cfg PollConfig, check func(ctx context.Context) (PollOutcome, error)) (PollOutcome, error) {
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if cfg.DelayFirst || attempt > 1 {
			select {
			case <-ctx.Done():
				return PollOutcome{}, fmt.Errorf("poll aborted: %w", ctx.Err())
			case <-time.After(cfg.Interval):
			}
		}

		outcome, err := check(ctx)
		if err != nil {
			return PollOutcome{}, err
		}
		if outcome.Kind != PollWaiting {
			return outcome, nil
		}
	}

	return PollOutcome{}, &PollTimeoutError{
		Platform: platform,
		JobID:    jobID,
		Attempts: cfg.MaxAttempts,
	}
}
