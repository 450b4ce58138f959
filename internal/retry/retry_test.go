package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimaq/crosspost/internal/retry"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Config{MaxAttempts: 3, Schedule: retry.None()}, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Config{MaxAttempts: 3, Schedule: retry.None()}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_SurfacesLastErrorUnchanged(t *testing.T) {
	wantErr := errors.New("provider rejected the request")
	calls := 0

	err := retry.Do(context.Background(), retry.Config{MaxAttempts: 3, Schedule: retry.None()}, func() error {
		calls++
		return wantErr
	})

	assert.Equal(t, 3, calls)
	// The ceiling error must be the original error, not a wrapped variant.
	assert.Same(t, wantErr, err) //nolint:testifylint // identity is the contract
}

func TestDo_OnRetryFiresOncePerRetry(t *testing.T) {
	var retried []int
	calls := 0

	err := retry.Do(context.Background(), retry.Config{
		MaxAttempts: 3,
		Schedule:    retry.None(),
		OnRetry:     func(attempt int) { retried = append(retried, attempt) },
	}, func() error {
		calls++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// No hook call for the final, unretried attempt.
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_OnRetrySilentOnFirstAttemptSuccess(t *testing.T) {
	retried := 0
	err := retry.Do(context.Background(), retry.Config{
		MaxAttempts: 3,
		Schedule:    retry.None(),
		OnRetry:     func(int) { retried++ },
	}, func() error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 0, retried)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0

	err := retry.Do(context.Background(), retry.Config{
		MaxAttempts: 5,
		Schedule:    retry.None(),
		IsRetryable: func(err error) bool { return false },
	}, func() error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, permanent, err)
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := retry.Do(ctx, retry.Config{
		MaxAttempts: 3,
		Schedule:    retry.Constant(time.Minute),
	}, func() error {
		calls++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIncrementalSchedule(t *testing.T) {
	schedule := retry.Incremental(2 * time.Second)

	assert.Equal(t, 2*time.Second, schedule(1))
	assert.Equal(t, 4*time.Second, schedule(2))
	assert.Equal(t, 6*time.Second, schedule(3))
}

func TestExponentialSchedule(t *testing.T) {
	schedule := retry.Exponential(2*time.Second, 8*time.Second)

	assert.Equal(t, 2*time.Second, schedule(1))
	assert.Equal(t, 4*time.Second, schedule(2))
	assert.Equal(t, 8*time.Second, schedule(3))
	// Capped at maxDelay from here on.
	assert.Equal(t, 8*time.Second, schedule(4))
	assert.Equal(t, 8*time.Second, schedule(10))
}

func TestConstantSchedule(t *testing.T) {
	schedule := retry.Constant(3 * time.Second)

	assert.Equal(t, 3*time.Second, schedule(1))
	assert.Equal(t, 3*time.Second, schedule(7))
}
