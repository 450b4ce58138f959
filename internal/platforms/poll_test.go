package platforms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimaq/crosspost/internal/models"
)

func fastPoll(maxAttempts int, delayFirst bool) PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxAttempts: maxAttempts, DelayFirst: delayFirst}
}

func TestPollReturnsTerminalOutcome(t *testing.T) {
	var checks int
	outcome, err := Poll(context.Background(), models.PlatformInstagram, "job1", fastPoll(10, false), func(context.Context) (PollOutcome, error) {
		checks++
		if checks < 3 {
			return PollOutcome{Kind: PollWaiting}, nil
		}
		return PollOutcome{Kind: PollReady, PublicID: "post1"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, PollReady, outcome.Kind)
	assert.Equal(t, "post1", outcome.PublicID)
	assert.Equal(t, 3, checks)
}

func TestPollFailedStopsImmediately(t *testing.T) {
	var checks int
	outcome, err := Poll(context.Background(), models.PlatformTikTok, "job1", fastPoll(10, false), func(context.Context) (PollOutcome, error) {
		checks++
		return PollOutcome{Kind: PollFailed, Reason: "bad media"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, PollFailed, outcome.Kind)
	assert.Equal(t, "bad media", outcome.Reason)
	assert.Equal(t, 1, checks)
}

func TestPollBudgetExhausted(t *testing.T) {
	var checks int
	_, err := Poll(context.Background(), models.PlatformInstagram, "job1", fastPoll(4, false), func(context.Context) (PollOutcome, error) {
		checks++
		return PollOutcome{Kind: PollWaiting}, nil
	})

	var timeoutErr *PollTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, models.PlatformInstagram, timeoutErr.Platform)
	assert.Equal(t, "job1", timeoutErr.JobID)
	assert.Equal(t, 4, timeoutErr.Attempts)
	assert.Equal(t, 4, checks)
}

func TestPollCheckErrorPropagatesUnchanged(t *testing.T) {
	checkErr := &ProviderError{Platform: models.PlatformTikTok, Op: "statusFetch", Message: "boom"}
	_, err := Poll(context.Background(), models.PlatformTikTok, "job1", fastPoll(10, false), func(context.Context) (PollOutcome, error) {
		return PollOutcome{}, checkErr
	})

	assert.Same(t, checkErr, err)
}

func TestPollContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var checks int
	_, err := Poll(ctx, models.PlatformTikTok, "job1", PollConfig{Interval: time.Minute, MaxAttempts: 5, DelayFirst: false}, func(context.Context) (PollOutcome, error) {
		checks++
		cancel()
		return PollOutcome{Kind: PollWaiting}, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, checks)
}

func TestPollDelayFirst(t *testing.T) {
	start := time.Now()
	_, err := Poll(context.Background(), models.PlatformTikTok, "job1", PollConfig{Interval: 20 * time.Millisecond, MaxAttempts: 1, DelayFirst: true}, func(context.Context) (PollOutcome, error) {
		return PollOutcome{Kind: PollReady}, nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&ProviderError{Transient: true}))
	assert.False(t, IsTransient(&ProviderError{Transient: false}))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))

	wrapped := &ProviderError{Transient: true}
	assert.True(t, IsTransient(errors.Join(errors.New("outer"), wrapped)))
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(429))
	assert.True(t, RetryableStatus(500))
	assert.True(t, RetryableStatus(503))
	assert.False(t, RetryableStatus(400))
	assert.False(t, RetryableStatus(403))
	assert.False(t, RetryableStatus(200))
}

func TestEncodeMediaURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"latin path unchanged",
			"https://aimaqaqshamy.kz/uploads/photo.jpg",
			"https://aimaqaqshamy.kz/uploads/photo.jpg",
		},
		{
			"cyrillic filename encoded",
			"https://aimaqaqshamy.kz/uploads/сурет.jpg",
			"https://aimaqaqshamy.kz/uploads/%D1%81%D1%83%D1%80%D0%B5%D1%82.jpg",
		},
		{
			"already encoded stays stable",
			"https://aimaqaqshamy.kz/uploads/%D1%81%D1%83%D1%80%D0%B5%D1%82.jpg",
			"https://aimaqaqshamy.kz/uploads/%D1%81%D1%83%D1%80%D0%B5%D1%82.jpg",
		},
		{
			"query preserved",
			"https://aimaqaqshamy.kz/uploads/img.jpg?v=2",
			"https://aimaqaqshamy.kz/uploads/img.jpg?v=2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeMediaURL(tt.raw))
		})
	}
}
