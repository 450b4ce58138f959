// Package platforms holds the pieces shared by every network adapter: the
// provider error taxonomy, the normalized poll outcome for two-phase
// publishes, and the bounded poll loop.
package platforms

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aimaq/crosspost/internal/models"
)

// ProviderError is a failed provider call. Transient marks errors worth
// retrying (rate limits, server-side hiccups); everything else is a
// permanent rejection.
type ProviderError struct {
	Platform   models.Platform
	Op         string
	StatusCode int
	Message    string
	Transient  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Platform, e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %s", e.Platform, e.Op, e.Message)
}

// ProcessingError is a terminal provider-side failure of an async job: the
// remote pipeline reported failure or the job expired before finishing.
type ProcessingError struct {
	Platform models.Platform
	JobID    string
	Reason   string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s job %s failed: %s", e.Platform, e.JobID, e.Reason)
}

// PollTimeoutError means an async job never reached a terminal provider
// status within the bounded poll budget.
type PollTimeoutError struct {
	Platform models.Platform
	JobID    string
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("%s job %s did not finish within %d status checks", e.Platform, e.JobID, e.Attempts)
}

// IsTransient reports whether err should be retried. Only ProviderError
// carries a transient flag; every other error is treated as permanent.
func IsTransient(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Transient
	}
	return false
}

// RetryableStatus reports whether an HTTP status is worth retrying:
// rate limiting and server-side errors. Other 4xx are permanent rejections.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
