package models

import (
	"time"

	"github.com/google/uuid"
)

// PublicationStatus is the outcome recorded for one publish attempt.
type PublicationStatus string

const (
	StatusSuccess PublicationStatus = "SUCCESS"
	StatusFailed  PublicationStatus = "FAILED"
)

// PublicationRecord is one append-only ledger row. Records are never updated
// or deleted; repeated attempts accumulate as new rows.
type PublicationRecord struct {
	ID          uuid.UUID         `db:"id"           json:"id"`
	ArticleID   string            `db:"article_id"   json:"article_id"`
	Platform    Platform          `db:"platform"     json:"platform"`
	Status      PublicationStatus `db:"status"       json:"status"`
	ExternalID  string            `db:"external_id"  json:"external_id,omitempty"`
	Error       string            `db:"error"        json:"error,omitempty"`
	PublishedAt time.Time         `db:"published_at" json:"published_at"`
}

// PublicationRequest asks the orchestrator to publish one article to an
// ordered set of platforms. It is built per call and never persisted.
type PublicationRequest struct {
	ArticleID string     `json:"article_id"`
	Platforms []Platform `json:"platforms"`

	// Force skips the idempotency check and republishes even to platforms
	// that already hold a SUCCESS record.
	Force bool `json:"force"`
}

// PublicationOutcome is the caller-facing result for one requested platform.
// A request for N platforms always yields exactly N outcomes, in request
// order.
type PublicationOutcome struct {
	Platform   Platform `json:"platform"`
	Success    bool     `json:"success"`
	ExternalID string   `json:"external_id,omitempty"`
	Error      string   `json:"error,omitempty"`

	// Skipped is true only when a prior SUCCESS record caused a no-op.
	Skipped bool `json:"skipped,omitempty"`
}

// PublicationFilter narrows ledger queries for the history API.
type PublicationFilter struct {
	ArticleID string     `form:"article_id"`
	Platform  string     `form:"platform"`
	Status    string     `form:"status"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date"   time_format:"2006-01-02"`
	Limit     int        `binding:"omitempty,min=1,max=1000" form:"limit"`
	Offset    int        `binding:"omitempty,min=0"          form:"offset"`
}
