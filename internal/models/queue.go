package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// QueueStatus tracks a queued auto-publish job through its lifecycle.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueDone       QueueStatus = "done"
	QueueFailed     QueueStatus = "failed"
)

// QueueEntry is one row of the auto-publish queue. The editorial workflow
// enqueues an entry when an article goes live; the queue worker drains them
// through the orchestrator.
type QueueEntry struct {
	ID          uuid.UUID      `db:"id"           json:"id"`
	ArticleID   string         `db:"article_id"   json:"article_id"`
	Platforms   pq.StringArray `db:"platforms"    json:"platforms"`
	Status      QueueStatus    `db:"status"       json:"status"`
	Attempts    int            `db:"attempts"     json:"attempts"`
	LastError   string         `db:"last_error"   json:"last_error,omitempty"`
	CreatedAt   time.Time      `db:"created_at"   json:"created_at"`
	ProcessedAt *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
}

// PlatformList converts the stored platform names, dropping unknown values.
func (e *QueueEntry) PlatformList() []Platform {
	platforms := make([]Platform, 0, len(e.Platforms))
	for _, raw := range e.Platforms {
		if p, err := ParsePlatform(raw); err == nil {
			platforms = append(platforms, p)
		}
	}
	return platforms
}

// QueueEntryCreateRequest is the payload for enqueueing an auto-publish job.
type QueueEntryCreateRequest struct {
	ArticleID string   `binding:"required" json:"article_id"`
	Platforms []string `binding:"required" json:"platforms"`
}
