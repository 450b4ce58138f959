package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is a durably recorded inbound provider event (comments,
// mentions, story insights). The engine only stores them for later analysis;
// it never reacts to them.
type WebhookEvent struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	Source     string    `db:"source"      json:"source"`
	Payload    []byte    `db:"payload"     json:"payload"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
}
