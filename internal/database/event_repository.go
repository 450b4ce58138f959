package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aimaq/crosspost/internal/models"
)

// ====================
// Webhook Events
// ====================

// CreateWebhookEvent durably records one inbound provider event.
func (r *Repository) CreateWebhookEvent(ctx context.Context, source string, payload []byte) (*models.WebhookEvent, error) {
	event := &models.WebhookEvent{
		ID:         uuid.New(),
		Source:     source,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}

	query := `
		INSERT INTO webhook_events (id, source, payload, received_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, source, payload, received_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		event.ID, event.Source, event.Payload, event.ReceivedAt,
	).StructScan(event)

	if err != nil {
		return nil, fmt.Errorf("failed to create webhook event: %w", err)
	}

	return event, nil
}

// ListWebhookEvents returns recent events for a source, newest first.
func (r *Repository) ListWebhookEvents(ctx context.Context, source string, limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	events := []models.WebhookEvent{}
	query := `
		SELECT id, source, payload, received_at
		FROM webhook_events
		WHERE source = $1
		ORDER BY received_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &events, query, source, limit); err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}

	return events, nil
}
