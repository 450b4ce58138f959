package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aimaq/crosspost/internal/models"
)

const queueSelectList = `id, article_id, platforms, status, attempts, last_error, created_at, processed_at`

// ====================
// Auto-publish Queue
// ====================

// EnqueuePublication adds an auto-publish job for an article.
func (r *Repository) EnqueuePublication(ctx context.Context, req *models.QueueEntryCreateRequest) (*models.QueueEntry, error) {
	entry := &models.QueueEntry{
		ID:        uuid.New(),
		ArticleID: req.ArticleID,
		Platforms: pq.StringArray(req.Platforms),
		Status:    models.QueuePending,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO publish_queue (id, article_id, platforms, status, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, 0, '', $5)
		RETURNING ` + queueSelectList + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		entry.ID, entry.ArticleID, entry.Platforms, entry.Status, entry.CreatedAt,
	).StructScan(entry)

	if err != nil {
		return nil, fmt.Errorf("failed to enqueue publication: %w", err)
	}

	return entry, nil
}

// FetchPendingQueue claims up to limit pending entries, marking them as
// processing. Uses FOR UPDATE SKIP LOCKED so concurrent workers never claim
// the same entry.
func (r *Repository) FetchPendingQueue(ctx context.Context, limit int) ([]models.QueueEntry, error) {
	entries := []models.QueueEntry{}
	query := `
		UPDATE publish_queue
		SET status = 'processing', attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM publish_queue
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + queueSelectList + `
	`

	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch pending queue entries: %w", err)
	}

	return entries, nil
}

// MarkQueueDone marks a claimed entry as completed.
func (r *Repository) MarkQueueDone(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE publish_queue
		SET status = 'done', processed_at = NOW()
		WHERE id = $1
	`
	return r.execQueueUpdate(ctx, "mark queue done", query, id)
}

// MarkQueueFailed records a failed run. Entries under the attempt ceiling go
// back to pending for the next worker pass; the rest stay failed.
func (r *Repository) MarkQueueFailed(ctx context.Context, id uuid.UUID, lastError string, maxAttempts int) error {
	query := `
		UPDATE publish_queue
		SET status = CASE WHEN attempts >= $3 THEN 'failed' ELSE 'pending' END,
		    last_error = $2,
		    processed_at = NOW()
		WHERE id = $1
	`
	return r.execQueueUpdate(ctx, "mark queue failed", query, id, lastError, maxAttempts)
}

func (r *Repository) execQueueUpdate(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}
