package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aimaq/crosspost/internal/models"
)

const publicationSelectList = `id, article_id, platform, status, external_id, error, published_at`

// ====================
// Publication Ledger
// ====================

// CreatePublication appends one attempt record. The ledger is insert-only:
// there is no update or delete path, repeated attempts accumulate as rows.
func (r *Repository) CreatePublication(ctx context.Context, record *models.PublicationRecord) (*models.PublicationRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.PublishedAt.IsZero() {
		record.PublishedAt = time.Now()
	}

	query := `
		INSERT INTO publications (id, article_id, platform, status, external_id, error, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + publicationSelectList + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		record.ID, record.ArticleID, record.Platform, record.Status,
		record.ExternalID, record.Error, record.PublishedAt,
	).StructScan(record)

	if err != nil {
		return nil, fmt.Errorf("failed to create publication record: %w", err)
	}

	return record, nil
}

// ListPublicationsByArticle returns every attempt for an article, newest
// first.
func (r *Repository) ListPublicationsByArticle(ctx context.Context, articleID string) ([]models.PublicationRecord, error) {
	records := []models.PublicationRecord{}
	query := `
		SELECT ` + publicationSelectList + `
		FROM publications
		WHERE article_id = $1
		ORDER BY published_at DESC
	`

	if err := r.db.SelectContext(ctx, &records, query, articleID); err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	return records, nil
}

// ListPublications returns ledger rows matching the filter, newest first.
func (r *Repository) ListPublications(ctx context.Context, filter *models.PublicationFilter) ([]models.PublicationRecord, error) {
	conditions := []string{}
	args := []any{}

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.ArticleID != "" {
		addCondition("article_id = $%d", filter.ArticleID)
	}
	if filter.Platform != "" {
		addCondition("platform = $%d", filter.Platform)
	}
	if filter.Status != "" {
		addCondition("status = $%d", filter.Status)
	}
	if filter.StartDate != nil {
		addCondition("published_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		addCondition("published_at <= $%d", *filter.EndDate)
	}

	query := `SELECT ` + publicationSelectList + ` FROM publications`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY published_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	records := []models.PublicationRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	return records, nil
}

// SucceededPlatforms returns the platforms that already hold a SUCCESS record
// for the article, narrowed to the requested set.
func (r *Repository) SucceededPlatforms(ctx context.Context, articleID string, platforms []models.Platform) (map[models.Platform]bool, error) {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}

	rows := []string{}
	query := `
		SELECT DISTINCT platform
		FROM publications
		WHERE article_id = $1
		  AND status = $2
		  AND platform = ANY($3)
	`

	err := r.db.SelectContext(ctx, &rows, query, articleID, models.StatusSuccess, pq.StringArray(names))
	if err != nil {
		return nil, fmt.Errorf("failed to query succeeded platforms: %w", err)
	}

	succeeded := make(map[models.Platform]bool, len(rows))
	for _, raw := range rows {
		if p, parseErr := models.ParsePlatform(raw); parseErr == nil {
			succeeded[p] = true
		}
	}
	return succeeded, nil
}

// PublicationStats is the per-platform attempt breakdown for the stats API.
type PublicationStats struct {
	Platform models.Platform `db:"platform" json:"platform"`
	Success  int             `db:"success"  json:"success"`
	Failed   int             `db:"failed"   json:"failed"`
}

// GetPublicationStats aggregates ledger rows per platform.
func (r *Repository) GetPublicationStats(ctx context.Context) ([]PublicationStats, error) {
	stats := []PublicationStats{}
	query := `
		SELECT platform,
		       COUNT(*) FILTER (WHERE status = 'SUCCESS') AS success,
		       COUNT(*) FILTER (WHERE status = 'FAILED') AS failed
		FROM publications
		GROUP BY platform
		ORDER BY platform
	`

	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get publication stats: %w", err)
	}

	return stats, nil
}
