package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aimaq/crosspost/internal/models"
)

// ====================
// Articles (read-only)
// ====================

// GetArticleByID loads an article with its category and tags. The engine
// never writes to article tables; the article service owns them.
func (r *Repository) GetArticleByID(ctx context.Context, id string) (*models.Article, error) {
	article := &models.Article{}
	query := `
		SELECT id, title_kz, title_ru, excerpt_kz, excerpt_ru, slug_kz, slug_ru,
		       COALESCE(cover_image_url, '') AS cover_image_url,
		       COALESCE(video_url, '') AS video_url,
		       is_breaking, published_at
		FROM articles
		WHERE id = $1 AND status = 'PUBLISHED'
	`

	err := r.db.GetContext(ctx, article, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	if err := r.loadCategory(ctx, article); err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, article); err != nil {
		return nil, err
	}

	return article, nil
}

func (r *Repository) loadCategory(ctx context.Context, article *models.Article) error {
	category := &models.Category{}
	query := `
		SELECT c.name_kz, c.name_ru
		FROM categories c
		JOIN articles a ON a.category_id = c.id
		WHERE a.id = $1
	`

	err := r.db.GetContext(ctx, category, query, article.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to get article category: %w", err)
	}

	article.Category = category
	return nil
}

func (r *Repository) loadTags(ctx context.Context, article *models.Article) error {
	tags := []models.Tag{}
	query := `
		SELECT t.name_kz, t.name_ru
		FROM tags t
		JOIN article_tags at ON at.tag_id = t.id
		WHERE at.article_id = $1
		ORDER BY t.name_ru
	`

	if err := r.db.SelectContext(ctx, &tags, query, article.ID); err != nil {
		return fmt.Errorf("failed to get article tags: %w", err)
	}

	article.Tags = tags
	return nil
}
