package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aimaq/crosspost/internal/models"
)

const configSelectList = `platform, enabled, default_language, credentials, updated_at`

// ====================
// Platform Configs
// ====================

// GetPlatformConfig retrieves one platform's configuration. Credentials are
// returned parsed into the platform's concrete credential type.
func (r *Repository) GetPlatformConfig(ctx context.Context, platform models.Platform) (*models.PlatformConfig, error) {
	config := &models.PlatformConfig{}
	query := `
		SELECT ` + configSelectList + `
		FROM platform_configs
		WHERE platform = $1
	`

	err := r.db.GetContext(ctx, config, query, platform)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get platform config: %w", err)
	}

	if err := config.ParseCredentials(); err != nil {
		return nil, err
	}

	return config, nil
}

// ListPlatformConfigs returns every configured platform.
func (r *Repository) ListPlatformConfigs(ctx context.Context) ([]models.PlatformConfig, error) {
	configs := []models.PlatformConfig{}
	query := `
		SELECT ` + configSelectList + `
		FROM platform_configs
		ORDER BY platform
	`

	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("failed to list platform configs: %w", err)
	}

	for i := range configs {
		if err := configs[i].ParseCredentials(); err != nil {
			return nil, err
		}
	}

	return configs, nil
}

// UpsertPlatformConfig applies a partial update to one platform's row,
// creating it when absent. Credentials replace the stored blob wholesale; a
// nil field keeps the stored value.
func (r *Repository) UpsertPlatformConfig(ctx context.Context, platform models.Platform, req *models.PlatformConfigUpdateRequest) (*models.PlatformConfig, error) {
	config := &models.PlatformConfig{}
	query := `
		INSERT INTO platform_configs (platform, enabled, default_language, credentials, updated_at)
		VALUES ($1, COALESCE($2, false), COALESCE($3, 'kz'), COALESCE($4, '{}'::jsonb), $5)
		ON CONFLICT (platform) DO UPDATE SET
			enabled = COALESCE($2, platform_configs.enabled),
			default_language = COALESCE($3, platform_configs.default_language),
			credentials = COALESCE($4, platform_configs.credentials),
			updated_at = $5
		RETURNING ` + configSelectList + `
	`

	var credentials any
	if len(req.Credentials) > 0 {
		credentials = []byte(req.Credentials)
	}
	var language any
	if req.DefaultLanguage != nil {
		language = string(*req.DefaultLanguage)
	}
	var enabled any
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	err := r.db.QueryRowxContext(ctx, query, platform, enabled, language, credentials, time.Now()).StructScan(config)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert platform config: %w", err)
	}

	if err := config.ParseCredentials(); err != nil {
		return nil, err
	}

	return config, nil
}

// UpdateTikTokTokens stores a refreshed token pair inside the stored
// credential blob without touching the remaining fields.
func (r *Repository) UpdateTikTokTokens(ctx context.Context, accessToken, refreshToken string) error {
	query := `
		UPDATE platform_configs
		SET credentials = credentials
			|| jsonb_build_object('access_token', $1::text)
			|| jsonb_build_object('refresh_token', $2::text),
		    updated_at = NOW()
		WHERE platform = $3
	`

	result, err := r.db.ExecContext(ctx, query, accessToken, refreshToken, models.PlatformTikTok)
	if err != nil {
		return fmt.Errorf("failed to update tiktok tokens: %w", err)
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
