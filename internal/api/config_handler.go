package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
)

const maskedSuffixLen = 4

// maskSecret hides all but the last characters of a credential value.
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= maskedSuffixLen*2 {
		return "****"
	}
	return "****" + value[len(value)-maskedSuffixLen:]
}

// isSecretField reports whether a credential field must never leave the
// service unmasked.
func isSecretField(name string) bool {
	return strings.Contains(name, "token") ||
		strings.Contains(name, "secret") ||
		strings.Contains(name, "password")
}

// maskedConfig renders a platform config with its secrets masked. Plain
// identifiers (chat id, page id, account id) stay readable so the admin can
// verify them.
func maskedConfig(cfg *models.PlatformConfig) gin.H {
	out := gin.H{
		"platform":         cfg.Platform,
		"enabled":          cfg.Enabled,
		"default_language": cfg.Language(),
		"updated_at":       cfg.UpdatedAt,
	}

	creds := map[string]string{}
	if len(cfg.CredentialsJSON) > 0 {
		// Credential blobs are flat string objects for every platform.
		_ = json.Unmarshal(cfg.CredentialsJSON, &creds)
	}
	for name, value := range creds {
		if isSecretField(name) {
			creds[name] = maskSecret(value)
		}
	}
	out["credentials"] = creds

	return out
}

// listPlatformConfigs handles GET /api/v1/social/configs
func (r *Router) listPlatformConfigs(c *gin.Context) {
	configs, err := r.repo.ListPlatformConfigs(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to list platform configs", logger.Error(err))
		handleRepositoryError(c, err, "platform configs", "list")
		return
	}

	masked := make([]gin.H, 0, len(configs))
	for i := range configs {
		masked = append(masked, maskedConfig(&configs[i]))
	}

	c.JSON(http.StatusOK, gin.H{"configs": masked})
}

// getPlatformConfig handles GET /api/v1/social/configs/:platform
func (r *Router) getPlatformConfig(c *gin.Context) {
	platform, ok := parsePlatformParam(c)
	if !ok {
		return
	}

	cfg, err := r.repo.GetPlatformConfig(c.Request.Context(), platform)
	if err != nil {
		handleRepositoryError(c, err, "platform config", "get")
		return
	}

	c.JSON(http.StatusOK, maskedConfig(cfg))
}

// updatePlatformConfig handles PUT /api/v1/social/configs/:platform
func (r *Router) updatePlatformConfig(c *gin.Context) {
	platform, ok := parsePlatformParam(c)
	if !ok {
		return
	}

	var req models.PlatformConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.DefaultLanguage != nil && !req.DefaultLanguage.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown language " + string(*req.DefaultLanguage)})
		return
	}

	cfg, err := r.repo.UpsertPlatformConfig(c.Request.Context(), platform, &req)
	if err != nil {
		r.logger.Error("Failed to update platform config",
			logger.String("platform", string(platform)),
			logger.Error(err),
		)
		handleRepositoryError(c, err, "platform config", "update")
		return
	}

	r.logger.Info("Platform config updated",
		logger.String("platform", string(platform)),
		logger.Bool("enabled", cfg.Enabled),
	)

	c.JSON(http.StatusOK, maskedConfig(cfg))
}

// refreshTikTokToken handles POST /api/v1/social/tiktok/refresh-token. It
// rotates the stored OAuth tokens using the saved refresh token.
func (r *Router) refreshTikTokToken(c *gin.Context) {
	ctx := c.Request.Context()

	cfg, err := r.repo.GetPlatformConfig(ctx, models.PlatformTikTok)
	if err != nil {
		handleRepositoryError(c, err, "platform config", "get")
		return
	}
	if err := cfg.ParseCredentials(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored credentials are unreadable"})
		return
	}

	creds, ok := cfg.Credentials.(models.TikTokCredentials)
	if !ok || creds.RefreshToken == "" || creds.ClientKey == "" || creds.ClientSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Token refresh requires client_key, client_secret and refresh_token to be configured",
		})
		return
	}

	result, err := r.tokens.RefreshAccessToken(ctx, creds)
	if err != nil {
		r.logger.Error("Token refresh failed", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Token refresh failed: " + err.Error()})
		return
	}

	if err := r.repo.UpdateTikTokTokens(ctx, result.AccessToken, result.RefreshToken); err != nil {
		r.logger.Error("Failed to persist refreshed tokens", logger.Error(err))
		handleRepositoryError(c, err, "platform config", "update")
		return
	}

	r.logger.Info("Refreshed access token", logger.Int("expires_in", result.ExpiresIn))

	c.JSON(http.StatusOK, gin.H{
		"status":     "refreshed",
		"expires_in": result.ExpiresIn,
	})
}
