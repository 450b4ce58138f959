package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aimaq/crosspost/internal/models"
)

// parsePlatformParam parses a platform from a gin.Context parameter. The
// admin frontend sends lowercase names, so the match is case-insensitive.
func parsePlatformParam(c *gin.Context) (models.Platform, bool) {
	raw := strings.ToUpper(c.Param("platform"))
	platform, err := models.ParsePlatform(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown platform " + c.Param("platform"),
		})
		return "", false
	}
	return platform, true
}

// handleRepositoryError handles common repository errors
func handleRepositoryError(c *gin.Context, err error, entityType, operation string) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": entityType + " not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to " + operation + " " + entityType,
	})
}
