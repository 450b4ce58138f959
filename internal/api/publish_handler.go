package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
)

// publishRequest is the manual trigger payload. Platforms are optional; an
// empty list means every configured platform.
type publishRequest struct {
	Platforms []string `json:"platforms"`
	Force     bool     `json:"force"`
}

// publishArticle handles POST /api/v1/articles/:id/publish
func (r *Router) publishArticle(c *gin.Context) {
	articleID := c.Param("id")

	// An empty body means the default platform set with no force.
	var body publishRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	platforms := make([]models.Platform, 0, len(body.Platforms))
	for _, raw := range body.Platforms {
		platform, err := models.ParsePlatform(strings.ToUpper(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform " + raw})
			return
		}
		platforms = append(platforms, platform)
	}

	outcomes, err := r.orchestrator.Publish(c.Request.Context(), &models.PublicationRequest{
		ArticleID: articleID,
		Platforms: platforms,
		Force:     body.Force,
	})
	if err != nil {
		r.logger.Error("Publish request failed",
			logger.String("article_id", articleID),
			logger.Error(err),
		)
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
			return
		}
		if errors.Is(err, models.ErrUnknownPlatform) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish article"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"article_id": articleID,
		"results":    outcomes,
	})
}

// listArticlePublications handles GET /api/v1/articles/:id/publications
func (r *Router) listArticlePublications(c *gin.Context) {
	articleID := c.Param("id")

	records, err := r.repo.ListPublicationsByArticle(c.Request.Context(), articleID)
	if err != nil {
		r.logger.Error("Failed to list article publications",
			logger.String("article_id", articleID),
			logger.Error(err),
		)
		handleRepositoryError(c, err, "publications", "list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"article_id":   articleID,
		"publications": records,
		"count":        len(records),
	})
}

// listPublications handles GET /api/v1/publications
func (r *Router) listPublications(c *gin.Context) {
	var filter models.PublicationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter: " + err.Error()})
		return
	}

	records, err := r.repo.ListPublications(c.Request.Context(), &filter)
	if err != nil {
		r.logger.Error("Failed to list publications", logger.Error(err))
		handleRepositoryError(c, err, "publications", "list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"publications": records,
		"count":        len(records),
	})
}

// getPublicationStats handles GET /api/v1/publications/stats
func (r *Router) getPublicationStats(c *gin.Context) {
	stats, err := r.repo.GetPublicationStats(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to get publication stats", logger.Error(err))
		handleRepositoryError(c, err, "publication stats", "get")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
