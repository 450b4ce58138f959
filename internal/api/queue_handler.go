package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
)

// enqueuePublication handles POST /api/v1/queue. The editorial workflow calls
// this when an article goes live; the worker drains the entry asynchronously.
func (r *Router) enqueuePublication(c *gin.Context) {
	var req models.QueueEntryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	for i, raw := range req.Platforms {
		platform, err := models.ParsePlatform(strings.ToUpper(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform " + raw})
			return
		}
		req.Platforms[i] = string(platform)
	}

	entry, err := r.repo.EnqueuePublication(c.Request.Context(), &req)
	if err != nil {
		r.logger.Error("Failed to enqueue publication",
			logger.String("article_id", req.ArticleID),
			logger.Error(err),
		)
		handleRepositoryError(c, err, "queue entry", "create")
		return
	}

	r.logger.Info("Publication queued",
		logger.String("article_id", req.ArticleID),
		logger.Strings("platforms", req.Platforms),
	)

	c.JSON(http.StatusAccepted, entry)
}
