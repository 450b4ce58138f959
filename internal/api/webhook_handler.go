package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aimaq/crosspost/internal/logger"
)

const (
	webhookSourceInstagram = "instagram"
	maxWebhookPayloadBytes = 1 << 20
)

// verifyWebhook handles GET /webhooks/instagram. The provider sends a
// subscription handshake with a challenge that must be echoed back verbatim
// when the verify token matches.
func (r *Router) verifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token == "" || token != r.cfg.Publisher.WebhookVerifyToken {
		r.logger.Warn("Webhook verification rejected",
			logger.String("mode", mode),
		)
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	c.String(http.StatusOK, challenge)
}

// receiveWebhook handles POST /webhooks/instagram. Events are recorded
// verbatim; the engine never acts on them.
func (r *Router) receiveWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	event, err := r.repo.CreateWebhookEvent(c.Request.Context(), webhookSourceInstagram, payload)
	if err != nil {
		r.logger.Error("Failed to record webhook event", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	if r.metrics != nil {
		r.metrics.WebhookEventsTotal.WithLabelValues(webhookSourceInstagram).Inc()
	}

	r.logger.Debug("Webhook event recorded",
		logger.String("event_id", event.ID.String()),
		logger.Int("payload_bytes", len(payload)),
	)

	// The provider only needs a 200; it retries anything else.
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// listWebhookEvents handles GET /api/v1/social/webhook-events
func (r *Router) listWebhookEvents(c *gin.Context) {
	source := c.DefaultQuery("source", webhookSourceInstagram)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	events, err := r.repo.ListWebhookEvents(c.Request.Context(), source, limit)
	if err != nil {
		r.logger.Error("Failed to list webhook events", logger.Error(err))
		handleRepositoryError(c, err, "webhook events", "list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
