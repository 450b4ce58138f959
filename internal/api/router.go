// Package api exposes the HTTP surface of the publication engine: manual
// publish triggers, the ledger history, platform configuration admin,
// queueing and incoming provider webhooks.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/aimaq/crosspost/internal/config"
	"github.com/aimaq/crosspost/internal/database"
	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/metrics"
	"github.com/aimaq/crosspost/internal/models"
	"github.com/aimaq/crosspost/internal/platforms/tiktok"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	healthCheckTimeout   = 2 * time.Second
	serviceVersion       = "1.0.0"
)

// Store is the persistence surface the handlers need. *database.Repository
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	ListPublicationsByArticle(ctx context.Context, articleID string) ([]models.PublicationRecord, error)
	ListPublications(ctx context.Context, filter *models.PublicationFilter) ([]models.PublicationRecord, error)
	GetPublicationStats(ctx context.Context) ([]database.PublicationStats, error)
	GetPlatformConfig(ctx context.Context, platform models.Platform) (*models.PlatformConfig, error)
	ListPlatformConfigs(ctx context.Context) ([]models.PlatformConfig, error)
	UpsertPlatformConfig(ctx context.Context, platform models.Platform, req *models.PlatformConfigUpdateRequest) (*models.PlatformConfig, error)
	UpdateTikTokTokens(ctx context.Context, accessToken, refreshToken string) error
	EnqueuePublication(ctx context.Context, req *models.QueueEntryCreateRequest) (*models.QueueEntry, error)
	CreateWebhookEvent(ctx context.Context, source string, payload []byte) (*models.WebhookEvent, error)
	ListWebhookEvents(ctx context.Context, source string, limit int) ([]models.WebhookEvent, error)
}

// Orchestrator is the publication engine surface for the manual trigger.
type Orchestrator interface {
	Publish(ctx context.Context, req *models.PublicationRequest) ([]models.PublicationOutcome, error)
}

// TokenRefresher rotates the content-posting network's OAuth tokens.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, creds models.TikTokCredentials) (*tiktok.TokenRefreshResult, error)
}

// Router holds the API dependencies
type Router struct {
	repo         Store
	orchestrator Orchestrator
	tokens       TokenRefresher
	redisClient  *redis.Client
	metrics      *metrics.Metrics
	registry     *prometheus.Registry
	cfg          *config.Config
	logger       logger.Logger
}

// NewRouter creates a new API router
func NewRouter(
	repo Store,
	orchestrator Orchestrator,
	tokens TokenRefresher,
	redisClient *redis.Client,
	m *metrics.Metrics,
	registry *prometheus.Registry,
	cfg *config.Config,
	log logger.Logger,
) *Router {
	return &Router{
		repo:         repo,
		orchestrator: orchestrator,
		tokens:       tokens,
		redisClient:  redisClient,
		metrics:      m,
		registry:     registry,
		cfg:          cfg,
		logger:       log,
	}
}

// SetupRoutes builds the gin engine with all routes and middleware.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(r.cfg.Server.CORSOrigins))

	// Health and metrics (public, no auth)
	router.GET("/health", r.healthCheck)
	if r.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))
	}

	// Provider webhooks use the provider's own verification handshake.
	webhooks := router.Group("/webhooks")
	webhooks.GET("/instagram", r.verifyWebhook)
	webhooks.POST("/instagram", r.receiveWebhook)

	v1 := router.Group("/api/v1")

	// Publishing
	articles := v1.Group("/articles")
	articles.POST("/:id/publish", r.publishArticle)
	articles.GET("/:id/publications", r.listArticlePublications)

	// Ledger history
	publications := v1.Group("/publications")
	publications.GET("/stats", r.getPublicationStats) // More specific route before ""
	publications.GET("", r.listPublications)

	// Platform configuration admin
	social := v1.Group("/social")
	social.GET("/configs", r.listPlatformConfigs)
	social.GET("/configs/:platform", r.getPlatformConfig)
	social.PUT("/configs/:platform", r.updatePlatformConfig)
	social.POST("/tiktok/refresh-token", r.refreshTikTokToken)
	social.GET("/webhook-events", r.listWebhookEvents)

	// Auto-publish queue
	v1.POST("/queue", r.enqueuePublication)

	return router
}

// healthCheck returns the service health status
func (r *Router) healthCheck(c *gin.Context) {
	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "crosspost",
		"version": serviceVersion,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbConnected := true
	if err := r.repo.Ping(ctx); err != nil {
		dbConnected = false
		health["status"] = healthStatusDegraded
	}
	health["database"] = gin.H{"connected": dbConnected}

	redisConnected := true
	if r.redisClient == nil {
		redisConnected = false
	} else if err := r.redisClient.Ping(ctx).Err(); err != nil {
		redisConnected = false
	}
	health["redis"] = gin.H{"connected": redisConnected}
	if !redisConnected && health["status"] == healthStatusHealthy {
		// The dedup tracker degrades to the ledger, so Redis being down is
		// degraded rather than unhealthy.
		health["status"] = healthStatusDegraded
	}

	c.JSON(http.StatusOK, health)
}
