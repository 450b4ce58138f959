// Package app provides the main application lifecycle management for the
// crosspost service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/aimaq/crosspost/internal/api"
	"github.com/aimaq/crosspost/internal/config"
	"github.com/aimaq/crosspost/internal/database"
	"github.com/aimaq/crosspost/internal/dedup"
	"github.com/aimaq/crosspost/internal/format"
	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/metrics"
	"github.com/aimaq/crosspost/internal/models"
	"github.com/aimaq/crosspost/internal/platforms/facebook"
	"github.com/aimaq/crosspost/internal/platforms/instagram"
	"github.com/aimaq/crosspost/internal/platforms/telegram"
	"github.com/aimaq/crosspost/internal/platforms/tiktok"
	"github.com/aimaq/crosspost/internal/publisher"
	"github.com/aimaq/crosspost/internal/worker"
)

const (
	// DefaultShutdownTimeout is the default timeout for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second

	redisPingTimeout   = 5 * time.Second
	sentryFlushTimeout = 2 * time.Second
)

// App represents the crosspost application with all its dependencies
type App struct {
	config      *config.Config
	logger      logger.Logger
	db          *sqlx.DB
	repo        *database.Repository
	redisClient *redis.Client
	tracker     *dedup.Tracker
	worker      *worker.QueueWorker
	httpServer  *http.Server
	version     string
	sentryInit  bool
}

// Options contains configuration for creating a new App
type Options struct {
	ConfigPath string
	Version    string
}

// New creates a new App instance with all dependencies initialized
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "crosspost"),
		logger.String("version", opts.Version),
	)

	sentryEnabled := false
	if cfg.Sentry.DSN != "" {
		if sentryErr := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "crosspost@" + opts.Version,
		}); sentryErr != nil {
			appLogger.Warn("Failed to initialize Sentry", logger.Error(sentryErr))
		} else {
			sentryEnabled = true
		}
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	repo := database.NewRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
		// The dedup tracker degrades to ledger lookups, so Redis being
		// unreachable at boot is not fatal.
		appLogger.Warn("Redis unreachable, dedup cache degraded", logger.Error(pingErr))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	tracker := dedup.NewTracker(redisClient, cfg.Publisher.DedupTTL, appLogger)
	formatter := format.New(cfg.Publisher.SiteURL)

	telegramClient := telegram.NewClient(appLogger)
	telegramClient.ObserveRetries(func(int) { m.ObserveRetry(models.PlatformTelegram) })
	instagramClient := instagram.NewClient(appLogger)
	instagramClient.ObserveRetries(func(int) { m.ObserveRetry(models.PlatformInstagram) })
	facebookClient := facebook.NewClient(appLogger)
	facebookClient.ObserveRetries(func(int) { m.ObserveRetry(models.PlatformFacebook) })
	tiktokClient := tiktok.NewClient(appLogger)
	tiktokClient.ObserveRetries(func(int) { m.ObserveRetry(models.PlatformTikTok) })

	service := publisher.NewService(publisher.Config{
		Store:     repo,
		Tracker:   tracker,
		Formatter: formatter,
		Metrics:   m,
		Logger:    appLogger,
		Telegram:  telegramClient,
		Instagram: instagramClient,
		TikTok:    tiktokClient,
		Facebook:  facebookClient,
	})

	queueWorker := worker.NewQueueWorker(repo, service, m, worker.QueueWorkerConfig{
		PollInterval:   cfg.Queue.PollInterval,
		BatchSize:      cfg.Queue.BatchSize,
		MaxAttempts:    cfg.Queue.MaxAttempts,
		PublishTimeout: cfg.Queue.PublishTimeout,
	}, appLogger)

	router := api.NewRouter(repo, service, tiktokClient, redisClient, m, registry, cfg, appLogger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		config:      cfg,
		logger:      appLogger,
		db:          db,
		repo:        repo,
		tracker:     tracker,
		redisClient: redisClient,
		worker:      queueWorker,
		httpServer:  httpServer,
		version:     opts.Version,
		sentryInit:  sentryEnabled,
	}, nil
}

// Run starts the HTTP server and queue worker, blocking until shutdown.
func (a *App) Run(ctx context.Context) error {
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	a.worker.Start(workerCtx)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server",
			logger.String("address", a.config.Server.Address),
			logger.Bool("debug", a.config.Debug),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	return a.waitForShutdown(workerCancel, serverErr)
}

// waitForShutdown handles graceful shutdown
func (a *App) waitForShutdown(workerCancel context.CancelFunc, serverErr chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownErr error

	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully",
			logger.String("signal", sig.String()),
		)
	case err := <-serverErr:
		a.logger.Error("Server error", logger.Error(err))
		shutdownErr = err
	}

	workerCancel()
	a.worker.Stop()
	a.shutdownHTTPServer()

	a.logger.Info("Service stopped")
	return shutdownErr
}

// shutdownHTTPServer gracefully shuts down the HTTP server
func (a *App) shutdownHTTPServer() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

// FlushCache clears every fast-path dedup key. The ledger stays intact, so
// idempotency still holds; the next publish just consults the database.
func (a *App) FlushCache(ctx context.Context) error {
	return a.tracker.FlushAll(ctx)
}

// Close cleans up resources
func (a *App) Close() error {
	if a.sentryInit {
		sentry.Flush(sentryFlushTimeout)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("Failed to close database", logger.Error(err))
	}
	return a.logger.Sync()
}

// Logger returns the application logger
func (a *App) Logger() logger.Logger {
	return a.logger
}
