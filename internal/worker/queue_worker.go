// Package worker provides the background queue worker that drains the
// auto-publish queue through the orchestrator.
package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/metrics"
	"github.com/aimaq/crosspost/internal/models"
)

const (
	defaultPollInterval   = 15 * time.Second
	defaultBatchSize      = 10
	defaultPublishTimeout = 5 * time.Minute
	defaultMaxAttempts    = 3

	// One article every two seconds keeps the engine well under every
	// provider's write quota even when the queue backs up.
	defaultPublishRate = rate.Limit(0.5)
)

// Publisher is the orchestrator surface the worker drives.
type Publisher interface {
	Publish(ctx context.Context, req *models.PublicationRequest) ([]models.PublicationOutcome, error)
}

// Queue is the persistence surface for claiming and resolving queue entries.
// *database.Repository satisfies it.
type Queue interface {
	FetchPendingQueue(ctx context.Context, limit int) ([]models.QueueEntry, error)
	MarkQueueDone(ctx context.Context, id uuid.UUID) error
	MarkQueueFailed(ctx context.Context, id uuid.UUID, lastError string, maxAttempts int) error
}

// QueueWorker polls the auto-publish queue and pushes entries through the
// orchestrator.
type QueueWorker struct {
	queue     Queue
	publisher Publisher
	metrics   *metrics.Metrics
	logger    logger.Logger
	tracer    trace.Tracer
	limiter   *rate.Limiter

	pollInterval   time.Duration
	batchSize      int
	publishTimeout time.Duration
	maxAttempts    int

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// QueueWorkerConfig holds configuration options.
type QueueWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	PublishTimeout time.Duration
	MaxAttempts    int
	PublishRate    rate.Limit
}

// NewQueueWorker creates a queue worker. Zero config fields fall back to
// defaults.
func NewQueueWorker(queue Queue, publisher Publisher, m *metrics.Metrics, cfg QueueWorkerConfig, log logger.Logger) *QueueWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.PublishRate <= 0 {
		cfg.PublishRate = defaultPublishRate
	}

	return &QueueWorker{
		queue:          queue,
		publisher:      publisher,
		metrics:        m,
		logger:         log,
		tracer:         otel.Tracer("queue-worker"),
		limiter:        rate.NewLimiter(cfg.PublishRate, 1),
		pollInterval:   cfg.PollInterval,
		batchSize:      cfg.BatchSize,
		publishTimeout: cfg.PublishTimeout,
		maxAttempts:    cfg.MaxAttempts,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the polling loop.
func (w *QueueWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Queue worker started",
		logger.Duration("poll_interval", w.pollInterval),
		logger.Int("batch_size", w.batchSize),
	)
}

// Stop gracefully stops the worker, waiting for the in-flight entry.
func (w *QueueWorker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Queue worker stopped")
}

// IsRunning reports whether the worker has been started.
func (w *QueueWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *QueueWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.processOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.processOnce(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *QueueWorker) processOnce(ctx context.Context) {
	entries, err := w.queue.FetchPendingQueue(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Failed to fetch pending queue entries", logger.Error(err))
		return
	}

	for i := range entries {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		w.processEntry(ctx, &entries[i])
	}
}

func (w *QueueWorker) processEntry(ctx context.Context, entry *models.QueueEntry) {
	ctx, span := w.tracer.Start(ctx, "queue.publish",
		trace.WithAttributes(
			attribute.String("article_id", entry.ArticleID),
			attribute.StringSlice("platforms", []string(entry.Platforms)),
			attribute.Int("attempt", entry.Attempts),
		))
	defer span.End()

	pubCtx, cancel := context.WithTimeout(ctx, w.publishTimeout)
	defer cancel()

	outcomes, err := w.publisher.Publish(pubCtx, &models.PublicationRequest{
		ArticleID: entry.ArticleID,
		Platforms: entry.PlatformList(),
	})
	if err != nil {
		w.resolveFailed(ctx, entry, err.Error())
		return
	}

	if failures := failedPlatforms(outcomes); len(failures) > 0 {
		// Succeeded platforms hold ledger rows now, so the retry pass
		// skips them and only the failures run again.
		w.resolveFailed(ctx, entry, strings.Join(failures, "; "))
		return
	}

	if markErr := w.queue.MarkQueueDone(ctx, entry.ID); markErr != nil {
		w.logger.Error("Failed to mark queue entry done",
			logger.String("queue_id", entry.ID.String()),
			logger.Error(markErr),
		)
	}
	if w.metrics != nil {
		w.metrics.QueueProcessedTotal.WithLabelValues("done").Inc()
	}

	w.logger.Info("Queue entry published",
		logger.String("queue_id", entry.ID.String()),
		logger.String("article_id", entry.ArticleID),
	)
}

func (w *QueueWorker) resolveFailed(ctx context.Context, entry *models.QueueEntry, reason string) {
	w.logger.Error("Queue entry failed",
		logger.String("queue_id", entry.ID.String()),
		logger.String("article_id", entry.ArticleID),
		logger.Int("attempt", entry.Attempts),
		logger.String("reason", reason),
	)

	if markErr := w.queue.MarkQueueFailed(ctx, entry.ID, reason, w.maxAttempts); markErr != nil {
		w.logger.Error("Failed to mark queue entry failed",
			logger.String("queue_id", entry.ID.String()),
			logger.Error(markErr),
		)
	}
	if w.metrics != nil {
		w.metrics.QueueProcessedTotal.WithLabelValues("failed").Inc()
	}
}

func failedPlatforms(outcomes []models.PublicationOutcome) []string {
	var failures []string
	for _, outcome := range outcomes {
		if !outcome.Success {
			failures = append(failures, string(outcome.Platform)+": "+outcome.Error)
		}
	}
	return failures
}
