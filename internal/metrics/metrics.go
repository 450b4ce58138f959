// Package metrics exposes Prometheus metrics for the publication engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aimaq/crosspost/internal/models"
)

const (
	namespace = "crosspost"

	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	PublishTotal           *prometheus.CounterVec
	PublishDurationSeconds *prometheus.HistogramVec
	RetryAttemptsTotal     *prometheus.CounterVec
	QueueProcessedTotal    *prometheus.CounterVec
	WebhookEventsTotal     *prometheus.CounterVec
}

// New creates and registers the engine metrics. A nil registerer uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		PublishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_total",
				Help:      "Publish outcomes per platform",
			},
			[]string{"platform", "outcome"},
		),
		PublishDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Wall-clock duration of one platform publish, retries and polling included",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
			},
			[]string{"platform"},
		),
		RetryAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Retried provider calls per platform",
			},
			[]string{"platform"},
		),
		QueueProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_processed_total",
				Help:      "Auto-publish queue entries processed, by result",
			},
			[]string{"result"},
		),
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Inbound webhook events recorded, by source",
			},
			[]string{"source"},
		),
	}
}

// ObservePublish records one platform outcome with its duration. Skipped
// outcomes count toward the totals but stay out of the duration histogram
// since no provider call happened.
func (m *Metrics) ObservePublish(platform models.Platform, outcome *models.PublicationOutcome, elapsed time.Duration) {
	label := outcomeFailed
	switch {
	case outcome.Skipped:
		label = outcomeSkipped
	case outcome.Success:
		label = outcomeSuccess
	}

	m.PublishTotal.WithLabelValues(string(platform), label).Inc()
	if outcome.Skipped {
		return
	}
	m.PublishDurationSeconds.WithLabelValues(string(platform)).Observe(elapsed.Seconds())
}

// ObserveRetry counts one retried provider call for the platform.
func (m *Metrics) ObserveRetry(platform models.Platform) {
	m.RetryAttemptsTotal.WithLabelValues(string(platform)).Inc()
}
