// Package publisher orchestrates multi-platform publication: it loads the
// article once, walks the requested platforms in order, and records every
// attempt in the append-only ledger. One platform failing never stops the
// remaining platforms.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/aimaq/crosspost/internal/format"
	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/metrics"
	"github.com/aimaq/crosspost/internal/models"
)

// Service is the publication orchestrator.
type Service struct {
	store     Store
	tracker   Tracker
	formatter *format.Formatter
	metrics   *metrics.Metrics
	logger    logger.Logger

	telegram  TelegramPublisher
	instagram InstagramPublisher
	tiktok    TikTokPublisher
	facebook  FacebookPublisher
}

// Config wires the orchestrator's collaborators. Tracker and Metrics may be
// nil; the service then skips the cache fast path and metric recording.
type Config struct {
	Store     Store
	Tracker   Tracker
	Formatter *format.Formatter
	Metrics   *metrics.Metrics
	Logger    logger.Logger

	Telegram  TelegramPublisher
	Instagram InstagramPublisher
	TikTok    TikTokPublisher
	Facebook  FacebookPublisher
}

// NewService creates the orchestrator.
func NewService(cfg Config) *Service {
	return &Service{
		store:     cfg.Store,
		tracker:   cfg.Tracker,
		formatter: cfg.Formatter,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		telegram:  cfg.Telegram,
		instagram: cfg.Instagram,
		tiktok:    cfg.TikTok,
		facebook:  cfg.Facebook,
	}
}

// Publish publishes one article to the requested platforms, sequentially and
// in request order. The returned slice always holds one outcome per requested
// platform. An error is returned only when the request itself cannot be
// served (unknown article, ledger unavailable); per-platform failures land in
// their outcome instead.
func (s *Service) Publish(ctx context.Context, req *models.PublicationRequest) ([]models.PublicationOutcome, error) {
	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = models.AllPlatforms
	}
	for _, platform := range platforms {
		if !platform.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownPlatform, platform)
		}
	}

	article, err := s.store.GetArticleByID(ctx, req.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("load article %s: %w", req.ArticleID, err)
	}

	succeeded := map[models.Platform]bool{}
	if req.Force {
		if s.tracker != nil {
			if clearErr := s.tracker.Clear(ctx, req.ArticleID); clearErr != nil {
				s.logger.Warn("Failed to clear publish marks for forced republish",
					logger.String("article_id", req.ArticleID),
					logger.Error(clearErr),
				)
			}
		}
	} else {
		succeeded, err = s.store.SucceededPlatforms(ctx, req.ArticleID, platforms)
		if err != nil {
			return nil, fmt.Errorf("check prior publications: %w", err)
		}
	}

	outcomes := make([]models.PublicationOutcome, 0, len(platforms))
	for _, platform := range platforms {
		if !req.Force && s.alreadyPublished(ctx, req.ArticleID, platform, succeeded) {
			s.logger.Info("Skipping platform, already published",
				logger.String("article_id", req.ArticleID),
				logger.String("platform", string(platform)),
			)
			skipped := models.PublicationOutcome{
				Platform: platform,
				Success:  true,
				Skipped:  true,
			}
			if s.metrics != nil {
				s.metrics.ObservePublish(platform, &skipped, 0)
			}
			outcomes = append(outcomes, skipped)
			continue
		}

		outcomes = append(outcomes, s.publishOne(ctx, article, platform))
	}

	return outcomes, nil
}

// alreadyPublished consults the cache first and the ledger result second. The
// ledger answer is authoritative; the cache only short-circuits it.
func (s *Service) alreadyPublished(ctx context.Context, articleID string, platform models.Platform, succeeded map[models.Platform]bool) bool {
	if succeeded[platform] {
		return true
	}
	return s.tracker != nil && s.tracker.HasPublished(ctx, articleID, platform)
}

// publishOne runs the full pipeline for one platform: config gate, format,
// adapter call, ledger append. Every path ends in exactly one ledger row;
// config-gate failures record a FAILED row like any other error.
func (s *Service) publishOne(ctx context.Context, article *models.Article, platform models.Platform) models.PublicationOutcome {
	started := time.Now()

	externalID, err := s.dispatch(ctx, article, platform)
	elapsed := time.Since(started)

	outcome := models.PublicationOutcome{Platform: platform}
	record := &models.PublicationRecord{
		ArticleID: article.ID,
		Platform:  platform,
	}

	if err != nil {
		outcome.Error = err.Error()
		record.Status = models.StatusFailed
		record.Error = err.Error()

		s.logger.Error("Platform publish failed",
			logger.String("article_id", article.ID),
			logger.String("platform", string(platform)),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
		s.reportFailure(article.ID, platform, err)
	} else {
		outcome.Success = true
		outcome.ExternalID = externalID
		record.Status = models.StatusSuccess
		record.ExternalID = externalID

		s.logger.Info("Platform publish succeeded",
			logger.String("article_id", article.ID),
			logger.String("platform", string(platform)),
			logger.String("external_id", externalID),
			logger.Duration("elapsed", elapsed),
		)
	}

	if _, ledgerErr := s.store.CreatePublication(ctx, record); ledgerErr != nil {
		// The post may be live; losing the record must not flip the outcome.
		s.logger.Error("Failed to append ledger record",
			logger.String("article_id", article.ID),
			logger.String("platform", string(platform)),
			logger.Error(ledgerErr),
		)
	}

	if outcome.Success && s.tracker != nil {
		if markErr := s.tracker.MarkPublished(ctx, article.ID, platform); markErr != nil {
			s.logger.Warn("Failed to cache publish mark",
				logger.String("article_id", article.ID),
				logger.String("platform", string(platform)),
				logger.Error(markErr),
			)
		}
	}

	if s.metrics != nil {
		s.metrics.ObservePublish(platform, &outcome, elapsed)
	}

	return outcome
}

// dispatch formats the article for the platform and invokes its adapter. The
// config gate runs here so a disabled or half-configured platform fails
// before any network call.
func (s *Service) dispatch(ctx context.Context, article *models.Article, platform models.Platform) (string, error) {
	config, err := s.store.GetPlatformConfig(ctx, platform)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", fmt.Errorf("%s is not configured", platform)
		}
		return "", err
	}
	if err := config.Ready(); err != nil {
		return "", err
	}

	lang := config.Language()

	switch platform {
	case models.PlatformTelegram:
		creds := config.Credentials.(models.TelegramCredentials)
		text := s.formatter.TelegramPost(article, lang)
		return s.telegram.Publish(ctx, creds, text, article.CoverImageURL)

	case models.PlatformInstagram:
		creds := config.Credentials.(models.InstagramCredentials)
		caption := s.formatter.InstagramCaption(article, lang)
		if article.VideoURL != "" {
			return s.instagram.PublishReels(ctx, creds, article.VideoURL, caption)
		}
		if article.CoverImageURL == "" {
			return "", fmt.Errorf("article %s has no media for instagram", article.ID)
		}
		return s.instagram.PublishPost(ctx, creds, article.CoverImageURL, caption)

	case models.PlatformTikTok:
		creds := config.Credentials.(models.TikTokCredentials)
		if article.CoverImageURL == "" {
			return "", fmt.Errorf("article %s has no cover image for tiktok", article.ID)
		}
		post := s.formatter.TikTokPost(article, lang)
		return s.tiktok.PublishPhoto(ctx, creds, article.CoverImageURL, post.Title, post.Description)

	case models.PlatformFacebook:
		creds := config.Credentials.(models.FacebookCredentials)
		message := s.formatter.FacebookPost(article, lang)
		caption := s.formatter.FacebookPhotoCaption(article, lang)
		link := s.formatter.ArticleURL(article, lang)
		return s.facebook.Publish(ctx, creds, message, caption, link, article.CoverImageURL)

	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnknownPlatform, platform)
	}
}

func (s *Service) reportFailure(articleID string, platform models.Platform, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("platform", string(platform))
		scope.SetExtra("article_id", articleID)
		sentry.CaptureException(err)
	})
}
