package publisher

import (
	"context"

	"github.com/aimaq/crosspost/internal/models"
)

// Store is the persistence surface the orchestrator needs: the article
// read-model, the platform configuration and the append-only ledger.
// *database.Repository satisfies it.
type Store interface {
	GetArticleByID(ctx context.Context, id string) (*models.Article, error)
	GetPlatformConfig(ctx context.Context, platform models.Platform) (*models.PlatformConfig, error)
	CreatePublication(ctx context.Context, record *models.PublicationRecord) (*models.PublicationRecord, error)
	SucceededPlatforms(ctx context.Context, articleID string, platforms []models.Platform) (map[models.Platform]bool, error)
}

// Tracker is the Redis success-mark cache. *dedup.Tracker satisfies it.
type Tracker interface {
	HasPublished(ctx context.Context, articleID string, platform models.Platform) bool
	MarkPublished(ctx context.Context, articleID string, platform models.Platform) error
	Clear(ctx context.Context, articleID string) error
}

// TelegramPublisher sends one formatted post to the Telegram channel.
type TelegramPublisher interface {
	Publish(ctx context.Context, creds models.TelegramCredentials, text, imageURL string) (string, error)
}

// InstagramPublisher runs the two-phase container flow.
type InstagramPublisher interface {
	PublishPost(ctx context.Context, creds models.InstagramCredentials, imageURL, caption string) (string, error)
	PublishReels(ctx context.Context, creds models.InstagramCredentials, videoURL, caption string) (string, error)
}

// TikTokPublisher runs the init-and-poll photo post flow.
type TikTokPublisher interface {
	PublishPhoto(ctx context.Context, creds models.TikTokCredentials, photoURL, title, description string) (string, error)
}

// FacebookPublisher posts to the page feed, photo first with a link-post
// fallback.
type FacebookPublisher interface {
	Publish(ctx context.Context, creds models.FacebookCredentials, message, caption, link, photoURL string) (string, error)
}
