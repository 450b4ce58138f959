// Package dedup caches (article, platform) success marks in Redis as a
// read-through shortcut for the idempotency check. The publication ledger in
// PostgreSQL stays authoritative: a missing cache entry falls back to the
// ledger, never to a duplicate post.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aimaq/crosspost/internal/logger"
	"github.com/aimaq/crosspost/internal/models"
)

const scanBatchSize = 100

// Tracker marks successful publishes in Redis with a TTL.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewTracker creates a tracker. Entries expire after ttl.
func NewTracker(client *redis.Client, ttl time.Duration, log logger.Logger) *Tracker {
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (t *Tracker) key(articleID string, platform models.Platform) string {
	return fmt.Sprintf("published:%s:%s", articleID, platform)
}

// HasPublished reports whether a success mark exists for the pair. Redis
// errors degrade to false so the caller re-checks the ledger instead of
// failing the publish.
func (t *Tracker) HasPublished(ctx context.Context, articleID string, platform models.Platform) bool {
	key := t.key(articleID, platform)

	exists, err := t.client.Exists(ctx, key).Result()
	if err != nil {
		t.logger.Error("Redis error checking publish mark",
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return false
	}

	return exists == 1
}

// MarkPublished records a success mark for the pair.
func (t *Tracker) MarkPublished(ctx context.Context, articleID string, platform models.Platform) error {
	key := t.key(articleID, platform)

	if err := t.client.Set(ctx, key, "1", t.ttl).Err(); err != nil {
		t.logger.Error("Redis error writing publish mark",
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return err
	}

	t.logger.Debug("Publish mark written",
		logger.String("article_id", articleID),
		logger.String("platform", string(platform)),
	)
	return nil
}

// Clear drops the marks for one article, for all platforms. Used by forced
// republishes.
func (t *Tracker) Clear(ctx context.Context, articleID string) error {
	pattern := fmt.Sprintf("published:%s:*", articleID)
	deleted, err := t.deleteByPattern(ctx, pattern)
	if err != nil {
		return err
	}

	t.logger.Debug("Publish marks cleared",
		logger.String("article_id", articleID),
		logger.Int("keys_deleted", deleted),
	)
	return nil
}

// FlushAll drops every publish mark. SCAN keeps this safe on a shared Redis
// database where FLUSHDB would remove unrelated keys.
func (t *Tracker) FlushAll(ctx context.Context) error {
	deleted, err := t.deleteByPattern(ctx, "published:*")
	if err != nil {
		return err
	}

	t.logger.Info("Publish mark cache flushed",
		logger.Int("keys_deleted", deleted),
	)
	return nil
}

func (t *Tracker) deleteByPattern(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	var deletedCount int

	for {
		keys, next, err := t.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return deletedCount, fmt.Errorf("scan keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, delErr := t.client.Del(ctx, keys...).Result()
			if delErr != nil {
				return deletedCount, fmt.Errorf("delete keys: %w", delErr)
			}
			deletedCount += int(deleted)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return deletedCount, nil
}
