package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postline-io/postline/internal/shared/logger"
)

const processedEventTTL = 48 * time.Hour

// WebhookDedupCache is the fast-path duplicate filter for webhook ingestion.
// It only ever short-circuits events the database already recorded as
// processed; a cache miss or redis outage degrades to the DB lookup.
type WebhookDedupCache struct {
	client *redis.Client
	log    logger.Interface
}

func NewWebhookDedupCache(client *redis.Client, log logger.Interface) *WebhookDedupCache {
	return &WebhookDedupCache{client: client, log: log}
}

func (c *WebhookDedupCache) IsProcessed(ctx context.Context, provider, providerEventID string) bool {
	n, err := c.client.Exists(ctx, c.key(provider, providerEventID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (c *WebhookDedupCache) MarkProcessed(ctx context.Context, provider, providerEventID string) {
	if err := c.client.Set(ctx, c.key(provider, providerEventID), 1, processedEventTTL).Err(); err != nil {
		c.log.Warnw("webhook dedup cache write failed", "error", err)
	}
}

func (c *WebhookDedupCache) key(provider, providerEventID string) string {
	return fmt.Sprintf("billing:webhook:processed:%s:%s", provider, providerEventID)
}
