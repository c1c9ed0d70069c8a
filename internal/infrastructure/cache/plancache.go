package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postline-io/postline/internal/application/subscription/usecases"
	"github.com/postline-io/postline/internal/shared/logger"
)

const (
	planCacheKey = "billing:plans:active"
	planCacheTTL = 5 * time.Minute
)

// PlanCache caches the active plan list in redis. Plans change rarely, so a
// short TTL keeps admin edits visible without a busting protocol.
type PlanCache struct {
	client *redis.Client
	log    logger.Interface
}

func NewPlanCache(client *redis.Client, log logger.Interface) *PlanCache {
	return &PlanCache{client: client, log: log}
}

func (c *PlanCache) Get(ctx context.Context) ([]usecases.PlanInfo, bool) {
	data, err := c.client.Get(ctx, planCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnw("plan cache read failed", "error", err)
		}
		return nil, false
	}

	var plans []usecases.PlanInfo
	if err := json.Unmarshal(data, &plans); err != nil {
		c.log.Warnw("plan cache entry corrupt, dropping", "error", err)
		c.client.Del(ctx, planCacheKey)
		return nil, false
	}
	return plans, true
}

func (c *PlanCache) Set(ctx context.Context, plans []usecases.PlanInfo) {
	data, err := json.Marshal(plans)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, planCacheKey, data, planCacheTTL).Err(); err != nil {
		c.log.Warnw("plan cache write failed", "error", err)
	}
}
