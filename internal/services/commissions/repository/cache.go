package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"barbershop-system/internal/commission"
)

const (
	OVERRIDE_CACHE_PREFIX = "commission_overrides:"
	OVERRIDE_CACHE_TTL    = 30 * time.Minute
)

// CachedOverrideStore is a read-through redis cache in front of the override
// table. Redis failures fall back to the database; they never become "not found".
type CachedOverrideStore struct {
	next   commission.OverrideStore
	redis  *redis.Client
	logger *logrus.Logger
}

func NewCachedOverrideStore(next commission.OverrideStore, rdb *redis.Client, logger *logrus.Logger) *CachedOverrideStore {
	return &CachedOverrideStore{next: next, redis: rdb, logger: logger}
}

func (c *CachedOverrideStore) ListOverrides(ctx context.Context, staffID string) ([]commission.Override, error) {
	key := OVERRIDE_CACHE_PREFIX + staffID

	val, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var cached []commission.Override
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		c.logger.WithError(err).WithField("key", key).Warn("redis error on GET, falling back to DB")
	}

	list, err := c.next.ListOverrides(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []commission.Override{}
	}
	if data, err := json.Marshal(list); err == nil {
		if err := c.redis.Set(ctx, key, data, OVERRIDE_CACHE_TTL).Err(); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("failed to set override cache")
		}
	}
	return list, nil
}

func (c *CachedOverrideStore) FindOverride(ctx context.Context, staffID string, category commission.Category, itemID string) (commission.Override, error) {
	list, err := c.ListOverrides(ctx, staffID)
	if err != nil {
		return commission.Override{}, err
	}
	for _, o := range list {
		if o.Category == category && o.ItemID == itemID {
			return o, nil
		}
	}
	return commission.Override{}, commission.ErrNotFound
}

func (c *CachedOverrideStore) Invalidate(ctx context.Context, staffIDs ...string) {
	for _, id := range staffIDs {
		_ = c.redis.Del(ctx, OVERRIDE_CACHE_PREFIX+id)
	}
}
