package session

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const REVOKED_SESSION_PREFIX = "session:revoked:"

type RedisRevocations struct {
	redis *redis.Client
}

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{redis: rdb}
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.redis.Set(ctx, REVOKED_SESSION_PREFIX+tokenID, "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.redis.Exists(ctx, REVOKED_SESSION_PREFIX+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
