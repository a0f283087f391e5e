package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const consumedTokenPrefix = "consumedToken:"

// RedisConsumedTokens claims token digests with SETNX so that concurrent
// validators cannot redeem the same credential twice.
type RedisConsumedTokens struct {
	client *redis.Client
}

func NewRedisConsumedTokens(client *redis.Client) *RedisConsumedTokens {
	return &RedisConsumedTokens{client: client}
}

func (r *RedisConsumedTokens) Consume(ctx context.Context, digest string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, consumedTokenPrefix+digest, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim token: %w", err)
	}
	return ok, nil
}

func (r *RedisConsumedTokens) Release(ctx context.Context, digest string) error {
	if err := r.client.Del(ctx, consumedTokenPrefix+digest).Err(); err != nil {
		return fmt.Errorf("failed to release token: %w", err)
	}
	return nil
}
