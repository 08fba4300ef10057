package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window counter. The expiry is set only when
// the key is created so the window does not slide under sustained traffic.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (l *RedisRateLimiter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := "deal:ratelimit:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
