package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect builds the Redis client backing the intent store and the rate
// limiter. Accepts either a full redis:// URL (container and managed
// deployments) or a bare host:port (local runs).
func Connect(_ context.Context, addr string) (*redis.Client, error) {
	opt := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis address %q: %w", addr, err)
		}
		opt = parsed
	}
	opt.ClientName = "deal-service"
	opt.DialTimeout = 3 * time.Second
	return redis.NewClient(opt), nil
}
