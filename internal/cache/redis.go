package cache

import (
	"context"
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin JSON cache over Redis. A nil *Cache (or one whose
// connection failed at startup) is valid and degrades every operation to a
// miss, so callers never need to branch on cache availability.
type Cache struct {
	client *redis.Client
}

// New connects to Redis at addr. Connection failures are logged and yield a
// disabled cache rather than an error; the read path works without Redis.
func New(addr string) *Cache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without cache", "addr", addr, "error", err)
		return nil
	}
	logger.Info("redis connected", "addr", addr)
	return &Cache{client: client}
}
