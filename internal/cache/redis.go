// Package cache holds Redis-backed read caches for the voting engine. Every
// cache degrades to a no-op when constructed without a client so the engine
// runs unchanged on a single node without Redis.
package cache

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// NewRedisClient parses url (e.g. "redis://localhost:6379/0") and verifies
// the connection. An empty url returns (nil, nil).
func NewRedisClient(ctx context.Context, url string) (*goredis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
