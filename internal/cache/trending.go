package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	// TrendingKey prefixes the Redis keys holding cached trending lists.
	// Each list lives under TrendingKey+":"+generation.
	TrendingKey = "voting:trending"
	// TrendingGenerationKey holds the current generation. Invalidate
	// increments it, which orphans every list written for an older one.
	TrendingGenerationKey = "voting:trending:gen"
)

// Trending caches the ordered trending product id list. A nil *Trending or
// one without a client is a valid, always-missing cache.
type Trending struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

// NewTrending returns a cache storing entries for ttl. rdb may be nil.
func NewTrending(rdb goredis.Cmdable, ttl time.Duration) *Trending {
	return &Trending{rdb: rdb, ttl: ttl}
}

func (c *Trending) enabled() bool { return c != nil && c.rdb != nil && c.ttl > 0 }

func listKey(gen uint64) string { return TrendingKey + ":" + strconv.FormatUint(gen, 10) }

// Generation returns the current cache generation. A missing counter is
// generation 0.
func (c *Trending) Generation(ctx context.Context) (uint64, error) {
	if !c.enabled() {
		return 0, nil
	}
	gen, err := c.rdb.Get(ctx, TrendingGenerationKey).Uint64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the list cached for the current generation and whether it
// was present.
func (c *Trending) Get(ctx context.Context) ([]string, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, false, err
	}
	data, err := c.rdb.Get(ctx, listKey(gen)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

// Set stores ids computed while gen was current. A list computed before an
// Invalidate lands under a generation nobody reads and expires with the TTL.
func (c *Trending) Set(ctx context.Context, gen uint64, ids []string) error {
	if !c.enabled() {
		return nil
	}
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(gen), data, c.ttl).Err()
}

// Invalidate moves the cache to a new generation.
func (c *Trending) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Incr(ctx, TrendingGenerationKey).Err()
}
