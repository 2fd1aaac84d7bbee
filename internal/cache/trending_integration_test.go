//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestTrending_RoundTripAgainstRedis(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := NewRedisClient(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewTrending(rdb, time.Minute)

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	require.Zero(t, gen)

	require.NoError(t, c.Set(ctx, gen, []string{"p2", "p1"}))
	ids, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"p2", "p1"}, ids)

	ttl, err := rdb.TTL(ctx, listKey(gen)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Set(ctx, gen, nil))
	ids, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, ids)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A list computed before the invalidation is written under the old
	// generation and never read again.
	require.NoError(t, c.Set(ctx, gen, []string{"stale"}))
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	require.NoError(t, c.Set(ctx, next, []string{"p1"}))
	ids, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"p1"}, ids)
}
