package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadup/teamfinder/internal/cache"
)

func setupCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	return &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestLikeCountRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t)

	_, found, err := c.GetLikeCount(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.UpdateLikeCount(ctx, 1, "cs2", 7))

	n, found, err := c.GetLikeCount(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7), n)

	// counters are per (user, game)
	_, found, err = c.GetLikeCount(ctx, 1, "dota2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateLikeCount(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t)

	require.NoError(t, c.UpdateLikeCount(ctx, 1, "cs2", 3))
	require.NoError(t, c.InvalidateLikeCount(ctx, 1, "cs2"))

	_, found, err := c.GetLikeCount(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.False(t, found)
}
