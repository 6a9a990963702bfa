package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/Totarae/shorttty/internal/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func exerciseCache(t *testing.T, c cache.Cache) {
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "link:abc", []byte("payload"), time.Minute))
	got, ok, err := c.Get(ctx, "link:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	_, ok, err = c.Get(ctx, "link:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "link:abc"))
	_, ok, err = c.Get(ctx, "link:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := c.SetIfAbsent(ctx, "click:abc:1.2.3.4", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := c.SetIfAbsent(ctx, "click:abc:1.2.3.4", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestMemoryCache(t *testing.T) {
	c, err := cache.NewMemory(1000)
	require.NoError(t, err)
	defer c.Close()

	exerciseCache(t, c)
}

func TestMemoryCache_TTL(t *testing.T) {
	c, err := cache.NewMemory(1000)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", []byte("x"), 50*time.Millisecond))

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "short")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRedisCache(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := cache.NewRedis(context.Background(), s.Addr(), "")
	require.NoError(t, err)
	defer c.Close()

	exerciseCache(t, c)
}

func TestRedisCache_TTL(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := cache.NewRedis(context.Background(), s.Addr(), "")
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	first, err := c.SetIfAbsent(ctx, "click:l1:8.8.8.8", []byte("1"), time.Minute)
	require.NoError(t, err)
	require.True(t, first)

	s.FastForward(2 * time.Minute)

	again, err := c.SetIfAbsent(ctx, "click:l1:8.8.8.8", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestNew_RedisUnavailable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := cache.New(context.Background(), "redis", addr, "", zap.NewNop())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	c, err := cache.New(context.Background(), "none", "", "", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, cache.Noop{}, c)

	c, err = cache.New(context.Background(), "ristretto", "", "", zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &cache.Memory{}, c)
}
