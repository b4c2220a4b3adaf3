package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := NewCache(client, zap.NewNop())
	require.NoError(t, err)
	return c, mr
}

func TestNewCacheRequiresClient(t *testing.T) {
	_, err := NewCache(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestGetMissing(t *testing.T) {
	c, _ := newTestCache(t)
	v, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestJSONRoundTripAndTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	type lab struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	c.SetJSON(ctx, "lab_cache:1", lab{ID: "1", Name: "Central"}, time.Minute)

	var got lab
	require.True(t, c.GetJSON(ctx, "lab_cache:1", &got))
	assert.Equal(t, "Central", got.Name)

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.GetJSON(ctx, "lab_cache:1", &got))
}

func TestGetJSONCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("k", "{not json"))
	var v map[string]string
	assert.False(t, c.GetJSON(context.Background(), "k", &v))
}

func TestDeleteAllByPattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	for _, k := range []string{"patients_cache:lab1", "patients_cache:lab2", "labs_cache"} {
		require.NoError(t, mr.Set(k, "x"))
	}

	require.NoError(t, c.DeleteAll(ctx, "patients_cache:*"))
	assert.False(t, mr.Exists("patients_cache:lab1"))
	assert.False(t, mr.Exists("patients_cache:lab2"))
	assert.True(t, mr.Exists("labs_cache"))

	require.NoError(t, c.DeleteBatch(ctx))
	require.NoError(t, c.DeleteBatch(ctx, "labs_cache"))
	assert.False(t, mr.Exists("labs_cache"))
}

func TestInvalidateSwallowsRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	core, logs := observer.New(zap.WarnLevel)
	c, err := NewCache(client, zap.New(core))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mr.Set("booking_cache:lab1:b1", "x"))
	c.Invalidate(ctx, "booking_cache:lab1:b1")
	assert.False(t, mr.Exists("booking_cache:lab1:b1"))
	assert.Zero(t, logs.Len())

	mr.Close()
	c.Invalidate(ctx, "booking_cache:lab1:b1")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "cache invalidation failed", logs.All()[0].Message)

	var nilCache *Cache
	nilCache.Invalidate(ctx, "anything")
}
