package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int) (*RedisDeliveryLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDeliveryLimiterWithClient(client, max, time.Hour), mr
}

func TestRedisDeliveryLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := range 3 {
		allowed, err := limiter.Allow(ctx, "https://discord.com/api/webhooks/1/secret")
		require.NoError(t, err)
		assert.True(t, allowed, "delivery %d", i+1)
	}

	allowed, err := limiter.Allow(ctx, "https://discord.com/api/webhooks/1/secret")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisDeliveryLimiter_DestinationsAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "https://a.test")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "https://b.test")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "https://a.test")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisDeliveryLimiter_KeysDoNotLeakURLs(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5)

	_, err := limiter.Allow(context.Background(), "https://hooks.slack.com/services/T000/B000/XXXX")
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "hooks.slack.com")
	assert.True(t, mr.TTL(keys[0]) > time.Hour)
}

func TestRedisDeliveryLimiter_RedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "https://a.test")
	assert.Error(t, err)
}
