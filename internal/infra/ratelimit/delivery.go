package ratelimit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"hookrelay/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

var _ notification.DeliveryLimiter = (*RedisDeliveryLimiter)(nil)

// RedisDeliveryLimiter caps outbound deliveries per destination using Redis sorted sets.
// It uses a sliding window: each delivery is a member scored by its timestamp.
type RedisDeliveryLimiter struct {
	client    redis.UniversalClient
	maxPerWin int
	window    time.Duration
}

// NewRedisDeliveryLimiter creates a limiter allowing maxPerHour deliveries per destination.
func NewRedisDeliveryLimiter(redisAddr, password string, db int, maxPerHour int) *RedisDeliveryLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
	return NewRedisDeliveryLimiterWithClient(client, maxPerHour, time.Hour)
}

// NewRedisDeliveryLimiterWithClient creates a limiter over an existing client and window.
func NewRedisDeliveryLimiterWithClient(client redis.UniversalClient, max int, window time.Duration) *RedisDeliveryLimiter {
	return &RedisDeliveryLimiter{
		client:    client,
		maxPerWin: max,
		window:    window,
	}
}

// Allow checks whether a notification can be sent to the given destination.
// Destinations are hashed so webhook secrets embedded in URLs never reach Redis.
func (r *RedisDeliveryLimiter) Allow(ctx context.Context, destination string) (bool, error) {
	key := "hookrelay:ratelimit:" + destinationKey(destination)
	now := time.Now()
	windowStart := now.Add(-r.window)

	pipe := r.client.Pipeline()

	// Remove entries outside the sliding window
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("checking delivery rate limit: %w", err)
	}

	if countCmd.Val() >= int64(r.maxPerWin) {
		return false, nil
	}

	// Unique member so concurrent deliveries in the same nanosecond don't collide
	randBytes := make([]byte, 4)
	_, _ = rand.Read(randBytes)
	member := redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%s", now.UnixNano(), hex.EncodeToString(randBytes)),
	}
	pipe2 := r.client.Pipeline()
	pipe2.ZAdd(ctx, key, member)
	pipe2.Expire(ctx, key, r.window+time.Minute)

	if _, err := pipe2.Exec(ctx); err != nil {
		return false, fmt.Errorf("recording rate limit entry: %w", err)
	}

	return true, nil
}

// Close closes the Redis connection.
func (r *RedisDeliveryLimiter) Close() error {
	return r.client.Close()
}

func destinationKey(destination string) string {
	sum := sha256.Sum256([]byte(destination))
	return hex.EncodeToString(sum[:12])
}
