package notification

import "context"

// DeliveryLimiter defines the contract for per-destination outbound rate limiting.
// Implementations live in infra/ratelimit/.
type DeliveryLimiter interface {
	// Allow checks whether a notification can be sent to the given destination.
	// Returns true if the notification is allowed, false if rate limited.
	Allow(ctx context.Context, destination string) (bool, error)
}
