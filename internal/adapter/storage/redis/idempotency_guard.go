package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyGuard implements ports.IdempotencyGuard using Redis SET NX.
// The TTL must outlast provider retry windows (days, not minutes).
type IdempotencyGuard struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyGuard creates a new Redis-backed idempotency guard.
func NewIdempotencyGuard(client *goredis.Client, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{
		client: client,
		prefix: "idemp:",
		ttl:    ttl,
	}
}

// Claim atomically marks an external transaction id as finalized. It returns
// true only for the first caller within the TTL window; every later call for
// the same id returns false.
func (g *IdempotencyGuard) Claim(ctx context.Context, externalID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+externalID, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency claim: %w", err)
	}
	return ok, nil
}

// Forget removes a claim. Used when a claimed completion fails before any
// durable write, so a provider retry can still land.
func (g *IdempotencyGuard) Forget(ctx context.Context, externalID string) error {
	if err := g.client.Del(ctx, g.prefix+externalID).Err(); err != nil {
		return fmt.Errorf("redis idempotency forget: %w", err)
	}
	return nil
}
