package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// FraudCounterStore tracks per-user payment attempt counts in Redis.
// Counts live in the shared store rather than process memory so the check
// stays meaningful when the service is scaled horizontally.
type FraudCounterStore struct {
	client *goredis.Client
	prefix string
}

// NewFraudCounterStore creates a new Redis-backed fraud counter store.
func NewFraudCounterStore(client *goredis.Client) *FraudCounterStore {
	return &FraudCounterStore{
		client: client,
		prefix: "fraudcnt:",
	}
}

// Increment bumps the fixed-window attempt counter for a user and returns
// the count within the current window. Windows are discrete: key is scoped
// by time / window.
func (s *FraudCounterStore) Increment(ctx context.Context, userID string, window time.Duration) (int64, error) {
	windowID := time.Now().Unix() / int64(window.Seconds())
	key := fmt.Sprintf("%s%s:%d", s.prefix, userID, windowID)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis fraud counter incr: %w", err)
	}

	// Set expiry only on first increment (new window)
	if count == 1 {
		s.client.Expire(ctx, key, window+time.Second) // +1s safety margin
	}

	return count, nil
}
