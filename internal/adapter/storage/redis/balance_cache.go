package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stream-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// BalanceCache implements ports.BalanceCache using Redis.
type BalanceCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewBalanceCache creates a new Redis-backed balance cache.
func NewBalanceCache(client *goredis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "balance:",
		ttl:    ttl,
	}
}

// Get retrieves a cached wallet snapshot. Returns nil, nil on miss.
func (c *BalanceCache) Get(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error) {
	val, err := c.client.Get(ctx, c.prefix+userID.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance get: %w", err)
	}

	w := &domain.UserWallet{}
	if err := json.Unmarshal(val, w); err != nil {
		return nil, fmt.Errorf("unmarshal cached wallet: %w", err)
	}
	return w, nil
}

// Set stores a wallet snapshot with TTL.
func (c *BalanceCache) Set(ctx context.Context, w *domain.UserWallet) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+w.UserID.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis balance set: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot after a balance mutation.
func (c *BalanceCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("redis balance invalidate: %w", err)
	}
	return nil
}
