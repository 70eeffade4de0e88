package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if the holder token still matches, so
// a slow holder cannot release a lock that already expired and was
// re-acquired by someone else.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock implements ports.DistributedLock using Redis SET NX with TTL.
type Lock struct {
	client *goredis.Client
	prefix string
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client *goredis.Client) *Lock {
	return &Lock{
		client: client,
		prefix: "lock:",
	}
}

// Acquire attempts a single atomic set-if-absent-with-expiry. It returns a
// random holder token and ok=true on success, ok=false if the key is held.
// The TTL bounds how long a crashed holder can block other callers.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis lock acquire: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the lock if token still matches the holder. Releasing a
// lock that expired or changed hands is a no-op, not an error.
func (l *Lock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}
