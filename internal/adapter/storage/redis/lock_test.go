package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	s := miniredis.RunT(t)
	return s, goredis.NewClient(&goredis.Options{Addr: s.Addr()})
}

func TestLock_AcquireAndContend(t *testing.T) {
	_, client := newTestClient(t)
	lock := NewLock(client)
	ctx := context.Background()

	token, ok, err := lock.Acquire(ctx, "wallet:user-1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	// Second acquisition on the same key must fail while held.
	_, ok, err = lock.Acquire(ctx, "wallet:user-1", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different key is independent.
	_, ok, err = lock.Acquire(ctx, "wallet:user-2", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_ReleaseAllowsReacquire(t *testing.T) {
	_, client := newTestClient(t)
	lock := NewLock(client)
	ctx := context.Background()

	token, ok, err := lock.Acquire(ctx, "tx_lock:abc", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "tx_lock:abc", token))

	_, ok, err = lock.Acquire(ctx, "tx_lock:abc", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_ReleaseWithWrongTokenKeepsLock(t *testing.T) {
	_, client := newTestClient(t)
	lock := NewLock(client)
	ctx := context.Background()

	_, ok, err := lock.Acquire(ctx, "wallet:user-1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// A stale holder with an old token must not free the lock.
	require.NoError(t, lock.Release(ctx, "wallet:user-1", "stale-token"))

	_, ok, err = lock.Acquire(ctx, "wallet:user-1", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "lock should survive a mismatched release")
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	s, client := newTestClient(t)
	lock := NewLock(client)
	ctx := context.Background()

	_, ok, err := lock.Acquire(ctx, "wallet:user-1", 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	s.FastForward(3 * time.Second)

	_, ok, err = lock.Acquire(ctx, "wallet:user-1", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "abandoned lock should self-expire")
}
