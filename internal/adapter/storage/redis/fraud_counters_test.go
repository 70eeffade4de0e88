package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFraudCounterStore_Increment(t *testing.T) {
	_, client := newTestClient(t)
	store := NewFraudCounterStore(client)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := store.Increment(ctx, "user-1", 10*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	// Counters are scoped per user.
	count, err := store.Increment(ctx, "user-2", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFraudCounterStore_WindowExpires(t *testing.T) {
	s, client := newTestClient(t)
	store := NewFraudCounterStore(client)
	ctx := context.Background()

	_, err := store.Increment(ctx, "user-1", time.Minute)
	require.NoError(t, err)

	// Past the window the old key has expired; even if the window id also
	// rolled over, the count restarts either way.
	s.FastForward(2 * time.Minute)

	count, err := store.Increment(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
