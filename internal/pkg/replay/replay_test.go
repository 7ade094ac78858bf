package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryNonceStoreSeenAfterMark(t *testing.T) {
	store := NewMemoryNonceStore()
	ctx := context.Background()

	seen, err := store.Seen(ctx, "sandbox:evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Mark(ctx, "sandbox:evt_1", time.Minute))

	seen, err = store.Seen(ctx, "sandbox:evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	// A different nonce is independent
	seen, err = store.Seen(ctx, "sandbox:evt_2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryNonceStoreCheckDoesNotMark(t *testing.T) {
	store := NewMemoryNonceStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seen, err := store.Seen(ctx, "sandbox:evt_1")
		require.NoError(t, err)
		assert.False(t, seen)
	}
}

func TestMemoryNonceStoreExpiry(t *testing.T) {
	store := NewMemoryNonceStore()
	ctx := context.Background()

	require.NoError(t, store.Mark(ctx, "sandbox:evt_1", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	seen, err := store.Seen(ctx, "sandbox:evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}
