package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threat-dragon/authd/cache"
)

func TestMemoryStoreAddRemoveContains(t *testing.T) {
	store := cache.NewMemoryRefreshTokenStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	ok, err := store.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Add(ctx, "tok", time.Now().Add(time.Hour)))

	ok, err = store.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Count())

	require.NoError(t, store.Remove(ctx, "tok"))

	ok, err = store.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreRemoveIsIdempotent(t *testing.T) {
	store := cache.NewMemoryRefreshTokenStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Remove(ctx, "never added"))
	require.NoError(t, store.Remove(ctx, "never added"))
}

func TestMemoryStoreExpiredTokenNotTracked(t *testing.T) {
	store := cache.NewMemoryRefreshTokenStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "stale", time.Now().Add(-time.Minute)))

	ok, err := store.Contains(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)
}
