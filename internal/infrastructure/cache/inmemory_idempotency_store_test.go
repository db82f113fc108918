package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Reserve(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("reserves a new key", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("refuses a held key", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = store.Reserve(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("allows reuse after expiration", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "key-3", 10*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(20 * time.Millisecond)

		ok, err = store.Reserve(ctx, "key-3", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestInMemoryIdempotencyStore_SaveAndLoad(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, found, err := store.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, found)

	err = store.Save(ctx, "unknown", Response{Status: 201}, time.Hour)
	assert.ErrorIs(t, err, ErrKeyNotReserved)

	_, err = store.Reserve(ctx, "key", time.Hour)
	require.NoError(t, err)
	resp, found, err := store.Load(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, resp, "pending key has no response yet")

	want := Response{Status: 201, ContentType: "application/json", Body: []byte(`{"id":1}`)}
	require.NoError(t, store.Save(ctx, "key", want, time.Hour))
	resp, found, err = store.Load(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, &want, resp)

	require.NoError(t, store.Release(ctx, "key"))
	_, found, err = store.Load(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	store.Reserve(ctx, "short-lived-1", 10*time.Millisecond)
	store.Reserve(ctx, "short-lived-2", 10*time.Millisecond)
	store.Reserve(ctx, "long-lived", time.Hour)
	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	_, found, err := store.Load(ctx, "long-lived")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 100

	results := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			ok, err := store.Reserve(ctx, "concurrent", time.Hour)
			results <- err == nil && ok
		}()
	}

	reserved := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			reserved++
		}
	}
	assert.Equal(t, 1, reserved, "exactly one goroutine should reserve the key")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory(t *testing.T) {
	t.Run("in memory when redis is disabled", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.CacheConfig{}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis required but unreachable", func(t *testing.T) {
		cfg := config.CacheConfig{RedisEnabled: true, RedisHost: "127.0.0.1", RedisPort: 1}
		_, err := NewIdempotencyStoreFactory(cfg, WithInMemoryFallback(false)).CreateStore()
		assert.Error(t, err)
	})

	t.Run("falls back when redis is unreachable", func(t *testing.T) {
		cfg := config.CacheConfig{RedisEnabled: true, RedisHost: "127.0.0.1", RedisPort: 1}
		store, err := NewIdempotencyStoreFactory(cfg).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})
}
