package grant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ActiveUntilExpiry(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	cred, err := store.Put(ctx, "sess-1", now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", cred)

	assert.True(t, Active(ctx, store, cred, now))
	assert.True(t, Active(ctx, store, cred, now.Add(29*time.Minute)))
	assert.False(t, Active(ctx, store, cred, now.Add(30*time.Minute)))
	assert.False(t, Active(ctx, store, "other", now))
	assert.False(t, Active(ctx, store, "", now))
	assert.False(t, Active(ctx, nil, cred, now))
}

func TestMemoryStore_PutRequiresSession(t *testing.T) {
	store, err := NewMemoryStore(1)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "", time.Now())
	assert.Error(t, err)
}

func TestMemoryStore_Prune(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()

	_, _ = store.Put(ctx, "old", now.Add(-time.Minute))
	_, _ = store.Put(ctx, "fresh", now.Add(time.Minute))

	assert.Equal(t, 1, store.Prune(now))
	assert.Equal(t, 1, store.Len())
	assert.True(t, Active(ctx, store, "fresh", now))
}

func TestJWTStore_RoundTrip(t *testing.T) {
	store := NewJWTStore("test-secret")
	ctx := context.Background()
	expires := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	cred, err := store.Put(ctx, "sess-1", expires)
	require.NoError(t, err)
	assert.NotEqual(t, "sess-1", cred)

	got, ok, err := store.Lookup(ctx, cred)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(expires))

	assert.True(t, Active(ctx, store, cred, expires.Add(-time.Second)))
	assert.False(t, Active(ctx, store, cred, expires))
}

func TestJWTStore_RejectsForeignTokens(t *testing.T) {
	ctx := context.Background()
	cred, err := NewJWTStore("secret-a").Put(ctx, "sess", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, ok, err := NewJWTStore("secret-b").Lookup(ctx, cred)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = NewJWTStore("secret-a").Lookup(ctx, "garbage")
	assert.False(t, ok)
}
