package catalog

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/genpad/internal/generator"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisSelections(t *testing.T) (*RedisSelectionStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisSelectionStore("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestRedisSelectionStoreRoundTrip(t *testing.T) {
	store, s := setupRedisSelections(t)
	ctx := context.Background()

	_, found, err := store.Load(ctx, "user-1", generator.CategoryPython)
	require.NoError(t, err)
	assert.False(t, found)

	d := generator.Descriptor{ID: "m3", Name: "Vehicle Helper", Category: generator.CategoryPython, EndpointURL: "https://e"}
	require.NoError(t, store.Save(ctx, "user-1", d))

	assert.True(t, s.Exists("last-used-generator:user-1:GenAI_Python"))

	got, found, err := store.Load(ctx, "user-1", generator.CategoryPython)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "m3", got.ID)
	assert.Equal(t, "https://e", got.EndpointURL)

	_, found, err = store.Load(ctx, "user-2", generator.CategoryPython)
	require.NoError(t, err)
	assert.False(t, found, "selections are scoped")
}

func TestRedisSelectionStoreDropsAuthToken(t *testing.T) {
	s := miniredis.RunT(t)
	store := NewRedisSelectionStoreWithClient(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	d := generator.Descriptor{ID: "m3", Name: "Helper", Category: generator.CategoryPython, EndpointURL: "https://e", AuthToken: "Bearer secret"}
	require.NoError(t, store.Save(ctx, "user-1", d))

	raw, err := s.Get("last-used-generator:user-1:GenAI_Python")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret")

	got, found, err := store.Load(ctx, "user-1", generator.CategoryPython)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, got.AuthToken)
	assert.Equal(t, "https://e", got.EndpointURL)
}

func TestRedisSelectionStoreCorruptValue(t *testing.T) {
	store, s := setupRedisSelections(t)
	require.NoError(t, s.Set("last-used-generator:user-1:GenAI_Widget", "{not json"))

	_, found, err := store.Load(context.Background(), "user-1", generator.CategoryWidget)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestNewRedisSelectionStoreUnreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := NewRedisSelectionStore("redis://" + addr)
	assert.Error(t, err)
}

func TestMemorySelectionStore(t *testing.T) {
	store := NewMemorySelectionStore()
	ctx := context.Background()

	d := generator.Descriptor{ID: "mock-widget", Name: "Mock Generator", Category: generator.CategoryWidget}
	require.NoError(t, store.Save(ctx, "user-1", d))

	got, found, err := store.Load(ctx, "user-1", generator.CategoryWidget)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, d.ID, got.ID)

	_, found, _ = store.Load(ctx, "user-1", generator.CategoryPython)
	assert.False(t, found)
}
