package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetMissing(t *testing.T) {
	m, err := cache.NewMemory[string](time.Minute, 100)
	require.NoError(t, err)

	_, found, err := m.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemorySetAndGet(t *testing.T) {
	m, err := cache.NewMemory[string](time.Minute, 100)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", "v"))

	got, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", got)
}

func TestMemoryInvalidate(t *testing.T) {
	m, err := cache.NewMemory[string](time.Minute, 100)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", "v"))
	require.NoError(t, m.Invalidate(ctx, "k"))

	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
