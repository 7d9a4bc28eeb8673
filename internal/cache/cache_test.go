package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "text", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "text", "abc", []byte("extracted")))

	v, ok, err := m.Get(ctx, "text", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("extracted"), v)

	// Same key under a different operation is a distinct entry.
	_, ok, err = m.Get(ctx, "ocr", "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "ai", "k", []byte("v")))

	current = current.Add(2 * time.Minute)
	_, ok, err := m.Get(ctx, "ai", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := OpenSQLite(path, time.Hour)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "text", "hash1", []byte("conteúdo")))

	v, ok, err := c.Get(ctx, "text", "hash1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("conteúdo"), v)

	// Overwrite replaces the value.
	require.NoError(t, c.Set(ctx, "text", "hash1", []byte("novo")))
	v, ok, err = c.Get(ctx, "text", "hash1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("novo"), v)
}

func TestSQLiteExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := OpenSQLite(path, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "ai", "k", []byte("v")))

	current = current.Add(2 * time.Minute)
	_, ok, err := c.Get(ctx, "ai", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
