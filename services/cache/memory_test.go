package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("crawl:zonaprop", []byte("done"), 0))

	v, err := c.Get("crawl:zonaprop")
	require.NoError(t, err)
	assert.Equal(t, []byte("done"), v)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	_, err := c.Get("nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("k", []byte("v"), 1))
	c.mu.Lock()
	c.entries["k"] = entry{value: []byte("v"), expiresAt: time.Now().Add(-time.Second)}
	c.mu.Unlock()

	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("k", []byte("v"), 0))
	require.NoError(t, c.Delete("k"))

	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
