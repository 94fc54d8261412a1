package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUBasic(t *testing.T) {
	c := NewLRU(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", []byte("v"))
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	c.Set("k", []byte("v2"))
	got, _ = c.Get("k")
	assert.Equal(t, []byte("v2"), got)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU(3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte{byte(i)})
	}

	// Touch k0 so k1 becomes the eviction candidate.
	_, ok := c.Get("k0")
	assert.True(t, ok)

	c.Set("k3", []byte{3})

	_, ok = c.Get("k1")
	assert.False(t, ok)
	_, ok = c.Get("k0")
	assert.True(t, ok)
	_, ok = c.Get("k3")
	assert.True(t, ok)
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU(10, 10*time.Millisecond)

	c.Set("k", []byte("v"))
	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestLRUCleanup(t *testing.T) {
	c := NewLRU(10, 10*time.Millisecond)

	c.Set("a", nil)
	c.Set("b", nil)
	time.Sleep(25 * time.Millisecond)
	c.Set("c", nil)

	removed := c.Cleanup()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestLRUStats(t *testing.T) {
	c := NewLRU(10, time.Minute)

	c.Set("k", []byte("v"))
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}
