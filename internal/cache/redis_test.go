package cache

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := DefaultRedisConfig()
	cfg.Host = mr.Host()
	cfg.Port = port
	cfg.TTL = time.Minute

	c, err := NewRedis(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisBasic(t *testing.T) {
	c, _ := newTestRedis(t)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", []byte("v"))
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestRedisKeyPrefix(t *testing.T) {
	c, mr := newTestRedis(t)

	c.Set("rates:USD", []byte("{}"))
	assert.True(t, mr.Exists("expenseflow:rates:USD"))
}

func TestRedisTTL(t *testing.T) {
	c, mr := newTestRedis(t)

	c.Set("k", []byte("v"))
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestRedisClear(t *testing.T) {
	c, mr := newTestRedis(t)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	require.NoError(t, mr.Set("other:key", "untouched"))

	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.True(t, mr.Exists("other:key"))
}

// A dead Redis degrades to misses instead of failing the caller.
func TestRedisDownDegrades(t *testing.T) {
	c, mr := newTestRedis(t)

	c.Set("k", []byte("v"))
	mr.Close()

	c.Set("k2", []byte("v2"))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestRedisStats(t *testing.T) {
	c, _ := newTestRedis(t)

	c.Set("k", []byte("v"))
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}
