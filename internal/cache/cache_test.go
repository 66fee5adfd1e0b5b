package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUCacheExpires(t *testing.T) {
	c := NewLRUCache[string, int](4, 20*time.Millisecond)
	c.Set("a", 1)
	assert.Eventually(t, func() bool {
		_, ok := c.Get("a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLookupCache(t *testing.T) {
	c := NewLookupCache(8, time.Minute)
	k := Key("name", "/root", "Button")
	assert.NotEqual(t, k, Key("name", "/root", "button"))

	paths := []string{"/root/a.tsx"}
	c.Set(k, paths)
	paths[0] = "mutated"

	got, ok := c.Get(k)
	assert.True(t, ok)
	assert.Equal(t, []string{"/root/a.tsx"}, got)

	c.Invalidate()
	assert.Equal(t, 0, c.Len())
}

func TestLookupCacheDisabled(t *testing.T) {
	c := NewLookupCache(0, time.Minute)
	c.Set("k", []string{"x"})
	_, ok := c.Get("k")
	assert.False(t, ok)

	var nilCache *LookupCache
	_, ok = nilCache.Get("k")
	assert.False(t, ok)
}
