package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// LookupCache caches the path lists returned by find/grep lookups so that
// consecutive queries about the same component do not re-run them.
type LookupCache struct {
	entries *LRUCache[string, []string]
	enabled bool
}

// NewLookupCache creates a lookup cache. capacity <= 0 disables it.
func NewLookupCache(capacity int, ttl time.Duration) *LookupCache {
	if capacity <= 0 {
		return &LookupCache{}
	}
	return &LookupCache{
		entries: NewLRUCache[string, []string](capacity, ttl),
		enabled: true,
	}
}

// Key builds a cache key from the lookup kind and its parameters.
func Key(kind string, parts ...string) string {
	data := fmt.Sprintf("%s:%s", kind, strings.Join(parts, "\x00"))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Get returns cached paths for key.
func (c *LookupCache) Get(key string) ([]string, bool) {
	if c == nil || !c.enabled {
		return nil, false
	}
	return c.entries.Get(key)
}

// Set stores paths for key.
func (c *LookupCache) Set(key string, paths []string) {
	if c == nil || !c.enabled {
		return
	}
	c.entries.Set(key, append([]string(nil), paths...))
}

// Invalidate drops every entry. File writes call this since any write may
// change which files match a lookup.
func (c *LookupCache) Invalidate() {
	if c == nil || !c.enabled {
		return
	}
	c.entries.Clear()
}

// Len returns the number of cached lookups.
func (c *LookupCache) Len() int {
	if c == nil || !c.enabled {
		return 0
	}
	return c.entries.Len()
}
