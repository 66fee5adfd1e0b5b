// Package cache holds short-lived results of remote lookups.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is a generic LRU cache with TTL support.
type LRUCache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// NewLRUCache creates a cache holding at most capacity entries, each for at
// most ttl. A zero ttl disables expiry.
func NewLRUCache[K comparable, V any](capacity int, ttl time.Duration) *LRUCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[K, V]{lru: expirable.NewLRU[K, V](capacity, nil, ttl)}
}

// Get returns the value for key if present and not expired.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set adds or refreshes key.
func (c *LRUCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Delete removes key.
func (c *LRUCache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Clear removes every entry.
func (c *LRUCache[K, V]) Clear() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *LRUCache[K, V]) Len() int {
	return c.lru.Len()
}

// Keys returns live keys, oldest first.
func (c *LRUCache[K, V]) Keys() []K {
	return c.lru.Keys()
}
