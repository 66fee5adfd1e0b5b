// Package snapshot holds per-channel app snapshots and the pending
// request/result registry used to talk to a connected app.
package snapshot

import (
	"sync"
	"time"

	"wavepulse/internal/cache"
)

// Store is a keyed last-writer-wins store.
type Store[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
}

// MemoryStore is an unbounded in-process Store.
type MemoryStore[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{m: make(map[string]V)}
}

func (s *MemoryStore[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryStore[V]) Set(key string, value V) {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
}

func (s *MemoryStore[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}

// Len returns the number of entries.
func (s *MemoryStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// LRUStore is a bounded Store whose entries also expire after a TTL.
type LRUStore[V any] struct {
	c *cache.LRUCache[string, V]
}

// NewLRUStore creates a store holding at most capacity keys for at most ttl.
func NewLRUStore[V any](capacity int, ttl time.Duration) *LRUStore[V] {
	return &LRUStore[V]{c: cache.NewLRUCache[string, V](capacity, ttl)}
}

func (s *LRUStore[V]) Get(key string) (V, bool) { return s.c.Get(key) }
func (s *LRUStore[V]) Set(key string, value V)  { s.c.Set(key, value) }
func (s *LRUStore[V]) Delete(key string)        { s.c.Delete(key) }

// Len returns the number of live entries.
func (s *LRUStore[V]) Len() int { return s.c.Len() }
