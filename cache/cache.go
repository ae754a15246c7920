// Package cache implements the per-item cache (memoized SavedItems) and
// the lazy one-shot MaybeItem cell described by the spec.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes values of type V keyed by K, bounded by an LRU policy.
// Get/Invalidate always take the read/write lock (they must be correct);
// Set is best-effort — under contention it silently skips caching rather
// than blocking readers, per the spec's "try_write and gracefully skip"
// policy for the per-item cache.
type Cache[K comparable, V any] struct {
	mu  sync.RWMutex
	lru *lru.Cache[K, V]
}

// New creates a cache holding at most size entries. size <= 0 means
// unbounded (backed by a very large LRU capacity), matching the spec's
// "no hard bound... MAY be sized by implementations".
func New[K comparable, V any](size int) *Cache[K, V] {
	if size <= 0 {
		size = 1 << 20
	}
	l, err := lru.New[K, V](size)
	if err != nil {
		// Only returns an error for size <= 0, which we've excluded above.
		panic(err)
	}
	return &Cache[K, V]{lru: l}
}

// Get returns the cached value for k, if present.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Get(k)
}

// Set caches v for k. If the cache is write-locked by a concurrent
// Invalidate, Set skips caching rather than blocking — a cache miss next
// read is always correct because folding is pure, it's just slower.
func (c *Cache[K, V]) Set(k K, v V) {
	if !c.mu.TryLock() {
		return
	}
	defer c.mu.Unlock()
	c.lru.Add(k, v)
}

// Invalidate evicts every key given, in one call — the batch form the
// spec's incremental-projection algorithm and commit() path need so a
// single write's cache invalidation (the key, its transitive dependents,
// and its direct dependencies) happens as one critical section.
func (c *Cache[K, V]) Invalidate(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.lru.Remove(k)
	}
}

// Len reports the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}
