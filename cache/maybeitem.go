package cache

import "sync"

// MaybeItem is a lazy one-shot cell: it holds a key and a loader, and
// only calls the loader on first Get, caching the result (value or
// error) for its own lifetime. It does not talk to the shared Cache —
// it exists for call sites that want a "maybe I'll need this" handle
// without forcing a load, e.g. a SavedItem's view of one of its own
// references.
type MaybeItem[K comparable, T any] struct {
	key  K
	load func(K) (T, error)

	once sync.Once
	val  T
	err  error
}

// NewMaybeItem creates a lazy cell for key, using load to resolve it on
// first access.
func NewMaybeItem[K comparable, T any](key K, load func(K) (T, error)) *MaybeItem[K, T] {
	return &MaybeItem[K, T]{key: key, load: load}
}

// Key returns the cell's key without forcing a load.
func (m *MaybeItem[K, T]) Key() K { return m.key }

// Get resolves the cell, loading at most once regardless of how many
// goroutines call Get concurrently.
func (m *MaybeItem[K, T]) Get() (T, error) {
	m.once.Do(func() {
		m.val, m.err = m.load(m.key)
	})
	return m.val, m.err
}
