package itemstore

import (
	"context"

	"github.com/speki-go/ledgerstore/item"
)

// SavedItem is a resolved, cached handle onto one item's current folded
// state, plus lazy navigation over the store's reference index. It is
// always a non-tombstone snapshot: Store.Load never hands out a
// tombstoned SavedItem, it returns ErrNotFound instead.
type SavedItem[K item.Key, A any, T item.Reducer[K, A, T]] struct {
	store     *Store[K, A, T]
	key       K
	value     T
	tombstone bool
}

// Key returns the item's identifier.
func (si *SavedItem[K, A, T]) Key() K { return si.key }

// Value returns the folded state itself.
func (si *SavedItem[K, A, T]) Value() T { return si.value }

// References returns the one-hop outgoing keys this item currently
// declares, optionally restricted to a single RefType.
func (si *SavedItem[K, A, T]) References(ty *item.RefType) []K {
	return si.store.index.Outgoing(si.key, ty)
}

// ReferencesWithType is References but keeps each edge's RefType alongside
// the target key, for callers that fan out over mixed reference kinds.
func (si *SavedItem[K, A, T]) ReferencesWithType(ty *item.RefType) []item.Ref[K] {
	return si.store.index.OutgoingWithType(si.key, ty)
}

// Dependents returns the one-hop incoming keys (items referencing this
// one), optionally restricted to a single RefType.
func (si *SavedItem[K, A, T]) Dependents(ty *item.RefType) []K {
	return si.store.index.Incoming(si.key, ty)
}

// LoadReference resolves one of this item's outgoing references through
// the owning store, benefiting from the same per-item cache as a direct
// Store.Load call.
func (si *SavedItem[K, A, T]) LoadReference(ctx context.Context, to K) (*SavedItem[K, A, T], error) {
	return si.store.Load(ctx, to)
}
