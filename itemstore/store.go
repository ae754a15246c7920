// Package itemstore composes the ledger, the reference/property index,
// and the per-item cache into the typed, folded view of one item
// collection: the piece the spec calls the item store.
package itemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/speki-go/ledgerstore"
	"github.com/speki-go/ledgerstore/cache"
	"github.com/speki-go/ledgerstore/index"
	"github.com/speki-go/ledgerstore/item"
	"github.com/speki-go/ledgerstore/ledger"
	"github.com/speki-go/ledgerstore/telemetry"
)

// Store is the generic, typed item collection: K is the item's key type,
// A its action/modifier type, and T the concrete item.Reducer
// implementation folded from a sequence of A values. One Store owns one
// Kind within a shared *ledger.Ledger, so several item collections can
// share a single on-disk ledger root without cross-decoding each other's
// events.
type Store[K item.Key, A any, T item.Reducer[K, A, T]] struct {
	ledger *ledger.Ledger
	index  *index.Index[K]
	cache  *cache.Cache[K, *SavedItem[K, A, T]]
	group  singleflight.Group

	kind      string
	zero      func() T
	encodeKey func(K) string
	decodeKey func(string) (K, error)

	liveMu sync.RWMutex
	live   map[K]struct{}
}

// NewStore opens a Store for the given Kind against an already-open
// ledger, replaying its existing history (if any) to rebuild the
// reference/property index and the live-key set before returning. zero
// constructs the initial (pre-create) state a fresh key folds from;
// encodeKey/decodeKey convert between K and the ledger's string Key field,
// since Go generics have no built-in K <-> string conversion. cacheSize
// bounds the per-item LRU cache; <= 0 means effectively unbounded.
func NewStore[K item.Key, A any, T item.Reducer[K, A, T]](
	l *ledger.Ledger,
	kind string,
	zero func() T,
	encodeKey func(K) string,
	decodeKey func(string) (K, error),
	cacheSize int,
) (*Store[K, A, T], error) {
	s := &Store[K, A, T]{
		ledger:    l,
		index:     index.New[K](),
		cache:     cache.New[K, *SavedItem[K, A, T]](cacheSize),
		kind:      kind,
		zero:      zero,
		encodeKey: encodeKey,
		decodeKey: decodeKey,
		live:      make(map[K]struct{}),
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuildIndex replays every event of this Store's Kind from the ledger,
// in commit order, reconstructing the index and live-key set from
// scratch. Called once at NewStore time; a store opened against a ledger
// that already has history has no other way to learn its index.
func (s *Store[K, A, T]) rebuildIndex() error {
	current := make(map[K]T)
	existed := make(map[K]bool)

	for _, ev := range s.ledger.Iter() {
		if ev.Kind != s.kind {
			continue
		}
		key, err := s.decodeKey(ev.Key)
		if err != nil {
			return fmt.Errorf("%w: decode key %q: %v", ledgerstore.ErrSerialization, ev.Key, err)
		}
		var action A
		if err := json.Unmarshal(ev.Action, &action); err != nil {
			return fmt.Errorf("%w: decode action for %q: %v", ledgerstore.ErrSerialization, ev.Key, err)
		}

		old := current[key]
		wasLive := existed[key]
		base := old
		if !wasLive {
			base = s.zero()
		}
		next, err := base.Apply(action)
		if err != nil {
			return fmt.Errorf("%w: %v", ledgerstore.ErrInvalidEvent, err)
		}

		s.applyIndexDelta(key, old, wasLive, next)
		current[key] = next
		existed[key] = true

		if next.IsTombstone() {
			delete(s.live, key)
		} else {
			s.live[key] = struct{}{}
		}
	}

	telemetry.Metrics.IndexRebuildTotal.Add(context.Background(), 1)
	return nil
}

// applyIndexDelta diffs old against next (treating a non-existent or
// tombstoned old/next as reporting no refs/properties) and feeds the
// result into the index.
func (s *Store[K, A, T]) applyIndexDelta(key K, old T, oldExisted bool, next T) {
	var oldRefs []item.Ref[K]
	var oldProps []item.Property
	if oldExisted && !old.IsTombstone() {
		oldRefs = old.OutgoingRefs()
		oldProps = old.Properties()
	}

	var newRefs []item.Ref[K]
	var newProps []item.Property
	if !next.IsTombstone() {
		newRefs = next.OutgoingRefs()
		newProps = next.Properties()
	}

	removedRefs, addedRefs := item.DiffRefs(oldRefs, newRefs)
	removedProps, addedProps := item.DiffProperties(oldProps, newProps)
	s.index.ApplyRefDelta(key, removedRefs, addedRefs)
	s.index.ApplyPropertyDelta(key, removedProps, addedProps)
}

// fold replays a single key's event history from the ledger and returns
// its current state. existed reports whether any event for key was found
// at all — a key with no history folds to the zero value with existed
// false, which Load treats as ErrNotFound.
func (s *Store[K, A, T]) fold(ctx context.Context, key K) (T, bool, error) {
	start := time.Now()
	defer func() {
		telemetry.Metrics.FoldDurationMs.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	}()

	encKey := s.encodeKey(key)
	cur := s.zero()
	existed := false

	for _, ev := range s.ledger.Iter() {
		if ev.Kind != s.kind || ev.Key != encKey {
			continue
		}
		var action A
		if err := json.Unmarshal(ev.Action, &action); err != nil {
			var zero T
			return zero, false, fmt.Errorf("%w: decode action for %q: %v", ledgerstore.ErrSerialization, encKey, err)
		}
		next, err := cur.Apply(action)
		if err != nil {
			var zero T
			return zero, false, fmt.Errorf("%w: %v", ledgerstore.ErrInvalidEvent, err)
		}
		cur = next
		existed = true
	}
	return cur, existed, nil
}

// Load resolves key to its current state, preferring the per-item cache
// and deduplicating concurrent misses for the same key via singleflight
// so a thundering herd of readers folds history only once.
func (s *Store[K, A, T]) Load(ctx context.Context, key K) (*SavedItem[K, A, T], error) {
	ctx, span := telemetry.Tracer.Start(ctx, "itemstore.Load")
	defer span.End()

	if si, ok := s.cache.Get(key); ok {
		telemetry.Metrics.CacheHitTotal.Add(ctx, 1)
		if si.tombstone {
			return nil, ledgerstore.ErrNotFound
		}
		return si, nil
	}
	telemetry.Metrics.CacheMissTotal.Add(ctx, 1)

	encKey := s.encodeKey(key)
	v, err, _ := s.group.Do(encKey, func() (any, error) {
		value, existed, err := s.fold(ctx, key)
		if err != nil {
			return nil, err
		}
		si := &SavedItem[K, A, T]{
			store:     s,
			key:       key,
			value:     value,
			tombstone: !existed || value.IsTombstone(),
		}
		s.cache.Set(key, si)
		return si, nil
	})
	if err != nil {
		return nil, err
	}

	si := v.(*SavedItem[K, A, T])
	if si.tombstone {
		return nil, ledgerstore.ErrNotFound
	}
	return si, nil
}

// LoadIDs returns every currently-live (non-tombstoned) key, in ascending
// order.
func (s *Store[K, A, T]) LoadIDs() []K {
	s.liveMu.RLock()
	defer s.liveMu.RUnlock()
	out := make([]K, 0, len(s.live))
	for k := range s.live {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadAll resolves every currently-live key to its SavedItem.
func (s *Store[K, A, T]) LoadAll(ctx context.Context) ([]*SavedItem[K, A, T], error) {
	ids := s.LoadIDs()
	out := make([]*SavedItem[K, A, T], 0, len(ids))
	for _, id := range ids {
		si, err := s.Load(ctx, id)
		if err != nil {
			if ledgerstore.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, si)
	}
	return out, nil
}

// CurrentState folds and returns key's current state directly, bypassing
// the per-item cache and the tombstone-hides-from-Load contract. It is the
// integration point the staging package uses to compute a transaction's
// starting point for a key it hasn't touched yet.
func (s *Store[K, A, T]) CurrentState(ctx context.Context, key K) (T, bool, error) {
	return s.fold(ctx, key)
}

// Dependents returns the one-hop incoming keys (items directly
// referencing key), optionally restricted to a single RefType.
func (s *Store[K, A, T]) Dependents(key K, ty *item.RefType) []K {
	return s.index.Incoming(key, ty)
}

// EncodeKey exposes the store's key-to-ledger-string encoding, e.g. for
// building ledger.Event values outside the store (the staging package).
func (s *Store[K, A, T]) EncodeKey(key K) string { return s.encodeKey(key) }

// GetReferenceCache returns the one-hop outgoing keys from key, optionally
// restricted to a single RefType. Name mirrors the spec's reference-cache
// terminology for the index-backed lookup.
func (s *Store[K, A, T]) GetReferenceCache(key K, ty *item.RefType) []K {
	return s.index.Outgoing(key, ty)
}

// GetReferenceCacheWithTy is GetReferenceCache but keeps each edge's
// RefType alongside its target.
func (s *Store[K, A, T]) GetReferenceCacheWithTy(key K, ty *item.RefType) []item.Ref[K] {
	return s.index.OutgoingWithType(key, ty)
}

// GetPropertyCache returns the keys currently bound to (kind, value).
func (s *Store[K, A, T]) GetPropertyCache(kind item.PropertyType, value string) []K {
	return s.index.ByProperty(kind, value)
}

// AllDependents returns the full transitive closure of items that
// (directly or indirectly) reference key, optionally restricted to a
// single RefType.
func (s *Store[K, A, T]) AllDependents(key K, ty *item.RefType) []K {
	return s.index.Closure(key, ty, true)
}

// TransitiveReferences returns the full transitive closure of items key
// (directly or indirectly) references, optionally restricted to a
// single RefType — the forward counterpart to AllDependents.
func (s *Store[K, A, T]) TransitiveReferences(key K, ty *item.RefType) []K {
	return s.index.Closure(key, ty, false)
}

// Modify folds key's current state, applies action to it, and — if that
// succeeds and (in the tombstone case) no dependents remain — appends the
// resulting event to the ledger as a single-event commit, updating the
// index and invalidating the cache for key. It returns the new state.
func (s *Store[K, A, T]) Modify(ctx context.Context, key K, action A) (T, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "itemstore.Modify")
	defer span.End()

	var zero T
	old, existed, err := s.fold(ctx, key)
	if err != nil {
		return zero, err
	}

	next, err := old.Apply(action)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ledgerstore.ErrInvalidEvent, err)
	}

	if next.IsTombstone() {
		if deps := s.index.Incoming(key, nil); len(deps) > 0 {
			return zero, &ledgerstore.DependentsError{
				Key:        s.encodeKey(key),
				Dependents: s.encodeKeys(deps),
			}
		}
	}

	encoded, err := json.Marshal(action)
	if err != nil {
		return zero, fmt.Errorf("%w: encode action: %v", ledgerstore.ErrSerialization, err)
	}
	ev := ledger.Event{Kind: s.kind, Key: s.encodeKey(key), Action: encoded}
	if _, err := s.ledger.Append(ctx, ledger.Leaf{Event: ev}); err != nil {
		return zero, fmt.Errorf("%w: %v", ledgerstore.ErrLedgerIO, err)
	}

	s.applyIndexDelta(key, old, existed, next)
	s.updateLive(key, next)
	s.cache.Invalidate(s.cacheKeysToInvalidate(key)...)

	return next, nil
}

// CommitEvents appends a pre-built, pre-validated batch of events as a
// single atomic group entry and applies the accompanying per-key deltas
// to the index, live-key set, and cache. It is the integration point the
// staging package uses to flush a batch of pending actions the caller
// has already simulated and validated end to end: CommitEvents trusts
// deltas and does not re-fold anything.
func (s *Store[K, A, T]) CommitEvents(ctx context.Context, events []ledger.Event, deltas []ItemDelta[K]) error {
	ctx, span := telemetry.Tracer.Start(ctx, "itemstore.CommitEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	leaves := make([]ledger.Entry, 0, len(events))
	for _, ev := range events {
		leaves = append(leaves, ledger.Leaf{Event: ev})
	}
	group, err := ledger.NewGroup(leaves...)
	if err != nil {
		return fmt.Errorf("%w: %v", ledgerstore.ErrLedgerIO, err)
	}
	if _, err := s.ledger.Append(ctx, group); err != nil {
		return fmt.Errorf("%w: %v", ledgerstore.ErrLedgerIO, err)
	}

	invalidate := make([]K, 0, len(deltas))
	for _, d := range deltas {
		var oldRefs []item.Ref[K]
		var oldProps []item.Property
		if d.Existed {
			oldRefs, oldProps = d.OldRefs, d.OldProps
		}
		var newRefs []item.Ref[K]
		var newProps []item.Property
		if !d.IsTombstone {
			newRefs, newProps = d.NewRefs, d.NewProps
		}
		removedRefs, addedRefs := item.DiffRefs(oldRefs, newRefs)
		removedProps, addedProps := item.DiffProperties(oldProps, newProps)
		s.index.ApplyRefDelta(d.Key, removedRefs, addedRefs)
		s.index.ApplyPropertyDelta(d.Key, removedProps, addedProps)

		s.liveMu.Lock()
		if d.IsTombstone {
			delete(s.live, d.Key)
		} else {
			s.live[d.Key] = struct{}{}
		}
		s.liveMu.Unlock()

		invalidate = append(invalidate, s.cacheKeysToInvalidate(d.Key)...)
	}
	s.cache.Invalidate(invalidate...)
	return nil
}

func (s *Store[K, A, T]) updateLive(key K, next T) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if next.IsTombstone() {
		delete(s.live, key)
	} else {
		s.live[key] = struct{}{}
	}
}

// cacheKeysToInvalidate returns key plus every item whose cached
// reference-cache view could now be stale: its transitive dependents
// (their Dependents()/References() views may have changed) and its direct
// dependencies (their Dependents() view changed too).
func (s *Store[K, A, T]) cacheKeysToInvalidate(key K) []K {
	out := []K{key}
	out = append(out, s.index.Closure(key, nil, true)...)
	out = append(out, s.index.Outgoing(key, nil)...)
	return out
}

func (s *Store[K, A, T]) encodeKeys(keys []K) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.encodeKey(k)
	}
	return out
}

// Ledger exposes the underlying ledger, e.g. for fsck or watch-mode
// integration.
func (s *Store[K, A, T]) Ledger() *ledger.Ledger { return s.ledger }

// Kind returns the event Kind this store owns.
func (s *Store[K, A, T]) Kind() string { return s.kind }
