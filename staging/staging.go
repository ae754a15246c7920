// Package staging implements the speculative batched-commit overlay: a
// transaction-scoped view of an itemstore.Store that accumulates pending
// actions in memory, lets readers see them as if already applied, and
// only touches the ledger when the whole batch is flushed atomically by
// Commit. Nothing is written to disk, and no index/cache mutation is
// visible to the underlying store, until Commit succeeds.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/speki-go/ledgerstore"
	"github.com/speki-go/ledgerstore/item"
	"github.com/speki-go/ledgerstore/itemstore"
	"github.com/speki-go/ledgerstore/ledger"
)

// Staging is a single speculative transaction against one
// itemstore.Store. A Staging value is not safe to reuse across goroutines
// that don't coordinate externally around its own lock, but individual
// calls are internally synchronized.
type Staging[K item.Key, A any, T item.Reducer[K, A, T]] struct {
	store *itemstore.Store[K, A, T]
	txID  string

	mu       sync.Mutex
	events   []ledger.Event
	state    map[K]T
	baseline map[K]baseline[K]
	order    []K // first-touch order, for deterministic delta construction
}

type baseline[K item.Key] struct {
	existed bool
	refs    []item.Ref[K]
	props   []item.Property
}

// New opens a transaction against store, identified by a fresh UUID for
// diagnostics (e.g. fsck or tracing correlation).
func New[K item.Key, A any, T item.Reducer[K, A, T]](store *itemstore.Store[K, A, T]) *Staging[K, A, T] {
	return &Staging[K, A, T]{
		store:    store,
		txID:     uuid.NewString(),
		state:    make(map[K]T),
		baseline: make(map[K]baseline[K]),
	}
}

// ID returns this transaction's identifier.
func (st *Staging[K, A, T]) ID() string { return st.txID }

// Enqueue simulates applying action to key's current state (persisted, or
// already-pending within this transaction) and stages the resulting event
// for the eventual Commit. Only Apply and serialization errors are
// rejected here; the dependents-blocks-delete check runs at Commit time
// against the batch's final per-key state, so a delete that a later
// enqueue in the same batch would have excused (e.g. its dependent is
// also deleted) is never rejected prematurely, and a delete that turns
// out to still have dependents leaves the whole batch staged for
// inspection rather than silently never having been queued.
func (st *Staging[K, A, T]) Enqueue(ctx context.Context, key K, action A) (T, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var zero T
	base, existed, err := st.baseFor(ctx, key)
	if err != nil {
		return zero, err
	}

	next, err := base.Apply(action)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ledgerstore.ErrInvalidEvent, err)
	}

	encoded, err := json.Marshal(action)
	if err != nil {
		return zero, fmt.Errorf("%w: encode action: %v", ledgerstore.ErrSerialization, err)
	}

	if _, ok := st.baseline[key]; !ok {
		st.recordBaseline(key, base, existed)
	}
	if _, touched := st.state[key]; !touched {
		st.order = append(st.order, key)
	}
	st.state[key] = next
	st.events = append(st.events, ledger.Event{
		Kind:   st.store.Kind(),
		Key:    st.store.EncodeKey(key),
		Action: encoded,
	})

	return next, nil
}

// baseFor returns key's fold point for a new action within this
// transaction: the most recent pending state if already touched,
// otherwise the persisted state via the store.
func (st *Staging[K, A, T]) baseFor(ctx context.Context, key K) (T, bool, error) {
	if v, ok := st.state[key]; ok {
		return v, true, nil
	}
	return st.store.CurrentState(ctx, key)
}

func (st *Staging[K, A, T]) recordBaseline(key K, base T, existed bool) {
	b := baseline[K]{existed: existed}
	if existed && !base.IsTombstone() {
		b.refs = base.OutgoingRefs()
		b.props = base.Properties()
	}
	st.baseline[key] = b
}

// dependentsLocked computes key's effective dependents under this
// transaction's pending state: persisted dependents minus any now
// tombstoned within the batch, plus any key newly pointed at it by a
// pending edit.
func (st *Staging[K, A, T]) dependentsLocked(key K, ty *item.RefType) []K {
	set := make(map[K]struct{})
	for _, k := range st.store.Dependents(key, ty) {
		if v, touched := st.state[k]; touched && v.IsTombstone() {
			continue
		}
		if v, touched := st.state[k]; touched {
			if !hasRefTo(v, key, ty) {
				continue
			}
		}
		set[k] = struct{}{}
	}
	for k, v := range st.state {
		if k == key || v.IsTombstone() {
			continue
		}
		if hasRefTo(v, key, ty) {
			set[k] = struct{}{}
		}
	}
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasRefTo[K item.Key](v interface{ OutgoingRefs() []item.Ref[K] }, to K, ty *item.RefType) bool {
	for _, r := range v.OutgoingRefs() {
		if r.To == to && (ty == nil || r.Type == *ty) {
			return true
		}
	}
	return false
}

// Load returns key's state as this transaction currently sees it
// (pending edits overlaid on the persisted store), and whether it is
// currently live.
func (st *Staging[K, A, T]) Load(ctx context.Context, key K) (T, bool, error) {
	st.mu.Lock()
	if v, ok := st.state[key]; ok {
		st.mu.Unlock()
		return v, !v.IsTombstone(), nil
	}
	st.mu.Unlock()

	base, existed, err := st.store.CurrentState(ctx, key)
	if err != nil {
		return base, false, err
	}
	return base, existed && !base.IsTombstone(), nil
}

// LoadIDs returns every key live under this transaction's view: the
// store's live keys, with pending creations added and pending deletions
// removed.
func (st *Staging[K, A, T]) LoadIDs() []K {
	st.mu.Lock()
	defer st.mu.Unlock()

	set := make(map[K]struct{})
	for _, k := range st.store.LoadIDs() {
		set[k] = struct{}{}
	}
	for k, v := range st.state {
		if v.IsTombstone() {
			delete(set, k)
		} else {
			set[k] = struct{}{}
		}
	}
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// References returns key's one-hop outgoing keys as this transaction
// currently sees them.
func (st *Staging[K, A, T]) References(key K, ty *item.RefType) []K {
	st.mu.Lock()
	defer st.mu.Unlock()

	if v, ok := st.state[key]; ok {
		if v.IsTombstone() {
			return nil
		}
		var out []K
		for _, r := range v.OutgoingRefs() {
			if ty == nil || r.Type == *ty {
				out = append(out, r.To)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	return st.store.GetReferenceCache(key, ty)
}

// Dependents returns key's one-hop incoming keys as this transaction
// currently sees them.
func (st *Staging[K, A, T]) Dependents(key K, ty *item.RefType) []K {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.dependentsLocked(key, ty)
}

// PropertyCache returns the keys currently bound to (kind, value) as this
// transaction sees them.
func (st *Staging[K, A, T]) PropertyCache(kind item.PropertyType, value string) []K {
	st.mu.Lock()
	defer st.mu.Unlock()

	set := make(map[K]struct{})
	for _, k := range st.store.GetPropertyCache(kind, value) {
		if _, touched := st.state[k]; touched {
			continue
		}
		set[k] = struct{}{}
	}
	for k, v := range st.state {
		if v.IsTombstone() {
			continue
		}
		for _, p := range v.Properties() {
			if p.Type == kind && p.Value == value {
				set[k] = struct{}{}
			}
		}
	}
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pending reports how many events are currently staged.
func (st *Staging[K, A, T]) Pending() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.events)
}

// Rollback discards every pending action. Since nothing is written to the
// ledger until Commit, rollback never touches the underlying store — it
// just abandons this transaction's in-memory overlay.
func (st *Staging[K, A, T]) Rollback() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.events = nil
	st.state = make(map[K]T)
	st.baseline = make(map[K]baseline[K])
	st.order = nil
}

// Commit validates the batch's final state, then flushes every pending
// action as one atomic group entry in the ledger and applies the
// accumulated index/cache deltas. Validation checks each key the batch
// leaves tombstoned against its effective dependents under the batch's
// own final state (so an in-batch delete of a dependent excuses the
// reference, per dependentsLocked); a tombstoned key that still has
// dependents fails the whole commit with HasDependents and leaves every
// pending event staged, untouched, for inspection. On success the
// transaction is reset and can be reused for a new batch; on any failure
// (validation or fatal ledger error) the pending state is left intact so
// the caller can inspect it or retry Commit.
func (st *Staging[K, A, T]) Commit(ctx context.Context) error {
	st.mu.Lock()
	if len(st.events) == 0 {
		st.mu.Unlock()
		return nil
	}

	for _, k := range st.order {
		v := st.state[k]
		if !v.IsTombstone() {
			continue
		}
		if deps := st.dependentsLocked(k, nil); len(deps) > 0 {
			err := &ledgerstore.DependentsError{
				Key:        st.store.EncodeKey(k),
				Dependents: encodeKeys(st.store, deps),
			}
			st.mu.Unlock()
			return err
		}
	}

	events := make([]ledger.Event, len(st.events))
	copy(events, st.events)

	deltas := make([]itemstore.ItemDelta[K], 0, len(st.order))
	for _, k := range st.order {
		b := st.baseline[k]
		v := st.state[k]
		d := itemstore.ItemDelta[K]{
			Key:         k,
			Existed:     b.existed,
			OldRefs:     b.refs,
			OldProps:    b.props,
			IsTombstone: v.IsTombstone(),
		}
		if !d.IsTombstone {
			d.NewRefs = v.OutgoingRefs()
			d.NewProps = v.Properties()
		}
		deltas = append(deltas, d)
	}
	st.mu.Unlock()

	if err := st.store.CommitEvents(ctx, events, deltas); err != nil {
		return err
	}

	st.mu.Lock()
	st.events = nil
	st.state = make(map[K]T)
	st.baseline = make(map[K]baseline[K])
	st.order = nil
	st.mu.Unlock()
	return nil
}

func encodeKeys[K item.Key, A any, T item.Reducer[K, A, T]](store *itemstore.Store[K, A, T], keys []K) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = store.EncodeKey(k)
	}
	return out
}
