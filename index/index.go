// Package index implements the reference and property secondary index:
// directional, typed, transitive connectivity queries over the outgoing
// references and properties items self-report, kept consistent with the
// folded item store at all times.
package index

import (
	"sort"
	"sync"

	"github.com/speki-go/ledgerstore/item"
)

// Index holds the out/in reference maps and the property lookup table
// for one item collection. Each of the three maps is guarded by its own
// RWMutex, per the spec's concurrency model.
type Index[K item.Key] struct {
	outMu sync.RWMutex
	out   map[K]map[item.RefType]map[K]struct{}

	inMu sync.RWMutex
	in   map[K]map[item.RefType]map[K]struct{}

	propMu sync.RWMutex
	byProp map[item.PropertyType]map[string]map[K]struct{}
}

// New creates an empty index.
func New[K item.Key]() *Index[K] {
	return &Index[K]{
		out:    make(map[K]map[item.RefType]map[K]struct{}),
		in:     make(map[K]map[item.RefType]map[K]struct{}),
		byProp: make(map[item.PropertyType]map[string]map[K]struct{}),
	}
}

// ApplyRefDelta removes `removed` edges and adds `added` edges, all
// declared as outgoing from `from`. Both out[from] and in[to] are kept
// in lockstep so they remain exact inverses of each other.
func (ix *Index[K]) ApplyRefDelta(from K, removed, added []item.Ref[K]) {
	ix.outMu.Lock()
	ix.inMu.Lock()
	defer ix.outMu.Unlock()
	defer ix.inMu.Unlock()

	for _, r := range removed {
		deleteEdge(ix.out, from, r.Type, r.To)
		deleteEdge(ix.in, r.To, r.Type, from)
	}
	for _, r := range added {
		addEdge(ix.out, from, r.Type, r.To)
		addEdge(ix.in, r.To, r.Type, from)
	}
}

// ApplyPropertyDelta removes `removed` and adds `added` property
// bindings for key.
func (ix *Index[K]) ApplyPropertyDelta(key K, removed, added []item.Property) {
	ix.propMu.Lock()
	defer ix.propMu.Unlock()

	for _, p := range removed {
		if vals, ok := ix.byProp[p.Type]; ok {
			if keys, ok := vals[p.Value]; ok {
				delete(keys, key)
				if len(keys) == 0 {
					delete(vals, p.Value)
				}
			}
		}
	}
	for _, p := range added {
		vals, ok := ix.byProp[p.Type]
		if !ok {
			vals = make(map[string]map[K]struct{})
			ix.byProp[p.Type] = vals
		}
		keys, ok := vals[p.Value]
		if !ok {
			keys = make(map[K]struct{})
			vals[p.Value] = keys
		}
		keys[key] = struct{}{}
	}
}

func addEdge[K item.Key](m map[K]map[item.RefType]map[K]struct{}, from K, ty item.RefType, to K) {
	byType, ok := m[from]
	if !ok {
		byType = make(map[item.RefType]map[K]struct{})
		m[from] = byType
	}
	set, ok := byType[ty]
	if !ok {
		set = make(map[K]struct{})
		byType[ty] = set
	}
	set[to] = struct{}{}
}

func deleteEdge[K item.Key](m map[K]map[item.RefType]map[K]struct{}, from K, ty item.RefType, to K) {
	byType, ok := m[from]
	if !ok {
		return
	}
	if set, ok := byType[ty]; ok {
		delete(set, to)
		if len(set) == 0 {
			delete(byType, ty)
		}
	}
	if len(byType) == 0 {
		delete(m, from)
	}
}

// Outgoing returns the one-hop outgoing keys from start, optionally
// restricted to a single RefType.
func (ix *Index[K]) Outgoing(start K, ty *item.RefType) []K {
	ix.outMu.RLock()
	defer ix.outMu.RUnlock()
	return oneHop(ix.out, start, ty)
}

// Incoming returns the one-hop incoming keys (dependents) of start,
// optionally restricted to a single RefType.
func (ix *Index[K]) Incoming(start K, ty *item.RefType) []K {
	ix.inMu.RLock()
	defer ix.inMu.RUnlock()
	return oneHop(ix.in, start, ty)
}

// OutgoingWithType returns the one-hop outgoing (type, key) pairs.
func (ix *Index[K]) OutgoingWithType(start K, ty *item.RefType) []item.Ref[K] {
	ix.outMu.RLock()
	defer ix.outMu.RUnlock()
	return oneHopTyped(ix.out, start, ty)
}

// IncomingWithType returns the one-hop incoming (type, key) pairs.
func (ix *Index[K]) IncomingWithType(start K, ty *item.RefType) []item.Ref[K] {
	ix.inMu.RLock()
	defer ix.inMu.RUnlock()
	return oneHopTyped(ix.in, start, ty)
}

func oneHop[K item.Key](m map[K]map[item.RefType]map[K]struct{}, start K, ty *item.RefType) []K {
	byType, ok := m[start]
	if !ok {
		return nil
	}
	seen := make(map[K]struct{})
	if ty != nil {
		for k := range byType[*ty] {
			seen[k] = struct{}{}
		}
	} else {
		for _, set := range byType {
			for k := range set {
				seen[k] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

func oneHopTyped[K item.Key](m map[K]map[item.RefType]map[K]struct{}, start K, ty *item.RefType) []item.Ref[K] {
	byType, ok := m[start]
	if !ok {
		return nil
	}
	var out []item.Ref[K]
	if ty != nil {
		for k := range byType[*ty] {
			out = append(out, item.Ref[K]{Type: *ty, To: k})
		}
		return out
	}
	for t, set := range byType {
		for k := range set {
			out = append(out, item.Ref[K]{Type: t, To: k})
		}
	}
	return out
}

// Closure computes the breadth-first transitive closure from start over
// the chosen direction and type filter, excluding start itself.
func (ix *Index[K]) Closure(start K, ty *item.RefType, reversed bool) []K {
	hop := ix.Outgoing
	if reversed {
		hop = ix.Incoming
	}

	visited := map[K]struct{}{start: {}}
	queue := []K{start}
	var result []K

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range hop(cur, ty) {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			result = append(result, next)
			queue = append(queue, next)
		}
	}
	return result
}

// ByProperty returns the keys currently bound to (kind, value).
func (ix *Index[K]) ByProperty(kind item.PropertyType, value string) []K {
	ix.propMu.RLock()
	defer ix.propMu.RUnlock()
	vals, ok := ix.byProp[kind]
	if !ok {
		return nil
	}
	keys, ok := vals[value]
	if !ok {
		return nil
	}
	out := make(map[K]struct{}, len(keys))
	for k := range keys {
		out[k] = struct{}{}
	}
	return sortedKeys(out)
}

// sortedKeys returns the members of a set in ascending key order. item.Key
// is cmp.Ordered, so plain < gives the BTree-style "smallest key first"
// order.
func sortedKeys[K item.Key](set map[K]struct{}) []K {
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}
