package itemstore

import "github.com/speki-go/ledgerstore/item"

// ItemDelta describes one key's before/after projection state, the unit
// the staging package hands back to CommitEvents once it has simulated an
// entire pending batch and is ready to flush it atomically. It lets
// staging drive the same index/cache/live-set bookkeeping Modify uses
// without staging reaching into Store's internals directly.
type ItemDelta[K item.Key] struct {
	Key K

	// Existed reports whether key had any prior folded state at all
	// (false for a brand new item).
	Existed bool

	// OldRefs/OldProps are the prior state's self-reported edges and
	// properties, empty if the prior state didn't exist or was itself a
	// tombstone.
	OldRefs  []item.Ref[K]
	OldProps []item.Property

	// IsTombstone reports whether the resulting state is a tombstone.
	IsTombstone bool

	// NewRefs/NewProps are the resulting state's self-reported edges and
	// properties, empty when IsTombstone is true.
	NewRefs  []item.Ref[K]
	NewProps []item.Property
}
