package ledger

import "errors"

// ErrEmptyGroup is returned when constructing a Group entry with no
// children; the spec's invariant is that a group is never empty.
var ErrEmptyGroup = errors.New("ledger: group entry must have at least one child")

// ErrIO wraps fatal disk errors encountered during append or read.
// Because the ledger is append-only, an error here never leaves a
// partially-committed entry visible to iteration: a commit either fully
// writes its directory or the append is retried/aborted.
var ErrIO = errors.New("ledger: io error")

// ErrSerialization wraps a failure to decode a persisted event. It is
// fatal only for the offending leaf; other entries are unaffected.
var ErrSerialization = errors.New("ledger: serialization error")

// ErrLockBusy is returned by Append when the single-writer advisory lock
// on root is held by another process and is not released before the
// configured lock timeout elapses.
var ErrLockBusy = errors.New("ledger: lock busy: held by another process")
