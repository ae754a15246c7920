// Package ledgerstore is the root of the content-addressed, event-sourced,
// typed item store. It holds the error taxonomy returned by the store
// API (packages itemstore and staging); the store itself lives in
// package itemstore. Package ledger has its own sentinels (ledger.ErrIO,
// ledger.ErrLockBusy, ...), which itemstore wraps as ErrLedgerIO.
package ledgerstore

import (
	"errors"
	"fmt"
)

// The five error kinds that escape the store API, per the spec's error
// taxonomy. Errors from itemstore.Store and staging.Staging wrap one of
// these — callers can switch on them with errors.Is.
var (
	// ErrNotFound is returned when a key referenced by a non-delete
	// operation does not resolve to a current (non-tombstoned) item.
	ErrNotFound = errors.New("ledgerstore: not found")

	// ErrInvalidEvent is returned when an event violates the item's own
	// precondition; raised by the reducer and surfaced verbatim.
	ErrInvalidEvent = errors.New("ledgerstore: invalid event")

	// ErrHasDependents is returned when a delete is attempted on an item
	// still referenced by others. See DependentsError for the offending
	// dependents.
	ErrHasDependents = errors.New("ledgerstore: item has dependents")

	// ErrLedgerIO wraps a fatal disk error during append or read.
	ErrLedgerIO = errors.New("ledgerstore: ledger io error")

	// ErrSerialization wraps a failure to decode a stored event or item;
	// fatal for that item, other items are unaffected.
	ErrSerialization = errors.New("ledgerstore: serialization error")
)

// DependentsError carries the keys (as their string form) that still
// reference the item a delete tried to remove, "when cheap to compute"
// per the spec. It always wraps ErrHasDependents.
type DependentsError struct {
	Key        string
	Dependents []string
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("ledgerstore: %q has %d dependent(s): %v", e.Key, len(e.Dependents), e.Dependents)
}

func (e *DependentsError) Unwrap() error { return ErrHasDependents }

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsHasDependents reports whether err is (or wraps) ErrHasDependents.
func IsHasDependents(err error) bool { return errors.Is(err, ErrHasDependents) }
