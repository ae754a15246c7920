// Package ledger implements the append-only, ordered, on-disk event log
// described by the spec: a directory of numbered entry trees, one per
// commit, enumerated deterministically for replay.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/speki-go/ledgerstore/hash"
	"github.com/speki-go/ledgerstore/telemetry"
)

// defaultLockTimeout bounds how long Append waits to acquire the
// single-writer advisory lock before giving up.
const defaultLockTimeout = 5 * time.Second

// Ledger owns a directory of numbered entry trees and maintains an
// in-memory cached vector of the flattened event sequence for fast
// iteration. A Ledger assumes a single writer; reads (Iter, CurrentHash)
// are safe for concurrent use by multiple goroutines. Append enforces
// the single-writer contract across processes with an advisory flock on
// the ledger root, held only for the duration of the write — the same
// acquire-around-the-operation, not acquire-for-the-session, discipline
// the teacher uses for its own dolt access lock and JSONL sync lock.
type Ledger struct {
	root    string
	entries string

	mu          sync.RWMutex
	cached      []Event
	warnings    []string
	commitCount int

	retryMaxElapsed time.Duration
	lockTimeout     time.Duration
}

// Option configures a Ledger at Open time.
type Option func(*Ledger)

// WithRetryMaxElapsed bounds how long Append retries transient filesystem
// errors before giving up and surfacing ErrIO.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(l *Ledger) { l.retryMaxElapsed = d }
}

// WithLockTimeout bounds how long Append waits to acquire the
// single-writer advisory lock on root before giving up and returning
// ErrLockBusy.
func WithLockTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.lockTimeout = d }
}

// Open opens (creating if necessary) the ledger rooted at root and loads
// its current state by replaying entries/ from disk.
func Open(root string, opts ...Option) (*Ledger, error) {
	entries := filepath.Join(root, "entries")
	if err := os.MkdirAll(entries, 0o750); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrIO, entries, err)
	}

	l := &Ledger{
		root:            root,
		entries:         entries,
		retryMaxElapsed: 2 * time.Second,
		lockTimeout:     defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// reload replays entries/ from disk into the in-memory cached vector.
func (l *Ledger) reload() error {
	events, warnings, err := readEntryDir(l.entries)
	if err != nil {
		return err
	}
	count, err := countTopLevel(l.entries)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.cached = events
	l.warnings = warnings
	l.commitCount = count
	l.mu.Unlock()
	return nil
}

// Append writes entry as the next commit and returns the hash of its
// rightmost leaf. Transient filesystem errors (EINTR-class) are retried
// with exponential backoff, grounded in the same withRetry/
// backoff.Permanent pattern used for transient database errors
// elsewhere; disk-full and permission errors are classified
// non-retryable and surfaced immediately as ErrIO.
func (l *Ledger) Append(ctx context.Context, entry Entry) (hash.Hash, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "ledger.Append")
	defer span.End()

	leaves := entry.Flatten()
	if len(leaves) == 0 {
		return "", fmt.Errorf("%w", ErrEmptyGroup)
	}

	fl, err := acquireLock(l.root, l.lockTimeout)
	if err != nil {
		return "", err
	}
	defer func() { _ = fl.Close() }()

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.commitCount
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = l.retryMaxElapsed

	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		err := writeEntry(l.entries, idx, entry)
		if err == nil {
			return nil
		}
		if isRetryableIOError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))

	if attempts > 1 {
		telemetry.Metrics.RetryCount.Add(ctx, int64(attempts-1))
	}
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return "", perm.Err
		}
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	l.cached = append(l.cached, leaves...)
	l.commitCount = idx + 1

	telemetry.Metrics.CommitsTotal.Add(ctx, 1)
	return hash.OfValue(leaves[len(leaves)-1])
}

// isRetryableIOError classifies transient-looking filesystem errors.
// Disk-full (ENOSPC) and permission errors are deliberately excluded:
// the spec treats those as fatal, not transient.
func isRetryableIOError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "interrupted system call") ||
		strings.Contains(msg, "resource temporarily unavailable") ||
		strings.Contains(msg, "try again")
}

// Iter returns the canonical replay order: every event currently in the
// ledger, flattened left-to-right, commit order first.
func (l *Ledger) Iter() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.cached))
	copy(out, l.cached)
	return out
}

// Warnings returns diagnostics accumulated while loading the ledger
// (e.g. leaves that failed to deserialize). The core does not self-heal
// these; see package fsck.
func (l *Ledger) Warnings() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.warnings))
	copy(out, l.warnings)
	return out
}

// CurrentHash returns the hash of the rightmost leaf of the rightmost
// entry, or false if the ledger is empty.
func (l *Ledger) CurrentHash() (hash.Hash, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.cached) == 0 {
		return "", false
	}
	h, err := hash.OfValue(l.cached[len(l.cached)-1])
	if err != nil {
		return "", false
	}
	return h, true
}

// Len returns the number of top-level commits (entries), not the number
// of flattened leaf events.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commitCount
}

// Root returns the ledger's root directory.
func (l *Ledger) Root() string { return l.root }
