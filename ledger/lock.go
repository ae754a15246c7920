package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/speki-go/ledgerstore/telemetry"
)

// lockFileName is the single-writer advisory lock placed alongside
// entries/ in a ledger root.
const lockFileName = ".ledgerstore.lock"

// lockPollInterval is how often acquireLock retries a busy lock.
const lockPollInterval = 50 * time.Millisecond

// acquireLock takes an exclusive advisory flock on root, polling every
// lockPollInterval until it succeeds or timeout elapses, and records the
// wait time. Grounded on the teacher's cmd/bd/jsonl_lock.go (a
// gofrs/flock wrapper around poll-retry acquisition) and
// internal/storage/dolt/access_lock.go (the same poll loop, recording
// wait time into an OTel histogram).
func acquireLock(root string, timeout time.Duration) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(root, lockFileName))
	start := time.Now()

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", ErrIO, fl.Path(), err)
	}
	if locked {
		telemetry.Metrics.LockWaitMs.Record(context.Background(), float64(time.Since(start).Milliseconds()))
		return fl, nil
	}

	deadline := start.Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(lockPollInterval)

		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("%w: lock %s: %v", ErrIO, fl.Path(), err)
		}
		if locked {
			telemetry.Metrics.LockWaitMs.Record(context.Background(), float64(time.Since(start).Milliseconds()))
			return fl, nil
		}
	}

	return nil, fmt.Errorf("%w: %s held by another process after %v", ErrLockBusy, fl.Path(), timeout)
}
