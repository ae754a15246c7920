package ledger

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a ledger's entries/ directory for externally-written
// commits — e.g. a second process, or a human running fsck --repair —
// and signals the caller to reload. Grounded on the teacher's fsnotify
// + debounce pattern for live-reloading issues.jsonl in `bd list --watch`.
type Watcher struct {
	ledger   *Ledger
	watcher  *fsnotify.Watcher
	notify   chan struct{}
	done     chan struct{}
	debounce time.Duration
}

// Watch starts watching l's entries directory. Callers receive a signal
// on the returned Watcher's Notify channel whenever entries/ changes on
// disk; they are expected to call l's reload path (Refresh) in response.
// Close stops the watcher.
func Watch(l *Ledger, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: new watcher: %v", ErrIO, err)
	}
	if err := fw.Add(l.entries); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("%w: watch %s: %v", ErrIO, l.entries, err)
	}

	w := &Watcher{
		ledger:   l,
		watcher:  fw,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.notify <- struct{}{}:
			default:
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Notify delivers a (coalesced) signal each time entries/ changes.
func (w *Watcher) Notify() <-chan struct{} { return w.notify }

// Refresh reloads the underlying ledger's in-memory view from disk.
func (w *Watcher) Refresh() error { return w.ledger.reload() }

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
