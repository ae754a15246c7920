package ledger

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// writeEntry persists e as commit idx under dir, recursively for groups.
// Leaf files are written to a temp file and renamed into place so a
// reader never observes a partially-written leaf.
func writeEntry(dir string, idx int, e Entry) error {
	path := filepath.Join(dir, commitName(idx))

	switch v := e.(type) {
	case Leaf:
		b, err := json.Marshal(v.Event)
		if err != nil {
			return fmt.Errorf("%w: marshal event: %v", ErrSerialization, err)
		}
		return atomicWriteFile(path, b)

	case Group:
		if err := os.MkdirAll(path, 0o750); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", ErrIO, path, err)
		}
		for i, child := range v.Children {
			if err := writeEntry(path, i, child); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown entry type %T", ErrSerialization, e)
	}
}

// atomicWriteFile writes b to path via a temp-file-then-rename so a
// concurrent reader sees either the old or the new content, never a
// partial write.
func atomicWriteFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %v", ErrIO, dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath) // best effort cleanup if rename never happens
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename %s -> %s: %v", ErrIO, tmpPath, path, err)
	}
	return nil
}

// readEntryDir recursively walks dir in numeric commit order and
// flattens every entry found into the canonical leaf event sequence.
// Non-numeric names are silently ignored (they are not entries).
// A leaf file that fails to deserialize is skipped and reported as a
// warning rather than aborting the whole read — it is fatal only for
// that leaf, per the spec's Serialization error semantics; the fsck
// tool reports such leaves, and its Repair leaves them in place.
func readEntryDir(dir string) (events []Event, warnings []string, err error) {
	des, readErr := os.ReadDir(dir)
	if readErr != nil {
		return nil, nil, fmt.Errorf("%w: read dir %s: %v", ErrIO, dir, readErr)
	}

	type numbered struct {
		idx int
		de  fs.DirEntry
	}
	var nums []numbered
	for _, de := range des {
		if n, ok := parseCommitName(de.Name()); ok {
			nums = append(nums, numbered{n, de})
		}
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i].idx < nums[j].idx })

	for _, n := range nums {
		path := filepath.Join(dir, n.de.Name())
		if n.de.IsDir() {
			sub, subWarnings, err := readEntryDir(path)
			if err != nil {
				return nil, nil, err
			}
			events = append(events, sub...)
			warnings = append(warnings, subWarnings...)
			continue
		}

		b, err := os.ReadFile(path) //nolint:gosec // path built from validated numeric dir entries
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		events = append(events, ev)
	}
	return events, warnings, nil
}

// countTopLevel returns one past the highest numeric top-level commit
// name found in dir, i.e. the next commit index to append at. Missing or
// empty dir yields 0.
func countTopLevel(dir string) (int, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: read dir %s: %v", ErrIO, dir, err)
	}
	max := -1
	for _, de := range des {
		if n, ok := parseCommitName(de.Name()); ok && n > max {
			max = n
		}
	}
	return max + 1, nil
}
