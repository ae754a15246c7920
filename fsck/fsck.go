// Package fsck implements an offline consistency scanner over a ledger's
// on-disk entries/ tree: it looks for stray non-numeric siblings, empty
// group directories, and leaves that fail to deserialize — the same
// class of damage the ledger itself tolerates at Open time (surfaced via
// Ledger.Warnings) but never self-heals. Repair only ever removes
// unambiguous damage; it never renumbers a commit, since commit order is
// load-bearing for replay.
package fsck

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/speki-go/ledgerstore/ledger"
	"github.com/speki-go/ledgerstore/telemetry"
)

// IssueKind classifies one finding.
type IssueKind string

const (
	// IssueOrphanFile is a non-numeric-named file sitting among numbered
	// entries. It is never replayed, and is dead weight at best.
	IssueOrphanFile IssueKind = "orphan_file"

	// IssueEmptyGroup is a directory that looks like a group entry (it
	// sits at a numeric name) but contains no numeric children, so it
	// folds to zero events — almost certainly the result of an aborted
	// write.
	IssueEmptyGroup IssueKind = "empty_group"

	// IssueDeserializeFailure is a leaf file whose content is not a valid
	// Event.
	IssueDeserializeFailure IssueKind = "deserialize_failure"
)

// Issue is one finding, anchored to the path it concerns.
type Issue struct {
	Path   string
	Kind   IssueKind
	Detail string
}

// Report is the result of a Scan.
type Report struct {
	Issues []Issue
}

// Clean reports whether the scan found nothing wrong.
func (r Report) Clean() bool { return len(r.Issues) == 0 }

// Scan walks root's entries/ tree and reports every issue found. It does
// not use package ledger's internal loader, because a damaged tree is
// exactly the case fsck must tolerate and describe precisely, rather than
// accumulate into an opaque warnings slice.
func Scan(ctx context.Context, root string) (Report, error) {
	_, span := telemetry.Tracer.Start(ctx, "fsck.Scan")
	defer span.End()

	entries := filepath.Join(root, "entries")
	var report Report
	if err := scanDir(entries, &report); err != nil {
		return Report{}, err
	}
	sort.Slice(report.Issues, func(i, j int) bool { return report.Issues[i].Path < report.Issues[j].Path })
	return report, nil
}

func scanDir(dir string, report *Report) error {
	des, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("fsck: read dir %s: %w", dir, err)
	}

	numericChildren := 0
	for _, de := range des {
		if !isNumericName(de.Name()) {
			report.Issues = append(report.Issues, Issue{
				Path:   filepath.Join(dir, de.Name()),
				Kind:   IssueOrphanFile,
				Detail: "non-numeric name, never replayed",
			})
			continue
		}
		numericChildren++

		path := filepath.Join(dir, de.Name())
		if de.IsDir() {
			sub, err := os.ReadDir(path)
			if err != nil {
				return fmt.Errorf("fsck: read dir %s: %w", path, err)
			}
			hasNumericChild := false
			for _, sde := range sub {
				if isNumericName(sde.Name()) {
					hasNumericChild = true
					break
				}
			}
			if !hasNumericChild {
				report.Issues = append(report.Issues, Issue{
					Path:   path,
					Kind:   IssueEmptyGroup,
					Detail: "group directory has no numeric children",
				})
			}
			if err := scanDir(path, report); err != nil {
				return err
			}
			continue
		}

		b, err := os.ReadFile(path) //nolint:gosec // path built from validated numeric dir entries
		if err != nil {
			return fmt.Errorf("fsck: read %s: %w", path, err)
		}
		var ev ledger.Event
		if err := json.Unmarshal(b, &ev); err != nil {
			report.Issues = append(report.Issues, Issue{
				Path:   path,
				Kind:   IssueDeserializeFailure,
				Detail: err.Error(),
			})
		}
	}
	return nil
}

func isNumericName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := strconv.Atoi(name)
	return err == nil
}

// Repair removes every orphan_file and empty_group issue in report. It
// never touches deserialize_failure entries (a damaged leaf might still
// be hand-recoverable, so Repair only clears away dead weight it can
// remove with certainty) and never renumbers a surviving commit.
func Repair(report Report) ([]string, error) {
	var removed []string
	for _, issue := range report.Issues {
		switch issue.Kind {
		case IssueOrphanFile:
			if err := os.Remove(issue.Path); err != nil {
				return removed, fmt.Errorf("fsck: remove %s: %w", issue.Path, err)
			}
			removed = append(removed, issue.Path)
		case IssueEmptyGroup:
			if err := os.Remove(issue.Path); err != nil {
				return removed, fmt.Errorf("fsck: remove %s: %w", issue.Path, err)
			}
			removed = append(removed, issue.Path)
		}
	}
	return removed, nil
}
