package ledger

import (
	"fmt"
	"strconv"
)

// nameWidth is the zero-pad width used for on-disk commit names, giving
// lexicographic order equal to numeric order for up to 10^6 commits.
// Widen this if a ledger is expected to exceed that many commits.
const nameWidth = 6

// commitName renders a commit index in its canonical on-disk form.
func commitName(i int) string {
	return fmt.Sprintf("%0*d", nameWidth, i)
}

// parseCommitName reports whether name is a numeric-only entry name and,
// if so, its integer value. Non-numeric names are not entries and are
// ignored by iteration.
func parseCommitName(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}
