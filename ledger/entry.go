package ledger

import "fmt"

// Entry is either a Leaf wrapping a single Event or a Group of child
// Entries representing one atomic, transactionally-grouped commit.
// Groups may nest to arbitrary depth.
type Entry interface {
	// Flatten returns the left-to-right in-order leaf sequence — the
	// canonical replay order for this entry's events.
	Flatten() []Event

	entry()
}

// Leaf carries one event.
type Leaf struct {
	Event Event
}

// Flatten implements Entry.
func (l Leaf) Flatten() []Event { return []Event{l.Event} }

func (Leaf) entry() {}

// Group carries an ordered, non-empty sequence of child entries.
type Group struct {
	Children []Entry
}

// NewGroup constructs a Group, enforcing the non-empty invariant.
func NewGroup(children ...Entry) (Group, error) {
	if len(children) == 0 {
		return Group{}, fmt.Errorf("%w", ErrEmptyGroup)
	}
	return Group{Children: children}, nil
}

// Flatten implements Entry.
func (g Group) Flatten() []Event {
	var out []Event
	for _, c := range g.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}

func (Group) entry() {}
