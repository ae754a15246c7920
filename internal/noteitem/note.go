// Package noteitem is the minimal concrete item.Reducer implementation
// used to exercise the store end to end as the CLI's demo collection.
// The itemstore and staging tests define their own item types instead.
package noteitem

import (
	"errors"
	"fmt"

	"github.com/speki-go/ledgerstore/item"
)

// ErrMissingField is returned by Apply when a required action field is
// empty.
var ErrMissingField = errors.New("noteitem: missing required field")

// ErrUnknownAction is returned by Apply when an action's Kind doesn't
// match any known variant.
var ErrUnknownAction = errors.New("noteitem: unknown action kind")

// Reference and property kinds a Note can declare.
const (
	RefCites item.RefType = "cites"

	PropTag item.PropertyType = "tag"
)

// ActionKind enumerates the Note action variants. Go has no sum types, so
// Action carries every variant's optional payload and Kind selects which
// one applies, mirroring the single JSON event envelope the ledger
// persists for every action type.
type ActionKind string

const (
	ActionCreate    ActionKind = "create"
	ActionAddRef    ActionKind = "add_ref"
	ActionRemoveRef ActionKind = "remove_ref"
	ActionAddTag    ActionKind = "add_tag"
	ActionRemoveTag ActionKind = "remove_tag"
	ActionSetText   ActionKind = "set_text"
	ActionDelete    ActionKind = "delete"
)

// Action is the Note modifier type (the item.Reducer A parameter).
type Action struct {
	Kind ActionKind   `json:"kind"`
	Ref  string       `json:"ref,omitempty"`
	Tag  string       `json:"tag,omitempty"`
	Text string       `json:"text,omitempty"`
}

// Note is a small flashcard-like item: free text, a set of outgoing
// "cites" references to other notes, and a set of tags.
type Note struct {
	id        string
	text      string
	refs      []string
	tags      []string
	tombstone bool
}

// ItemID implements item.Reducer.
func (n Note) ItemID() string { return n.id }

// IsTombstone implements item.Reducer.
func (n Note) IsTombstone() bool { return n.tombstone }

// Text returns the note's current free text.
func (n Note) Text() string { return n.text }

// OutgoingRefs implements item.Reducer.
func (n Note) OutgoingRefs() []item.Ref[string] {
	if n.tombstone {
		return nil
	}
	out := make([]item.Ref[string], len(n.refs))
	for i, r := range n.refs {
		out[i] = item.Ref[string]{Type: RefCites, To: r}
	}
	return out
}

// Properties implements item.Reducer.
func (n Note) Properties() []item.Property {
	if n.tombstone {
		return nil
	}
	out := make([]item.Property, len(n.tags))
	for i, tag := range n.tags {
		out[i] = item.Property{Type: PropTag, Value: tag}
	}
	return out
}

// Apply implements item.Reducer. It is pure: the receiver is never
// mutated in place, a new Note value is always returned.
func (n Note) Apply(a Action) (Note, error) {
	switch a.Kind {
	case ActionCreate:
		n.id = a.Ref
		n.text = a.Text
		return n, nil

	case ActionAddRef:
		if a.Ref == "" {
			return n, fmt.Errorf("%w: ref", ErrMissingField)
		}
		n.refs = appendUnique(n.refs, a.Ref)
		return n, nil

	case ActionRemoveRef:
		n.refs = removeString(n.refs, a.Ref)
		return n, nil

	case ActionAddTag:
		if a.Tag == "" {
			return n, fmt.Errorf("%w: tag", ErrMissingField)
		}
		n.tags = appendUnique(n.tags, a.Tag)
		return n, nil

	case ActionRemoveTag:
		n.tags = removeString(n.tags, a.Tag)
		return n, nil

	case ActionSetText:
		n.text = a.Text
		return n, nil

	case ActionDelete:
		n.tombstone = true
		n.refs = nil
		n.tags = nil
		return n, nil

	default:
		return n, fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

func appendUnique(ss []string, v string) []string {
	for _, s := range ss {
		if s == v {
			return ss
		}
	}
	return append(append([]string{}, ss...), v)
}

func removeString(ss []string, v string) []string {
	var out []string
	for _, s := range ss {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
