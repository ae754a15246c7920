package noteitem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCreateThenAddRefAndTag(t *testing.T) {
	var n Note
	n, err := n.Apply(Action{Kind: ActionCreate, Ref: "n1", Text: "hello"})
	require.NoError(t, err)

	n, err = n.Apply(Action{Kind: ActionAddRef, Ref: "n2"})
	require.NoError(t, err)
	n, err = n.Apply(Action{Kind: ActionAddTag, Tag: "urgent"})
	require.NoError(t, err)

	assert.Equal(t, "n1", n.ItemID())
	assert.Equal(t, "hello", n.Text())
	assert.False(t, n.IsTombstone())
	assert.Equal(t, []string{"n2"}, refTargets(n))
	assert.Equal(t, []string{"urgent"}, tagValues(n))
}

func TestApplyAddRefIsIdempotent(t *testing.T) {
	var n Note
	n, _ = n.Apply(Action{Kind: ActionCreate, Ref: "n1"})
	n, err := n.Apply(Action{Kind: ActionAddRef, Ref: "n2"})
	require.NoError(t, err)
	n, err = n.Apply(Action{Kind: ActionAddRef, Ref: "n2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"n2"}, refTargets(n))
}

func TestApplyDeleteClearsRefsAndTags(t *testing.T) {
	var n Note
	n, _ = n.Apply(Action{Kind: ActionCreate, Ref: "n1"})
	n, _ = n.Apply(Action{Kind: ActionAddRef, Ref: "n2"})
	n, err := n.Apply(Action{Kind: ActionDelete})
	require.NoError(t, err)

	assert.True(t, n.IsTombstone())
	assert.Empty(t, n.OutgoingRefs())
	assert.Empty(t, n.Properties())
}

func TestApplyMissingFieldErrors(t *testing.T) {
	var n Note
	_, err := n.Apply(Action{Kind: ActionAddRef})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestApplyUnknownKindErrors(t *testing.T) {
	var n Note
	_, err := n.Apply(Action{Kind: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func refTargets(n Note) []string {
	var out []string
	for _, r := range n.OutgoingRefs() {
		out = append(out, r.To)
	}
	return out
}

func tagValues(n Note) []string {
	var out []string
	for _, p := range n.Properties() {
		out = append(out, p.Value)
	}
	return out
}
