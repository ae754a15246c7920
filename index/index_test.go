package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speki-go/ledgerstore/item"
)

const refDep item.RefType = "dependency"

func TestReferenceConsistency(t *testing.T) {
	ix := New[string]()
	ix.ApplyRefDelta("1", nil, []item.Ref[string]{{Type: refDep, To: "2"}})

	ty := refDep
	assert.Equal(t, []string{"2"}, ix.Outgoing("1", &ty))
	assert.Equal(t, []string{"1"}, ix.Incoming("2", &ty))
}

func TestClosureTransitive(t *testing.T) {
	ix := New[string]()
	ty := refDep
	ix.ApplyRefDelta("1", nil, []item.Ref[string]{{Type: refDep, To: "2"}})
	ix.ApplyRefDelta("2", nil, []item.Ref[string]{{Type: refDep, To: "3"}})

	require.ElementsMatch(t, []string{"2", "3"}, ix.Closure("1", &ty, false))
	require.ElementsMatch(t, []string{"1", "2"}, ix.Closure("3", &ty, true))
}

func TestRemovingEdgeUpdatesBothDirections(t *testing.T) {
	ix := New[string]()
	ref := item.Ref[string]{Type: refDep, To: "2"}
	ix.ApplyRefDelta("1", nil, []item.Ref[string]{ref})
	ix.ApplyRefDelta("1", []item.Ref[string]{ref}, nil)

	ty := refDep
	assert.Empty(t, ix.Outgoing("1", &ty))
	assert.Empty(t, ix.Incoming("2", &ty))
}

func TestPropertyConsistency(t *testing.T) {
	ix := New[string]()
	const propFront item.PropertyType = "front-text"
	ix.ApplyPropertyDelta("1", nil, []item.Property{{Type: propFront, Value: "a"}})

	assert.Equal(t, []string{"1"}, ix.ByProperty(propFront, "a"))

	ix.ApplyPropertyDelta("1", []item.Property{{Type: propFront, Value: "a"}}, nil)
	assert.Empty(t, ix.ByProperty(propFront, "a"))
}

func TestClosureHasNoCyclesInfiniteLoop(t *testing.T) {
	ix := New[string]()
	ty := refDep
	ix.ApplyRefDelta("1", nil, []item.Ref[string]{{Type: refDep, To: "2"}})
	ix.ApplyRefDelta("2", nil, []item.Ref[string]{{Type: refDep, To: "1"}})

	require.ElementsMatch(t, []string{"2"}, ix.Closure("1", &ty, false))
}

func TestOutgoingWithTypeAllTypes(t *testing.T) {
	ix := New[string]()
	const refClass item.RefType = "class-of"
	ix.ApplyRefDelta("1", nil, []item.Ref[string]{
		{Type: refDep, To: "2"},
		{Type: refClass, To: "3"},
	})

	got := ix.OutgoingWithType("1", nil)
	require.Len(t, got, 2)
}
