package staging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speki-go/ledgerstore"
	"github.com/speki-go/ledgerstore/item"
	"github.com/speki-go/ledgerstore/itemstore"
	"github.com/speki-go/ledgerstore/ledger"
)

const refCites item.RefType = "cites"

type stageAction struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref,omitempty"`
}

type stageItem struct {
	id      string
	deleted bool
	refs    []string
}

func (n stageItem) ItemID() string    { return n.id }
func (n stageItem) IsTombstone() bool { return n.deleted }
func (n stageItem) OutgoingRefs() []item.Ref[string] {
	out := make([]item.Ref[string], len(n.refs))
	for i, r := range n.refs {
		out[i] = item.Ref[string]{Type: refCites, To: r}
	}
	return out
}
func (n stageItem) Properties() []item.Property { return nil }

func (n stageItem) Apply(a stageAction) (stageItem, error) {
	switch a.Kind {
	case "create":
		n.id = a.Ref
		return n, nil
	case "addRef":
		n.refs = append(append([]string{}, n.refs...), a.Ref)
		return n, nil
	case "delete":
		n.deleted = true
		n.refs = nil
		return n, nil
	default:
		return n, ledgerstore.ErrInvalidEvent
	}
}

func newStageStore(t *testing.T) *itemstore.Store[string, stageAction, stageItem] {
	t.Helper()
	l, err := ledger.Open(t.TempDir())
	require.NoError(t, err)
	s, err := itemstore.NewStore[string, stageAction, stageItem](l, "stageitem",
		func() stageItem { return stageItem{} },
		func(k string) string { return k },
		func(s string) (string, error) { return s, nil },
		64)
	require.NoError(t, err)
	return s
}

func TestStagingInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := newStageStore(t)
	st := New(store)

	_, err := st.Enqueue(ctx, "a", stageAction{Kind: "create", Ref: "a"})
	require.NoError(t, err)

	_, existed := storeLoadOK(ctx, store, "a")
	assert.False(t, existed)

	require.NoError(t, st.Commit(ctx))

	_, existed = storeLoadOK(ctx, store, "a")
	assert.True(t, existed)
}

func storeLoadOK(ctx context.Context, s *itemstore.Store[string, stageAction, stageItem], key string) (*itemstore.SavedItem[string, stageAction, stageItem], bool) {
	si, err := s.Load(ctx, key)
	if err != nil {
		return nil, false
	}
	return si, true
}

func TestStagingReadsSeeOwnPendingWrites(t *testing.T) {
	ctx := context.Background()
	store := newStageStore(t)
	st := New(store)

	_, err := st.Enqueue(ctx, "a", stageAction{Kind: "create", Ref: "a"})
	require.NoError(t, err)

	v, live, err := st.Load(ctx, "a")
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "a", v.id)
}

func TestStagingRollbackDiscardsPending(t *testing.T) {
	ctx := context.Background()
	store := newStageStore(t)
	st := New(store)

	_, err := st.Enqueue(ctx, "a", stageAction{Kind: "create", Ref: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pending())

	st.Rollback()
	assert.Equal(t, 0, st.Pending())

	_, live, err := st.Load(ctx, "a")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestStagingGroupedCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newStageStore(t)
	st := New(store)

	_, err := st.Enqueue(ctx, "a", stageAction{Kind: "create", Ref: "a"})
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "b", stageAction{Kind: "create", Ref: "b"})
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "a", stageAction{Kind: "addRef", Ref: "b"})
	require.NoError(t, err)

	require.NoError(t, st.Commit(ctx))
	assert.Equal(t, 1, store.Ledger().Len())

	ty := refCites
	assert.Equal(t, []string{"b"}, store.GetReferenceCache("a", &ty))
}

// TestStagingCommitRejectsDeleteWithSurvivingDependent confirms the
// dependents check runs at Commit, not Enqueue: the delete is accepted
// into the batch (Enqueue succeeds), and only fails once Commit
// evaluates the batch's final state and finds "a" still pointing at "b".
func TestStagingCommitRejectsDeleteWithSurvivingDependent(t *testing.T) {
	ctx := context.Background()
	store := newStageStore(t)

	seed := New(store)
	_, err := seed.Enqueue(ctx, "a", stageAction{Kind: "create", Ref: "a"})
	require.NoError(t, err)
	_, err = seed.Enqueue(ctx, "b", stageAction{Kind: "create", Ref: "b"})
	require.NoError(t, err)
	_, err = seed.Enqueue(ctx, "a", stageAction{Kind: "addRef", Ref: "b"})
	require.NoError(t, err)
	require.NoError(t, seed.Commit(ctx))

	st := New(store)
	_, err = st.Enqueue(ctx, "b", stageAction{Kind: "delete"})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Pending())

	err = st.Commit(ctx)
	assert.True(t, ledgerstore.IsHasDependents(err))
	assert.Equal(t, 1, st.Pending())
}

// TestStagingS5RejectedBatchLeavesPendingEventsForInspection reproduces
// the create/modify/delete-while-still-depended-on scenario: a single
// Staging enqueues three actions against a fresh key ("4") that an
// already-persisted item ("5") depends on. Commit must fail with
// HasDependents, the base store must never see "4" (Commit never
// reached the ledger), and the batch's three pending events must remain
// staged for inspection rather than being discarded.
func TestStagingS5RejectedBatchLeavesPendingEventsForInspection(t *testing.T) {
	ctx := context.Background()
	store := newStageStore(t)

	seed := New(store)
	_, err := seed.Enqueue(ctx, "5", stageAction{Kind: "create", Ref: "5"})
	require.NoError(t, err)
	_, err = seed.Enqueue(ctx, "5", stageAction{Kind: "addRef", Ref: "4"})
	require.NoError(t, err)
	require.NoError(t, seed.Commit(ctx))

	st := New(store)
	_, err = st.Enqueue(ctx, "4", stageAction{Kind: "create", Ref: "4"})
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "4", stageAction{Kind: "addRef", Ref: "x"})
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "4", stageAction{Kind: "delete"})
	require.NoError(t, err)
	require.Equal(t, 3, st.Pending())

	err = st.Commit(ctx)
	assert.True(t, ledgerstore.IsHasDependents(err))

	_, err = store.Load(ctx, "4")
	assert.True(t, ledgerstore.IsNotFound(err))

	assert.Equal(t, 3, st.Pending())
}

func TestStagingAllowsDeleteWhenDependentAlsoDeletedInBatch(t *testing.T) {
	ctx := context.Background()
	store := newStageStore(t)

	seed := New(store)
	_, err := seed.Enqueue(ctx, "a", stageAction{Kind: "create", Ref: "a"})
	require.NoError(t, err)
	_, err = seed.Enqueue(ctx, "b", stageAction{Kind: "create", Ref: "b"})
	require.NoError(t, err)
	_, err = seed.Enqueue(ctx, "a", stageAction{Kind: "addRef", Ref: "b"})
	require.NoError(t, err)
	require.NoError(t, seed.Commit(ctx))

	st := New(store)
	_, err = st.Enqueue(ctx, "a", stageAction{Kind: "delete"})
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "b", stageAction{Kind: "delete"})
	require.NoError(t, err)

	require.NoError(t, st.Commit(ctx))
	_, live, err := st.Load(ctx, "b")
	require.NoError(t, err)
	assert.False(t, live)
}
