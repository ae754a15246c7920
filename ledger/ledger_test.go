package ledger

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, key, kind string, action any) Event {
	t.Helper()
	b, err := json.Marshal(action)
	require.NoError(t, err)
	return Event{Kind: kind, Key: key, Action: b}
}

func TestOpenEmptyLedger(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, l.Iter())
	_, ok := l.CurrentHash()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
}

func TestAppendLeafRoundTrip(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)

	ev := mustEvent(t, "1", "note", map[string]string{"op": "create"})
	h, err := l.Append(context.Background(), Leaf{Event: ev})
	require.NoError(t, err)
	assert.NotEmpty(t, h)

	got := l.Iter()
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])

	cur, ok := l.CurrentHash()
	require.True(t, ok)
	assert.Equal(t, h, cur)
}

func TestAppendGroupIsAtomicAndOrdered(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)

	e1 := mustEvent(t, "1", "note", map[string]string{"op": "create"})
	e2 := mustEvent(t, "2", "note", map[string]string{"op": "create"})
	e3 := mustEvent(t, "1", "note", map[string]string{"op": "link", "to": "2"})

	grp, err := NewGroup(Leaf{Event: e1}, Leaf{Event: e2}, Leaf{Event: e3})
	require.NoError(t, err)

	_, err = l.Append(context.Background(), grp)
	require.NoError(t, err)

	got := l.Iter()
	require.Len(t, got, 3)
	assert.Equal(t, []Event{e1, e2, e3}, got)
	assert.Equal(t, 1, l.Len(), "one grouped commit, three flattened events")
}

func TestNewGroupRejectsEmpty(t *testing.T) {
	_, err := NewGroup()
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestReopenReplaysFromDisk(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ev := mustEvent(t, "k", "note", map[string]int{"n": i})
		_, err := l.Append(context.Background(), Leaf{Event: ev})
		require.NoError(t, err)
	}

	l2, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, l.Iter(), l2.Iter())
	assert.Equal(t, l.Len(), l2.Len())
}

func TestCommitNamingIsDensePadded(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)

	ev := mustEvent(t, "1", "note", map[string]string{"op": "create"})
	_, err = l.Append(context.Background(), Leaf{Event: ev})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "entries", "000000"))
}

func TestNonNumericNamesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)

	ev := mustEvent(t, "1", "note", map[string]string{"op": "create"})
	_, err = l.Append(context.Background(), Leaf{Event: ev})
	require.NoError(t, err)

	require.NoError(t, writeStray(t, dir))

	l2, err := Open(dir)
	require.NoError(t, err)
	assert.Len(t, l2.Iter(), 1)
}

func writeStray(t *testing.T, dir string) error {
	t.Helper()
	return atomicWriteFile(filepath.Join(dir, "entries", "README"), []byte("not an entry"))
}

func TestMalformedLeafIsSkippedAndWarned(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)

	ev := mustEvent(t, "1", "note", map[string]string{"op": "create"})
	_, err = l.Append(context.Background(), Leaf{Event: ev})
	require.NoError(t, err)

	require.NoError(t, atomicWriteFile(filepath.Join(dir, "entries", "000001"), []byte("{not json")))

	l2, err := Open(dir)
	require.NoError(t, err)
	assert.Len(t, l2.Iter(), 1)
	assert.NotEmpty(t, l2.Warnings())
}

func TestIsRetryableIOError(t *testing.T) {
	assert.False(t, isRetryableIOError(nil))
}
