package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSetInvalidate(t *testing.T) {
	c := New[string, int](8)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Invalidate("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCacheInvalidateBatch(t *testing.T) {
	c := New[string, int](8)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate("a", "b")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestMaybeItemLoadsOnce(t *testing.T) {
	calls := 0
	m := NewMaybeItem("k", func(k string) (string, error) {
		calls++
		return "v:" + k, nil
	})

	v1, err := m.Get()
	require.NoError(t, err)
	v2, err := m.Get()
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestMaybeItemCachesError(t *testing.T) {
	wantErr := errors.New("boom")
	calls := 0
	m := NewMaybeItem("k", func(string) (string, error) {
		calls++
		return "", wantErr
	})

	_, err := m.Get()
	assert.ErrorIs(t, err, wantErr)
	_, err = m.Get()
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}
