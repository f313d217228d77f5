package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFIFOGetPut(t *testing.T) {
	t.Parallel()

	c := NewFIFO[string, int](3)
	_, ok := c.Get("a")
	require.False(t, ok)

	c.Put("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 1, c.Len())
}

func TestFIFOEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	c := NewFIFO[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Put("d", 4)

	require.Equal(t, 3, c.Len())
	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("d"))

	c.Put("e", 5)
	require.False(t, c.Contains("b"))
	require.True(t, c.Contains("c"))
}

func TestFIFOUpdateKeepsInsertionSlot(t *testing.T) {
	t.Parallel()

	c := NewFIFO[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Refreshing "a" must not promote it; it is still the oldest.
	c.Put("a", 10)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)

	c.Put("c", 3)
	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("c"))
}

func TestFIFONeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	c := NewFIFO[string, int](200)
	for i := 0; i < 500; i++ {
		c.Put(fmt.Sprintf("key-%d", i), i)
		require.LessOrEqual(t, c.Len(), 200)
	}
	require.Equal(t, 200, c.Len())

	// The survivors are exactly the newest 200 inserts.
	require.False(t, c.Contains("key-299"))
	require.True(t, c.Contains("key-300"))
	require.True(t, c.Contains("key-499"))
}
