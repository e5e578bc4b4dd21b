package hash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindInsertRoundTrip(t *testing.T) {
	tbl := New[int, string](4)

	require.NoError(t, tbl.Insert(1, "a"))
	v, ok := tbl.Find(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	require.NoError(t, tbl.Insert(1, "b"))
	v, ok = tbl.Find(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestRemove(t *testing.T) {
	tbl := New[int, string](4)
	require.NoError(t, tbl.Insert(1, "a"))

	assert.True(t, tbl.Remove(1))
	_, ok := tbl.Find(1)
	assert.False(t, ok)

	assert.False(t, tbl.Remove(1))
}

func TestFindMissing(t *testing.T) {
	tbl := New[int, string](4)
	_, ok := tbl.Find(42)
	assert.False(t, ok)
}

func TestBucketSizeZeroRejected(t *testing.T) {
	assert.Panics(t, func() {
		New[int, string](0)
	})
}

func TestSplitGrowsDepthAndPreservesEntries(t *testing.T) {
	tbl := New[int, string](2)

	n := 200
	for i := 0; i < n; i++ {
		require.NoError(t, tbl.Insert(i, fmt.Sprintf("v%d", i)))
	}

	for i := 0; i < n; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok, "key %d should be present", i)
		assert.Equal(t, fmt.Sprintf("v%d", i), v)
	}

	assert.Greater(t, tbl.NumBuckets(), 1)
	assert.GreaterOrEqual(t, tbl.GlobalDepth(), uint32(1))

	for i := 0; i < (1 << tbl.GlobalDepth()); i++ {
		assert.LessOrEqual(t, tbl.LocalDepth(i), tbl.GlobalDepth())
	}
}

func TestDirectoryDoublesOnlyWhenLocalEqualsGlobal(t *testing.T) {
	tbl := New[int, string](1)

	require.NoError(t, tbl.Insert(0, "zero"))
	before := tbl.GlobalDepth()

	require.NoError(t, tbl.Insert(1, "one"))
	after := tbl.GlobalDepth()

	// the full depth-0 bucket had local depth == global depth, so it doubled
	assert.Greater(t, after, before)

	// keys 1 and 3 share hash bit 0 but not bit 1: splitting their bucket
	// (local depth 1 == global depth 1) doubles the directory to depth 2.
	require.NoError(t, tbl.Insert(3, "three"))
	require.Equal(t, uint32(2), tbl.GlobalDepth())

	// keys 0 and 2 share hash bit 0 but not bit 1: their bucket has local
	// depth 1 < global depth 2, so it splits without doubling.
	require.NoError(t, tbl.Insert(2, "two"))
	assert.Equal(t, uint32(2), tbl.GlobalDepth())
	assert.Equal(t, 4, tbl.NumBuckets())
}

func TestEntriesSnapshot(t *testing.T) {
	tbl := New[int, string](2)
	require.NoError(t, tbl.Insert(1, "a"))
	require.NoError(t, tbl.Insert(2, "b"))

	got := tbl.Entries()
	assert.Equal(t, map[int]string{1: "a", 2: "b"}, got)
}

func TestConcurrentInsertFind(t *testing.T) {
	tbl := New[int, int](4)
	done := make(chan struct{})

	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				key := g*100 + i
				_ = tbl.Insert(key, key)
				tbl.Find(key)
			}
		}(g)
	}

	for g := 0; g < 8; g++ {
		<-done
	}
}
