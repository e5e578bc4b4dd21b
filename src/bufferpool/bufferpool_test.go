package bufferpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/disk"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/replacer"
)

func newTestManager(poolSize int) (*Manager, *disk.MemManager) {
	io := disk.NewMemManager()
	r := replacer.New(common.FrameID(poolSize), 2)
	return New(poolSize, 2, r, io), io
}

func TestNewPageThenFetchIsAHitWithNoIO(t *testing.T) {
	m, io := newTestManager(3)

	id, frame, err := m.NewPage()
	require.NoError(t, err)
	frame.Data()[0] = 0xAB
	require.True(t, m.UnpinPage(id, true))

	counting := &countingIO{MemManager: io}
	m.io = counting

	got, err := m.FetchPage(id)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), got.Data()[0])
	assert.Equal(t, 0, counting.reads, "a resident page must not touch disk")
	require.True(t, m.UnpinPage(id, false))
}

func TestWarmUpFIFOEviction(t *testing.T) {
	m, _ := newTestManager(3)

	p1, _, err := m.NewPage()
	require.NoError(t, err)
	p2, _, err := m.NewPage()
	require.NoError(t, err)
	p3, _, err := m.NewPage()
	require.NoError(t, err)

	require.True(t, m.UnpinPage(p1, false))
	require.True(t, m.UnpinPage(p2, false))
	require.True(t, m.UnpinPage(p3, false))

	p4, frame, err := m.NewPage()
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.NotEqual(t, p1, p4)

	_, ok := m.PinCount(p1)
	assert.False(t, ok, "p1's frame should have been evicted")
}

func TestLRUKPromotionProtectsHotPage(t *testing.T) {
	m, _ := newTestManager(3)

	p1, _, err := m.NewPage()
	require.NoError(t, err)
	p2, _, err := m.NewPage()
	require.NoError(t, err)
	p3, _, err := m.NewPage()
	require.NoError(t, err)

	require.True(t, m.UnpinPage(p1, false))
	require.True(t, m.UnpinPage(p2, false))
	require.True(t, m.UnpinPage(p3, false))

	_, err = m.FetchPage(p1)
	require.NoError(t, err)
	require.True(t, m.UnpinPage(p1, false))
	_, err = m.FetchPage(p1)
	require.NoError(t, err)
	require.True(t, m.UnpinPage(p1, false))

	_, _, err = m.NewPage() // evicts p2, the oldest history entry
	require.NoError(t, err)

	_, ok := m.PinCount(p2)
	assert.False(t, ok, "p2 should have been evicted")
	_, ok = m.PinCount(p1)
	assert.True(t, ok, "p1 is hot and must survive")
}

func TestPinBlocksEvictionAndPoolExhausts(t *testing.T) {
	m, _ := newTestManager(3)

	p1, _, err := m.NewPage()
	require.NoError(t, err)
	_, _, err = m.NewPage()
	require.NoError(t, err)
	_, _, err = m.NewPage()
	require.NoError(t, err)

	require.True(t, m.UnpinPage(p1, false))

	p4, _, err := m.NewPage()
	require.NoError(t, err)
	assert.NotEqual(t, p1, p4)

	_, _, err = m.NewPage()
	assert.ErrorIs(t, err, common.ErrPoolExhausted)
}

func TestDirtyWritebackOnEviction(t *testing.T) {
	m, io := newTestManager(1)

	p, frame, err := m.NewPage()
	require.NoError(t, err)
	frame.Data()[0] = 0x42
	require.True(t, m.UnpinPage(p, true))

	_, _, err = m.NewPage() // forces eviction of p, the only frame
	require.NoError(t, err)

	got := make([]byte, common.PageSize)
	require.NoError(t, io.ReadPage(p, got))
	assert.Equal(t, byte(0x42), got[0])
}

func TestDeleteSemantics(t *testing.T) {
	m, _ := newTestManager(2)

	p, _, err := m.NewPage()
	require.NoError(t, err)

	assert.False(t, m.DeletePage(p), "pinned page must not be deleted")

	require.True(t, m.UnpinPage(p, false))
	assert.True(t, m.DeletePage(p))

	assert.True(t, m.DeletePage(42), "deleting a non-resident page is vacuously true")
}

func TestDeleteAbsentAfterFreesFrameForReuse(t *testing.T) {
	m, _ := newTestManager(1)

	p, _, err := m.NewPage()
	require.NoError(t, err)
	require.True(t, m.UnpinPage(p, false))
	require.True(t, m.DeletePage(p))

	frame, err := m.FetchPage(p)
	require.NoError(t, err, "the in-memory device zeroes rather than errors on a deallocated id")
	assert.Equal(t, byte(0), frame.Data()[0], "the frame must be cleared, not stale")
}

func TestUnpinFalseNeverClearsDirty(t *testing.T) {
	m, io := newTestManager(1)

	p, frame, err := m.NewPage()
	require.NoError(t, err)
	frame.Data()[0] = 7
	require.True(t, m.UnpinPage(p, true))

	_, err = m.FetchPage(p)
	require.NoError(t, err)
	require.True(t, m.UnpinPage(p, false)) // must not clear the dirty bit set above

	// evicting p from the only frame writes it back only if still dirty
	_, _, err = m.NewPage()
	require.NoError(t, err)

	got := make([]byte, common.PageSize)
	require.NoError(t, io.ReadPage(p, got))
	assert.Equal(t, byte(7), got[0])
}

func TestFlushPageOnAbsentPageIsFalse(t *testing.T) {
	m, _ := newTestManager(1)
	assert.False(t, m.FlushPage(common.InvalidPageID))
	assert.False(t, m.FlushPage(999))
}

func TestFlushAllPagesWritesAllDirtyFrames(t *testing.T) {
	m, io := newTestManager(4)

	ids := make([]common.PageID, 0, 4)
	for i := 0; i < 4; i++ {
		id, frame, err := m.NewPage()
		require.NoError(t, err)
		frame.Data()[0] = byte(i + 1)
		require.True(t, m.UnpinPage(id, true))
		ids = append(ids, id)
	}

	require.NoError(t, m.FlushAllPages())

	for i, id := range ids {
		got := make([]byte, common.PageSize)
		require.NoError(t, io.ReadPage(id, got))
		assert.Equal(t, byte(i+1), got[0])
	}
}

func TestFlushAllPagesPropagatesIOError(t *testing.T) {
	m, io := newTestManager(2)

	id, frame, err := m.NewPage()
	require.NoError(t, err)
	frame.Data()[0] = 1
	require.True(t, m.UnpinPage(id, true))

	failing := &failingWriteIO{MemManager: io, failFor: id}
	m.io = failing

	err = m.FlushAllPages()
	assert.Error(t, err)

	pinCount, ok := m.PinCount(id)
	require.True(t, ok)
	assert.Equal(t, uint32(0), pinCount, "the temporary pin taken for the flush must be released")
}

// countingIO wraps a disk.MemManager to count ReadPage calls.
type countingIO struct {
	*disk.MemManager
	reads int
}

func (c *countingIO) ReadPage(id common.PageID, buf []byte) error {
	c.reads++
	return c.MemManager.ReadPage(id, buf)
}

// failingWriteIO fails WritePage for exactly one page id, to exercise
// FlushAllPages' error path.
type failingWriteIO struct {
	*disk.MemManager
	failFor common.PageID
}

func (f *failingWriteIO) WritePage(id common.PageID, buf []byte) error {
	if id == f.failFor {
		return errors.New("injected write failure")
	}
	return f.MemManager.WritePage(id, buf)
}
