// Package bufferpool implements the buffer pool manager: the single
// owner of a fixed frame array that orchestrates the page table (an
// extendible hash table) and the LRU-K replacer to satisfy page fetch,
// creation, unpin, flush, and delete requests from higher layers.
package bufferpool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/hash"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/assert"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
)

// IO is the block-device collaborator the manager reads pages from and
// writes pages back to. It is the only boundary this package crosses to
// reach stable storage; see package disk for concrete implementations.
type IO interface {
	AllocateID() common.PageID
	DeallocateID(id common.PageID)
	ReadPage(id common.PageID, buf []byte) error
	WritePage(id common.PageID, buf []byte) error
}

// Replacer tracks which frame ids are evictable and selects victims.
// *replacer.LRUK satisfies this interface.
type Replacer interface {
	RecordAccess(f common.FrameID)
	SetEvictable(f common.FrameID, evictable bool)
	Remove(f common.FrameID)
	Size() int
	Evict() (common.FrameID, bool)
}

// Frame is one fixed-size slot in the pool. Callers that obtained a *Frame
// from NewPage/FetchPage hold a transient borrow valid only while their pin is
// outstanding.
type Frame struct {
	pageID   common.PageID
	buf      []byte
	pinCount uint32
	isDirty  bool
}

// Data returns the frame's mutable page buffer.
func (f *Frame) Data() []byte { return f.buf }

// PageID returns the id of the page currently resident in the frame.
func (f *Frame) PageID() common.PageID { return f.pageID }

// IsDirty reports whether the frame's buffer has been modified since
// its last flush.
func (f *Frame) IsDirty() bool { return f.isDirty }

func newFrame() Frame {
	return Frame{buf: make([]byte, common.PageSize)}
}

// Manager is the buffer pool manager: it owns pool_size frames, the
// page table, the free list, and the replacer, all behind a single
// mutex, and is the only component in this module that talks to the
// block device.
type Manager struct {
	mu sync.Mutex

	id       uuid.UUID
	poolSize int

	frames    []Frame
	freeList  []common.FrameID
	pageTable *hash.Table[common.PageID, common.FrameID]
	replacer  Replacer
	io        IO

	flushConcurrency int
	log              *zap.SugaredLogger
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithLogger attaches a structured logger. The default is a no-op.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithFlushConcurrency bounds how many dirty frames FlushAllPages writes
// back concurrently. The default is the pool size.
func WithFlushConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.flushConcurrency = n
		}
	}
}

// New creates a buffer pool manager over poolSize frames, with a page
// table bucket size of bucketSize, backed by replacer and io.
func New(poolSize int, bucketSize int, replacer Replacer, io IO, opts ...Option) *Manager {
	assert.Assert(poolSize > 0, "bufferpool: pool size must be greater than zero")

	frames := make([]Frame, poolSize)
	freeList := make([]common.FrameID, poolSize)
	for i := range frames {
		frames[i] = newFrame()
		freeList[i] = common.FrameID(i)
	}

	m := &Manager{
		id:               uuid.New(),
		poolSize:         poolSize,
		frames:           frames,
		freeList:         freeList,
		pageTable:        hash.New[common.PageID, common.FrameID](bucketSize),
		replacer:         replacer,
		io:               io,
		flushConcurrency: poolSize,
		log:              zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PoolSize returns the total number of frames the manager owns.
func (m *Manager) PoolSize() int { return m.poolSize }

// victim acquires an empty frame, preferring the free list, and falling
// back to evicting a tracked frame. When it evicts, it writes the
// victim's page back first if dirty and removes it from the page table.
// Callers must hold m.mu.
func (m *Manager) victim() (common.FrameID, error) {
	if n := len(m.freeList); n > 0 {
		f := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return f, nil
	}

	f, ok := m.replacer.Evict()
	if !ok {
		return 0, common.ErrPoolExhausted
	}

	frame := &m.frames[f]
	assert.Assert(frame.pinCount == 0, "bufferpool: victim frame %d is pinned", f)

	if frame.isDirty {
		if err := m.io.WritePage(frame.pageID, frame.buf); err != nil {
			// the frame is still the resident copy of its old page; put it
			// back under replacer tracking so it isn't silently lost from
			// every bookkeeping structure.
			m.replacer.RecordAccess(f)
			m.replacer.SetEvictable(f, true)
			return 0, fmt.Errorf("bufferpool: writing back page %d: %w", frame.pageID, err)
		}
	}
	m.pageTable.Remove(frame.pageID)
	return f, nil
}

// NewPage allocates a fresh page id, binds it to a frame, and returns a
// pinned, zeroed handle to that frame.
func (m *Manager) NewPage() (common.PageID, *Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.victim()
	if err != nil {
		return common.InvalidPageID, nil, err
	}

	id := m.io.AllocateID()
	frame := &m.frames[f]
	clear(frame.buf)
	frame.pageID = id
	frame.pinCount = 1
	frame.isDirty = false

	if err := m.pageTable.Insert(id, f); err != nil {
		m.freeList = append(m.freeList, f)
		return common.InvalidPageID, nil, err
	}

	m.replacer.RecordAccess(f)
	m.replacer.SetEvictable(f, false)

	m.log.Debugw("new_page", "pool", m.id, "page_id", id, "frame_id", f)
	return id, frame, nil
}

// FetchPage returns a pinned handle to page p, reading it in from disk
// if it is not already resident.
func (m *Manager) FetchPage(p common.PageID) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.pageTable.Find(p); ok {
		frame := &m.frames[f]
		frame.pinCount++
		m.replacer.RecordAccess(f)
		m.replacer.SetEvictable(f, false)
		return frame, nil // a hit must return here, never fall through to the miss path
	}

	f, err := m.victim()
	if err != nil {
		return nil, err
	}

	frame := &m.frames[f]
	if err := m.io.ReadPage(p, frame.buf); err != nil {
		m.freeList = append(m.freeList, f)
		return nil, fmt.Errorf("bufferpool: reading page %d: %w", p, err)
	}
	frame.pageID = p
	frame.pinCount = 1
	frame.isDirty = false

	if err := m.pageTable.Insert(p, f); err != nil {
		m.freeList = append(m.freeList, f)
		return nil, err
	}

	m.replacer.RecordAccess(f)
	m.replacer.SetEvictable(f, false)

	m.log.Debugw("fetch_page", "pool", m.id, "page_id", p, "frame_id", f)
	return frame, nil
}

// UnpinPage decrements p's pin count. A true dirty flag sets the
// frame's dirty bit; a false one never clears a previously set bit. It
// reports whether p was resident with a positive pin count.
func (m *Manager) UnpinPage(p common.PageID, dirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.pageTable.Find(p)
	if !ok {
		return false
	}

	frame := &m.frames[f]
	if frame.pinCount == 0 {
		return false
	}

	frame.pinCount--
	if dirty {
		frame.isDirty = true
	}
	if frame.pinCount == 0 {
		m.replacer.SetEvictable(f, true)
	}
	return true
}

// FlushPage writes p's current buffer to disk unconditionally and
// clears its dirty bit. It reports whether p was resident and the write
// succeeded.
func (m *Manager) FlushPage(p common.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked(p)
}

func (m *Manager) flushLocked(p common.PageID) bool {
	if p == common.InvalidPageID {
		return false
	}

	f, ok := m.pageTable.Find(p)
	if !ok {
		return false
	}

	frame := &m.frames[f]
	if err := m.io.WritePage(p, frame.buf); err != nil {
		m.log.Errorw("flush_page failed", "pool", m.id, "page_id", p, "err", err)
		return false
	}
	frame.isDirty = false
	return true
}

// FlushAllPages writes back every resident dirty page. Flush order is
// unspecified; writebacks for distinct frames run concurrently, bounded
// by flushConcurrency, with the pool latch dropped around the actual
// I/O. Each frame to be flushed is pinned before the latch drops (so it
// cannot be re-evicted or reassigned out from under the write) and
// unpinned again once its write completes.
func (m *Manager) FlushAllPages() error {
	type job struct {
		pageID  common.PageID
		frameID common.FrameID
	}

	m.mu.Lock()
	var jobs []job
	for i := range m.frames {
		frame := &m.frames[i]
		if frame.pageID == common.InvalidPageID || !frame.isDirty {
			continue
		}
		frame.pinCount++
		m.replacer.SetEvictable(common.FrameID(i), false)
		jobs = append(jobs, job{pageID: frame.pageID, frameID: common.FrameID(i)})
	}
	m.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}

	pool, err := ants.NewPool(m.flushConcurrency)
	if err != nil {
		return fmt.Errorf("bufferpool: creating flush worker pool: %w", err)
	}
	defer pool.Release()

	var g errgroup.Group
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			done := make(chan error, 1)
			submitErr := pool.Submit(func() {
				done <- m.io.WritePage(j.pageID, m.frames[j.frameID].buf)
			})
			if submitErr != nil {
				return submitErr
			}
			return <-done
		})
	}
	flushErr := g.Wait()

	m.mu.Lock()
	for _, j := range jobs {
		frame := &m.frames[j.frameID]
		if flushErr == nil {
			frame.isDirty = false
		}
		frame.pinCount--
		if frame.pinCount == 0 {
			m.replacer.SetEvictable(j.frameID, true)
		}
	}
	m.mu.Unlock()

	if flushErr != nil {
		m.log.Errorw("flush_all_pages failed", "pool", m.id, "err", flushErr)
	}
	return flushErr
}

// DeletePage removes p from the pool. It is vacuously true if p is not
// resident, false (without mutating anything) if p is resident and
// pinned, and true after writing back (only if dirty), freeing the
// frame, and telling io to deallocate the id.
func (m *Manager) DeletePage(p common.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.pageTable.Find(p)
	if !ok {
		return true
	}

	frame := &m.frames[f]
	if frame.pinCount > 0 {
		return false
	}

	if frame.isDirty {
		if err := m.io.WritePage(p, frame.buf); err != nil {
			m.log.Errorw("delete_page: writeback failed", "pool", m.id, "page_id", p, "err", err)
			return false
		}
	}

	m.replacer.Remove(f)
	m.pageTable.Remove(p)
	m.freeList = append(m.freeList, f)

	frame.pageID = common.InvalidPageID
	frame.isDirty = false
	clear(frame.buf)

	m.io.DeallocateID(p)
	return true
}

// PinCount returns p's current pin count and whether p is resident, for
// debugging and tests only.
func (m *Manager) PinCount(p common.PageID) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.pageTable.Find(p)
	if !ok {
		return 0, false
	}
	return m.frames[f].pinCount, true
}

// FrameInfo is a point-in-time snapshot of one resident frame, for the
// inspect CLI subcommand and tests.
type FrameInfo struct {
	FrameID  common.FrameID
	PageID   common.PageID
	PinCount uint32
	Dirty    bool
}

// Entries snapshots every resident page's frame binding and dirty/pin
// state, along with the page table's directory depth.
func (m *Manager) Entries() (frames []FrameInfo, globalDepth uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for p, f := range m.pageTable.Entries() {
		frame := &m.frames[f]
		frames = append(frames, FrameInfo{
			FrameID:  f,
			PageID:   p,
			PinCount: frame.pinCount,
			Dirty:    frame.isDirty,
		})
	}
	return frames, m.pageTable.GlobalDepth()
}
