package disk

import (
	"sync"
	"sync/atomic"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
)

// MemManager is a pure in-memory block device: pages live only for the
// lifetime of the process. It implements the same IO interface as
// Manager and is useful for tests, where persistence is not the point.
// Unlike Manager, ReadPage of an id that was never written or was
// deallocated zeroes buf instead of failing.
type MemManager struct {
	mu     sync.Mutex
	pages  map[common.PageID][]byte
	nextID atomic.Uint64
}

// NewMemManager creates an empty in-memory block device.
func NewMemManager() *MemManager {
	m := &MemManager{pages: make(map[common.PageID][]byte)}
	m.nextID.Store(uint64(common.InvalidPageID) + 1)
	return m
}

// AllocateID assigns a fresh, strictly monotonic page id.
func (m *MemManager) AllocateID() common.PageID {
	return common.PageID(m.nextID.Add(1) - 1)
}

// DeallocateID drops id's stored bytes, if any.
func (m *MemManager) DeallocateID(id common.PageID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
}

// ReadPage copies id's stored bytes into buf, or zeroes buf if id was
// never written.
func (m *MemManager) ReadPage(id common.PageID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.pages[id]
	if !ok {
		for i := range buf[:common.PageSize] {
			buf[i] = 0
		}
		return nil
	}
	copy(buf[:common.PageSize], stored)
	return nil
}

// WritePage stores a copy of buf as id's contents.
func (m *MemManager) WritePage(id common.PageID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, common.PageSize)
	copy(stored, buf[:common.PageSize])
	m.pages[id] = stored
	return nil
}
