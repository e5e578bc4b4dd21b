// Package disk provides the block-device collaborator the buffer pool
// manager reads pages from and writes pages back to. The core page
// cache treats this as an external dependency (§1 of the design): it
// only needs allocate/deallocate/read/write, so this package offers two
// interchangeable implementations — a file-backed one built on
// afero.Fs, and a pure in-memory one for tests that don't care about
// persistence at all.
package disk

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
)

// ErrNoSuchPage is returned by Manager.ReadPage when the requested page
// id was never allocated (or was deallocated) on this device.
var ErrNoSuchPage = errors.New("disk: no such page")

const pageFileFlags = os.O_RDWR | os.O_CREATE

// Manager is a file-backed block device: pages are fixed common.PageSize
// slots at a deterministic offset in a single flat file on fs.
type Manager struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	file afero.File

	nextID    atomic.Uint64
	allocated map[common.PageID]struct{}
}

// Open opens (creating if necessary) a page file at path on fs. When the
// file does not yet exist, it is created via a uuid-suffixed temp name
// and renamed into place, avoiding a half-written file being mistaken
// for a valid empty store if Open is interrupted.
func Open(fs afero.Fs, path string) (*Manager, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("disk: checking %s: %w", path, err)
	}
	if !exists {
		tmp := path + ".tmp-" + uuid.NewString()
		f, err := fs.Create(tmp)
		if err != nil {
			return nil, fmt.Errorf("disk: creating %s: %w", tmp, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("disk: closing %s: %w", tmp, err)
		}
		if err := fs.Rename(tmp, path); err != nil {
			return nil, fmt.Errorf("disk: renaming %s to %s: %w", tmp, path, err)
		}
	}

	f, err := fs.OpenFile(path, pageFileFlags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("disk: opening %s: %w", path, err)
	}

	m := &Manager{
		fs:        fs,
		path:      path,
		file:      f,
		allocated: make(map[common.PageID]struct{}),
	}
	m.nextID.Store(uint64(common.InvalidPageID) + 1)
	return m, nil
}

// AllocateID assigns a fresh, strictly monotonic page id.
func (m *Manager) AllocateID() common.PageID {
	id := common.PageID(m.nextID.Add(1) - 1)

	m.mu.Lock()
	m.allocated[id] = struct{}{}
	m.mu.Unlock()

	return id
}

// DeallocateID marks id as no longer in use. There is no reuse
// guarantee: a deallocated id simply stops being considered present.
func (m *Manager) DeallocateID(id common.PageID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.allocated, id)
}

// ReadPage fills buf (which must be common.PageSize bytes) with the
// on-disk contents of id.
func (m *Manager) ReadPage(id common.PageID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.allocated[id]; !ok {
		return ErrNoSuchPage
	}

	offset := int64(id) * common.PageSize
	n, err := m.file.ReadAt(buf[:common.PageSize], offset)
	if err != nil && n == 0 {
		// a page that was allocated but never written back yet: give the
		// caller a zeroed buffer rather than failing.
		for i := range buf[:common.PageSize] {
			buf[i] = 0
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("disk: reading page %d: %w", id, err)
	}
	return nil
}

// WritePage persists buf (common.PageSize bytes) as the contents of id.
func (m *Manager) WritePage(id common.PageID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(id) * common.PageSize
	if _, err := m.file.WriteAt(buf[:common.PageSize], offset); err != nil {
		return fmt.Errorf("disk: writing page %d: %w", id, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}
