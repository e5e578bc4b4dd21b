// Package common holds the identifiers and sentinel errors shared by the
// hash table, replacer, and buffer pool manager packages.
package common

import "errors"

// PageID identifies a page on the block device. InvalidPageID is the
// reserved sentinel that marks a free frame and that NewPage returns
// when it fails.
type PageID uint32

// InvalidPageID is never a value handed out by an allocator.
const InvalidPageID PageID = 0

// FrameID indexes into the buffer pool's frame array, [0, pool_size).
type FrameID uint32

// PageSize is the fixed size, in bytes, of every page and frame buffer.
const PageSize = 4096

var (
	// ErrPoolExhausted is returned when no frame can be obtained: the
	// free list is empty and every tracked frame is pinned.
	ErrPoolExhausted = errors.New("pagecache: buffer pool exhausted")

	// ErrNotResident names the condition of an operation naming a page
	// that is not currently resident in the pool. The buffer pool manager
	// reports it as a false result rather than returning this error.
	ErrNotResident = errors.New("pagecache: page not resident")

	// ErrPinnedConflict names the condition of deleting a pinned resident
	// page. Manager.DeletePage reports it by returning false rather than
	// returning this error.
	ErrPinnedConflict = errors.New("pagecache: page is pinned")

	// ErrKeyspaceExhausted is returned by the hash table when a split
	// would need to exceed the maximum representable local depth.
	ErrKeyspaceExhausted = errors.New("pagecache: hash table keyspace exhausted")
)
