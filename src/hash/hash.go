// Package hash implements an in-memory extendible hash table: a
// directory-growing associative container used by the buffer pool
// manager as its page table (page id -> frame id). It is a generic
// container and does not know anything about pages or frames.
package hash

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/assert"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
)

// maxDepth caps the number of low hash bits the directory may ever grow
// to distinguish on. The source caps implicitly by hash width (64 bits);
// this implementation makes the cap explicit and fails loudly instead of
// spinning forever on pathological collisions.
const maxDepth = 64

// entry is a key/value pair stored, in insertion order, inside a bucket.
type entry[K comparable, V any] struct {
	key K
	val V
}

// bucket holds up to bucketSize pairs. Directory slots share buckets by
// pointer; the table's single mutex guards every bucket, so buckets carry
// no lock of their own.
type bucket[K comparable, V any] struct {
	localDepth uint32
	entries    []entry[K, V]
}

func newBucket[K comparable, V any](size int, depth uint32) *bucket[K, V] {
	return &bucket[K, V]{
		localDepth: depth,
		entries:    make([]entry[K, V], 0, size),
	}
}

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, e := range b.entries {
		if e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// insert returns false when the key is new and the bucket has no room.
// A duplicate key always succeeds by overwriting the stored value.
func (b *bucket[K, V]) insert(bucketSize int, key K, val V) bool {
	for i := range b.entries {
		if b.entries[i].key == key {
			b.entries[i].val = val
			return true
		}
	}
	if len(b.entries) >= bucketSize {
		return false
	}
	b.entries = append(b.entries, entry[K, V]{key: key, val: val})
	return true
}

func (b *bucket[K, V]) remove(key K) bool {
	for i := range b.entries {
		if b.entries[i].key == key {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Table is an extendible hash table mapping K to V. All externally
// visible operations are serialized by a single mutex.
type Table[K comparable, V any] struct {
	mu sync.Mutex

	bucketSize  int
	globalDepth uint32
	dir         []*bucket[K, V]
	numBuckets  int
}

// New creates a table whose buckets hold at most bucketSize pairs.
// bucketSize must be greater than zero.
func New[K comparable, V any](bucketSize int) *Table[K, V] {
	assert.Assert(bucketSize > 0, "hash: bucket size must be greater than zero")

	b := newBucket[K, V](bucketSize, 0)
	return &Table[K, V]{
		bucketSize:  bucketSize,
		globalDepth: 0,
		dir:         []*bucket[K, V]{b},
		numBuckets:  1,
	}
}

// hashKey is deliberately simple and well-spread over u64: keys in this
// module are small fixed-width identifiers (page ids), so a generic
// string-hash of their default formatting is enough entropy, the same
// trick the teacher's own generic index uses for arbitrary comparable
// keys.
func (t *Table[K, V]) hashKey(key K) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprint(key)))
	return h.Sum64()
}

func (t *Table[K, V]) idx(hv uint64) uint64 {
	mask := uint64(1)<<t.globalDepth - 1
	return hv & mask
}

// Find returns the value associated with key, and whether it was present.
func (t *Table[K, V]) Find(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.dir[t.idx(t.hashKey(key))]
	return b.find(key)
}

// Insert stores the key/value pair, overwriting any existing value for
// the same key. It returns ErrKeyspaceExhausted if collisions force the
// table past the maximum representable depth without making room.
func (t *Table[K, V]) Insert(key K, val V) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	hv := t.hashKey(key)

	for {
		b := t.dir[t.idx(hv)]
		if b.insert(t.bucketSize, key, val) {
			return nil
		}

		if err := t.split(t.idx(hv)); err != nil {
			return err
		}
		// loop: a single split may still leave every moved entry in one
		// bucket, so retry until the insert finds room.
	}
}

// split grows the bucket pointed to by directory slot dirIndex, doubling
// the directory first if the bucket's local depth has caught up with the
// global depth.
func (t *Table[K, V]) split(dirIndex uint64) error {
	b := t.dir[dirIndex]

	if b.localDepth >= maxDepth {
		return common.ErrKeyspaceExhausted
	}

	if b.localDepth == t.globalDepth {
		if t.globalDepth >= maxDepth {
			return common.ErrKeyspaceExhausted
		}
		oldSize := len(t.dir)
		t.dir = append(t.dir, t.dir...)
		for i := 0; i < oldSize; i++ {
			t.dir[i+oldSize] = t.dir[i]
		}
		t.globalDepth++
	}

	mask := uint64(1) << b.localDepth // captured before increment
	b.localDepth++
	sibling := newBucket[K, V](t.bucketSize, b.localDepth)
	t.numBuckets++

	kept := b.entries[:0:0]
	for _, e := range b.entries {
		if t.hashKey(e.key)&mask != 0 {
			sibling.entries = append(sibling.entries, e)
		} else {
			kept = append(kept, e)
		}
	}
	b.entries = kept

	for j := range t.dir {
		if t.dir[j] == b && uint64(j)&mask != 0 {
			t.dir[j] = sibling
		}
	}
	return nil
}

// Remove deletes key from the table, reporting whether it was present.
// Directory and bucket counts are never reduced; directory shrinking on
// deletion is out of scope.
func (t *Table[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.dir[t.idx(t.hashKey(key))]
	return b.remove(key)
}

// GlobalDepth returns the number of low hash bits the directory
// currently distinguishes on.
func (t *Table[K, V]) GlobalDepth() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// LocalDepth returns the local depth of the bucket that directory index
// dirIndex currently points to.
func (t *Table[K, V]) LocalDepth(dirIndex int) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[dirIndex].localDepth
}

// NumBuckets returns the number of distinct buckets in the directory.
func (t *Table[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}

// Entries returns a read-only snapshot of every key/value pair in the
// table, for debugging and tests only.
func (t *Table[K, V]) Entries() map[K]V {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[K]V)
	seen := make(map[*bucket[K, V]]struct{})
	for _, b := range t.dir {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		for _, e := range b.entries {
			out[e.key] = e.val
		}
	}
	return out
}
