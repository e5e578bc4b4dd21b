// Package replacer implements the LRU-K eviction policy over a fixed
// frame id space: it tracks which frames are currently candidates for
// eviction and picks the best victim by backward k-distance.
package replacer

import (
	"container/list"
	"sync"

	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/assert"
	"github.com/Kangkang-wky/cmu15445bustub-private/src/pkg/common"
)

// record is the per-frame bookkeeping kept by the replacer: how many
// times the frame has been accessed, its most-recent-first timestamps
// (only the newest k are ever needed, but we keep them all for
// simplicity and because k is expected to be small), and whether the
// frame is currently a candidate for eviction.
type record struct {
	n          uint64
	timestamps []uint64 // newest first
	evictable  bool

	// elem points at this frame's node in whichever of history/cache it
	// currently lives in, so Evict/Remove/RecordAccess never need to scan
	// for it.
	elem *list.Element
}

// LRUK implements the LRU-K replacement policy described by the buffer
// pool manager's Replacer contract. A single mutex protects all state;
// every method is safe for concurrent use.
type LRUK struct {
	mu sync.Mutex

	capacity common.FrameID
	k        uint64
	clock    uint64
	size     int

	history *list.List // frame ids with n < k, most-recent-at-front
	cache   *list.List // frame ids with n >= k, most-recent-at-front

	records map[common.FrameID]*record
}

// New creates a replacer over frame ids in [0, capacity) using the
// LRU-K policy with the given k. k must be at least 1.
func New(capacity common.FrameID, k uint64) *LRUK {
	assert.Assert(k >= 1, "replacer: k must be at least 1")

	return &LRUK{
		capacity: capacity,
		k:        k,
		history:  list.New(),
		cache:    list.New(),
		records:  make(map[common.FrameID]*record),
	}
}

// RecordAccess notes that frame f was just accessed. It never evicts:
// the replacer's capacity equals the buffer pool's frame count and
// frames are only ever recorded by a manager that already owns them, so
// there is nothing to evict here, only bookkeeping to update.
func (r *LRUK) RecordAccess(f common.FrameID) {
	assert.Assert(f < r.capacity, "replacer: frame %d out of range [0, %d)", f, r.capacity)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock++

	rec, ok := r.records[f]
	if !ok {
		rec = &record{n: 1, timestamps: []uint64{r.clock}, evictable: false}
		if rec.n >= r.k {
			rec.elem = r.cache.PushFront(f)
		} else {
			rec.elem = r.history.PushFront(f)
		}
		r.records[f] = rec
		return
	}

	rec.n++
	rec.timestamps = append([]uint64{r.clock}, rec.timestamps...)

	switch {
	case rec.n == r.k:
		r.history.Remove(rec.elem)
		rec.elem = r.cache.PushFront(f)
	case rec.n > r.k:
		r.cache.Remove(rec.elem)
		rec.elem = r.cache.PushFront(f)
	}
	// rec.n < r.k: history is FIFO by first observation, so its order is
	// left untouched on later accesses.
}

// SetEvictable toggles whether f is a candidate for eviction. It is a
// no-op for untracked frames and never fails.
func (r *LRUK) SetEvictable(f common.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[f]
	if !ok {
		return
	}

	if rec.evictable == evictable {
		return
	}
	rec.evictable = evictable
	if evictable {
		r.size++
	} else {
		r.size--
	}
}

// Remove drops all state for a tracked, evictable frame f. It is a
// no-op for untracked frames and panics if f is tracked but currently
// non-evictable.
func (r *LRUK) Remove(f common.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[f]
	if !ok {
		return
	}
	assert.Assert(rec.evictable, "replacer: Remove called on non-evictable frame %d", f)

	r.dropLocked(f, rec)
}

func (r *LRUK) dropLocked(f common.FrameID, rec *record) {
	if rec.n < r.k {
		r.history.Remove(rec.elem)
	} else {
		r.cache.Remove(rec.elem)
	}
	delete(r.records, f)
	r.size--
}

// Size returns the number of tracked, evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Evict selects the evictable frame with the greatest backward
// k-distance, clears its state, and returns it. History is scanned
// oldest-to-newest first (so ties among "+inf" frames resolve to the
// earliest first observation); only if no history frame is evictable
// does it fall back to the evictable cache frame whose k-th most recent
// access is oldest.
func (r *LRUK) Evict() (common.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return 0, false
	}

	for e := r.history.Back(); e != nil; e = e.Prev() {
		f := e.Value.(common.FrameID)
		if rec := r.records[f]; rec.evictable {
			r.dropLocked(f, rec)
			return f, true
		}
	}

	var victim *record
	var victimID common.FrameID
	for e := r.cache.Back(); e != nil; e = e.Prev() {
		f := e.Value.(common.FrameID)
		rec := r.records[f]
		if rec.evictable && (victim == nil || rec.timestamps[r.k-1] < victim.timestamps[r.k-1]) {
			victim, victimID = rec, f
		}
	}
	if victim != nil {
		r.dropLocked(victimID, victim)
		return victimID, true
	}

	return 0, false
}
