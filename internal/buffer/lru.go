package buffer

import (
	"container/list"
	"sync"
)

type lruEntry struct {
	frameID   int
	evictable bool
}

// LRUReplacer keeps every tracked frame on a recency list, most recently
// touched at the front. Victims are taken from the back, skipping frames
// currently marked not evictable.
type LRUReplacer struct {
	mu      sync.Mutex
	order   *list.List               // of *lruEntry, front = most recent
	byFrame map[int]*list.Element
	size    int // evictable entries
}

var _ Replacer = (*LRUReplacer)(nil)

func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		order:   list.New(),
		byFrame: make(map[int]*list.Element),
	}
}

func (r *LRUReplacer) Victim() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for e := r.order.Back(); e != nil; e = e.Prev() {
		ent := e.Value.(*lruEntry)
		if !ent.evictable {
			continue
		}
		r.order.Remove(e)
		delete(r.byFrame, ent.frameID)
		r.size--
		return ent.frameID, true
	}
	return -1, false
}

func (r *LRUReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byFrame[frameID]
	if !ok {
		r.byFrame[frameID] = r.order.PushFront(&lruEntry{frameID: frameID})
		return
	}
	ent := e.Value.(*lruEntry)
	if ent.evictable {
		ent.evictable = false
		r.size--
	}
	r.order.MoveToFront(e)
}

func (r *LRUReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byFrame[frameID]
	if !ok {
		return
	}
	ent := e.Value.(*lruEntry)
	if !ent.evictable {
		ent.evictable = true
		r.size++
	}
}

func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
