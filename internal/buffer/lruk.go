package buffer

import "sync"

type lrukEntry struct {
	history   []uint64 // logical timestamps of the most recent K accesses, oldest first
	evictable bool
}

// LRUKReplacer evicts the frame with the largest backward K-distance. A frame
// with fewer than K recorded accesses counts as infinitely distant; among
// those the one with the oldest first access loses. Otherwise the victim is
// the frame whose K-th most recent access is oldest.
//
// Timestamps are a logical counter advanced on every recorded access, so the
// ordering is deterministic under the replacer mutex.
type LRUKReplacer struct {
	mu      sync.Mutex
	k       int
	now     uint64
	entries map[int]*lrukEntry
	size    int // evictable entries
}

var _ Replacer = (*LRUKReplacer)(nil)

func NewLRUKReplacer(k int) *LRUKReplacer {
	if k <= 0 {
		k = 1
	}
	return &LRUKReplacer{
		k:       k,
		entries: make(map[int]*lrukEntry),
	}
}

func (r *LRUKReplacer) Victim() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	victim := -1
	victimInf := false
	var victimTS uint64

	for id, ent := range r.entries {
		if !ent.evictable {
			continue
		}
		inf := len(ent.history) < r.k
		// The comparison key: first recorded access for infinite-distance
		// frames, K-th most recent access otherwise. With the history bounded
		// to K entries both are history[0].
		ts := ent.history[0]
		switch {
		case victim == -1,
			inf && !victimInf,
			inf == victimInf && ts < victimTS:
			victim, victimInf, victimTS = id, inf, ts
		}
	}
	if victim == -1 {
		return -1, false
	}
	delete(r.entries, victim)
	r.size--
	return victim, true
}

// Pin records an access at the current timestamp and marks the frame not
// evictable, registering it first if unknown.
func (r *LRUKReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.now++
	ent, ok := r.entries[frameID]
	if !ok {
		ent = &lrukEntry{history: make([]uint64, 0, r.k)}
		r.entries[frameID] = ent
	}
	if len(ent.history) == r.k {
		copy(ent.history, ent.history[1:])
		ent.history = ent.history[:r.k-1]
	}
	ent.history = append(ent.history, r.now)

	if ent.evictable {
		ent.evictable = false
		r.size--
	}
}

func (r *LRUKReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entries[frameID]
	if !ok {
		return
	}
	if !ent.evictable {
		ent.evictable = true
		r.size++
	}
}

func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
