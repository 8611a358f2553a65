package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haintp/wrendb/internal/storage"
)

var logDebugPrefix = "buffer: "

// ErrNoFreeFrame is returned when the free list is empty and every bound
// frame is pinned.
var ErrNoFreeFrame = errors.New("buffer: no free frame available (all pinned)")

type pageTag struct {
	fid storage.FileID
	pid storage.PageID
}

// PoolManager caches disk pages in a fixed set of frames. A single mutex
// guards the frame table, the lookup map, the free list and the replacer
// calls made from the pool; disk IO happens under that mutex as a deliberate
// simplification, so every public operation is linearizable.
type PoolManager struct {
	disk *storage.DiskManager

	mu       sync.Mutex
	frames   []*Frame
	lookup   map[pageTag]int // bound (fid,pid) -> frame index
	freeList []int           // stack of unbound frame indices
	replacer Replacer
}

// NewPoolManager builds a pool of poolSize frames using the named replacer.
// An unknown replacer name is a configuration defect and surfaces as an
// error for the caller to treat as fatal.
func NewPoolManager(disk *storage.DiskManager, poolSize int, replacerName string, lruK int) (*PoolManager, error) {
	repl, err := NewReplacer(replacerName, poolSize, lruK)
	if err != nil {
		return nil, err
	}
	if poolSize <= 0 {
		return nil, fmt.Errorf("buffer: pool size must be positive, got %d", poolSize)
	}

	p := &PoolManager{
		disk:     disk,
		frames:   make([]*Frame, poolSize),
		lookup:   make(map[pageTag]int),
		freeList: make([]int, 0, poolSize),
		replacer: repl,
	}
	for i := range p.frames {
		p.frames[i] = NewFrame(disk.PageSize())
		p.freeList = append(p.freeList, i)
	}
	return p, nil
}

// FetchPage returns the page pinned in a frame, reading it from disk if it
// is not already resident.
func (p *PoolManager) FetchPage(fid storage.FileID, pid storage.PageID) (*storage.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tag := pageTag{fid, pid}
	if idx, ok := p.lookup[tag]; ok {
		f := p.frames[idx]
		p.replacer.Pin(idx)
		f.Pin()
		slog.Debug(logDebugPrefix+"fetch hit", "fid", fid, "pid", pid, "frame", idx, "pin", f.PinCount())
		return f.Page(), nil
	}

	idx, err := p.availableFrameLocked()
	if err != nil {
		return nil, err
	}
	if err := p.installLocked(idx, fid, pid); err != nil {
		return nil, err
	}
	slog.Debug(logDebugPrefix+"fetch miss", "fid", fid, "pid", pid, "frame", idx)
	return p.frames[idx].Page(), nil
}

// UnpinPage drops one pin and applies the sticky-dirty rule. It reports
// false when the page is unbound or not in use.
func (p *PoolManager) UnpinPage(fid storage.FileID, pid storage.PageID, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.lookup[pageTag{fid, pid}]
	if !ok {
		return false
	}
	f := p.frames[idx]
	if !f.InUse() {
		return false
	}
	f.Unpin()
	if !f.InUse() {
		p.replacer.Unpin(idx)
	}
	f.SetDirty(isDirty)
	return true
}

// DeletePage drops the page from the pool, writing it back first if dirty.
// It reports false when the page is unbound or still pinned.
func (p *PoolManager) DeletePage(fid storage.FileID, pid storage.PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deletePageLocked(pageTag{fid, pid})
}

// DeleteAllPages applies DeletePage to every bound page of the file. A
// pinned page makes the overall result false but does not stop the sweep.
func (p *PoolManager) DeleteAllPages(fid storage.FileID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok := true
	for tag := range p.lookup {
		if tag.fid != fid {
			continue
		}
		if !p.deletePageLocked(tag) {
			ok = false
		}
	}
	return ok
}

func (p *PoolManager) deletePageLocked(tag pageTag) bool {
	idx, ok := p.lookup[tag]
	if !ok {
		return false
	}
	f := p.frames[idx]
	if f.InUse() {
		slog.Debug(logDebugPrefix+"delete refused, page pinned",
			"fid", tag.fid, "pid", tag.pid, "pin", f.PinCount())
		return false
	}
	if f.IsDirty() {
		if err := p.disk.WritePage(tag.fid, tag.pid, f.Page().Buf()); err != nil {
			slog.Warn(logDebugPrefix+"write-back on delete failed",
				"fid", tag.fid, "pid", tag.pid, "err", err)
			return false
		}
		f.clearDirty()
	}
	// The replacer contract has no removal; pinning parks the stale entry in
	// the not-evictable state until the frame is rebound.
	p.replacer.Pin(idx)
	f.Reset()
	p.freeList = append(p.freeList, idx)
	delete(p.lookup, tag)
	return true
}

// FlushPage writes the page back if dirty and clears the dirty bit. It
// reports false when the page is unbound.
func (p *PoolManager) FlushPage(fid storage.FileID, pid storage.PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.lookup[pageTag{fid, pid}]
	if !ok {
		return false
	}
	f := p.frames[idx]
	if f.IsDirty() {
		if err := p.disk.WritePage(fid, pid, f.Page().Buf()); err != nil {
			slog.Warn(logDebugPrefix+"flush failed", "fid", fid, "pid", pid, "err", err)
			return false
		}
		f.clearDirty()
	}
	return true
}

// FlushAllPages writes back every dirty page of the file.
func (p *PoolManager) FlushAllPages(fid storage.FileID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for tag, idx := range p.lookup {
		if tag.fid != fid {
			continue
		}
		f := p.frames[idx]
		if !f.IsDirty() {
			continue
		}
		if err := p.disk.WritePage(tag.fid, tag.pid, f.Page().Buf()); err != nil {
			slog.Warn(logDebugPrefix+"flush-all write failed",
				"fid", tag.fid, "pid", tag.pid, "err", err)
			continue
		}
		f.clearDirty()
	}
	return true
}

// availableFrameLocked pops the free list, falling back to a replacer
// victim. The returned frame is not yet bound to any page.
func (p *PoolManager) availableFrameLocked() (int, error) {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx, nil
	}
	idx, ok := p.replacer.Victim()
	if !ok {
		return -1, ErrNoFreeFrame
	}
	return idx, nil
}

// installLocked binds the frame to (fid, pid): write back the old page if
// dirty, drop its mapping, read the new bytes, then pin the frame both in
// the pool and in the replacer before the pool mutex is released.
func (p *PoolManager) installLocked(idx int, fid storage.FileID, pid storage.PageID) error {
	f := p.frames[idx]
	old := f.Page()
	if old.FileID() != storage.InvalidFileID {
		if f.IsDirty() {
			if err := p.disk.WritePage(old.FileID(), old.ID(), old.Buf()); err != nil {
				// Leave the old binding intact and give the frame back to the
				// replacer as a candidate.
				p.replacer.Pin(idx)
				p.replacer.Unpin(idx)
				return fmt.Errorf("buffer: evict write-back: %w", err)
			}
			f.clearDirty()
		}
		delete(p.lookup, pageTag{old.FileID(), old.ID()})
	}
	f.Reset()

	page := f.Page()
	page.SetIdentity(fid, pid)
	if err := p.disk.ReadPage(fid, pid, page.Buf()); err != nil {
		f.Reset()
		p.freeList = append(p.freeList, idx)
		return err
	}
	page.Stamp(fid, pid)

	p.lookup[pageTag{fid, pid}] = idx
	f.Pin()
	p.replacer.Pin(idx)
	return nil
}

// Size returns the number of frames in the pool.
func (p *PoolManager) Size() int { return len(p.frames) }

// frameOf is a test hook exposing the frame a page is bound to.
func (p *PoolManager) frameOf(fid storage.FileID, pid storage.PageID) *Frame {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.lookup[pageTag{fid, pid}]
	if !ok {
		return nil
	}
	return p.frames[idx]
}
