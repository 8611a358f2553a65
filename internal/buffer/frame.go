package buffer

import "github.com/haintp/wrendb/internal/storage"

// Frame is one fixed in-memory slot of the pool. It is either on the free
// list or bound to exactly one (FileID, PageID); the page buffer itself is
// allocated once and reused across bindings.
//
// Frame does no locking of its own: the pool mutex serializes all access.
type Frame struct {
	page  *storage.Page
	pin   int
	dirty bool
}

func NewFrame(pageSize int) *Frame {
	return &Frame{page: storage.NewPage(pageSize)}
}

func (f *Frame) Page() *storage.Page { return f.page }

func (f *Frame) Pin() { f.pin++ }

// Unpin decrements the pin count. Caller must have checked InUse.
func (f *Frame) Unpin() { f.pin-- }

func (f *Frame) InUse() bool   { return f.pin > 0 }
func (f *Frame) PinCount() int { return f.pin }

func (f *Frame) IsDirty() bool { return f.dirty }

// SetDirty follows the sticky-dirty rule: once dirty, a frame stays dirty
// until the pool writes it back.
func (f *Frame) SetDirty(dirty bool) {
	if dirty {
		f.dirty = true
	}
}

func (f *Frame) clearDirty() { f.dirty = false }

// Reset returns the frame to the unbound state. The page buffer is kept; the
// next install overwrites it.
func (f *Frame) Reset() {
	f.pin = 0
	f.dirty = false
	f.page.SetIdentity(storage.InvalidFileID, storage.InvalidPageID)
}
