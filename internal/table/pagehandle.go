package table

import (
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/pkg/bitmapx"
)

// PageHandle interprets a data page's bytes as a slotted record container.
// Implementations never touch the slot bitmap's live bits: flipping a bit is
// the table handle's call to make.
type PageHandle interface {
	// Page returns the underlying pinned page.
	Page() *storage.Page

	// Bitmap returns the slot bitmap region of the page, aliased not copied.
	Bitmap() []byte

	// ReadSlot copies the slot's null bitmap and payload into the caller's
	// buffers.
	ReadSlot(slot storage.SlotID, nullmap, data []byte)

	// WriteSlot copies the caller's bytes into the slot.
	WriteSlot(slot storage.SlotID, nullmap, data []byte, update bool)
}

// naryPageHandle lays records out row-major: each slot is the record's null
// bitmap immediately followed by its payload.
type naryPageHandle struct {
	hdr  *Header
	page *storage.Page
}

var _ PageHandle = (*naryPageHandle)(nil)

func newNAryPageHandle(hdr *Header, page *storage.Page) *naryPageHandle {
	return &naryPageHandle{hdr: hdr, page: page}
}

func (h *naryPageHandle) Page() *storage.Page { return h.page }

func (h *naryPageHandle) Bitmap() []byte {
	off := storage.PageHeaderSize
	return h.page.Buf()[off : off+bitmapx.Len(h.hdr.RecPerPage)]
}

func (h *naryPageHandle) slotOffset(slot storage.SlotID) int {
	slotSize := h.hdr.NullmapSize + h.hdr.RecSize
	return storage.PageHeaderSize + bitmapx.Len(h.hdr.RecPerPage) + int(slot)*slotSize
}

func (h *naryPageHandle) ReadSlot(slot storage.SlotID, nullmap, data []byte) {
	off := h.slotOffset(slot)
	buf := h.page.Buf()
	copy(nullmap, buf[off:off+h.hdr.NullmapSize])
	copy(data, buf[off+h.hdr.NullmapSize:off+h.hdr.NullmapSize+h.hdr.RecSize])
}

func (h *naryPageHandle) WriteSlot(slot storage.SlotID, nullmap, data []byte, update bool) {
	off := h.slotOffset(slot)
	buf := h.page.Buf()
	copy(buf[off:off+h.hdr.NullmapSize], nullmap)
	copy(buf[off+h.hdr.NullmapSize:off+h.hdr.NullmapSize+h.hdr.RecSize], data)
}

// paxPageHandle stripes records column-wise: after the bitmap comes a region
// of per-record null bitmaps, then one contiguous stripe per column. Reads
// gather a record from the stripes; writes scatter it.
type paxPageHandle struct {
	hdr          *Header
	page         *storage.Page
	fieldSizes   []int
	fieldOffsets []int // stripe start per column, relative to the stripe base
}

var _ PageHandle = (*paxPageHandle)(nil)

func newPAXPageHandle(hdr *Header, page *storage.Page, fieldSizes, fieldOffsets []int) *paxPageHandle {
	return &paxPageHandle{hdr: hdr, page: page, fieldSizes: fieldSizes, fieldOffsets: fieldOffsets}
}

func (h *paxPageHandle) Page() *storage.Page { return h.page }

func (h *paxPageHandle) Bitmap() []byte {
	off := storage.PageHeaderSize
	return h.page.Buf()[off : off+bitmapx.Len(h.hdr.RecPerPage)]
}

func (h *paxPageHandle) nullmapOffset(slot storage.SlotID) int {
	return storage.PageHeaderSize + bitmapx.Len(h.hdr.RecPerPage) + int(slot)*h.hdr.NullmapSize
}

func (h *paxPageHandle) stripeBase() int {
	return storage.PageHeaderSize + bitmapx.Len(h.hdr.RecPerPage) + h.hdr.RecPerPage*h.hdr.NullmapSize
}

func (h *paxPageHandle) fieldAt(col int, slot storage.SlotID) int {
	return h.stripeBase() + h.fieldOffsets[col] + int(slot)*h.fieldSizes[col]
}

func (h *paxPageHandle) ReadSlot(slot storage.SlotID, nullmap, data []byte) {
	buf := h.page.Buf()
	no := h.nullmapOffset(slot)
	copy(nullmap, buf[no:no+h.hdr.NullmapSize])

	off := 0
	for c, sz := range h.fieldSizes {
		fo := h.fieldAt(c, slot)
		copy(data[off:off+sz], buf[fo:fo+sz])
		off += sz
	}
}

func (h *paxPageHandle) WriteSlot(slot storage.SlotID, nullmap, data []byte, update bool) {
	buf := h.page.Buf()
	no := h.nullmapOffset(slot)
	copy(buf[no:no+h.hdr.NullmapSize], nullmap)

	off := 0
	for c, sz := range h.fieldSizes {
		fo := h.fieldAt(c, slot)
		copy(buf[fo:fo+sz], data[off:off+sz])
		off += sz
	}
}

// Chunk copies out the column's values for every live slot, in slot order.
func (h *paxPageHandle) Chunk(col int) [][]byte {
	buf := h.page.Buf()
	bitmap := h.Bitmap()
	sz := h.fieldSizes[col]

	out := make([][]byte, 0, h.page.RecordNum())
	for slot := 0; slot < h.hdr.RecPerPage; slot++ {
		if !bitmapx.Get(bitmap, slot) {
			continue
		}
		fo := h.fieldAt(col, storage.SlotID(slot))
		v := make([]byte, sz)
		copy(v, buf[fo:fo+sz])
		out = append(out, v)
	}
	return out
}
