package table

import (
	"errors"
	"fmt"

	"github.com/haintp/wrendb/internal/buffer"
	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/pkg/bitmapx"
)

var (
	// ErrRecordMiss means the RID's slot bit is clear.
	ErrRecordMiss = errors.New("table: record does not exist")
	// ErrRecordExists means a targeted insert hit a live slot.
	ErrRecordExists = errors.New("table: record already exists")
	// ErrPageMiss means the RID names an invalid page.
	ErrPageMiss = errors.New("table: page does not exist")
)

// Handle maps RIDs to records through the buffer pool and maintains the
// free-page chain and the table header's counters.
//
// A handle serves one query at a time; concurrent access is coordinated by
// the buffer pool underneath, not here.
type Handle struct {
	disk *storage.DiskManager
	bp   *buffer.PoolManager

	fileID storage.FileID
	name   string
	hdr    Header
	schema *record.Schema

	// stripe offsets per column, computed once for the PAX layout
	fieldSizes   []int
	fieldOffsets []int
}

// Create formats a new table file: page 0 gets the header, data pages start
// at page 1.
func Create(disk *storage.DiskManager, bp *buffer.PoolManager, name string, schema *record.Schema, model storage.StorageModel) (*Handle, error) {
	hdr, err := newHeader(disk.PageSize(), schema, model)
	if err != nil {
		return nil, err
	}
	fid, err := disk.CreateFile(name)
	if err != nil {
		return nil, err
	}

	h := &Handle{disk: disk, bp: bp, fileID: fid, name: name, hdr: hdr, schema: schema}
	h.initFieldOffsets()
	if err := h.writeHeaderPage(); err != nil {
		return nil, err
	}
	h.bp.FlushPage(fid, storage.FileHeaderPageID)
	return h, nil
}

// Open loads an existing table from its header page.
func Open(disk *storage.DiskManager, bp *buffer.PoolManager, name string) (*Handle, error) {
	fid, err := disk.OpenFile(name)
	if err != nil {
		return nil, err
	}
	page, err := bp.FetchPage(fid, storage.FileHeaderPageID)
	if err != nil {
		return nil, err
	}
	hdr, schema, err := deserializeHeader(page.Buf())
	bp.UnpinPage(fid, storage.FileHeaderPageID, false)
	if err != nil {
		return nil, fmt.Errorf("%w (table %s)", err, name)
	}

	h := &Handle{disk: disk, bp: bp, fileID: fid, name: name, hdr: hdr, schema: schema}
	h.initFieldOffsets()
	return h, nil
}

func (h *Handle) initFieldOffsets() {
	if h.hdr.Model != storage.PAXModel {
		return
	}
	h.fieldSizes = make([]int, h.schema.NumCols())
	h.fieldOffsets = make([]int, h.schema.NumCols())
	off := 0
	for i, col := range h.schema.Cols {
		h.fieldSizes[i] = col.Size()
		h.fieldOffsets[i] = off
		off += col.Size() * h.hdr.RecPerPage
	}
}

func (h *Handle) Name() string                { return h.name }
func (h *Handle) FileID() storage.FileID      { return h.fileID }
func (h *Handle) Schema() *record.Schema      { return h.schema }
func (h *Handle) Header() Header              { return h.hdr }
func (h *Handle) Model() storage.StorageModel { return h.hdr.Model }

// checkRID rejects RIDs that cannot name a slot of this table.
func (h *Handle) checkRID(rid storage.RID) error {
	if rid.PageID <= storage.FileHeaderPageID || int(rid.PageID) >= h.hdr.PageNum {
		return fmt.Errorf("%w: page %d", ErrPageMiss, rid.PageID)
	}
	if rid.SlotID < 0 || int(rid.SlotID) >= h.hdr.RecPerPage {
		return fmt.Errorf("%w: rid (%d,%d)", ErrRecordMiss, rid.PageID, rid.SlotID)
	}
	return nil
}

// GetRecord reads the record at rid into buffers the record owns.
func (h *Handle) GetRecord(rid storage.RID) (*record.Record, error) {
	if err := h.checkRID(rid); err != nil {
		return nil, err
	}
	pg, err := h.fetchPageHandle(rid.PageID)
	if err != nil {
		return nil, err
	}
	if !bitmapx.Get(pg.Bitmap(), int(rid.SlotID)) {
		h.bp.UnpinPage(h.fileID, rid.PageID, false)
		return nil, fmt.Errorf("%w: rid (%d,%d)", ErrRecordMiss, rid.PageID, rid.SlotID)
	}

	nullmap := make([]byte, h.hdr.NullmapSize)
	data := make([]byte, h.hdr.RecSize)
	pg.ReadSlot(rid.SlotID, nullmap, data)
	h.bp.UnpinPage(h.fileID, rid.PageID, false)

	return record.New(h.schema, nullmap, data, rid), nil
}

// InsertRecord places the record in the first free slot of the chain's head
// page, allocating a new page when the chain is empty.
func (h *Handle) InsertRecord(rec *record.Record) (storage.RID, error) {
	pg, err := h.createPageHandle()
	if err != nil {
		return storage.InvalidRID, err
	}
	bitmap := pg.Bitmap()
	slot := storage.SlotID(bitmapx.FindFirst(bitmap, h.hdr.RecPerPage, 0, false))

	page := pg.Page()
	pg.WriteSlot(slot, rec.Nullmap, rec.Data, false)
	bitmapx.Set(bitmap, int(slot), true)
	h.hdr.RecNum++
	recordNum := page.RecordNum()
	page.SetRecordNum(recordNum + 1)

	if recordNum+1 == h.hdr.RecPerPage {
		// Page is full: detach it from the head of the free-page chain.
		h.hdr.FirstFreePage = page.NextFreePage()
		page.SetNextFreePage(storage.InvalidPageID)
	}

	pid := page.ID()
	h.bp.UnpinPage(h.fileID, pid, true)
	return storage.RID{PageID: pid, SlotID: slot}, nil
}

// InsertRecordAt places the record at a caller-chosen RID. Used by upper
// layers that re-insert at known positions.
func (h *Handle) InsertRecordAt(rid storage.RID, rec *record.Record) error {
	if err := h.checkRID(rid); err != nil {
		return err
	}
	pg, err := h.fetchPageHandle(rid.PageID)
	if err != nil {
		return err
	}
	bitmap := pg.Bitmap()
	if bitmapx.Get(bitmap, int(rid.SlotID)) {
		h.bp.UnpinPage(h.fileID, rid.PageID, false)
		return fmt.Errorf("%w: rid (%d,%d)", ErrRecordExists, rid.PageID, rid.SlotID)
	}

	page := pg.Page()
	pg.WriteSlot(rid.SlotID, rec.Nullmap, rec.Data, false)
	bitmapx.Set(bitmap, int(rid.SlotID), true)
	h.hdr.RecNum++
	recordNum := page.RecordNum()
	page.SetRecordNum(recordNum + 1)

	if recordNum+1 == h.hdr.RecPerPage {
		h.hdr.FirstFreePage = page.NextFreePage()
		page.SetNextFreePage(storage.InvalidPageID)
	}

	h.bp.UnpinPage(h.fileID, rid.PageID, true)
	return nil
}

// DeleteRecord clears the slot. A previously full page rejoins the head of
// the free-page chain.
func (h *Handle) DeleteRecord(rid storage.RID) error {
	if err := h.checkRID(rid); err != nil {
		return err
	}
	pg, err := h.fetchPageHandle(rid.PageID)
	if err != nil {
		return err
	}
	bitmap := pg.Bitmap()
	if !bitmapx.Get(bitmap, int(rid.SlotID)) {
		h.bp.UnpinPage(h.fileID, rid.PageID, false)
		return fmt.Errorf("%w: rid (%d,%d)", ErrRecordMiss, rid.PageID, rid.SlotID)
	}

	page := pg.Page()
	bitmapx.Set(bitmap, int(rid.SlotID), false)
	h.hdr.RecNum--
	recordNum := page.RecordNum()
	page.SetRecordNum(recordNum - 1)

	if recordNum == h.hdr.RecPerPage {
		page.SetNextFreePage(h.hdr.FirstFreePage)
		h.hdr.FirstFreePage = rid.PageID
	}

	// The bitmap and counter changed, so the frame must go back dirty.
	h.bp.UnpinPage(h.fileID, rid.PageID, true)
	return nil
}

// UpdateRecord rewrites a live slot in place.
func (h *Handle) UpdateRecord(rid storage.RID, rec *record.Record) error {
	if err := h.checkRID(rid); err != nil {
		return err
	}
	pg, err := h.fetchPageHandle(rid.PageID)
	if err != nil {
		return err
	}
	if !bitmapx.Get(pg.Bitmap(), int(rid.SlotID)) {
		h.bp.UnpinPage(h.fileID, rid.PageID, false)
		return fmt.Errorf("%w: rid (%d,%d)", ErrRecordMiss, rid.PageID, rid.SlotID)
	}

	pg.WriteSlot(rid.SlotID, rec.Nullmap, rec.Data, true)
	h.bp.UnpinPage(h.fileID, rid.PageID, true)
	return nil
}

// FirstRID returns the first live record in page order, or InvalidRID.
func (h *Handle) FirstRID() (storage.RID, error) {
	for pid := storage.FileHeaderPageID + 1; int(pid) < h.hdr.PageNum; pid++ {
		pg, err := h.fetchPageHandle(pid)
		if err != nil {
			return storage.InvalidRID, err
		}
		slot := bitmapx.FindFirst(pg.Bitmap(), h.hdr.RecPerPage, 0, true)
		h.bp.UnpinPage(h.fileID, pid, false)
		if slot != h.hdr.RecPerPage {
			return storage.RID{PageID: pid, SlotID: storage.SlotID(slot)}, nil
		}
	}
	return storage.InvalidRID, nil
}

// NextRID returns the live record after rid in (page, slot) order, or
// InvalidRID past the end. The cursor is forward-only and not snapshot
// isolated: records inserted behind it stay unseen, records ahead may
// appear.
func (h *Handle) NextRID(rid storage.RID) (storage.RID, error) {
	pid := rid.PageID
	slot := int(rid.SlotID)
	for int(pid) < h.hdr.PageNum {
		pg, err := h.fetchPageHandle(pid)
		if err != nil {
			return storage.InvalidRID, err
		}
		slot = bitmapx.FindFirst(pg.Bitmap(), h.hdr.RecPerPage, slot+1, true)
		h.bp.UnpinPage(h.fileID, pid, false)
		if slot != h.hdr.RecPerPage {
			return storage.RID{PageID: pid, SlotID: storage.SlotID(slot)}, nil
		}
		pid++
		slot = -1
	}
	return storage.InvalidRID, nil
}

// fetchPageHandle pins the page and wraps it in the table's layout handle.
func (h *Handle) fetchPageHandle(pid storage.PageID) (PageHandle, error) {
	page, err := h.bp.FetchPage(h.fileID, pid)
	if err != nil {
		return nil, err
	}
	return h.wrapPageHandle(page), nil
}

// createPageHandle returns a pinned page with at least one free slot: the
// chain's head when there is one, a freshly allocated page otherwise.
func (h *Handle) createPageHandle() (PageHandle, error) {
	if h.hdr.FirstFreePage == storage.InvalidPageID {
		return h.createNewPageHandle()
	}
	return h.fetchPageHandle(h.hdr.FirstFreePage)
}

// createNewPageHandle allocates the next page id and splices the page onto
// the head of the free-page chain. The page momentarily sits on the chain
// with zero records; that is fine, the chain tracks capacity, not content.
func (h *Handle) createNewPageHandle() (PageHandle, error) {
	pid := storage.PageID(h.hdr.PageNum)
	h.hdr.PageNum++
	pg, err := h.fetchPageHandle(pid)
	if err != nil {
		h.hdr.PageNum--
		return nil, err
	}
	pg.Page().SetNextFreePage(h.hdr.FirstFreePage)
	h.hdr.FirstFreePage = pid
	return pg, nil
}

func (h *Handle) wrapPageHandle(page *storage.Page) PageHandle {
	switch h.hdr.Model {
	case storage.NAryModel:
		return newNAryPageHandle(&h.hdr, page)
	case storage.PAXModel:
		return newPAXPageHandle(&h.hdr, page, h.fieldSizes, h.fieldOffsets)
	default:
		panic(fmt.Sprintf("table: unknown storage model %d", h.hdr.Model))
	}
}

// writeHeaderPage serializes the in-memory header onto page 0.
func (h *Handle) writeHeaderPage() error {
	page, err := h.bp.FetchPage(h.fileID, storage.FileHeaderPageID)
	if err != nil {
		return err
	}
	h.hdr.serialize(page.Buf(), h.schema)
	h.bp.UnpinPage(h.fileID, storage.FileHeaderPageID, true)
	return nil
}

// Flush persists the header and writes back every dirty page of the table.
func (h *Handle) Flush() error {
	if err := h.writeHeaderPage(); err != nil {
		return err
	}
	h.bp.FlushAllPages(h.fileID)
	return nil
}

// Close flushes and releases the file.
func (h *Handle) Close() error {
	if err := h.Flush(); err != nil {
		return err
	}
	h.bp.DeleteAllPages(h.fileID)
	return h.disk.CloseFile(h.fileID)
}

// Drop evicts the table's pages from the pool and removes the file.
func (h *Handle) Drop() error {
	if !h.bp.DeleteAllPages(h.fileID) {
		return fmt.Errorf("table %s: drop with pinned pages", h.name)
	}
	return h.disk.DestroyFile(h.fileID)
}
