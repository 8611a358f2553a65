package table

import (
	"errors"
	"fmt"

	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/pkg/bitmapx"
	"github.com/haintp/wrendb/pkg/bx"
)

// headerMagic guards against opening a file that is not a table file.
const headerMagic uint32 = 0x57524e54 // "WRNT"

// ErrCorruptHeader indicates the table header page failed validation. It is
// a code or deployment defect; callers treat it as fatal.
var ErrCorruptHeader = errors.New("table: corrupt header page")

// ErrRecordTooLarge means the schema's slot does not fit a single page.
var ErrRecordTooLarge = errors.New("table: record does not fit in one page")

// Header is the persisted table header, kept in memory while the table is
// open and written back to page 0 on flush.
type Header struct {
	RecSize       int
	NullmapSize   int
	RecPerPage    int
	PageNum       int // total pages allocated, header page included
	RecNum        int // live records
	FirstFreePage storage.PageID
	Model         storage.StorageModel
}

// Header page byte image: magic, the counters above, then the serialized
// schema (column count, then per column: name, type, width, nullability).
const (
	hdrOffMagic     = 0
	hdrOffRecSize   = 4
	hdrOffNullmap   = 8
	hdrOffRecPer    = 12
	hdrOffPageNum   = 16
	hdrOffRecNum    = 20
	hdrOffFirstFree = 24
	hdrOffModel     = 28
	hdrOffSchema    = 32
)

// newHeader computes the slot geometry for a schema: the biggest rec_per_page
// whose bitmap plus slots still fit under the page size.
func newHeader(pageSize int, schema *record.Schema, model storage.StorageModel) (Header, error) {
	recSize := schema.RecordSize()
	nullmapSize := schema.NullmapSize()
	slotSize := nullmapSize + recSize

	avail := pageSize - storage.PageHeaderSize
	rpp := avail * 8 / (slotSize*8 + 1)
	for rpp > 0 && bitmapx.Len(rpp)+rpp*slotSize > avail {
		rpp--
	}
	if rpp < 1 {
		return Header{}, fmt.Errorf("%w: slot size %d, page size %d", ErrRecordTooLarge, slotSize, pageSize)
	}

	return Header{
		RecSize:       recSize,
		NullmapSize:   nullmapSize,
		RecPerPage:    rpp,
		PageNum:       1, // the header page itself
		RecNum:        0,
		FirstFreePage: storage.InvalidPageID,
		Model:         model,
	}, nil
}

func (h *Header) serialize(buf []byte, schema *record.Schema) {
	for i := range buf {
		buf[i] = 0
	}
	bx.PutU32At(buf, hdrOffMagic, headerMagic)
	bx.PutU32At(buf, hdrOffRecSize, uint32(h.RecSize))
	bx.PutU32At(buf, hdrOffNullmap, uint32(h.NullmapSize))
	bx.PutU32At(buf, hdrOffRecPer, uint32(h.RecPerPage))
	bx.PutU32At(buf, hdrOffPageNum, uint32(h.PageNum))
	bx.PutU32At(buf, hdrOffRecNum, uint32(h.RecNum))
	bx.PutI32At(buf, hdrOffFirstFree, int32(h.FirstFreePage))
	buf[hdrOffModel] = byte(h.Model)

	off := hdrOffSchema
	bx.PutU16At(buf, off, uint16(schema.NumCols()))
	off += 2
	for _, col := range schema.Cols {
		buf[off] = byte(len(col.Name))
		off++
		copy(buf[off:], col.Name)
		off += len(col.Name)
		buf[off] = byte(col.Type)
		off++
		bx.PutU16At(buf, off, uint16(col.Len))
		off += 2
		if col.Nullable {
			buf[off] = 1
		}
		off++
	}
}

func deserializeHeader(buf []byte) (Header, *record.Schema, error) {
	if bx.U32At(buf, hdrOffMagic) != headerMagic {
		return Header{}, nil, ErrCorruptHeader
	}
	h := Header{
		RecSize:       int(bx.U32At(buf, hdrOffRecSize)),
		NullmapSize:   int(bx.U32At(buf, hdrOffNullmap)),
		RecPerPage:    int(bx.U32At(buf, hdrOffRecPer)),
		PageNum:       int(bx.U32At(buf, hdrOffPageNum)),
		RecNum:        int(bx.U32At(buf, hdrOffRecNum)),
		FirstFreePage: storage.PageID(bx.I32At(buf, hdrOffFirstFree)),
		Model:         storage.StorageModel(buf[hdrOffModel]),
	}
	if h.RecPerPage <= 0 || h.PageNum < 1 {
		return Header{}, nil, ErrCorruptHeader
	}

	off := hdrOffSchema
	ncols := int(bx.U16At(buf, off))
	off += 2
	schema := &record.Schema{Cols: make([]record.Column, 0, ncols)}
	for i := 0; i < ncols; i++ {
		if off >= len(buf) {
			return Header{}, nil, ErrCorruptHeader
		}
		nameLen := int(buf[off])
		off++
		name := string(buf[off : off+nameLen])
		off += nameLen
		typ := record.ColumnType(buf[off])
		off++
		colLen := int(bx.U16At(buf, off))
		off += 2
		nullable := buf[off] == 1
		off++
		schema.Cols = append(schema.Cols, record.Column{
			Name: name, Type: typ, Len: colLen, Nullable: nullable,
		})
	}
	if schema.RecordSize() != h.RecSize || schema.NullmapSize() != h.NullmapSize {
		return Header{}, nil, ErrCorruptHeader
	}
	return h, schema, nil
}
