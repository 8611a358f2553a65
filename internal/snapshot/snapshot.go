// Package snapshot streams a table's live records through a zstd-compressed
// frame so a table can be archived and rebuilt elsewhere. The stream carries
// the schema, so reading needs no catalog.
package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/haintp/wrendb/internal/executor"
	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/internal/table"
	"github.com/haintp/wrendb/pkg/bx"
)

const snapshotMagic uint32 = 0x57534e50 // "WSNP"

var ErrBadSnapshot = errors.New("snapshot: malformed stream")

// Stream layout (inside the zstd frame, little endian):
//
//	magic u32 | ncols u16 | columns | nrecords u32 |
//	nrecords x (nullmap | payload)
//
// Column entry: name len u8, name, type u8, char width u16, nullable u8.
// Records are fixed-size per the schema, so no per-record framing is needed.

// Write scans the table and writes every live record to w.
func Write(w io.Writer, tab *table.Handle) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("snapshot: create encoder: %w", err)
	}

	recs, err := executor.Collect(executor.NewSeqScan(tab))
	if err != nil {
		enc.Close()
		return err
	}

	schema := tab.Schema()
	var hdr []byte
	hdr = append(hdr, 0, 0, 0, 0)
	bx.PutU32(hdr, snapshotMagic)
	var n2 [2]byte
	bx.PutU16(n2[:], uint16(schema.NumCols()))
	hdr = append(hdr, n2[:]...)
	for _, col := range schema.Cols {
		hdr = append(hdr, byte(len(col.Name)))
		hdr = append(hdr, col.Name...)
		hdr = append(hdr, byte(col.Type))
		bx.PutU16(n2[:], uint16(col.Len))
		hdr = append(hdr, n2[:]...)
		if col.Nullable {
			hdr = append(hdr, 1)
		} else {
			hdr = append(hdr, 0)
		}
	}
	var n4 [4]byte
	bx.PutU32(n4[:], uint32(len(recs)))
	hdr = append(hdr, n4[:]...)

	if _, err := enc.Write(hdr); err != nil {
		enc.Close()
		return err
	}
	for _, rec := range recs {
		if _, err := enc.Write(rec.Nullmap); err != nil {
			enc.Close()
			return err
		}
		if _, err := enc.Write(rec.Data); err != nil {
			enc.Close()
			return err
		}
	}
	return enc.Close()
}

// Read decodes a snapshot stream back into a schema and its records.
func Read(r io.Reader) (*record.Schema, []*record.Record, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: create decoder: %w", err)
	}
	defer dec.Close()

	buf, err := io.ReadAll(dec)
	if err != nil {
		return nil, nil, err
	}
	if len(buf) < 6 || bx.U32(buf) != snapshotMagic {
		return nil, nil, ErrBadSnapshot
	}
	off := 4
	ncols := int(bx.U16At(buf, off))
	off += 2

	schema := &record.Schema{Cols: make([]record.Column, 0, ncols)}
	for i := 0; i < ncols; i++ {
		if off+1 > len(buf) {
			return nil, nil, ErrBadSnapshot
		}
		nameLen := int(buf[off])
		off++
		if off+nameLen+4 > len(buf) {
			return nil, nil, ErrBadSnapshot
		}
		name := string(buf[off : off+nameLen])
		off += nameLen
		typ := record.ColumnType(buf[off])
		off++
		width := int(bx.U16At(buf, off))
		off += 2
		nullable := buf[off] == 1
		off++
		schema.Cols = append(schema.Cols, record.Column{
			Name: name, Type: typ, Len: width, Nullable: nullable,
		})
	}

	if off+4 > len(buf) {
		return nil, nil, ErrBadSnapshot
	}
	n := int(bx.U32At(buf, off))
	off += 4

	nmSize := schema.NullmapSize()
	recSize := schema.RecordSize()
	recs := make([]*record.Record, 0, n)
	for i := 0; i < n; i++ {
		if off+nmSize+recSize > len(buf) {
			return nil, nil, ErrBadSnapshot
		}
		nullmap := make([]byte, nmSize)
		copy(nullmap, buf[off:off+nmSize])
		off += nmSize
		data := make([]byte, recSize)
		copy(data, buf[off:off+recSize])
		off += recSize
		recs = append(recs, record.New(schema, nullmap, data, storage.InvalidRID))
	}
	return schema, recs, nil
}

// Restore inserts every snapshot record into the table.
func Restore(tab *table.Handle, recs []*record.Record) error {
	for _, rec := range recs {
		if _, err := tab.InsertRecord(rec); err != nil {
			return err
		}
	}
	return nil
}
