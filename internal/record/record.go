package record

import (
	"bytes"
	"math"
	"strings"

	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/pkg/bitmapx"
	"github.com/haintp/wrendb/pkg/bx"
)

// Record is one row. Nullmap and Data are owned by the record: the table
// layer copies slot bytes into fresh buffers before constructing a Record,
// so the record stays valid after the containing frame is unpinned.
type Record struct {
	Schema  *Schema
	Nullmap []byte
	Data    []byte
	RID     storage.RID
}

// New builds a record over buffers the caller hands off.
func New(schema *Schema, nullmap, data []byte, rid storage.RID) *Record {
	return &Record{Schema: schema, Nullmap: nullmap, Data: data, RID: rid}
}

// Encode serializes values into a freshly allocated record.
// Nullmap bit i set means column i is NULL.
func Encode(schema *Schema, values []any) (*Record, error) {
	if len(values) != schema.NumCols() {
		return nil, ErrSchemaMismatch
	}
	nullmap := make([]byte, schema.NullmapSize())
	data := make([]byte, schema.RecordSize())

	off := 0
	for i, col := range schema.Cols {
		sz := col.Size()
		v := values[i]
		if v == nil {
			if !col.Nullable {
				return nil, ErrSchemaMismatch
			}
			bitmapx.Set(nullmap, i, true)
			off += sz
			continue
		}
		switch col.Type {
		case ColInt32:
			x, ok := asInt64(v)
			if !ok || x < math.MinInt32 || x > math.MaxInt32 {
				return nil, ErrSchemaMismatch
			}
			bx.PutI32At(data, off, int32(x))
		case ColInt64:
			x, ok := asInt64(v)
			if !ok {
				return nil, ErrSchemaMismatch
			}
			bx.PutI64(data[off:], x)
		case ColBool:
			b, ok := v.(bool)
			if !ok {
				return nil, ErrSchemaMismatch
			}
			if b {
				data[off] = 1
			}
		case ColFloat64:
			f, ok := asFloat64(v)
			if !ok {
				return nil, ErrSchemaMismatch
			}
			bx.PutU64At(data, off, math.Float64bits(f))
		case ColChar:
			s, ok := v.(string)
			if !ok || len(s) > col.Len {
				return nil, ErrSchemaMismatch
			}
			copy(data[off:off+sz], s)
		default:
			return nil, ErrUnsupportedType
		}
		off += sz
	}
	return &Record{Schema: schema, Nullmap: nullmap, Data: data}, nil
}

// Values decodes every column. NULL columns decode to nil; ColChar values
// are returned with trailing NUL padding stripped.
func (r *Record) Values() []any {
	out := make([]any, r.Schema.NumCols())
	for i := range r.Schema.Cols {
		out[i] = r.Value(i)
	}
	return out
}

// Value decodes column i.
func (r *Record) Value(i int) any {
	if bitmapx.Get(r.Nullmap, i) {
		return nil
	}
	col := r.Schema.Cols[i]
	off := r.Schema.FieldOffset(i)
	switch col.Type {
	case ColInt32:
		return bx.I32At(r.Data, off)
	case ColInt64:
		return bx.I64(r.Data[off:])
	case ColBool:
		return r.Data[off] != 0
	case ColFloat64:
		return math.Float64frombits(bx.U64At(r.Data, off))
	case ColChar:
		return strings.TrimRight(string(r.Data[off:off+col.Len]), "\x00")
	default:
		return nil
	}
}

// ValueByName decodes the named column.
func (r *Record) ValueByName(name string) (any, error) {
	i := r.Schema.IndexOf(name)
	if i < 0 {
		return nil, ErrUnknownColumn
	}
	return r.Value(i), nil
}

// Project builds a new record containing only the projection schema's
// columns, in the projection's order. Every projected column must exist in
// the source schema under the same name.
func Project(proj *Schema, src *Record) (*Record, error) {
	nullmap := make([]byte, proj.NullmapSize())
	data := make([]byte, proj.RecordSize())

	off := 0
	for i, col := range proj.Cols {
		j := src.Schema.IndexOf(col.Name)
		if j < 0 {
			return nil, ErrUnknownColumn
		}
		sz := col.Size()
		if bitmapx.Get(src.Nullmap, j) {
			bitmapx.Set(nullmap, i, true)
		} else {
			srcOff := src.Schema.FieldOffset(j)
			copy(data[off:off+sz], src.Data[srcOff:srcOff+sz])
		}
		off += sz
	}
	return &Record{Schema: proj, Nullmap: nullmap, Data: data, RID: src.RID}, nil
}

// Equal reports byte equality of payload and nullmap.
func (r *Record) Equal(o *Record) bool {
	return bytes.Equal(r.Nullmap, o.Nullmap) && bytes.Equal(r.Data, o.Data)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}
