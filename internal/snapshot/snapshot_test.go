package snapshot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haintp/wrendb/internal/buffer"
	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/internal/table"
)

func snapSchema() *record.Schema {
	return &record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt64},
		{Name: "name", Type: record.ColChar, Len: 12},
		{Name: "score", Type: record.ColFloat64, Nullable: true},
	}}
}

func newSnapTable(t *testing.T, name string) *table.Handle {
	t.Helper()

	disk, err := storage.NewDiskManager(t.TempDir(), 256)
	require.NoError(t, err)
	bp, err := buffer.NewPoolManager(disk, 8, buffer.ReplacerLRU, 2)
	require.NoError(t, err)
	tab, err := table.Create(disk, bp, name, snapSchema(), storage.NAryModel)
	require.NoError(t, err)
	return tab
}

func TestSnapshot_RoundTrip(t *testing.T) {
	tab := newSnapTable(t, "src.tbl")
	s := tab.Schema()

	rows := [][]any{
		{int64(1), "ada", 9.5},
		{int64(2), "brian", nil},
		{int64(3), "cora", 7.25},
	}
	var lastRID storage.RID
	for _, row := range rows {
		rec, err := record.Encode(s, row)
		require.NoError(t, err)
		rid, err := tab.InsertRecord(rec)
		require.NoError(t, err)
		lastRID = rid
	}
	// A deleted record must not travel with the snapshot.
	require.NoError(t, tab.DeleteRecord(lastRID))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tab))

	schema, recs, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, s.Cols, schema.Cols)
	require.Len(t, recs, 2)
	require.Equal(t, []any{int64(1), "ada", 9.5}, recs[0].Values())
	require.Equal(t, []any{int64(2), "brian", nil}, recs[1].Values())
}

func TestSnapshot_RestoreIntoFreshTable(t *testing.T) {
	src := newSnapTable(t, "src.tbl")
	s := src.Schema()
	for i := int64(0); i < 10; i++ {
		rec, err := record.Encode(s, []any{i, "row", float64(i) / 2})
		require.NoError(t, err)
		_, err = src.InsertRecord(rec)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, src))

	schema, recs, err := Read(&buf)
	require.NoError(t, err)

	dst := newSnapTable(t, "dst.tbl")
	require.Equal(t, dst.Schema().Cols, schema.Cols)
	require.NoError(t, Restore(dst, recs))
	require.Equal(t, 10, dst.Header().RecNum)

	rid, err := dst.FirstRID()
	require.NoError(t, err)
	var ids []int64
	for rid.Valid() {
		rec, err := dst.GetRecord(rid)
		require.NoError(t, err)
		ids = append(ids, rec.Value(0).(int64))
		rid, err = dst.NextRID(rid)
		require.NoError(t, err)
	}
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ids)
}

func TestSnapshot_EmptyTable(t *testing.T) {
	tab := newSnapTable(t, "empty.tbl")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tab))

	schema, recs, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, tab.Schema().Cols, schema.Cols)
	require.Empty(t, recs)
}

func TestSnapshot_RejectsGarbage(t *testing.T) {
	_, _, err := Read(bytes.NewReader([]byte("not a snapshot")))
	require.Error(t, err)
}
