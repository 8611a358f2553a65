package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haintp/wrendb/internal/buffer"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/pkg/bx"
)

func newPAXTable(t *testing.T) *Handle {
	t.Helper()

	disk, err := storage.NewDiskManager(t.TempDir(), 256)
	require.NoError(t, err)
	bp, err := buffer.NewPoolManager(disk, 8, buffer.ReplacerLRU, 2)
	require.NoError(t, err)

	tab, err := Create(disk, bp, "pax.tbl", tinySchema(), storage.PAXModel)
	require.NoError(t, err)
	return tab
}

// The PAX layout must be invisible through the table interface: the same
// CRUD and cursor behaviour as the row-major layout.
func TestPAX_CRUDMatchesNAry(t *testing.T) {
	tab := newPAXTable(t)
	s := tab.Schema()

	var rids []storage.RID
	for i := int64(0); i < 5; i++ {
		rid, err := tab.InsertRecord(mustEncode(t, s, i, float64(i)*1.5, "pax"))
		require.NoError(t, err)
		rids = append(rids, rid)
	}

	rec, err := tab.GetRecord(rids[3])
	require.NoError(t, err)
	require.Equal(t, []any{int64(3), 4.5, "pax"}, rec.Values())

	require.NoError(t, tab.UpdateRecord(rids[3], mustEncode(t, s, int64(33), nil, "upd")))
	rec, err = tab.GetRecord(rids[3])
	require.NoError(t, err)
	require.Equal(t, []any{int64(33), nil, "upd"}, rec.Values())

	require.NoError(t, tab.DeleteRecord(rids[1]))

	var got []int64
	rid, err := tab.FirstRID()
	require.NoError(t, err)
	for rid.Valid() {
		r, err := tab.GetRecord(rid)
		require.NoError(t, err)
		got = append(got, r.Value(0).(int64))
		rid, err = tab.NextRID(rid)
		require.NoError(t, err)
	}
	require.Equal(t, []int64{0, 2, 33, 4}, got)
}

func TestPAX_ChunkReadsColumnStripe(t *testing.T) {
	tab := newPAXTable(t)
	s := tab.Schema()

	rid0, err := tab.InsertRecord(mustEncode(t, s, int64(10), 1.0, "a"))
	require.NoError(t, err)
	_, err = tab.InsertRecord(mustEncode(t, s, int64(20), 2.0, "b"))
	require.NoError(t, err)

	pg, err := tab.fetchPageHandle(rid0.PageID)
	require.NoError(t, err)
	defer tab.bp.UnpinPage(tab.fileID, rid0.PageID, false)

	pax, ok := pg.(*paxPageHandle)
	require.True(t, ok)

	ids := pax.Chunk(0)
	require.Len(t, ids, 2)
	require.Equal(t, int64(10), bx.I64(ids[0]))
	require.Equal(t, int64(20), bx.I64(ids[1]))

	// Chunk skips dead slots.
	require.NoError(t, tab.DeleteRecord(rid0))
	pg2, err := tab.fetchPageHandle(rid0.PageID)
	require.NoError(t, err)
	defer tab.bp.UnpinPage(tab.fileID, rid0.PageID, false)

	ids = pg2.(*paxPageHandle).Chunk(0)
	require.Len(t, ids, 1)
	require.Equal(t, int64(20), bx.I64(ids[0]))
}
