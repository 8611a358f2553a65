package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haintp/wrendb/internal/buffer"
	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/internal/table"
)

func scanSchema() *record.Schema {
	return &record.Schema{Cols: []record.Column{
		{Name: "x", Type: record.ColInt64},
		{Name: "label", Type: record.ColChar, Len: 8},
	}}
}

func newScanTable(t *testing.T, xs ...int64) *table.Handle {
	t.Helper()

	disk, err := storage.NewDiskManager(t.TempDir(), 256)
	require.NoError(t, err)
	bp, err := buffer.NewPoolManager(disk, 8, buffer.ReplacerLRU, 2)
	require.NoError(t, err)

	tab, err := table.Create(disk, bp, "scan.tbl", scanSchema(), storage.NAryModel)
	require.NoError(t, err)

	for _, x := range xs {
		rec, err := record.Encode(tab.Schema(), []any{x, "row"})
		require.NoError(t, err)
		_, err = tab.InsertRecord(rec)
		require.NoError(t, err)
	}
	return tab
}

func xValues(recs []*record.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Value(0).(int64))
	}
	return out
}

func xAbove(n int64) Predicate {
	return func(r *record.Record) (bool, error) {
		return r.Value(0).(int64) > n, nil
	}
}

func TestSeqScan_AllRecords(t *testing.T) {
	tab := newScanTable(t, 10, 20, 30)

	recs, err := Collect(NewSeqScan(tab))
	require.NoError(t, err)
	require.Equal(t, []int64{10, 20, 30}, xValues(recs))
}

func TestSeqScan_EmptyTable(t *testing.T) {
	tab := newScanTable(t)

	scan := NewSeqScan(tab)
	require.NoError(t, scan.Init())
	require.True(t, scan.IsEnd())
	require.Nil(t, scan.Record())
}

func TestFilter_DropsNonMatching(t *testing.T) {
	tab := newScanTable(t, -3, 4, 0, 9)

	recs, err := Collect(NewFilter(NewSeqScan(tab), xAbove(0)))
	require.NoError(t, err)
	require.Equal(t, []int64{4, 9}, xValues(recs))
}

func TestFilter_NoMatchReachesEndCleanly(t *testing.T) {
	tab := newScanTable(t, 1, 2, 3)

	f := NewFilter(NewSeqScan(tab), xAbove(100))
	require.NoError(t, f.Init())
	require.False(t, f.IsEnd())

	// One Next drives the child dry without producing anything.
	require.NoError(t, f.Next())
	require.Nil(t, f.Record())
	require.True(t, f.IsEnd())
}

func TestLimit_StopsAtN(t *testing.T) {
	tab := newScanTable(t, 1, 2, 3, 4, 5)

	recs, err := Collect(NewLimit(NewSeqScan(tab), 3))
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, xValues(recs))
}

func TestLimit_ZeroIsEndImmediately(t *testing.T) {
	tab := newScanTable(t, 1, 2)

	l := NewLimit(NewSeqScan(tab), 0)
	require.NoError(t, l.Init())
	require.True(t, l.IsEnd())
}

func TestLimit_LargerThanChild(t *testing.T) {
	tab := newScanTable(t, 1, 2)

	recs, err := Collect(NewLimit(NewSeqScan(tab), 10))
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, xValues(recs))
}

func TestProjection_KeepsColumnOrder(t *testing.T) {
	tab := newScanTable(t, 42)

	proj := &record.Schema{Cols: []record.Column{
		{Name: "label", Type: record.ColChar, Len: 8},
		{Name: "x", Type: record.ColInt64},
	}}
	p := NewProjection(NewSeqScan(tab), proj)
	recs, err := Collect(p)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, []any{"row", int64(42)}, recs[0].Values())
	require.Same(t, proj, p.OutSchema())
}

// The full pipeline from the classic example: scan, keep x > 0, take two,
// project onto {x}.
func TestPipeline_ScanFilterLimitProjection(t *testing.T) {
	tab := newScanTable(t, -1, 5, 7, 9)

	proj := &record.Schema{Cols: []record.Column{{Name: "x", Type: record.ColInt64}}}
	pipe := NewProjection(
		NewLimit(
			NewFilter(NewSeqScan(tab), xAbove(0)),
			2,
		),
		proj,
	)

	require.NoError(t, pipe.Init())
	var got []int64
	for !pipe.IsEnd() {
		require.NoError(t, pipe.Next())
		if rec := pipe.Record(); rec != nil {
			got = append(got, rec.Value(0).(int64))
		}
	}
	require.Equal(t, []int64{5, 7}, got)
	require.True(t, pipe.IsEnd())
}

func TestPipeline_SeesDeletesBeforeInit(t *testing.T) {
	tab := newScanTable(t, 1, 2, 3)

	rid, err := tab.FirstRID()
	require.NoError(t, err)
	require.NoError(t, tab.DeleteRecord(rid))

	recs, err := Collect(NewSeqScan(tab))
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, xValues(recs))
}
