package executor

import (
	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/internal/table"
)

// SeqScan walks the table's forward cursor, yielding every live record in
// (page, slot) order.
type SeqScan struct {
	tab   *table.Handle
	rid   storage.RID
	rec   *record.Record
	atEnd bool
}

var _ Executor = (*SeqScan)(nil)

func NewSeqScan(tab *table.Handle) *SeqScan {
	return &SeqScan{tab: tab}
}

func (s *SeqScan) Init() error {
	rid, err := s.tab.FirstRID()
	if err != nil {
		return err
	}
	s.rid = rid
	s.rec = nil
	s.atEnd = !rid.Valid()
	return nil
}

func (s *SeqScan) Next() error {
	rec, err := s.tab.GetRecord(s.rid)
	if err != nil {
		return err
	}
	s.rec = rec

	rid, err := s.tab.NextRID(s.rid)
	if err != nil {
		return err
	}
	s.rid = rid
	s.atEnd = !rid.Valid()
	return nil
}

func (s *SeqScan) IsEnd() bool { return s.atEnd }

func (s *SeqScan) Record() *record.Record { return s.rec }

func (s *SeqScan) OutSchema() *record.Schema { return s.tab.Schema() }
