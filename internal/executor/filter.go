package executor

import "github.com/haintp/wrendb/internal/record"

// Filter yields the child's records that satisfy the predicate. A Next call
// that drives the child to exhaustion without a match produces no record.
type Filter struct {
	child Executor
	pred  Predicate
	rec   *record.Record
	atEnd bool
}

var _ Executor = (*Filter)(nil)

func NewFilter(child Executor, pred Predicate) *Filter {
	return &Filter{child: child, pred: pred}
}

func (f *Filter) Init() error {
	if err := f.child.Init(); err != nil {
		return err
	}
	f.rec = nil
	f.atEnd = f.child.IsEnd()
	return nil
}

func (f *Filter) Next() error {
	f.rec = nil
	for !f.atEnd {
		if err := f.child.Next(); err != nil {
			return err
		}
		rec := f.child.Record()
		f.atEnd = f.child.IsEnd()
		if rec == nil {
			continue
		}
		ok, err := f.pred(rec)
		if err != nil {
			return err
		}
		if ok {
			f.rec = rec
			return nil
		}
	}
	return nil
}

func (f *Filter) IsEnd() bool { return f.atEnd }

func (f *Filter) Record() *record.Record { return f.rec }

func (f *Filter) OutSchema() *record.Schema { return f.child.OutSchema() }
