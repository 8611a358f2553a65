package executor

import "github.com/haintp/wrendb/internal/record"

// Limit passes through at most n records from its child.
type Limit struct {
	child Executor
	limit int
	count int
	rec   *record.Record
	atEnd bool
}

var _ Executor = (*Limit)(nil)

func NewLimit(child Executor, n int) *Limit {
	return &Limit{child: child, limit: n}
}

func (l *Limit) Init() error {
	if err := l.child.Init(); err != nil {
		return err
	}
	l.count = 0
	l.rec = nil
	l.atEnd = l.child.IsEnd() || l.limit <= 0
	return nil
}

func (l *Limit) Next() error {
	if err := l.child.Next(); err != nil {
		return err
	}
	l.rec = l.child.Record()
	if l.rec != nil {
		l.count++
	}
	l.atEnd = l.child.IsEnd() || l.count >= l.limit
	return nil
}

func (l *Limit) IsEnd() bool { return l.atEnd }

func (l *Limit) Record() *record.Record { return l.rec }

func (l *Limit) OutSchema() *record.Schema { return l.child.OutSchema() }
