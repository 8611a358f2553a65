package executor

import "github.com/haintp/wrendb/internal/record"

// Projection narrows each child record to the projection schema, preserving
// the projection's column order.
type Projection struct {
	child  Executor
	schema *record.Schema
	rec    *record.Record
	atEnd  bool
}

var _ Executor = (*Projection)(nil)

func NewProjection(child Executor, schema *record.Schema) *Projection {
	return &Projection{child: child, schema: schema}
}

func (p *Projection) Init() error {
	if err := p.child.Init(); err != nil {
		return err
	}
	p.rec = nil
	p.atEnd = p.child.IsEnd()
	return nil
}

func (p *Projection) Next() error {
	if err := p.child.Next(); err != nil {
		return err
	}
	src := p.child.Record()
	p.atEnd = p.child.IsEnd()
	if src == nil {
		p.rec = nil
		return nil
	}
	rec, err := record.Project(p.schema, src)
	if err != nil {
		return err
	}
	p.rec = rec
	return nil
}

func (p *Projection) IsEnd() bool { return p.atEnd }

func (p *Projection) Record() *record.Record { return p.rec }

func (p *Projection) OutSchema() *record.Schema { return p.schema }
