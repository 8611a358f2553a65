// Package executor implements the pull-based operator pipeline. Operators
// produce one record per Next call: after Next returns, either Record() is
// non-nil or IsEnd() reports true. Errors from the storage layers propagate
// unchanged.
package executor

import (
	"github.com/haintp/wrendb/internal/record"
)

// Executor is one node of the operator tree.
type Executor interface {
	// Init prepares internal state and computes the initial end flag.
	Init() error

	// Next advances to the next record. Precondition: !IsEnd().
	Next() error

	// IsEnd reports that no further records will be produced.
	IsEnd() bool

	// Record returns the record produced by the last Next, or nil if that
	// call ended the stream without producing one.
	Record() *record.Record

	// OutSchema describes the records this operator produces.
	OutSchema() *record.Schema
}

// Predicate decides whether a record passes a filter.
type Predicate func(*record.Record) (bool, error)

// Collect drives an executor to exhaustion and gathers the produced records.
func Collect(ex Executor) ([]*record.Record, error) {
	if err := ex.Init(); err != nil {
		return nil, err
	}
	var out []*record.Record
	for !ex.IsEnd() {
		if err := ex.Next(); err != nil {
			return nil, err
		}
		if rec := ex.Record(); rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}
