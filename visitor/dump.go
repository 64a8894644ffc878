package visitor

import (
	"context"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// Dump emits the raw toc records of every matching database.
type Dump struct {
	request data.Request
	emit    func(DumpElement) error
}

var _ Visitor = (*Dump)(nil)

func NewDump(request data.Request, emit func(DumpElement) error) *Dump {
	return &Dump{request: request, emit: emit}
}

func (d *Dump) VisitDatabase(ctx context.Context, db database.DB) (bool, error) {
	if !d.request.Matches(db.Key()) {
		return false, nil
	}

	err := db.Records(ctx, func(r database.Record) error {
		return d.emit(DumpElement{Database: db.Key(), Directory: db.Directory(), Record: r})
	})
	return false, err
}

func (d *Dump) VisitIndex(ctx context.Context, db database.DB, seg database.Segment) (bool, error) {
	return false, data.NotImplemented("dump does not visit indexes")
}

func (d *Dump) VisitDatum(ctx context.Context, db database.DB, seg database.Segment, datum data.Key, field database.Field) error {
	return data.NotImplemented("dump does not visit data")
}

func (d *Dump) DatabaseComplete(ctx context.Context, db database.DB) error {
	return nil
}
