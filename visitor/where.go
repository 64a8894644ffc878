package visitor

import (
	"context"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// Where emits the directory of every matching database.
type Where struct {
	request data.Request
	emit    func(WhereElement) error
}

var _ Visitor = (*Where)(nil)

func NewWhere(request data.Request, emit func(WhereElement) error) *Where {
	return &Where{request: request, emit: emit}
}

func (w *Where) VisitDatabase(ctx context.Context, db database.DB) (bool, error) {
	if !w.request.Matches(db.Key()) {
		return false, nil
	}
	return false, w.emit(WhereElement{Database: db.Key(), Directory: db.Directory()})
}

func (w *Where) VisitIndex(ctx context.Context, db database.DB, seg database.Segment) (bool, error) {
	return false, data.NotImplemented("where does not visit indexes")
}

func (w *Where) VisitDatum(ctx context.Context, db database.DB, seg database.Segment, datum data.Key, field database.Field) error {
	return data.NotImplemented("where does not visit data")
}

func (w *Where) DatabaseComplete(ctx context.Context, db database.DB) error {
	return nil
}
