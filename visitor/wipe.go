package visitor

import (
	"context"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// Wipe reports every database matching the request with the files it holds,
// and deletes them when doit is set.
type Wipe struct {
	request data.Request
	doit    bool
	emit    func(WipeElement) error

	current *WipeElement
}

var _ Visitor = (*Wipe)(nil)

func NewWipe(request data.Request, doit bool, emit func(WipeElement) error) *Wipe {
	return &Wipe{request: request, doit: doit, emit: emit}
}

func (w *Wipe) VisitDatabase(ctx context.Context, db database.DB) (bool, error) {
	w.current = nil
	if !w.request.Matches(db.Key()) {
		return false, nil
	}

	files, err := db.Files(ctx)
	if err != nil {
		return false, err
	}

	element := &WipeElement{Database: db.Key(), Directory: db.Directory()}
	for _, f := range files {
		element.Files = append(element.Files, f.Name)
	}
	w.current = element
	return false, nil
}

func (w *Wipe) VisitIndex(ctx context.Context, db database.DB, seg database.Segment) (bool, error) {
	return false, data.NotImplemented("wipe does not visit indexes")
}

func (w *Wipe) VisitDatum(ctx context.Context, db database.DB, seg database.Segment, datum data.Key, field database.Field) error {
	return data.NotImplemented("wipe does not visit data")
}

func (w *Wipe) DatabaseComplete(ctx context.Context, db database.DB) error {
	element := w.current
	w.current = nil
	if element == nil {
		return nil
	}

	if w.doit {
		if err := db.Wipe(ctx); err != nil {
			return err
		}
		element.Wiped = true
	}
	return w.emit(*element)
}
