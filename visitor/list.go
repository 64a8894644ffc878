package visitor

import (
	"context"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// List emits every datum matching the request. Unless Full is set, only the
// newest copy of a datum archived several times is reported.
type List struct {
	request data.Request
	full    bool
	emit    func(ListElement) error

	seen map[string]struct{}
}

var _ Visitor = (*List)(nil)

func NewList(request data.Request, full bool, emit func(ListElement) error) *List {
	return &List{request: request, full: full, emit: emit}
}

func (l *List) VisitDatabase(ctx context.Context, db database.DB) (bool, error) {
	l.seen = make(map[string]struct{})
	return l.request.Matches(db.Key()), nil
}

func (l *List) VisitIndex(ctx context.Context, db database.DB, seg database.Segment) (bool, error) {
	return l.request.Matches(seg.Key), nil
}

func (l *List) VisitDatum(ctx context.Context, db database.DB, seg database.Segment, datum data.Key, field database.Field) error {
	if !l.request.Matches(datum) {
		return nil
	}

	if !l.full {
		// Segments arrive newest first.
		id := maskKey(seg, datum)
		if _, ok := l.seen[id]; ok {
			return nil
		}
		l.seen[id] = struct{}{}
	}

	return l.emit(ListElement{
		Database:  db.Key(),
		Index:     seg.Key,
		Datum:     datum,
		Directory: db.Directory(),
		Field:     field,
		Time:      seg.Time,
	})
}

func (l *List) DatabaseComplete(ctx context.Context, db database.DB) error {
	l.seen = nil
	return nil
}

func maskKey(seg database.Segment, datum data.Key) string {
	return seg.Key.Fingerprint() + "/" + datum.Fingerprint()
}
