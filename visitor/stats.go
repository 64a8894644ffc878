package visitor

import (
	"context"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// Stats emits the counters of every matching database.
type Stats struct {
	request data.Request
	emit    func(StatsElement) error
}

var _ Visitor = (*Stats)(nil)

func NewStats(request data.Request, emit func(StatsElement) error) *Stats {
	return &Stats{request: request, emit: emit}
}

func (s *Stats) VisitDatabase(ctx context.Context, db database.DB) (bool, error) {
	if !s.request.Matches(db.Key()) {
		return false, nil
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		return false, err
	}
	return false, s.emit(StatsElement{Database: db.Key(), Directory: db.Directory(), Stats: stats})
}

func (s *Stats) VisitIndex(ctx context.Context, db database.DB, seg database.Segment) (bool, error) {
	return false, data.NotImplemented("stats does not visit indexes")
}

func (s *Stats) VisitDatum(ctx context.Context, db database.DB, seg database.Segment, datum data.Key, field database.Field) error {
	return data.NotImplemented("stats does not visit data")
}

func (s *Stats) DatabaseComplete(ctx context.Context, db database.DB) error {
	return nil
}
