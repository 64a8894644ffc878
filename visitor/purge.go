package visitor

import (
	"context"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

type segmentCount struct {
	seg    database.Segment
	live   int
	masked int
}

// Purge finds index segments whose every entry was archived again in a
// newer segment. The segments are reported once the database is complete
// and, when doit is set, cleared from the database.
type Purge struct {
	request data.Request
	doit    bool
	emit    func(PurgeElement) error

	seen     map[string]struct{}
	segments []*segmentCount
	byID     map[string]*segmentCount
}

var _ Visitor = (*Purge)(nil)

func NewPurge(request data.Request, doit bool, emit func(PurgeElement) error) *Purge {
	return &Purge{request: request, doit: doit, emit: emit}
}

func (p *Purge) reset() {
	p.seen = make(map[string]struct{})
	p.segments = nil
	p.byID = make(map[string]*segmentCount)
}

func (p *Purge) VisitDatabase(ctx context.Context, db database.DB) (bool, error) {
	p.reset()
	return p.request.Matches(db.Key()), nil
}

// VisitIndex descends into every segment: masking depends on all newer
// segments, not only the ones the request selects.
func (p *Purge) VisitIndex(ctx context.Context, db database.DB, seg database.Segment) (bool, error) {
	sc := &segmentCount{seg: seg}
	p.segments = append(p.segments, sc)
	p.byID[seg.ID()] = sc
	return true, nil
}

func (p *Purge) VisitDatum(ctx context.Context, db database.DB, seg database.Segment, datum data.Key, field database.Field) error {
	sc, ok := p.byID[seg.ID()]
	if !ok {
		return data.NotImplemented("purge received a datum outside of an index")
	}

	id := maskKey(seg, datum)
	if _, ok := p.seen[id]; ok {
		sc.masked++
		return nil
	}
	p.seen[id] = struct{}{}
	sc.live++
	return nil
}

func (p *Purge) DatabaseComplete(ctx context.Context, db database.DB) error {
	defer p.reset()

	var masked []database.Segment
	var elements []PurgeElement
	for _, sc := range p.segments {
		if sc.live > 0 || !p.request.Matches(sc.seg.Key) {
			continue
		}
		masked = append(masked, sc.seg)
		elements = append(elements, PurgeElement{
			Database:  db.Key(),
			Directory: db.Directory(),
			Segment:   sc.seg,
			Masked:    sc.masked,
		})
	}

	if p.doit && len(masked) > 0 {
		if err := db.Purge(ctx, masked); err != nil {
			return err
		}
		for i := range elements {
			elements[i].Purged = true
		}
	}

	for _, e := range elements {
		if err := p.emit(e); err != nil {
			return err
		}
	}
	return nil
}
