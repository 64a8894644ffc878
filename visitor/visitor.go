// Package visitor walks databases, their index segments and the data they
// hold, handing every step to a Visitor. The catalog queries (list, dump,
// where, wipe, purge, stats) are visitors feeding a stream.Iterator.
package visitor

import (
	"context"
	"iter"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/index"
)

// Visitor receives the traversal of one or more databases. VisitDatabase and
// VisitIndex return whether the walk descends into the database or segment.
// A visitor that never descends returns data.NotImplemented from the
// callbacks below its level, so a driver calling them fails loudly.
type Visitor interface {
	VisitDatabase(ctx context.Context, db database.DB) (bool, error)
	VisitIndex(ctx context.Context, db database.DB, seg database.Segment) (bool, error)
	VisitDatum(ctx context.Context, db database.DB, seg database.Segment, datum data.Key, field database.Field) error
	// DatabaseComplete is called once per visited database, after its
	// segments, before the database is closed.
	DatabaseComplete(ctx context.Context, db database.DB) error
}

// Walk drives v over every database yielded by dbs. Each database is closed
// once it has been visited. The walk stops at the first error or when ctx is
// done.
func Walk(ctx context.Context, dbs iter.Seq2[database.DB, error], v Visitor) error {
	for db, err := range dbs {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			db.Close(ctx)
			return err
		}

		err := walkDatabase(ctx, db, v)
		if cerr := db.Close(ctx); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

func walkDatabase(ctx context.Context, db database.DB, v Visitor) error {
	descend, err := v.VisitDatabase(ctx, db)
	if err != nil {
		return err
	}

	if descend {
		segments, err := db.Indexes(ctx)
		if err != nil {
			return err
		}
		for _, seg := range segments {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := walkIndex(ctx, db, seg, v); err != nil {
				return err
			}
		}
	}

	return v.DatabaseComplete(ctx, db)
}

func walkIndex(ctx context.Context, db database.DB, seg database.Segment, v Visitor) error {
	descend, err := v.VisitIndex(ctx, db, seg)
	if err != nil || !descend {
		return err
	}

	idx, err := db.OpenIndex(ctx, seg)
	if err != nil {
		return err
	}
	defer idx.Close(ctx)

	return idx.Scan(ctx, func(e index.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return v.VisitDatum(ctx, db, seg, e.Key, e.Field)
	})
}
