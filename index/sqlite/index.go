// Package sqlite persists index segments in a SQLite database file. Each
// flush stores a new segment; readers query their segment on demand.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/index"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const Type = "sqlite"

type SQLiteIndex struct {
	mu sync.RWMutex
	db *sql.DB

	opts    index.Options
	pending *index.Memory
	segment int64
	count   int
	dirty   bool
}

func Build(ctx context.Context, opts index.Options) (index.Index, error) {
	dsn := opts.Path
	if opts.ReadOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro", opts.Path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	si := &SQLiteIndex{
		db:      db,
		opts:    opts,
		pending: index.NewMemory(),
		segment: -1,
	}

	if err := si.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return si, nil
}

func (si *SQLiteIndex) init(ctx context.Context) error {
	if _, err := si.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}

	if si.opts.ReadOnly {
		si.segment = si.opts.Offset
		return si.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM fdb_entries WHERE segment = ?", si.segment).Scan(&si.count)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fdb_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS fdb_entries (
		segment INTEGER NOT NULL REFERENCES fdb_segments(id),
		fingerprint TEXT NOT NULL,
		key TEXT NOT NULL,
		file TEXT NOT NULL,
		data_offset INTEGER NOT NULL,
		data_length INTEGER NOT NULL,
		external INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (segment, fingerprint)
	);
	`
	_, err := si.db.ExecContext(ctx, schema)
	return err
}

func (*SQLiteIndex) Type() string {
	return Type
}

func (si *SQLiteIndex) Put(ctx context.Context, key data.Key, field index.Field) error {
	if si.opts.ReadOnly {
		return data.ErrReadOnly
	}

	si.mu.Lock()
	defer si.mu.Unlock()

	si.pending.Put(key, field)
	si.dirty = true
	return nil
}

func (si *SQLiteIndex) Get(ctx context.Context, key data.Key) (index.Field, bool, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if !si.opts.ReadOnly {
		f, ok := si.pending.Get(key)
		return f, ok, nil
	}

	var f index.Field
	err := si.db.QueryRowContext(ctx,
		"SELECT file, data_offset, data_length, external FROM fdb_entries WHERE segment = ? AND fingerprint = ?",
		si.segment, key.Fingerprint()).Scan(&f.File, &f.Offset, &f.Length, &f.External)
	if err == sql.ErrNoRows {
		return index.Field{}, false, nil
	}
	if err != nil {
		return index.Field{}, false, err
	}
	return f, true, nil
}

func (si *SQLiteIndex) Scan(ctx context.Context, fn func(index.Entry) error) error {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if !si.opts.ReadOnly {
		return si.pending.Scan(fn)
	}

	rows, err := si.db.QueryContext(ctx,
		"SELECT key, file, data_offset, data_length, external FROM fdb_entries WHERE segment = ? ORDER BY fingerprint",
		si.segment)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		var f index.Field
		if err := rows.Scan(&raw, &f.File, &f.Offset, &f.Length, &f.External); err != nil {
			return err
		}
		key, err := index.UnmarshalKey(raw)
		if err != nil {
			return err
		}
		if err := fn(index.Entry{Key: key, Field: f}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (si *SQLiteIndex) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if !si.opts.ReadOnly {
		return si.pending.Len()
	}
	return si.count
}

// Flush writes all entries of the writer as a new segment in one
// transaction.
func (si *SQLiteIndex) Flush(ctx context.Context) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	if si.opts.ReadOnly || !si.dirty {
		return nil
	}

	tx, err := si.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO fdb_segments DEFAULT VALUES")
	if err != nil {
		return err
	}
	segment, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO fdb_entries (segment, fingerprint, key, file, data_offset, data_length, external) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	err = si.pending.Scan(func(e index.Entry) error {
		key, err := index.MarshalKey(e.Key)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, segment, e.Key.Fingerprint(), key,
			e.Field.File, e.Field.Offset, e.Field.Length, e.Field.External)
		return err
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	si.segment = segment
	si.dirty = false
	return nil
}

func (si *SQLiteIndex) Close(ctx context.Context) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	si.pending.Clear()
	return si.db.Close()
}

func (si *SQLiteIndex) Locator() index.Locator {
	si.mu.RLock()
	defer si.mu.RUnlock()

	return index.Locator{Path: si.opts.Path, Offset: si.segment}
}
