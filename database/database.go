// Package database implements the per-database storage sessions a catalog
// archives into, and the Archiver caching one session per database key.
package database

import (
	"context"
	"time"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/index"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/registry"
	"github.com/mwantia/fdb/store"
	"github.com/mwantia/fdb/toc"
)

// Field locates a payload; see index.Field.
type Field = index.Field

// Segment is one persisted index listed in a database.
type Segment struct {
	Key    data.Key
	Type   string
	Path   string
	Offset int64
	// Data is the file holding the payloads the segment points to.
	Data string
	Time time.Time
}

// ID identifies the segment within its database.
func (s Segment) ID() string {
	return s.Path + "@" + formatOffset(s.Offset)
}

type Stats struct {
	Segments   int
	Fields     int
	DataFiles  int
	DataBytes  int64
	IndexFiles int
	IndexBytes int64
	TocRecords int
}

func (s *Stats) Add(other Stats) {
	s.Segments += other.Segments
	s.Fields += other.Fields
	s.DataFiles += other.DataFiles
	s.DataBytes += other.DataBytes
	s.IndexFiles += other.IndexFiles
	s.IndexBytes += other.IndexBytes
	s.TocRecords += other.TocRecords
}

type DB interface {
	Key() data.Key
	Directory() string
	Writable() bool
	// IndexType is the index implementation new segments are written with.
	IndexType() string

	Archive(ctx context.Context, idx, datum data.Key, payload []byte) error
	// Adopt indexes a payload stored outside the database without copying it.
	Adopt(ctx context.Context, idx, datum data.Key, field Field) error
	// Get looks a datum up in the newest segment holding it.
	Get(ctx context.Context, idx, datum data.Key) (Field, bool, error)
	Read(ctx context.Context, field Field) ([]byte, error)

	// Indexes lists the live segments, newest first.
	Indexes(ctx context.Context) ([]Segment, error)
	OpenIndex(ctx context.Context, seg Segment) (index.Index, error)
	// Records streams the raw record log.
	Records(ctx context.Context, fn func(Record) error) error
	// Files lists the files in the database directory.
	Files(ctx context.Context) ([]store.Entry, error)
	Stats(ctx context.Context) (Stats, error)

	// Purge masks the given segments and deletes files nothing references.
	Purge(ctx context.Context, masked []Segment) error
	// Wipe deletes the whole database.
	Wipe(ctx context.Context) error

	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Env is what a database implementation needs from its catalog.
type Env struct {
	Roots   *toc.RootManager
	Store   store.Store
	Indexes *index.Registry
	// IndexType is used for databases created by a writer.
	IndexType string
	Logger    *log.Logger
}

// Args selects the database a builder opens: by key, resolved through the
// root manager, or by an already known directory.
type Args struct {
	Key       data.Key
	Directory string
	Env       *Env
}

// Registry builds database sessions by type name, e.g. "toc.writer".
type Registry = registry.Registry[Args, DB]

func NewRegistry() *Registry {
	return registry.New[Args, DB]("database")
}
