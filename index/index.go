// Package index maps datum keys to the location of their payload. An index
// is written once per session and persisted as a segment that readers open
// by locator.
package index

import (
	"context"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/registry"
	"github.com/mwantia/fdb/store"
)

// Field locates one payload.
type Field struct {
	File   string `json:"file"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
	// External marks adopted payloads the database does not own.
	External bool `json:"external,omitempty"`
}

type Entry struct {
	Key   data.Key
	Field Field
}

// Locator identifies a persisted segment. The meaning of Offset depends on
// the implementation: a byte offset for files, a segment id for databases.
type Locator struct {
	Path   string
	Offset int64
}

type Options struct {
	Path     string
	ReadOnly bool
	// Offset selects the segment a read-only index opens.
	Offset int64
	Store  store.Store
}

type Index interface {
	// Type is the registry name of the implementation.
	Type() string

	Put(ctx context.Context, key data.Key, field Field) error
	Get(ctx context.Context, key data.Key) (Field, bool, error)
	// Scan calls fn for every entry in key order until fn fails.
	Scan(ctx context.Context, fn func(Entry) error) error
	Len() int

	// Flush persists the entries written so far as a new segment.
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
	// Locator is valid after the first flush of a writer.
	Locator() Locator
}

// Registry builds indexes by type name.
type Registry = registry.Registry[Options, Index]

func NewRegistry() *Registry {
	return registry.New[Options, Index]("index")
}
