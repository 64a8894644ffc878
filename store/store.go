// Package store abstracts the file operations a catalog needs from the
// place its roots live. Paths are slash separated; each implementation maps
// them onto its own namespace.
package store

import (
	"context"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/registry"
)

// Entry is one child of a listed directory.
type Entry struct {
	Name string
	Size int64
	Dir  bool
}

type Store interface {
	// Name identifies the implementation, e.g. "local".
	Name() string

	// Exists reports whether a file or a directory is present at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Read returns length bytes starting at offset. A negative length reads
	// to the end of the file.
	Read(ctx context.Context, path string, offset, length int64) ([]byte, error)
	// Append adds data to the end of the file, creating it if needed, and
	// returns the offset it was written at.
	Append(ctx context.Context, path string, data []byte) (int64, error)
	// Write replaces the whole file.
	Write(ctx context.Context, path string, data []byte) error
	// Delete removes a file, or a directory with everything below it when
	// recursive is set. A missing path fails with data.ErrNotExist.
	Delete(ctx context.Context, path string, recursive bool) error
	// List returns the direct children of a directory.
	List(ctx context.Context, path string) ([]Entry, error)
	MkdirAll(ctx context.Context, path string) error

	Close(ctx context.Context) error
}

// Registry builds stores from the "store" configuration section.
type Registry = registry.Registry[*config.Config, Store]

func NewRegistry() *Registry {
	return registry.New[*config.Config, Store]("store")
}
