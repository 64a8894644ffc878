// Package api defines the catalog a client archives into and queries, and
// the two built-in catalogs: "local", owning databases on a set of roots,
// and "select", routing between sub-catalogs by key.
package api

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/index"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/registry"
	"github.com/mwantia/fdb/rules"
	"github.com/mwantia/fdb/store"
	"github.com/mwantia/fdb/stream"
	"github.com/mwantia/fdb/toc"
	"github.com/mwantia/fdb/visitor"
)

type Catalog interface {
	// Name is the registry name of the implementation.
	Name() string
	// ID identifies this instance in logs and reports.
	ID() string

	Archive(ctx context.Context, key data.Key, payload []byte) error
	// Adopt indexes a payload already stored elsewhere.
	Adopt(ctx context.Context, key data.Key, field database.Field) error
	// Retrieve reads the payloads of every key the request expands to,
	// concatenated. Keys without a payload are skipped.
	Retrieve(ctx context.Context, request data.Request) (io.ReadCloser, error)

	List(ctx context.Context, req ToolRequest, full bool) *stream.Iterator[visitor.ListElement]
	Dump(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.DumpElement]
	Where(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.WhereElement]
	Wipe(ctx context.Context, req ToolRequest, doit bool) *stream.Iterator[visitor.WipeElement]
	Purge(ctx context.Context, req ToolRequest, doit bool) *stream.Iterator[visitor.PurgeElement]
	Stats(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.StatsElement]

	Flush(ctx context.Context) error
	Close(ctx context.Context) error

	Writable() bool
	Visitable() bool
	Disabled() bool
	// Disable stops the catalog from accepting archives and answering queries.
	Disable()
}

// ToolRequest is the request of a catalog query. An empty request selects
// every database and must be asked for explicitly with All.
type ToolRequest struct {
	Request data.Request
	All     bool
}

func (r ToolRequest) Validate() error {
	if r.Request.Empty() && !r.All {
		return fmt.Errorf("%w: empty request, select everything explicitly", data.ErrInvalid)
	}
	return nil
}

// Dependencies are shared by every catalog built for one handle.
type Dependencies struct {
	Logger    *log.Logger
	Tables    *toc.Tables
	Stores    *store.Registry
	Databases *database.Registry
	Indexes   *index.Registry
	Catalogs  *Registry
	// Schema is used by catalogs whose configuration has no schema of its own.
	Schema rules.Rules
}

// Args are handed to a catalog builder: the catalog's own configuration
// section and the shared dependencies.
type Args struct {
	Config *config.Config
	Deps   *Dependencies
}

// Registry builds catalogs by type name.
type Registry = registry.Registry[Args, Catalog]

func NewRegistry() *Registry {
	return registry.New[Args, Catalog]("catalog")
}
