// Package fdb is the client handle of the field catalog. A handle builds the
// catalog named by its configuration, archives keyed payloads into it, and
// runs the streaming catalog queries.
package fdb

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/fdb/api"
	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/metric"
	"github.com/mwantia/fdb/rules"
	"github.com/mwantia/fdb/stream"
	"github.com/mwantia/fdb/toc"
	"github.com/mwantia/fdb/visitor"
)

type FDB struct {
	mu      sync.Mutex
	logger  *log.Logger
	catalog api.Catalog
	stats   *metric.Stats
	report  bool
	cleanup func()

	dirty  bool
	closed bool
}

// New builds the catalog of the given "type" (default "local") from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*FDB, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = config.New(nil)
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("fdb", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	cleanup := func() {}
	registries := options.Registries
	if registries == nil {
		registries = NewRegistries()
		var err error
		if cleanup, err = RegisterBuiltins(ctx, registries, cfg); err != nil {
			cleanup()
			return nil, err
		}
	}

	tables := options.Tables
	if tables == nil {
		tables = toc.DefaultTables()
	}

	schema, err := rules.FromConfig(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	deps := &api.Dependencies{
		Logger:    logger,
		Tables:    tables,
		Stores:    registries.Stores,
		Databases: registries.Databases,
		Indexes:   registries.Indexes,
		Catalogs:  registries.Catalogs,
		Schema:    schema,
	}

	catalog, err := registries.Catalogs.Build(ctx, cfg.GetString("type", api.LocalType), api.Args{Config: cfg, Deps: deps})
	if err != nil {
		cleanup()
		return nil, err
	}

	f := &FDB{
		logger:  logger,
		catalog: catalog,
		cleanup: cleanup,
		report:  cfg.GetBool("statistics", false),
	}

	if f.report || options.Metrics != nil {
		if f.stats, err = metric.NewStats(options.Metrics); err != nil {
			catalog.Close(ctx)
			cleanup()
			return nil, err
		}
	}

	logger.Debug("Opened %s catalog %s", catalog.Name(), catalog.ID())
	return f, nil
}

func (f *FDB) Name() string {
	return f.catalog.Name()
}

func (f *FDB) ID() string {
	return f.catalog.ID()
}

// Catalog exposes the catalog the handle was built with.
func (f *FDB) Catalog() api.Catalog {
	return f.catalog
}

// Statistics is nil unless statistics are enabled.
func (f *FDB) Statistics() *metric.Stats {
	return f.stats
}

// Dirty reports whether data was archived since the last flush.
func (f *FDB) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.dirty
}

func (f *FDB) Writable() bool {
	return f.catalog.Writable()
}

func (f *FDB) Visitable() bool {
	return f.catalog.Visitable()
}

func (f *FDB) Disabled() bool {
	return f.catalog.Disabled()
}

func (f *FDB) Disable() {
	f.catalog.Disable()
}

func (f *FDB) Archive(ctx context.Context, key data.Key, payload []byte) error {
	start := time.Now()
	if err := f.catalog.Archive(ctx, key, payload); err != nil {
		f.stats.Failed("archive")
		return err
	}
	f.stats.Archived(len(payload), time.Since(start))

	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
	return nil
}

// Adopt indexes a payload that already lives in a file outside the catalog.
func (f *FDB) Adopt(ctx context.Context, key data.Key, field database.Field) error {
	if err := f.catalog.Adopt(ctx, key, field); err != nil {
		f.stats.Failed("adopt")
		return err
	}

	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
	return nil
}

func (f *FDB) Retrieve(ctx context.Context, request data.Request) (io.ReadCloser, error) {
	rc, err := f.catalog.Retrieve(ctx, request)
	if err != nil {
		f.stats.Failed("retrieve")
		return nil, err
	}
	f.stats.Retrieved()
	return rc, nil
}

func (f *FDB) List(ctx context.Context, req api.ToolRequest, full bool) *stream.Iterator[visitor.ListElement] {
	return counted(ctx, f, "list", f.catalog.List(ctx, req, full))
}

func (f *FDB) Dump(ctx context.Context, req api.ToolRequest) *stream.Iterator[visitor.DumpElement] {
	return counted(ctx, f, "dump", f.catalog.Dump(ctx, req))
}

func (f *FDB) Where(ctx context.Context, req api.ToolRequest) *stream.Iterator[visitor.WhereElement] {
	return counted(ctx, f, "where", f.catalog.Where(ctx, req))
}

func (f *FDB) Wipe(ctx context.Context, req api.ToolRequest, doit bool) *stream.Iterator[visitor.WipeElement] {
	return counted(ctx, f, "wipe", f.catalog.Wipe(ctx, req, doit))
}

func (f *FDB) Purge(ctx context.Context, req api.ToolRequest, doit bool) *stream.Iterator[visitor.PurgeElement] {
	return counted(ctx, f, "purge", f.catalog.Purge(ctx, req, doit))
}

func (f *FDB) Stats(ctx context.Context, req api.ToolRequest) *stream.Iterator[visitor.StatsElement] {
	return counted(ctx, f, "stats", f.catalog.Stats(ctx, req))
}

func counted[T any](ctx context.Context, f *FDB, tool string, it *stream.Iterator[T]) *stream.Iterator[T] {
	if f.stats == nil {
		return it
	}
	return stream.Map(ctx, it, func(v T) (T, error) {
		f.stats.QueryElement(tool)
		return v, nil
	})
}

// Flush makes archived data visible to readers. It does nothing when
// nothing was archived since the last flush.
func (f *FDB) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.flush(ctx)
}

func (f *FDB) flush(ctx context.Context) error {
	if !f.dirty {
		return nil
	}

	start := time.Now()
	if err := f.catalog.Flush(ctx); err != nil {
		f.stats.Failed("flush")
		return err
	}
	f.stats.Flushed(time.Since(start))
	f.dirty = false
	return nil
}

// Close flushes pending data, closes the catalog and, with statistics
// enabled, logs the statistics report.
func (f *FDB) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrClosed
	}
	f.closed = true

	errs := data.Errors{}
	errs.Add(f.flush(ctx))
	errs.Add(f.catalog.Close(ctx))
	f.cleanup()

	if f.report {
		var sb strings.Builder
		if err := f.stats.Report(&sb); err != nil {
			errs.Add(err)
		} else {
			f.logger.Info("Statistics for %s:\n%s", f.catalog.ID(), strings.TrimRight(sb.String(), "\n"))
		}
	}
	return errs.Errors()
}
