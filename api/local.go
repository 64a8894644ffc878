package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/rules"
	"github.com/mwantia/fdb/store"
	"github.com/mwantia/fdb/stream"
	"github.com/mwantia/fdb/toc"
	"github.com/mwantia/fdb/visitor"
)

const LocalType = "local"

// LocalCatalog owns the databases below the roots of its root manager.
// Writes go through an Archiver; queries walk the databases found on the
// visitable roots.
type LocalCatalog struct {
	id     string
	logger *log.Logger

	schema    rules.Rules
	store     store.Store
	roots     *toc.RootManager
	env       *database.Env
	databases *database.Registry
	archiver  *database.Archiver
	readerDB  string
	capacity  int

	writable  bool
	visitable bool
	disabled  atomic.Bool
}

var _ Catalog = (*LocalCatalog)(nil)

// BuildLocal builds a local catalog from a section like:
//
//	type: local
//	store: {type: local}
//	indexType: btree
//	rootDirectory: /data/fdb
func BuildLocal(ctx context.Context, args Args) (Catalog, error) {
	cfg, deps := args.Config, args.Deps
	if cfg == nil {
		cfg = config.New(nil)
	}
	if deps == nil || deps.Stores == nil || deps.Databases == nil || deps.Indexes == nil {
		return nil, fmt.Errorf("%w: local catalog needs store, database and index registries", data.ErrInvalid)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.Named(LocalType)

	schema := deps.Schema
	if cfg.Has("schema") {
		parsed, err := rules.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		schema = parsed
	}
	if len(schema) == 0 {
		return nil, data.ConfigurationError(cfg.Origin(), "local catalog has no schema rules")
	}

	storeCfg := cfg.Sub("store")
	st, err := deps.Stores.Build(ctx, storeCfg.GetString("type", "local"), storeCfg)
	if err != nil {
		return nil, err
	}
	readOnly := storeCfg.GetBool("readOnly", false)
	if readOnly {
		st = store.NewReadOnly(st)
	}

	tables := deps.Tables
	if tables == nil {
		tables = toc.NewTables(logger)
	}
	roots, err := toc.NewRootManager(cfg, tables, st, logger)
	if err != nil {
		st.Close(ctx)
		return nil, err
	}

	env := &database.Env{
		Roots:     roots,
		Store:     st,
		Indexes:   deps.Indexes,
		IndexType: cfg.GetString("indexType", "btree"),
		Logger:    logger,
	}

	c := &LocalCatalog{
		id:        cfg.GetString("name", LocalType),
		logger:    logger,
		schema:    schema,
		store:     st,
		roots:     roots,
		env:       env,
		databases: deps.Databases,
		archiver:  database.NewArchiver(schema, deps.Databases, env, cfg.GetString("writerDB", database.TocWriter), logger),
		readerDB:  cfg.GetString("readerDB", database.TocReader),
		capacity:  cfg.GetInt("queueSize", stream.DefaultCapacity),
		writable:  cfg.GetBool("writable", !readOnly),
		visitable: cfg.GetBool("visitable", true),
	}
	logger.Debug("Local catalog %s using %s store", c.id, st.Name())
	return c, nil
}

func (c *LocalCatalog) Name() string {
	return LocalType
}

func (c *LocalCatalog) ID() string {
	return c.id
}

// Roots exposes the root manager, e.g. for "where" style tooling.
func (c *LocalCatalog) Roots() *toc.RootManager {
	return c.roots
}

func (c *LocalCatalog) checkWritable() error {
	if c.disabled.Load() {
		return fmt.Errorf("%w: %s", data.ErrDisabled, c.id)
	}
	if !c.writable {
		return fmt.Errorf("%w: catalog %s is not writable", data.ErrReadOnly, c.id)
	}
	return nil
}

func (c *LocalCatalog) Archive(ctx context.Context, key data.Key, payload []byte) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	return c.archiver.Archive(ctx, key, payload)
}

func (c *LocalCatalog) Adopt(ctx context.Context, key data.Key, field database.Field) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	return c.archiver.Adopt(ctx, key, field)
}

// Retrieve opens a reader for every database the request touches. Data
// archived but not yet flushed is not visible.
func (c *LocalCatalog) Retrieve(ctx context.Context, request data.Request) (io.ReadCloser, error) {
	if c.disabled.Load() {
		return nil, fmt.Errorf("%w: %s", data.ErrDisabled, c.id)
	}

	opened := make(map[string]database.DB)
	var owned []database.DB
	var parts []part

	fail := func(err error) (io.ReadCloser, error) {
		for _, db := range owned {
			db.Close(ctx)
		}
		return nil, err
	}

	for _, key := range request.Expand() {
		rule := c.schema.Match(key)
		if rule == nil {
			c.logger.Warn("No rule matches %s, skipped", key)
			continue
		}
		dbKey, idx, datum, ok := rule.Split(key)
		if !ok {
			continue
		}

		fp := dbKey.Fingerprint()
		db, ok := opened[fp]
		if !ok {
			built, err := c.databases.Build(ctx, c.readerDB, database.Args{Key: dbKey, Env: c.env})
			if errors.Is(err, data.ErrNotExist) {
				opened[fp] = nil
				continue
			}
			if err != nil {
				return fail(err)
			}
			opened[fp] = built
			owned = append(owned, built)
			db = built
		}
		if db == nil {
			continue
		}

		field, found, err := db.Get(ctx, idx, datum)
		if err != nil {
			return fail(err)
		}
		if !found {
			c.logger.Debug("Nothing archived for %s", key)
			continue
		}
		parts = append(parts, part{db: db, field: field})
	}

	return newFieldReader(ctx, parts, owned), nil
}

func (c *LocalCatalog) List(ctx context.Context, req ToolRequest, full bool) *stream.Iterator[visitor.ListElement] {
	return query(ctx, c, req, func(emit func(visitor.ListElement) error) visitor.Visitor {
		return visitor.NewList(req.Request, full, emit)
	})
}

func (c *LocalCatalog) Dump(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.DumpElement] {
	return query(ctx, c, req, func(emit func(visitor.DumpElement) error) visitor.Visitor {
		return visitor.NewDump(req.Request, emit)
	})
}

func (c *LocalCatalog) Where(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.WhereElement] {
	return query(ctx, c, req, func(emit func(visitor.WhereElement) error) visitor.Visitor {
		return visitor.NewWhere(req.Request, emit)
	})
}

func (c *LocalCatalog) Wipe(ctx context.Context, req ToolRequest, doit bool) *stream.Iterator[visitor.WipeElement] {
	return query(ctx, c, req, func(emit func(visitor.WipeElement) error) visitor.Visitor {
		return visitor.NewWipe(req.Request, doit, emit)
	})
}

func (c *LocalCatalog) Purge(ctx context.Context, req ToolRequest, doit bool) *stream.Iterator[visitor.PurgeElement] {
	return query(ctx, c, req, func(emit func(visitor.PurgeElement) error) visitor.Visitor {
		return visitor.NewPurge(req.Request, doit, emit)
	})
}

func (c *LocalCatalog) Stats(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.StatsElement] {
	return query(ctx, c, req, func(emit func(visitor.StatsElement) error) visitor.Visitor {
		return visitor.NewStats(req.Request, emit)
	})
}

// query walks the matching databases in a producer goroutine.
func query[T any](ctx context.Context, c *LocalCatalog, req ToolRequest, build func(emit func(T) error) visitor.Visitor) *stream.Iterator[T] {
	if err := req.Validate(); err != nil {
		return stream.Failed[T](err)
	}
	if c.disabled.Load() || !c.visitable {
		return stream.Empty[T]()
	}

	return stream.Produce(ctx, c.capacity, func(ctx context.Context, emit func(T) error) error {
		return visitor.Walk(ctx, c.find(ctx, req.Request), build(emit))
	})
}

func (c *LocalCatalog) Flush(ctx context.Context) error {
	return c.archiver.Flush(ctx)
}

func (c *LocalCatalog) Close(ctx context.Context) error {
	errs := data.Errors{}
	errs.Add(c.archiver.Close(ctx))
	errs.Add(c.store.Close(ctx))
	return errs.Errors()
}

func (c *LocalCatalog) Writable() bool {
	return c.writable
}

func (c *LocalCatalog) Visitable() bool {
	return c.visitable
}

func (c *LocalCatalog) Disabled() bool {
	return c.disabled.Load()
}

func (c *LocalCatalog) Disable() {
	c.logger.Warn("Disabling catalog %s", c.id)
	c.disabled.Store(true)
}
