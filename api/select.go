package api

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/rules"
	"github.com/mwantia/fdb/stream"
	"github.com/mwantia/fdb/visitor"
)

const SelectType = "select"

// Binding routes the keys its selector accepts to a catalog.
type Binding struct {
	Select  *rules.Matcher
	Catalog Catalog
}

// SelectCatalog routes archives to the first sub-catalog whose selector
// accepts the key, and fans queries out to every sub-catalog whose selector
// is compatible with the request.
type SelectCatalog struct {
	id       string
	logger   *log.Logger
	bindings []Binding
	capacity int
	disabled atomic.Bool
}

var _ Catalog = (*SelectCatalog)(nil)

// BuildSelect builds the sub-catalogs listed under "fdbs":
//
//	type: select
//	fdbs:
//	  - select: class=od
//	    type: local
//	    rootDirectory: /data/od
//	  - select: class=rd|ei,expver=x.*
//	    type: local
func BuildSelect(ctx context.Context, args Args) (Catalog, error) {
	cfg, deps := args.Config, args.Deps
	if cfg == nil {
		cfg = config.New(nil)
	}
	if deps == nil || deps.Catalogs == nil {
		return nil, fmt.Errorf("%w: select catalog needs a catalog registry", data.ErrInvalid)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	subs := cfg.Subs("fdbs")
	if len(subs) == 0 {
		return nil, data.ConfigurationError(cfg.Origin(), "select catalog has no 'fdbs'")
	}

	bindings := make([]Binding, 0, len(subs))
	for i, sub := range subs {
		value, _ := sub.Get("select")
		selector, err := rules.MatcherFromValue(value)
		if err != nil {
			closeBindings(ctx, bindings)
			return nil, data.ConfigurationError(cfg.Origin(), "fdbs[%d]: %v", i, err)
		}

		catalog, err := deps.Catalogs.Build(ctx, sub.GetString("type", LocalType), Args{Config: sub, Deps: deps})
		if err != nil {
			closeBindings(ctx, bindings)
			return nil, err
		}
		bindings = append(bindings, Binding{Select: selector, Catalog: catalog})
	}

	return NewSelectCatalog(cfg.GetString("name", SelectType), bindings, cfg.GetInt("queueSize", stream.DefaultCapacity), logger), nil
}

func NewSelectCatalog(id string, bindings []Binding, capacity int, logger *log.Logger) *SelectCatalog {
	if logger == nil {
		logger = log.Discard()
	}
	return &SelectCatalog{
		id:       id,
		logger:   logger.Named(SelectType),
		bindings: bindings,
		capacity: capacity,
	}
}

func closeBindings(ctx context.Context, bindings []Binding) {
	for _, b := range bindings {
		b.Catalog.Close(ctx)
	}
}

func (s *SelectCatalog) Name() string {
	return SelectType
}

func (s *SelectCatalog) ID() string {
	return s.id
}

func (s *SelectCatalog) Bindings() []Binding {
	return s.bindings
}

// route returns the catalog an archive of key goes to.
func (s *SelectCatalog) route(key data.Key) (Catalog, error) {
	if s.disabled.Load() {
		return nil, fmt.Errorf("%w: %s", data.ErrDisabled, s.id)
	}

	for _, b := range s.bindings {
		if !b.Catalog.Writable() || b.Catalog.Disabled() {
			continue
		}
		if b.Select.MatchSelect(key, true) {
			s.logger.Debug("Routing %s to %s", key, b.Catalog.ID())
			return b.Catalog, nil
		}
	}
	return nil, data.RoutingError("no sub-catalog accepts %s", key)
}

func (s *SelectCatalog) Archive(ctx context.Context, key data.Key, payload []byte) error {
	catalog, err := s.route(key)
	if err != nil {
		return err
	}
	return catalog.Archive(ctx, key, payload)
}

func (s *SelectCatalog) Adopt(ctx context.Context, key data.Key, field database.Field) error {
	catalog, err := s.route(key)
	if err != nil {
		return err
	}
	return catalog.Adopt(ctx, key, field)
}

// selected lists the visitable catalogs a request may concern.
func (s *SelectCatalog) selected(request data.Request) []Catalog {
	if s.disabled.Load() {
		return nil
	}

	var catalogs []Catalog
	for _, b := range s.bindings {
		if b.Catalog.Disabled() || !b.Catalog.Visitable() {
			continue
		}
		if b.Select.MatchSelect(request, false) {
			catalogs = append(catalogs, b.Catalog)
		}
	}
	return catalogs
}

// Retrieve concatenates the readers of every matching sub-catalog in
// binding order.
func (s *SelectCatalog) Retrieve(ctx context.Context, request data.Request) (io.ReadCloser, error) {
	var readers []io.ReadCloser
	for _, catalog := range s.selected(request) {
		r, err := catalog.Retrieve(ctx, request)
		if err != nil {
			for _, opened := range readers {
				opened.Close()
			}
			return nil, err
		}
		readers = append(readers, r)
	}
	return newConcatReader(readers), nil
}

func (s *SelectCatalog) List(ctx context.Context, req ToolRequest, full bool) *stream.Iterator[visitor.ListElement] {
	return fanOut(ctx, s, req, func(c Catalog) *stream.Iterator[visitor.ListElement] {
		return c.List(ctx, req, full)
	})
}

func (s *SelectCatalog) Dump(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.DumpElement] {
	return fanOut(ctx, s, req, func(c Catalog) *stream.Iterator[visitor.DumpElement] {
		return c.Dump(ctx, req)
	})
}

func (s *SelectCatalog) Where(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.WhereElement] {
	return fanOut(ctx, s, req, func(c Catalog) *stream.Iterator[visitor.WhereElement] {
		return c.Where(ctx, req)
	})
}

func (s *SelectCatalog) Wipe(ctx context.Context, req ToolRequest, doit bool) *stream.Iterator[visitor.WipeElement] {
	return fanOut(ctx, s, req, func(c Catalog) *stream.Iterator[visitor.WipeElement] {
		return c.Wipe(ctx, req, doit)
	})
}

func (s *SelectCatalog) Purge(ctx context.Context, req ToolRequest, doit bool) *stream.Iterator[visitor.PurgeElement] {
	return fanOut(ctx, s, req, func(c Catalog) *stream.Iterator[visitor.PurgeElement] {
		return c.Purge(ctx, req, doit)
	})
}

func (s *SelectCatalog) Stats(ctx context.Context, req ToolRequest) *stream.Iterator[visitor.StatsElement] {
	return fanOut(ctx, s, req, func(c Catalog) *stream.Iterator[visitor.StatsElement] {
		return c.Stats(ctx, req)
	})
}

// fanOut merges the query streams of the selected sub-catalogs. No order
// between sub-catalogs is kept.
func fanOut[T any](ctx context.Context, s *SelectCatalog, req ToolRequest, run func(Catalog) *stream.Iterator[T]) *stream.Iterator[T] {
	if err := req.Validate(); err != nil {
		return stream.Failed[T](err)
	}

	catalogs := s.selected(req.Request)
	sources := make([]*stream.Iterator[T], 0, len(catalogs))
	for _, c := range catalogs {
		sources = append(sources, run(c))
	}
	return stream.Merge(ctx, s.capacity, sources...)
}

func (s *SelectCatalog) Flush(ctx context.Context) error {
	errs := data.Errors{}
	for _, b := range s.bindings {
		errs.Add(b.Catalog.Flush(ctx))
	}
	return errs.Errors()
}

func (s *SelectCatalog) Close(ctx context.Context) error {
	errs := data.Errors{}
	for _, b := range s.bindings {
		errs.Add(b.Catalog.Close(ctx))
	}
	return errs.Errors()
}

// Writable reports whether any sub-catalog accepts archives.
func (s *SelectCatalog) Writable() bool {
	for _, b := range s.bindings {
		if b.Catalog.Writable() {
			return true
		}
	}
	return false
}

func (s *SelectCatalog) Visitable() bool {
	for _, b := range s.bindings {
		if b.Catalog.Visitable() {
			return true
		}
	}
	return false
}

func (s *SelectCatalog) Disabled() bool {
	return s.disabled.Load()
}

func (s *SelectCatalog) Disable() {
	s.disabled.Store(true)
}
