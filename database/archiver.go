package database

import (
	"context"
	"sync"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/rules"
)

// Archiver routes keys to database sessions. Sessions are built on first
// use and reused for every later key with the same database key. It is safe
// for concurrent use.
type Archiver struct {
	mu     sync.Mutex
	logger *log.Logger

	schema   rules.Schema
	registry *Registry
	env      *Env
	dbType   string

	sessions map[string]DB
	order    []string
}

// NewArchiver creates an archiver building sessions of type dbType, or
// TocWriter when empty.
func NewArchiver(schema rules.Schema, registry *Registry, env *Env, dbType string, logger *log.Logger) *Archiver {
	if dbType == "" {
		dbType = TocWriter
	}
	if logger == nil {
		logger = log.Discard()
	}

	return &Archiver{
		logger:   logger.Named("archiver"),
		schema:   schema,
		registry: registry,
		env:      env,
		dbType:   dbType,
		sessions: make(map[string]DB),
	}
}

func (a *Archiver) split(key data.Key) (db, idx, datum data.Key, err error) {
	rule := a.schema.Match(key)
	if rule == nil {
		return db, idx, datum, data.RoutingError("could not find a rule to archive %s", key)
	}

	db, idx, datum, _ = rule.Split(key)
	return db, idx, datum, nil
}

func (a *Archiver) Archive(ctx context.Context, key data.Key, payload []byte) error {
	dbKey, idx, datum, err := a.split(key)
	if err != nil {
		return err
	}

	session, err := a.session(ctx, dbKey)
	if err != nil {
		return err
	}
	return session.Archive(ctx, idx, datum, payload)
}

// Adopt indexes a payload that already exists outside the catalog.
func (a *Archiver) Adopt(ctx context.Context, key data.Key, field Field) error {
	dbKey, idx, datum, err := a.split(key)
	if err != nil {
		return err
	}

	session, err := a.session(ctx, dbKey)
	if err != nil {
		return err
	}
	return session.Adopt(ctx, idx, datum, field)
}

func (a *Archiver) session(ctx context.Context, dbKey data.Key) (DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fp := dbKey.Fingerprint()
	if session, ok := a.sessions[fp]; ok {
		return session, nil
	}

	session, err := a.registry.Build(ctx, a.dbType, Args{Key: dbKey, Env: a.env})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Opened %s session for %s in %s", a.dbType, dbKey, session.Directory())
	a.sessions[fp] = session
	a.order = append(a.order, fp)
	return session, nil
}

// Sessions returns the number of open sessions.
func (a *Archiver) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.sessions)
}

// Flush flushes every session, continuing past failures.
func (a *Archiver) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	errs := data.Errors{}
	for _, fp := range a.order {
		errs.Add(a.sessions[fp].Flush(ctx))
	}
	return errs.Errors()
}

// Close closes every session and empties the cache.
func (a *Archiver) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	errs := data.Errors{}
	for _, fp := range a.order {
		errs.Add(a.sessions[fp].Close(ctx))
	}

	a.sessions = make(map[string]DB)
	a.order = nil
	return errs.Errors()
}
