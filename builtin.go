package fdb

import (
	"context"

	"github.com/mwantia/fdb/api"
	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/index"
	"github.com/mwantia/fdb/index/bolt"
	"github.com/mwantia/fdb/index/btree"
	"github.com/mwantia/fdb/index/postgres"
	"github.com/mwantia/fdb/index/sqlite"
	"github.com/mwantia/fdb/store"
	"github.com/mwantia/fdb/store/consul"
	"github.com/mwantia/fdb/store/local"
	"github.com/mwantia/fdb/store/s3"
)

// PostgresDSNEnv names the postgres index database when the configuration
// has no "postgres.dsn".
const PostgresDSNEnv = "FDB_POSTGRES_DSN"

// Registries holds one registry per kind of pluggable component.
type Registries struct {
	Catalogs  *api.Registry
	Databases *database.Registry
	Indexes   *index.Registry
	Stores    *store.Registry
}

func NewRegistries() *Registries {
	return &Registries{
		Catalogs:  api.NewRegistry(),
		Databases: database.NewRegistry(),
		Indexes:   index.NewRegistry(),
		Stores:    store.NewRegistry(),
	}
}

// RegisterBuiltins registers the catalogs, databases, indexes and stores of
// this module. The postgres index needs a connection pool and is only
// registered when a DSN is configured; the returned function closes it.
func RegisterBuiltins(ctx context.Context, r *Registries, cfg *config.Config) (func(), error) {
	cleanup := func() {}

	if err := r.Catalogs.Register(api.LocalType, api.BuildLocal); err != nil {
		return cleanup, err
	}
	if err := r.Catalogs.Register(api.SelectType, api.BuildSelect); err != nil {
		return cleanup, err
	}

	if err := r.Databases.Register(database.TocWriter, database.BuildWriter); err != nil {
		return cleanup, err
	}
	if err := r.Databases.Register(database.TocReader, database.BuildReader); err != nil {
		return cleanup, err
	}

	if err := r.Indexes.Register(btree.Type, btree.Build); err != nil {
		return cleanup, err
	}
	if err := r.Indexes.Register(sqlite.Type, sqlite.Build); err != nil {
		return cleanup, err
	}
	if err := r.Indexes.Register(bolt.Type, bolt.Build); err != nil {
		return cleanup, err
	}

	if err := r.Stores.Register("local", local.Build); err != nil {
		return cleanup, err
	}
	if err := r.Stores.Register("s3", s3.Build); err != nil {
		return cleanup, err
	}
	if err := r.Stores.Register("consul", consul.Build); err != nil {
		return cleanup, err
	}

	if dsn := cfg.Resource("postgres.dsn", PostgresDSNEnv, ""); dsn != "" {
		backend, err := postgres.NewBackend(ctx, dsn)
		if err != nil {
			return cleanup, err
		}
		if err := r.Indexes.Register(postgres.Type, backend.Build); err != nil {
			backend.Close()
			return cleanup, err
		}
		cleanup = backend.Close
	}

	return cleanup, nil
}
