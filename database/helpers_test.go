package database

import (
	"path/filepath"
	"testing"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/index"
	"github.com/mwantia/fdb/index/bolt"
	"github.com/mwantia/fdb/index/btree"
	"github.com/mwantia/fdb/index/sqlite"
	"github.com/mwantia/fdb/rules"
	"github.com/mwantia/fdb/store/local"
	"github.com/mwantia/fdb/toc"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T, indexType string) *Env {
	t.Helper()
	dir := t.TempDir()
	st := local.NewLocalStore("")

	cfg := config.New(map[string]any{
		"rootDirectory": dir,
		"dbNamesFile":   filepath.Join(dir, "dbnames"),
	})
	roots, err := toc.NewRootManager(cfg, toc.NewTables(nil), st, nil)
	require.NoError(t, err)

	indexes := index.NewRegistry()
	indexes.MustRegister(btree.Type, btree.Build)
	indexes.MustRegister(sqlite.Type, sqlite.Build)
	indexes.MustRegister(bolt.Type, bolt.Build)

	return &Env{
		Roots:     roots,
		Store:     st,
		Indexes:   indexes,
		IndexType: indexType,
	}
}

func newSchema(t *testing.T) rules.Rules {
	t.Helper()
	db, err := rules.ParseMatcher("class=od|rd,expver")
	require.NoError(t, err)
	idx, err := rules.ParseMatcher("type")
	require.NoError(t, err)
	datum, err := rules.ParseMatcher("step,param")
	require.NoError(t, err)

	return rules.Rules{{Database: db, Index: idx, Datum: datum}}
}
