package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/index"
	"github.com/mwantia/fdb/index/btree"
	"github.com/mwantia/fdb/rules"
	"github.com/mwantia/fdb/store"
	"github.com/mwantia/fdb/store/local"
	"github.com/mwantia/fdb/stream"
	"github.com/mwantia/fdb/toc"
	"github.com/stretchr/testify/require"
)

func newDeps(t *testing.T) *Dependencies {
	t.Helper()

	stores := store.NewRegistry()
	stores.MustRegister("local", local.Build)

	databases := database.NewRegistry()
	databases.MustRegister(database.TocWriter, database.BuildWriter)
	databases.MustRegister(database.TocReader, database.BuildReader)

	indexes := index.NewRegistry()
	indexes.MustRegister(btree.Type, btree.Build)

	catalogs := NewRegistry()
	catalogs.MustRegister(LocalType, BuildLocal)
	catalogs.MustRegister(SelectType, BuildSelect)

	db, err := rules.ParseMatcher("class,expver")
	require.NoError(t, err)
	idx, err := rules.ParseMatcher("type")
	require.NoError(t, err)
	datum, err := rules.ParseMatcher("step,param")
	require.NoError(t, err)

	return &Dependencies{
		Tables:    toc.NewTables(nil),
		Stores:    stores,
		Databases: databases,
		Indexes:   indexes,
		Catalogs:  catalogs,
		Schema:    rules.Rules{{Database: db, Index: idx, Datum: datum}},
	}
}

// localSection configures a local catalog on a fresh root. Extra dbnames
// lines are written to the naming table.
func localSection(t *testing.T, namers ...string) map[string]any {
	t.Helper()
	dir := t.TempDir()

	names := filepath.Join(dir, "dbnames")
	content := ""
	for _, line := range namers {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(names, []byte(content), 0o644))

	root := filepath.Join(dir, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))

	return map[string]any{
		"type":          LocalType,
		"rootDirectory": root,
		"dbNamesFile":   names,
		"store":         map[string]any{"type": "local"},
	}
}

func buildCatalog(t *testing.T, deps *Dependencies, section map[string]any) Catalog {
	t.Helper()
	cfg := config.New(section)

	c, err := deps.Catalogs.Build(context.Background(), cfg.GetString("type", LocalType), Args{Config: cfg, Deps: deps})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(context.Background()) })
	return c
}

func fieldKey(class, step string) data.Key {
	return data.NewKey("class", class, "expver", "0001", "type", "fc", "step", step, "param", "167")
}

func request(t *testing.T, s string) data.Request {
	t.Helper()
	r, err := data.ParseRequest(s)
	require.NoError(t, err)
	return r
}

func collect[T any](t *testing.T, it *stream.Iterator[T]) []T {
	t.Helper()
	values, err := it.Collect()
	require.NoError(t, err)
	return values
}

func configOf(section map[string]any) *config.Config {
	return config.New(section)
}
