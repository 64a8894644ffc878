package visitor

import (
	"context"
	"iter"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
	"github.com/mwantia/fdb/index"
	"github.com/mwantia/fdb/index/btree"
	"github.com/mwantia/fdb/store/local"
	"github.com/mwantia/fdb/toc"
	"github.com/stretchr/testify/require"
)

var (
	odKey = data.NewKey("class", "od", "expver", "0001")
	rdKey = data.NewKey("class", "rd", "expver", "0001")
	fcKey = data.NewKey("type", "fc")
)

func newEnv(t *testing.T) *database.Env {
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

	return &database.Env{Roots: roots, Store: st, Indexes: indexes, IndexType: btree.Type}
}

// archive writes one session holding the given steps and returns the
// database directory.
func archive(t *testing.T, env *database.Env, dbKey data.Key, payload string, steps ...string) string {
	t.Helper()
	ctx := context.Background()

	w, err := database.BuildWriter(ctx, database.Args{Key: dbKey, Env: env})
	require.NoError(t, err)
	for _, step := range steps {
		require.NoError(t, w.Archive(ctx, fcKey, data.NewKey("step", step, "param", "167"), []byte(payload)))
	}
	require.NoError(t, w.Close(ctx))
	return w.Directory()
}

// trackedDB counts open databases so tests can assert the walk closed them.
type trackedDB struct {
	database.DB
	open *atomic.Int32
}

func (db *trackedDB) Close(ctx context.Context) error {
	db.open.Add(-1)
	return db.DB.Close(ctx)
}

func readers(env *database.Env, open *atomic.Int32, dirs ...string) iter.Seq2[database.DB, error] {
	return func(yield func(database.DB, error) bool) {
		for _, dir := range dirs {
			db, err := database.BuildReader(context.Background(), database.Args{Directory: dir, Env: env})
			if err != nil {
				yield(nil, err)
				return
			}
			open.Add(1)
			if !yield(&trackedDB{DB: db, open: open}, nil) {
				return
			}
		}
	}
}

func collect[T any](t *testing.T, walk func(emit func(T) error) error) []T {
	t.Helper()
	var out []T
	require.NoError(t, walk(func(e T) error {
		out = append(out, e)
		return nil
	}))
	return out
}
