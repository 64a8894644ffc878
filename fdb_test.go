package fdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/mwantia/fdb/api"
	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/toc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaYAML = `
schema:
  - database: [class, expver]
    index: [type]
    datum: [step, param]
`

func localConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	raw := fmt.Sprintf("type: local\nrootDirectory: %s\ndbNamesFile: %s\n%s%s",
		filepath.Join(dir, "root"), filepath.Join(dir, "dbnames"), extra, schemaYAML)
	cfg, err := config.Parse([]byte(raw))
	require.NoError(t, err)
	return cfg
}

func open(t *testing.T, cfg *config.Config, opts ...Option) *FDB {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard()), WithTables(toc.NewTables(nil))}, opts...)

	f, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return f
}

func key(step string) data.Key {
	return data.NewKey("class", "od", "expver", "0001", "type", "fc", "step", step, "param", "167")
}

func TestFDB_ArchiveFlushRetrieve(t *testing.T) {
	ctx := context.Background()
	f := open(t, localConfig(t, ""))
	assert.Equal(t, api.LocalType, f.Name())
	assert.False(t, f.Dirty())

	require.NoError(t, f.Archive(ctx, key("0"), []byte("zero")))
	assert.True(t, f.Dirty())
	require.NoError(t, f.Flush(ctx))
	assert.False(t, f.Dirty())

	r, err := data.ParseRequest("class=od,expver=0001,type=fc,step=0,param=167")
	require.NoError(t, err)
	rc, err := f.Retrieve(ctx, r)
	require.NoError(t, err)
	payload, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "zero", string(payload))

	require.NoError(t, f.Close(ctx))
	assert.ErrorIs(t, f.Close(ctx), data.ErrClosed)
}

func TestFDB_CloseFlushes(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, "")

	f := open(t, cfg)
	require.NoError(t, f.Archive(ctx, key("0"), []byte("a")))
	require.NoError(t, f.Archive(ctx, key("6"), []byte("b")))
	require.NoError(t, f.Close(ctx))

	reader := open(t, cfg)
	defer reader.Close(ctx)

	listed, err := reader.List(ctx, api.ToolRequest{All: true}, false).Collect()
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestFDB_Statistics(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	logger := log.NewWriterLogger("fdb", log.Info, &out)

	f, err := New(ctx, localConfig(t, "statistics: true\n"), WithLogger(logger), WithTables(toc.NewTables(nil)))
	require.NoError(t, err)
	require.NotNil(t, f.Statistics())

	require.NoError(t, f.Archive(ctx, key("0"), []byte("12345")))
	require.NoError(t, f.Flush(ctx))
	require.NoError(t, f.Flush(ctx))

	_, err = f.List(ctx, api.ToolRequest{All: true}, false).Collect()
	require.NoError(t, err)

	values, err := f.Statistics().Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1.0, values["fdb_archive_total"])
	assert.Equal(t, 5.0, values["fdb_archive_bytes_total"])
	assert.Equal(t, 1.0, values["fdb_flush_total"])
	assert.Equal(t, 1.0, values[`fdb_query_elements_total{tool="list"}`])

	require.NoError(t, f.Close(ctx))
	assert.Contains(t, out.String(), "fdb_archive_total 1")
}

func TestFDB_MetricsWithoutReport(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	f := open(t, localConfig(t, ""), WithMetrics(reg))
	defer f.Close(ctx)

	require.NoError(t, f.Archive(ctx, key("0"), nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestFDB_SelectConfiguration(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	raw := fmt.Sprintf(`
type: select
fdbs:
  - select: class=rd
    name: research
    rootDirectory: %[1]s/rd
    dbNamesFile: %[1]s/dbnames
  - select: class=od
    name: operations
    rootDirectory: %[1]s/od
    dbNamesFile: %[1]s/dbnames
%[2]s`, dir, schemaYAML)
	cfg, err := config.Parse([]byte(raw))
	require.NoError(t, err)

	f := open(t, cfg)
	assert.Equal(t, api.SelectType, f.Name())

	rd := data.NewKey("class", "rd", "expver", "0001", "type", "fc", "step", "0", "param", "167")
	require.NoError(t, f.Archive(ctx, rd, []byte("r")))
	require.NoError(t, f.Archive(ctx, key("0"), []byte("o")))
	require.NoError(t, f.Flush(ctx))

	where, err := f.Where(ctx, api.ToolRequest{All: true}).Collect()
	require.NoError(t, err)
	require.Len(t, where, 2)

	dirs := []string{where[0].Directory, where[1].Directory}
	assert.ElementsMatch(t, []string{filepath.Join(dir, "rd", "rd:0001"), filepath.Join(dir, "od", "od:0001")}, dirs)
	require.NoError(t, f.Close(ctx))
}

func TestFDB_UnknownCatalogType(t *testing.T) {
	cfg, err := config.Parse([]byte("type: remote\n" + schemaYAML))
	require.NoError(t, err)

	_, err = New(context.Background(), cfg, WithLogger(log.Discard()))
	require.ErrorIs(t, err, data.ErrRegistry)
	assert.Contains(t, err.Error(), "[local, select]")
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistries()
	cleanup, err := RegisterBuiltins(context.Background(), r, config.New(nil))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, []string{"local", "select"}, r.Catalogs.Names())
	assert.Equal(t, []string{"bolt", "btree", "sqlite"}, r.Indexes.Names())
	assert.Equal(t, []string{"consul", "local", "s3"}, r.Stores.Names())
	assert.True(t, r.Databases.Has("toc.writer"))

	_, err = RegisterBuiltins(context.Background(), r, config.New(nil))
	assert.ErrorIs(t, err, data.ErrAlreadyRegistered)
}
