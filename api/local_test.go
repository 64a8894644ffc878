package api

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/mwantia/fdb/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCatalog_ArchiveAndRetrieve(t *testing.T) {
	ctx := context.Background()
	c := buildCatalog(t, newDeps(t), localSection(t))

	require.NoError(t, c.Archive(ctx, fieldKey("od", "0"), []byte("zero")))
	require.NoError(t, c.Archive(ctx, fieldKey("od", "6"), []byte("six")))
	require.NoError(t, c.Flush(ctx))

	rc, err := c.Retrieve(ctx, request(t, "class=od,expver=0001,type=fc,step=0/6/12,param=167"))
	require.NoError(t, err)

	payload, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "zerosix", string(payload))

	fr, ok := rc.(FieldReader)
	require.True(t, ok)
	_, err = fr.Seek(4, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(fr)
	require.NoError(t, err)
	assert.Equal(t, "six", string(rest))

	require.NoError(t, rc.Close())
	assert.ErrorIs(t, rc.Close(), data.ErrClosed)
}

func TestLocalCatalog_RetrieveUnknownDatabase(t *testing.T) {
	ctx := context.Background()
	c := buildCatalog(t, newDeps(t), localSection(t))

	rc, err := c.Retrieve(ctx, request(t, "class=rd,expver=0001,type=fc,step=0,param=167"))
	require.NoError(t, err)
	payload, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, payload)
	require.NoError(t, rc.Close())
}

func TestLocalCatalog_ArchiveWithoutRule(t *testing.T) {
	c := buildCatalog(t, newDeps(t), localSection(t))

	err := c.Archive(context.Background(), data.NewKey("class", "od"), []byte("x"))
	assert.ErrorIs(t, err, data.ErrRouting)
}

func TestLocalCatalog_Queries(t *testing.T) {
	ctx := context.Background()
	c := buildCatalog(t, newDeps(t), localSection(t))

	for _, class := range []string{"od", "rd"} {
		for _, step := range []string{"0", "6"} {
			require.NoError(t, c.Archive(ctx, fieldKey(class, step), []byte(class+step)))
		}
	}
	require.NoError(t, c.Flush(ctx))

	listed := collect(t, c.List(ctx, ToolRequest{Request: request(t, "class=od")}, false))
	require.Len(t, listed, 2)
	for _, e := range listed {
		assert.Equal(t, "od", e.Database.Value("class"))
	}

	all := collect(t, c.List(ctx, ToolRequest{All: true}, false))
	assert.Len(t, all, 4)

	where := collect(t, c.Where(ctx, ToolRequest{All: true}))
	assert.Len(t, where, 2)

	stats := collect(t, c.Stats(ctx, ToolRequest{Request: request(t, "class=rd,expver=0001")}))
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Stats.Fields)

	dump := collect(t, c.Dump(ctx, ToolRequest{Request: request(t, "class=rd")}))
	assert.Len(t, dump, 2)

	_, err := c.List(ctx, ToolRequest{}, false).Collect()
	assert.ErrorIs(t, err, data.ErrInvalid)
}

func TestLocalCatalog_NamedDatabaseDirectory(t *testing.T) {
	ctx := context.Background()
	section := localSection(t, "class=od,expver {class}/{expver}")
	c := buildCatalog(t, newDeps(t), section)

	require.NoError(t, c.Archive(ctx, fieldKey("od", "0"), []byte("x")))
	require.NoError(t, c.Archive(ctx, fieldKey("rd", "0"), []byte("y")))
	require.NoError(t, c.Flush(ctx))

	where := collect(t, c.Where(ctx, ToolRequest{Request: request(t, "class=od,expver=0001")}))
	require.Len(t, where, 1)
	assert.Equal(t, filepath.Join(section["rootDirectory"].(string), "od", "0001"), where[0].Directory)

	where = collect(t, c.Where(ctx, ToolRequest{Request: request(t, "class=rd")}))
	require.Len(t, where, 1)
	assert.Equal(t, filepath.Join(section["rootDirectory"].(string), "rd:0001"), where[0].Directory)
}

func TestLocalCatalog_NamedDatabaseOpenKeywords(t *testing.T) {
	ctx := context.Background()
	section := localSection(t, "class=od,expver {class}/{expver}")
	c := buildCatalog(t, newDeps(t), section)

	require.NoError(t, c.Archive(ctx, fieldKey("od", "0"), []byte("x")))
	require.NoError(t, c.Archive(ctx, fieldKey("rd", "0"), []byte("y")))
	require.NoError(t, c.Flush(ctx))

	listed := collect(t, c.List(ctx, ToolRequest{Request: request(t, "class=od")}, false))
	require.Len(t, listed, 1)
	assert.Equal(t, "od", listed[0].Database.Value("class"))
	assert.Equal(t, filepath.Join(section["rootDirectory"].(string), "od", "0001"), listed[0].Directory)

	all := collect(t, c.List(ctx, ToolRequest{All: true}, false))
	assert.Len(t, all, 2)

	wiped := collect(t, c.Wipe(ctx, ToolRequest{All: true}, false))
	assert.Len(t, wiped, 2)
	purged := collect(t, c.Purge(ctx, ToolRequest{All: true}, false))
	assert.Empty(t, purged)
}

func TestLocalCatalog_PurgeDuplicates(t *testing.T) {
	ctx := context.Background()
	c := buildCatalog(t, newDeps(t), localSection(t))
	key := fieldKey("od", "0")

	require.NoError(t, c.Archive(ctx, key, []byte("first")))
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, c.Archive(ctx, key, []byte("second")))
	require.NoError(t, c.Flush(ctx))

	req := ToolRequest{Request: request(t, "class=od")}
	assert.Len(t, collect(t, c.List(ctx, req, true)), 2)

	dry := collect(t, c.Purge(ctx, req, false))
	require.Len(t, dry, 1)
	assert.False(t, dry[0].Purged)
	assert.Len(t, collect(t, c.List(ctx, req, true)), 2)

	done := collect(t, c.Purge(ctx, req, true))
	require.Len(t, done, 1)
	assert.True(t, done[0].Purged)
	assert.Equal(t, dry[0].Segment.ID(), done[0].Segment.ID())

	assert.Empty(t, collect(t, c.Purge(ctx, req, true)))

	listed := collect(t, c.List(ctx, req, true))
	require.Len(t, listed, 1)

	rc, err := c.Retrieve(ctx, request(t, "class=od,expver=0001,type=fc,step=0,param=167"))
	require.NoError(t, err)
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(payload))
}

func TestLocalCatalog_WipeDatabase(t *testing.T) {
	ctx := context.Background()
	c := buildCatalog(t, newDeps(t), localSection(t))

	require.NoError(t, c.Archive(ctx, fieldKey("od", "0"), []byte("x")))
	require.NoError(t, c.Archive(ctx, fieldKey("rd", "0"), []byte("y")))
	require.NoError(t, c.Flush(ctx))

	req := ToolRequest{Request: request(t, "class=od")}
	dry := collect(t, c.Wipe(ctx, req, false))
	require.Len(t, dry, 1)
	assert.False(t, dry[0].Wiped)
	assert.Len(t, collect(t, c.List(ctx, ToolRequest{All: true}, false)), 2)

	done := collect(t, c.Wipe(ctx, req, true))
	require.Len(t, done, 1)
	assert.True(t, done[0].Wiped)

	remaining := collect(t, c.List(ctx, ToolRequest{All: true}, false))
	require.Len(t, remaining, 1)
	assert.Equal(t, "rd", remaining[0].Database.Value("class"))
}

func TestLocalCatalog_DisabledAndReadOnly(t *testing.T) {
	ctx := context.Background()
	deps := newDeps(t)

	section := localSection(t)
	section["writable"] = false
	ro := buildCatalog(t, deps, section)
	assert.ErrorIs(t, ro.Archive(ctx, fieldKey("od", "0"), nil), data.ErrReadOnly)

	c := buildCatalog(t, deps, localSection(t))
	c.Disable()
	assert.True(t, c.Disabled())
	assert.ErrorIs(t, c.Archive(ctx, fieldKey("od", "0"), nil), data.ErrDisabled)
	assert.Empty(t, collect(t, c.List(ctx, ToolRequest{All: true}, false)))
}

func TestLocalCatalog_ReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	deps := newDeps(t)

	section := localSection(t)
	writer := buildCatalog(t, deps, section)
	require.NoError(t, writer.Archive(ctx, fieldKey("od", "0"), []byte("zero")))
	require.NoError(t, writer.Close(ctx))

	section["store"] = map[string]any{"type": "local", "readOnly": true}
	ro := buildCatalog(t, deps, section)
	assert.False(t, ro.Writable())
	assert.ErrorIs(t, ro.Archive(ctx, fieldKey("od", "6"), nil), data.ErrReadOnly)

	assert.Len(t, collect(t, ro.List(ctx, ToolRequest{All: true}, false)), 1)

	_, err := ro.Wipe(ctx, ToolRequest{All: true}, true).Collect()
	assert.ErrorIs(t, err, data.ErrReadOnly)
	assert.Len(t, collect(t, ro.Where(ctx, ToolRequest{All: true})), 1)
}

func TestLocalCatalog_ValuesWithSeparators(t *testing.T) {
	ctx := context.Background()
	c := buildCatalog(t, newDeps(t), localSection(t))

	key := data.NewKey("class", "od", "expver", "0001", "type", "fc", "step", "0", "param", "167,168")
	require.NoError(t, c.Archive(ctx, key, []byte("pair")))
	require.NoError(t, c.Flush(ctx))

	listed := collect(t, c.List(ctx, ToolRequest{All: true}, false))
	require.Len(t, listed, 1)
	assert.True(t, key.Equal(listed[0].Key()))

	dumped := collect(t, c.Dump(ctx, ToolRequest{All: true}))
	assert.NotEmpty(t, dumped)

	r := data.Request{}
	for _, kw := range key.Keywords() {
		r.Set(kw, key.Value(kw))
	}
	rc, err := c.Retrieve(ctx, r)
	require.NoError(t, err)
	payload, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pair", string(payload))
}
