package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltIndex_SharedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.bolt")

	a, err := Build(ctx, index.Options{Path: path})
	require.NoError(t, err)
	b, err := Build(ctx, index.Options{Path: path})
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, data.NewKey("param", "1"), index.Field{File: "x", Length: 1}))
	require.NoError(t, b.Put(ctx, data.NewKey("param", "2"), index.Field{File: "x", Offset: 1, Length: 1}))
	require.NoError(t, b.Put(ctx, data.NewKey("param", "3"), index.Field{File: "x", Offset: 2, Length: 1}))
	require.NoError(t, a.Flush(ctx))
	require.NoError(t, b.Flush(ctx))

	assert.NotEqual(t, a.Locator().Offset, b.Locator().Offset)

	ra, err := Build(ctx, index.Options{Path: path, ReadOnly: true, Offset: a.Locator().Offset})
	require.NoError(t, err)
	assert.Equal(t, 1, ra.Len())

	rb, err := Build(ctx, index.Options{Path: path, ReadOnly: true, Offset: b.Locator().Offset})
	require.NoError(t, err)
	assert.Equal(t, 2, rb.Len())

	f, ok, err := rb.Get(ctx, data.NewKey("param", "3"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), f.Offset)
}

func TestBoltIndex_MissingSegment(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.bolt")

	w, err := Build(ctx, index.Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, w.Put(ctx, data.NewKey("param", "1"), index.Field{}))
	require.NoError(t, w.Flush(ctx))

	_, err = Build(ctx, index.Options{Path: path, ReadOnly: true, Offset: 42})
	assert.ErrorIs(t, err, data.ErrNotExist)
}
