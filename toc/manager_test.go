package toc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/store/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	roots  string
	spaces string
	names  string
}

func writeFixture(t *testing.T, roots, spaces, names string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		roots:  filepath.Join(dir, "roots"),
		spaces: filepath.Join(dir, "spaces"),
		names:  filepath.Join(dir, "dbnames"),
	}
	require.NoError(t, os.WriteFile(f.roots, []byte(roots), 0644))
	require.NoError(t, os.WriteFile(f.spaces, []byte(spaces), 0644))
	if names != "" {
		require.NoError(t, os.WriteFile(f.names, []byte(names), 0644))
	}
	return f
}

func (f fixture) config(extra map[string]any) *config.Config {
	values := map[string]any{
		"rootsFile":   f.roots,
		"spacesFile":  f.spaces,
		"dbNamesFile": f.names,
	}
	for k, v := range extra {
		values[k] = v
	}
	return config.New(values)
}

func newManager(t *testing.T, f fixture, extra map[string]any) *RootManager {
	t.Helper()
	rm, err := NewRootManager(f.config(extra), NewTables(nil), local.NewLocalStore(""), nil)
	require.NoError(t, err)
	return rm
}

func TestRootManager_AllRootsDeduplicated(t *testing.T) {
	roots := "/data/shared  fsA  yes  yes\n/data/shared  fsB  yes  yes\n/data/b  fsB  no  yes\n"
	spaces := "od.*  fsA  Default\n.*  fsB  Default\n"
	f := writeFixture(t, roots, spaces, "")
	t.Setenv(RootDirectoryEnv, "")

	rm := newManager(t, f, nil)
	key := data.NewKey("class", "od")

	assert.ElementsMatch(t, []string{"/data/shared", "/data/b"}, rm.AllRoots(key))
	assert.ElementsMatch(t, []string{"/data/shared"}, rm.WritableRoots(key))
	assert.ElementsMatch(t, []string{"/data/shared", "/data/b"}, rm.VisitableRoots(data.Key{}))
	assert.ElementsMatch(t, []string{"/data/shared", "/data/b"}, rm.AllRoots(data.NewKey("class", "rd")))
}

func TestRootManager_DirectoryIsDeterministic(t *testing.T) {
	base := t.TempDir()
	roots := strings.Join([]string{
		filepath.Join(base, "r1") + " main yes yes",
		filepath.Join(base, "r2") + " main yes yes",
		filepath.Join(base, "r3") + " main yes yes",
	}, "\n")
	f := writeFixture(t, roots, ".* main Hash\n", "")
	t.Setenv(RootDirectoryEnv, "")

	rm := newManager(t, f, nil)
	key := data.NewKey("class", "od", "expver", "0001")

	first, err := rm.Directory(context.Background(), key)
	require.NoError(t, err)
	for range 5 {
		again, err := rm.Directory(context.Background(), data.NewKey("expver", "0001", "class", "od"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "od:0001", filepath.Base(first))
}

func TestRootManager_ExistingDatabaseWins(t *testing.T) {
	base := t.TempDir()
	r1, r2 := filepath.Join(base, "r1"), filepath.Join(base, "r2")
	f := writeFixture(t, r1+" main yes yes\n"+r2+" main no yes\n", ".* main First\n", "")
	t.Setenv(RootDirectoryEnv, "")

	require.NoError(t, os.MkdirAll(filepath.Join(r2, "od"), 0755))
	rm := newManager(t, f, nil)

	dir, err := rm.Directory(context.Background(), data.NewKey("class", "od"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r2, "od"), dir)

	dir, err = rm.Directory(context.Background(), data.NewKey("class", "rd"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r1, "rd"), dir)
}

func TestRootManager_UsesPathNamers(t *testing.T) {
	f := writeFixture(t, "/data main yes yes\n", ".* main First\n", "class=od,stream {class}/{stream}\n")
	t.Setenv(RootDirectoryEnv, "")

	rm := newManager(t, f, nil)

	dir, err := rm.Directory(context.Background(), data.NewKey("class", "od", "stream", "oper"))
	require.NoError(t, err)
	assert.Equal(t, "/data/od/oper", dir)

	names, err := rm.PossibleDbPathNames(data.NewKey("class", "*", "stream", "oper"), "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"od/oper", "*:oper"}, names)
}

func TestRootManager_NoFileSpace(t *testing.T) {
	f := writeFixture(t, "/data main yes yes\n", "^od main Default\n", "")
	t.Setenv(RootDirectoryEnv, "")

	rm := newManager(t, f, nil)

	_, err := rm.Directory(context.Background(), data.NewKey("class", "rd"))
	require.ErrorIs(t, err, data.ErrRouting)
	assert.Contains(t, err.Error(), "{class=rd}")
}

func TestRootManager_RootDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(RootDirectoryEnv, dir)

	cfg := config.New(map[string]any{
		"dbNamesFile": filepath.Join(dir, "absent"),
		"spacesFile":  filepath.Join(dir, "absent"),
	})
	rm, err := NewRootManager(cfg, NewTables(nil), local.NewLocalStore(""), nil)
	require.NoError(t, err)

	got, err := rm.Directory(context.Background(), data.NewKey("a", "1", "b", "2"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1:2"), got)
	assert.Equal(t, []string{dir}, rm.VisitableRoots(data.Key{}))
}

func TestTables_Errors(t *testing.T) {
	dir := t.TempDir()
	rootsPath := filepath.Join(dir, "roots")
	require.NoError(t, os.WriteFile(rootsPath, []byte("/data main yes yes\n"), 0644))

	tables := NewTables(log.Discard())

	_, err := tables.FileSpaces(rootsPath, filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, data.ErrConfiguration)

	spacesPath := filepath.Join(dir, "spaces")
	require.NoError(t, os.WriteFile(spacesPath, []byte(".* other Default\n"), 0644))
	_, err = tables.FileSpaces(rootsPath, spacesPath)
	require.ErrorIs(t, err, data.ErrConfiguration)
	assert.Contains(t, err.Error(), "no roots found for filespace other")
}

func TestTables_MemoisesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	names := filepath.Join(dir, "dbnames")
	require.NoError(t, os.WriteFile(names, []byte("a {a}\n"), 0644))

	tables := NewTables(nil)
	first, err := tables.PathNamers(names)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, os.WriteFile(names, []byte("a {a}\nb {b}\n"), 0644))
	cached, err := tables.PathNamers(names)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	tables.Invalidate(names)
	reloaded, err := tables.PathNamers(names)
	require.NoError(t, err)
	assert.Len(t, reloaded, 2)
}

func TestParseRoots(t *testing.T) {
	var buf strings.Builder
	logger := log.NewWriterLogger("", log.Warn, &buf)

	roots, err := ParseRoots(strings.NewReader("/a fs yes no\n/b fs\n/c fs off on\n"), "roots", logger)
	require.NoError(t, err)
	assert.Equal(t, []Root{
		{Path: "/a", FileSpace: "fs", Writable: true, Visitable: false},
		{Path: "/c", FileSpace: "fs", Writable: false, Visitable: true},
	}, roots)
	assert.Contains(t, buf.String(), "/b fs")

	_, err = ParseRoots(strings.NewReader("/a fs maybe no\n"), "roots", logger)
	assert.ErrorIs(t, err, data.ErrConfiguration)
}
