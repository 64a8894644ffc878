// Package toc decides where databases live: it names database directories
// from their keys and places them on the roots of a matching filespace.
package toc

import (
	"context"
	"path"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/store"
)

// Settings naming the table files and the root override, with the
// environment variables consulted when the configuration is silent.
const (
	DbNamesFileEnv   = "FDB_DBNAMES_FILE"
	RootsFileEnv     = "FDB_ROOTS_FILE"
	SpacesFileEnv    = "FDB_SPACES_FILE"
	RootDirectoryEnv = "FDB_ROOT_DIRECTORY"
)

type RootManager struct {
	logger *log.Logger
	store  store.Store

	namers        PathNamers
	spaces        []*FileSpace
	rootDirectory string
}

// NewRootManager loads the tables named by cfg through the memoising cache.
// With a root directory override the filespace tables are not read at all.
func NewRootManager(cfg *config.Config, tables *Tables, st store.Store, logger *log.Logger) (*RootManager, error) {
	if logger == nil {
		logger = log.Discard()
	}

	rm := &RootManager{
		logger: logger,
		store:  st,
	}

	namesFile := cfg.ExpandPath(cfg.Resource("dbNamesFile", DbNamesFileEnv, "~fdb/etc/fdb/dbnames"))
	namers, err := tables.PathNamers(namesFile)
	if err != nil {
		return nil, err
	}
	rm.namers = namers

	if dir := cfg.Resource("rootDirectory", RootDirectoryEnv, ""); dir != "" {
		rm.rootDirectory = path.Clean(cfg.ExpandPath(dir))
		logger.Debug("Root directory override in use: %s", rm.rootDirectory)
		return rm, nil
	}

	rootsFile := cfg.ExpandPath(cfg.Resource("rootsFile", RootsFileEnv, "~fdb/etc/fdb/roots"))
	spacesFile := cfg.ExpandPath(cfg.Resource("spacesFile", SpacesFileEnv, "~fdb/etc/fdb/spaces"))
	spaces, err := tables.FileSpaces(rootsFile, spacesFile)
	if err != nil {
		return nil, err
	}
	rm.spaces = spaces

	return rm, nil
}

// Store is the store the roots live in.
func (rm *RootManager) Store() store.Store {
	return rm.store
}

// DbPathName is the directory name of a database below its root.
func (rm *RootManager) DbPathName(key data.Key) (string, error) {
	name, err := rm.namers.Resolve(key)
	if err != nil {
		return "", err
	}
	rm.logger.Debug("Database name for %s is %s", key, name)
	return name, nil
}

// PossibleDbPathNames lists the names a key with values equal to missing may
// be stored under.
func (rm *RootManager) PossibleDbPathNames(key data.Key, missing string) ([]string, error) {
	return rm.namers.ResolvePartial(key, missing)
}

// PossibleDbPathPatterns lists regular expressions, one per '/' separated
// element, matching every directory a key with values equal to missing may be
// stored under.
func (rm *RootManager) PossibleDbPathPatterns(key data.Key, missing string) ([]string, error) {
	return rm.namers.ResolvePatterns(key, missing)
}

// Directory returns the full database directory for a key: the root of the
// first filespace matching the canonical string joined with the name.
func (rm *RootManager) Directory(ctx context.Context, key data.Key) (string, error) {
	name, err := rm.DbPathName(key)
	if err != nil {
		return "", err
	}

	if rm.rootDirectory != "" {
		return path.Join(rm.rootDirectory, name), nil
	}

	canonical := key.ValuesString()
	for _, fs := range rm.spaces {
		if !fs.Match(canonical) {
			continue
		}

		root, err := fs.Select(ctx, key, name, rm.store.Exists)
		if err != nil {
			return "", err
		}
		rm.logger.Debug("Directory root %s for %s in %s", root, key, fs.Name)
		return path.Join(root, name), nil
	}

	return "", data.RoutingError("no file space for %s (%s)", key, canonical)
}

func (rm *RootManager) AllRoots(key data.Key) []string {
	return rm.collect(key, false, (*FileSpace).AllRoots)
}

// VisitableRoots includes every filespace when the key is empty.
func (rm *RootManager) VisitableRoots(key data.Key) []string {
	return rm.collect(key, true, (*FileSpace).VisitableRoots)
}

func (rm *RootManager) WritableRoots(key data.Key) []string {
	return rm.collect(key, false, (*FileSpace).WritableRoots)
}

func (rm *RootManager) collect(key data.Key, emptyMatchesAll bool, roots func(*FileSpace) []string) []string {
	if rm.rootDirectory != "" {
		return []string{rm.rootDirectory}
	}

	canonical := key.ValuesString()
	seen := make(map[string]bool)
	var result []string

	for _, fs := range rm.spaces {
		if !fs.Match(canonical) && !(emptyMatchesAll && key.Empty()) {
			continue
		}
		for _, root := range roots(fs) {
			if !seen[root] {
				seen[root] = true
				result = append(result, root)
			}
		}
	}
	return result
}
