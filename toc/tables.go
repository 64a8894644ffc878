package toc

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
)

// Tables memoises parsed naming and filespace tables per configuration
// origin. Once loaded a table is shared read-only by every caller.
type Tables struct {
	mu     sync.Mutex
	logger *log.Logger

	namers map[string]PathNamers
	spaces map[string][]*FileSpace
}

func NewTables(logger *log.Logger) *Tables {
	if logger == nil {
		logger = log.Discard()
	}
	return &Tables{
		logger: logger,
		namers: make(map[string]PathNamers),
		spaces: make(map[string][]*FileSpace),
	}
}

var (
	defaultTables     *Tables
	defaultTablesOnce sync.Once
)

// DefaultTables is the process wide cache used when a catalog is not given
// its own.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		defaultTables = NewTables(nil)
	})
	return defaultTables
}

// PathNamers loads the naming table at path. A missing file is an empty
// table.
func (t *Tables) PathNamers(path string) (PathNamers, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if table, ok := t.namers[path]; ok {
		return table, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.namers[path] = nil
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	t.logger.Debug("Loading database path names from %s", path)
	table, err := ParsePathNamers(file, path, t.logger)
	if err != nil {
		return nil, err
	}

	t.namers[path] = table
	return table, nil
}

// FileSpaces loads the filespace table at spacesPath with the roots listed at
// rootsPath. Both files must exist.
func (t *Tables) FileSpaces(rootsPath, spacesPath string) ([]*FileSpace, error) {
	origin := rootsPath + "|" + spacesPath

	t.mu.Lock()
	defer t.mu.Unlock()

	if table, ok := t.spaces[origin]; ok {
		return table, nil
	}

	rootsFile, err := os.Open(rootsPath)
	if err != nil {
		return nil, data.ConfigurationError(rootsPath, "cannot read roots: %v", err)
	}
	defer rootsFile.Close()

	t.logger.Debug("Loading roots from %s", rootsPath)
	roots, err := ParseRoots(rootsFile, rootsPath, t.logger)
	if err != nil {
		return nil, err
	}

	spacesFile, err := os.Open(spacesPath)
	if err != nil {
		return nil, data.ConfigurationError(spacesPath, "cannot read file spaces: %v", err)
	}
	defer spacesFile.Close()

	t.logger.Debug("Loading file spaces from %s", spacesPath)
	table, err := ParseFileSpaces(spacesFile, spacesPath, roots, t.logger)
	if err != nil {
		return nil, err
	}

	t.spaces[origin] = table
	return table, nil
}

// Invalidate drops every table loaded from the given file so the next
// lookup reads it again.
func (t *Tables) Invalidate(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.namers, path)
	for origin := range t.spaces {
		roots, spaces, _ := strings.Cut(origin, "|")
		if roots == path || spaces == path {
			delete(t.spaces, origin)
		}
	}
}
