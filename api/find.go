package api

import (
	"context"
	"errors"
	"iter"
	"path"
	"regexp"
	"strings"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/database"
)

// anyValue stands for a database keyword the request leaves open.
const anyValue = "*"

// namePattern matches a database directory name below a root, one
// expression per path element.
type namePattern []*regexp.Regexp

// compileName compiles a name pattern, anchoring every element.
func compileName(pattern string) (namePattern, error) {
	var compiled namePattern
	for _, element := range strings.Split(pattern, "/") {
		if element == "" {
			continue
		}
		re, err := regexp.Compile("^(?:" + element + ")$")
		if err != nil {
			return nil, data.ConfigurationError(pattern, "%v", err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// candidates returns the database keys a request may address, with open
// keywords set to anyValue, in the keyword order of every schema rule.
func (c *LocalCatalog) candidates(request data.Request) []data.Key {
	var keys []data.Key
	seen := make(map[string]bool)
	for _, rule := range c.schema {
		partial := data.Request{}
		for _, kw := range rule.Database.Keywords() {
			if values, ok := request.Values(kw); ok {
				partial.Set(kw, values...)
			} else {
				partial.Set(kw, anyValue)
			}
		}
		for _, key := range partial.Expand() {
			if id := key.String(); !seen[id] {
				seen[id] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func (c *LocalCatalog) patterns(keys []data.Key) ([]namePattern, error) {
	var patterns []namePattern
	seen := make(map[string]bool)
	for _, key := range keys {
		names, err := c.roots.PossibleDbPathPatterns(key, anyValue)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			p, err := compileName(name)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}

// visitRoots lists the roots to search: the roots of the filespaces of
// every fully specified key, or every visitable root otherwise.
func (c *LocalCatalog) visitRoots(keys []data.Key) []string {
	var roots []string
	seen := make(map[string]bool)
	for _, key := range keys {
		for _, kw := range key.Keywords() {
			if key.Value(kw) == anyValue {
				return c.roots.VisitableRoots(data.Key{})
			}
		}
		for _, root := range c.roots.VisitableRoots(key) {
			if !seen[root] {
				seen[root] = true
				roots = append(roots, root)
			}
		}
	}
	return roots
}

// find yields a reader for every database on a visitable root whose
// directory name fits the request and whose key matches it.
func (c *LocalCatalog) find(ctx context.Context, request data.Request) iter.Seq2[database.DB, error] {
	return func(yield func(database.DB, error) bool) {
		keys := c.candidates(request)
		patterns, err := c.patterns(keys)
		if err != nil {
			yield(nil, err)
			return
		}

		seen := make(map[string]bool)
		for _, root := range c.visitRoots(keys) {
			for _, p := range patterns {
				dirs, err := c.match(ctx, root, p)
				if err != nil {
					yield(nil, err)
					return
				}

				for _, dir := range dirs {
					if seen[dir] {
						continue
					}
					seen[dir] = true

					db, err := c.open(ctx, dir)
					if err != nil {
						yield(nil, err)
						return
					}
					if db == nil {
						continue
					}
					if !request.Matches(db.Key()) {
						db.Close(ctx)
						continue
					}
					if !yield(db, nil) {
						return
					}
				}
			}
		}
	}
}

// match lists the directories below root matching every element of p.
func (c *LocalCatalog) match(ctx context.Context, root string, p namePattern) ([]string, error) {
	dirs := []string{root}
	for _, re := range p {
		var next []string
		for _, dir := range dirs {
			entries, err := c.store.List(ctx, dir)
			if errors.Is(err, data.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if e.Dir && re.MatchString(e.Name) {
					next = append(next, path.Join(dir, e.Name))
				}
			}
		}
		dirs = next
	}
	return dirs, nil
}

// open returns nil for directories that hold no database or a corrupt toc.
func (c *LocalCatalog) open(ctx context.Context, dir string) (database.DB, error) {
	ok, err := c.store.Exists(ctx, path.Join(dir, database.TocFile))
	if err != nil || !ok {
		return nil, err
	}

	db, err := c.databases.Build(ctx, c.readerDB, database.Args{Directory: dir, Env: c.env})
	if errors.Is(err, data.ErrInvalid) {
		c.logger.Warn("Skipping %s: %v", dir, err)
		return nil, nil
	}
	return db, err
}
