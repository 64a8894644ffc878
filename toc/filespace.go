package toc

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"

	"github.com/cespare/xxhash/v2"
	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
)

// Root is one physical location databases are stored under.
type Root struct {
	Path      string
	FileSpace string
	Writable  bool
	Visitable bool
}

// ParseRoots reads "path filespace writable visitable" lines.
func ParseRoots(r io.Reader, source string, logger *log.Logger) ([]Root, error) {
	var roots []Root

	err := scanTable(r, func(line string, fields []string) error {
		if len(fields) != 4 {
			logger.Warn("Invalid line ignored in %s: %s", source, line)
			return nil
		}

		writable, err := config.ParseBool(fields[2])
		if err != nil {
			return data.ConfigurationError(source, "invalid writable flag in '%s'", line)
		}
		visitable, err := config.ParseBool(fields[3])
		if err != nil {
			return data.ConfigurationError(source, "invalid visitable flag in '%s'", line)
		}

		roots = append(roots, Root{
			Path:      path.Clean(fields[0]),
			FileSpace: fields[1],
			Writable:  writable,
			Visitable: visitable,
		})
		return nil
	})

	return roots, err
}

// Root selection handlers.
const (
	HandlerDefault = "Default"
	HandlerHash    = "Hash"
	HandlerFirst   = "First"
)

// FileSpace groups the roots serving keys whose canonical string matches
// Regex.
type FileSpace struct {
	Name    string
	Regex   *regexp.Regexp
	Handler string
	Roots   []Root
}

// ParseFileSpaces reads "regex filespace handler" lines and attaches the
// roots of each filespace. A filespace without roots is fatal.
func ParseFileSpaces(r io.Reader, source string, roots []Root, logger *log.Logger) ([]*FileSpace, error) {
	var spaces []*FileSpace

	err := scanTable(r, func(line string, fields []string) error {
		if len(fields) != 3 {
			logger.Warn("Invalid line ignored in %s: %s", source, line)
			return nil
		}

		re, err := regexp.Compile(fields[0])
		if err != nil {
			return data.ConfigurationError(source, "invalid filespace regex in '%s': %v", line, err)
		}

		var own []Root
		for _, root := range roots {
			if root.FileSpace == fields[1] {
				own = append(own, root)
			}
		}
		if len(own) == 0 {
			return data.ConfigurationError(source, "no roots found for filespace %s", fields[1])
		}

		handler := fields[2]
		switch handler {
		case HandlerDefault, HandlerHash, HandlerFirst:
		default:
			logger.Warn("Unknown handler '%s' for filespace %s, using %s", handler, fields[1], HandlerDefault)
			handler = HandlerDefault
		}

		spaces = append(spaces, &FileSpace{
			Name:    fields[1],
			Regex:   re,
			Handler: handler,
			Roots:   own,
		})
		return nil
	})

	return spaces, err
}

// Match tests the canonical string of a key.
func (fs *FileSpace) Match(canonical string) bool {
	return fs.Regex.MatchString(canonical)
}

// Select picks the root for a database. A root already holding dbName wins;
// otherwise the handler chooses a writable root deterministically.
func (fs *FileSpace) Select(ctx context.Context, key data.Key, dbName string, exists func(ctx context.Context, path string) (bool, error)) (string, error) {
	for _, root := range fs.Roots {
		found, err := exists(ctx, path.Join(root.Path, dbName))
		if err != nil {
			return "", err
		}
		if found {
			return root.Path, nil
		}
	}

	writable := fs.WritableRoots()
	if len(writable) == 0 {
		return "", data.RoutingError("no writable root in filespace %s for %s", fs.Name, key)
	}

	if fs.Handler == HandlerFirst {
		return writable[0], nil
	}
	return writable[xxhash.Sum64String(key.Fingerprint())%uint64(len(writable))], nil
}

func (fs *FileSpace) AllRoots() []string {
	return fs.roots(func(Root) bool { return true })
}

func (fs *FileSpace) WritableRoots() []string {
	return fs.roots(func(r Root) bool { return r.Writable })
}

func (fs *FileSpace) VisitableRoots() []string {
	return fs.roots(func(r Root) bool { return r.Visitable })
}

func (fs *FileSpace) roots(keep func(Root) bool) []string {
	var paths []string
	for _, r := range fs.Roots {
		if keep(r) {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

func (fs *FileSpace) String() string {
	return fmt.Sprintf("FileSpace(%s %s %s)", fs.Name, fs.Regex, fs.Handler)
}
