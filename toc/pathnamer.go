package toc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/log"
	"github.com/mwantia/fdb/rules"
)

// PathNamer names the database directory of keys with one exact keyword
// set, e.g. "class=od,stream=oper {class}/{stream}".
type PathNamer struct {
	matcher  *rules.Matcher
	template string
}

func NewPathNamer(expr, template string) (*PathNamer, error) {
	m, err := rules.ParseMatcher(expr)
	if err != nil {
		return nil, err
	}
	return &PathNamer{
		matcher:  m,
		template: template,
	}, nil
}

// Match requires the key to carry exactly the namer keywords. Values equal to
// a non-empty missing sentinel match any expression.
func (p *PathNamer) Match(key data.Key, missing string) bool {
	return key.Len() == p.matcher.Len() && p.matcher.MatchExact(key, missing)
}

func (p *PathNamer) Name(key data.Key) (string, error) {
	return p.substitute(key, p.value(key, ""), identity)
}

// NamePartial substitutes sentinel values with the literal the namer
// expression demands. A placeholder whose expression is not a literal fails
// with data.ErrNotLiteral.
func (p *PathNamer) NamePartial(key data.Key, missing string) (string, error) {
	return p.substitute(key, p.value(key, missing), identity)
}

// NamePattern is NamePartial rendered as a regular expression: known values
// and template text are quoted, sentinel values become the namer expression.
// Path separators of the template are kept, so every element of the result
// can be compiled on its own.
func (p *PathNamer) NamePattern(key data.Key, missing string) (string, error) {
	return p.substitute(key, func(kw string, at int) (string, error) {
		value, ok := key.Get(kw)
		if !ok {
			return "", data.ConfigurationError(p.template, "cannot find a value for '%s' at position %d", kw, at)
		}
		if missing != "" && value == missing {
			return "(?:" + p.matcher.Expression(kw) + ")", nil
		}
		return regexp.QuoteMeta(value), nil
	}, regexp.QuoteMeta)
}

func identity(s string) string {
	return s
}

// value looks placeholders up in key, replacing sentinel values by the
// namer literal.
func (p *PathNamer) value(key data.Key, missing string) func(string, int) (string, error) {
	return func(kw string, at int) (string, error) {
		value, ok := key.Get(kw)
		if !ok {
			return "", data.ConfigurationError(p.template, "cannot find a value for '%s' at position %d", kw, at)
		}
		if missing != "" && value == missing {
			literal, ok := p.matcher.Literal(kw)
			if !ok {
				return "", fmt.Errorf("%w: '%s' in %s", data.ErrNotLiteral, kw, p)
			}
			return literal, nil
		}
		return value, nil
	}
}

// substitute scans the template left to right. Placeholders are rendered by
// value, the text around them by text.
func (p *PathNamer) substitute(key data.Key, value func(kw string, at int) (string, error), text func(string) string) (string, error) {
	var result, word, plain strings.Builder
	inVar := false

	flush := func() {
		result.WriteString(text(plain.String()))
		plain.Reset()
	}

	for i, r := range p.template {
		switch r {
		case '{':
			if inVar {
				return "", data.ConfigurationError(p.template, "unexpected '{' at position %d", i)
			}
			inVar = true
			word.Reset()
			flush()

		case '}':
			if !inVar {
				return "", data.ConfigurationError(p.template, "unexpected '}' at position %d", i)
			}
			inVar = false

			v, err := value(word.String(), i)
			if err != nil {
				return "", err
			}
			result.WriteString(v)

		default:
			if inVar {
				word.WriteRune(r)
			} else if r == '/' {
				flush()
				result.WriteRune(r)
			} else {
				plain.WriteRune(r)
			}
		}
	}

	if inVar {
		return "", data.ConfigurationError(p.template, "missing '}'")
	}
	flush()
	return result.String(), nil
}

func (p *PathNamer) String() string {
	return fmt.Sprintf("PathNamer(%s %s)", p.matcher, p.template)
}

// PathNamers is an ordered naming table; the first match wins.
type PathNamers []*PathNamer

// Resolve names a key with the first matching namer and falls back to the
// key's canonical string.
func (pn PathNamers) Resolve(key data.Key) (string, error) {
	for _, p := range pn {
		if p.Match(key, "") {
			return p.Name(key)
		}
	}
	return key.ValuesString(), nil
}

// ResolvePartial lists every name a partially known key may have on disk,
// ending with the canonical string. Namers that cannot substitute a sentinel
// are skipped.
func (pn PathNamers) ResolvePartial(key data.Key, missing string) ([]string, error) {
	var names []string
	for _, p := range pn {
		if !p.Match(key, missing) {
			continue
		}
		name, err := p.NamePartial(key, missing)
		if err != nil {
			if errors.Is(err, data.ErrNotLiteral) {
				continue
			}
			return nil, err
		}
		names = append(names, name)
	}
	return append(names, key.ValuesString()), nil
}

// ResolvePatterns is ResolvePartial for directory discovery. Every matching
// namer contributes a pattern, including those whose sentinel keywords are
// regular expressions, and the canonical string comes last with sentinels
// matching any value. Path elements are separated by '/'.
func (pn PathNamers) ResolvePatterns(key data.Key, missing string) ([]string, error) {
	var patterns []string
	for _, p := range pn {
		if !p.Match(key, missing) {
			continue
		}
		pattern, err := p.NamePattern(key, missing)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}

	values := make([]string, 0, key.Len())
	for _, kw := range key.Keywords() {
		if v := key.Value(kw); missing != "" && v == missing {
			values = append(values, "[^/]*")
		} else {
			values = append(values, regexp.QuoteMeta(v))
		}
	}
	return append(patterns, strings.Join(values, ":")), nil
}

// ParsePathNamers reads "kw=re[,kw=re...] template" lines. Lines with another
// number of fields are logged and skipped.
func ParsePathNamers(r io.Reader, source string, logger *log.Logger) (PathNamers, error) {
	var table PathNamers

	err := scanTable(r, func(line string, fields []string) error {
		if len(fields) != 2 {
			logger.Warn("Invalid line ignored in %s: %s", source, line)
			return nil
		}

		p, err := NewPathNamer(fields[0], fields[1])
		if err != nil {
			return data.ConfigurationError(source, "%v", err)
		}
		table = append(table, p)
		return nil
	})

	return table, err
}

// scanTable feeds the whitespace separated fields of every line that is not
// blank or a '#' comment to fn.
func scanTable(r io.Reader, fn func(line string, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}
