// Package rules evaluates keys and requests against per-keyword regular
// expressions. It backs the schema, the path namer table and the select
// clauses of the composite catalog.
package rules

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"slices"
	"strings"

	"github.com/mwantia/fdb/data"
)

// Matcher is an ordered set of keyword expressions. The keyword set is fixed
// once the matcher is built.
type Matcher struct {
	keywords []string
	source   map[string]string
	regex    map[string]*regexp.Regexp
	optional map[string]bool
}

// ParseMatcher parses "kw=regex,kw2,kw3?". A keyword without expression
// accepts any value; a trailing '?' marks it optional.
func ParseMatcher(s string) (*Matcher, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NewMatcher(nil)
	}
	return NewMatcher(strings.Split(s, ","))
}

// NewMatcher builds a matcher from "kw=regex" items.
func NewMatcher(items []string) (*Matcher, error) {
	m := &Matcher{
		source:   make(map[string]string),
		regex:    make(map[string]*regexp.Regexp),
		optional: make(map[string]bool),
	}

	for _, item := range items {
		kw, expr, hasExpr := strings.Cut(strings.TrimSpace(item), "=")
		if strings.Contains(expr, "=") {
			return nil, fmt.Errorf("%w: malformed expression '%s'", data.ErrInvalid, item)
		}

		optional := strings.HasSuffix(kw, "?")
		kw = strings.TrimSuffix(kw, "?")
		if kw == "" {
			return nil, fmt.Errorf("%w: missing keyword in '%s'", data.ErrInvalid, item)
		}
		if _, exists := m.source[kw]; exists {
			return nil, fmt.Errorf("%w: duplicate keyword '%s'", data.ErrInvalid, kw)
		}
		if !hasExpr || expr == "" {
			expr = ".*"
		}

		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: keyword '%s': %v", data.ErrInvalid, kw, err)
		}

		m.keywords = append(m.keywords, kw)
		m.source[kw] = expr
		m.regex[kw] = re
		m.optional[kw] = optional
	}

	return m, nil
}

// MatcherFromValue builds a matcher from a configuration value. A list holds
// one "kw=regex" item per element, so expressions may contain commas; a
// string is read by ParseMatcher.
func MatcherFromValue(v any) (*Matcher, error) {
	switch t := v.(type) {
	case nil:
		return NewMatcher(nil)
	case string:
		return ParseMatcher(t)
	case []string:
		return NewMatcher(t)
	case []any:
		items := make([]string, len(t))
		for i, item := range t {
			items[i] = fmt.Sprint(item)
		}
		return NewMatcher(items)
	default:
		return nil, fmt.Errorf("%w: cannot build a matcher from %T", data.ErrInvalid, v)
	}
}

func (m *Matcher) Keywords() []string {
	return slices.Clone(m.keywords)
}

func (m *Matcher) Len() int {
	return len(m.keywords)
}

func (m *Matcher) Has(keyword string) bool {
	_, ok := m.regex[keyword]
	return ok
}

func (m *Matcher) Optional(keyword string) bool {
	return m.optional[keyword]
}

// Expression returns the expression as written in the configuration.
func (m *Matcher) Expression(keyword string) string {
	return m.source[keyword]
}

// Literal reports whether the keyword only accepts one exact string and
// returns it.
func (m *Matcher) Literal(keyword string) (string, bool) {
	expr, ok := m.source[keyword]
	if !ok {
		return "", false
	}

	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return "", false
	}
	re = re.Simplify()
	if re.Op != syntax.OpLiteral || re.Flags&syntax.FoldCase != 0 {
		return "", false
	}
	return string(re.Rune), true
}

// MatchValue tests one value against the keyword expression.
func (m *Matcher) MatchValue(keyword, value string) bool {
	re, ok := m.regex[keyword]
	return ok && re.MatchString(value)
}

func (m *Matcher) matchAny(keyword string, values []string, missing string) bool {
	for _, v := range values {
		if missing != "" && v == missing {
			return true
		}
		if m.MatchValue(keyword, v) {
			return true
		}
	}
	return false
}

// MatchExact requires the candidate to use exactly the matcher keywords:
// unknown candidate keywords fail, absent required keywords fail, and every
// present keyword needs one value fully matching its expression. Values equal
// to a non-empty missing sentinel are accepted without evaluation.
func (m *Matcher) MatchExact(c data.Candidate, missing string) bool {
	for _, kw := range c.Keywords() {
		if !m.Has(kw) {
			return false
		}
	}

	for _, kw := range m.keywords {
		values, ok := c.Values(kw)
		if !ok {
			if m.optional[kw] {
				continue
			}
			return false
		}
		if !m.matchAny(kw, values, missing) {
			return false
		}
	}

	return true
}

// MatchSelect evaluates every matcher keyword against the candidate, ignoring
// candidate keywords the matcher does not know. An absent keyword fails only
// when requireMissing is set.
func (m *Matcher) MatchSelect(c data.Candidate, requireMissing bool) bool {
	for _, kw := range m.keywords {
		values, ok := c.Values(kw)
		if !ok {
			if requireMissing {
				return false
			}
			continue
		}
		if !m.matchAny(kw, values, "") {
			return false
		}
	}

	return true
}

func (m *Matcher) String() string {
	parts := make([]string, len(m.keywords))
	for i, kw := range m.keywords {
		suffix := ""
		if m.optional[kw] {
			suffix = "?"
		}
		parts[i] = kw + suffix + "=" + m.source[kw]
	}
	return strings.Join(parts, ",")
}
