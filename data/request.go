package data

import (
	"fmt"
	"slices"
	"strings"
)

// Request is a query over keys: each keyword lists the values it accepts.
type Request struct {
	keywords []string
	values   map[string][]string
}

// ParseRequest parses "kw=v1/v2,kw2=v3". An empty string is an empty request.
func ParseRequest(s string) (Request, error) {
	r := Request{}
	s = strings.TrimSpace(s)
	if s == "" {
		return r, nil
	}

	for _, part := range strings.Split(s, ",") {
		kw, values, ok := strings.Cut(part, "=")
		kw = strings.TrimSpace(kw)
		if !ok || kw == "" || strings.TrimSpace(values) == "" {
			return Request{}, fmt.Errorf("%w: malformed request element '%s' in '%s'", ErrInvalid, part, s)
		}

		var alternatives []string
		for _, v := range strings.Split(values, "/") {
			if v = strings.TrimSpace(v); v != "" {
				alternatives = append(alternatives, v)
			}
		}
		r.Set(kw, alternatives...)
	}

	return r, nil
}

// RequestFromKey builds a request selecting exactly the given key.
func RequestFromKey(k Key) Request {
	r := Request{}
	for _, kw := range k.keywords {
		r.Set(kw, k.values[kw])
	}
	return r
}

// Set appends values to a keyword, skipping duplicates.
func (r *Request) Set(keyword string, values ...string) {
	if r.values == nil {
		r.values = make(map[string][]string)
	}
	current, exists := r.values[keyword]
	if !exists {
		r.keywords = append(r.keywords, keyword)
	}
	for _, v := range values {
		if !slices.Contains(current, v) {
			current = append(current, v)
		}
	}
	r.values[keyword] = current
}

func (r Request) Keywords() []string {
	return slices.Clone(r.keywords)
}

// Values implements Candidate.
func (r Request) Values(keyword string) ([]string, bool) {
	v, ok := r.values[keyword]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

func (r Request) Has(keyword string) bool {
	_, ok := r.values[keyword]
	return ok
}

func (r Request) Len() int {
	return len(r.keywords)
}

func (r Request) Empty() bool {
	return len(r.keywords) == 0
}

// Matches reports whether the key is compatible with the request. Request
// keywords absent from the key are ignored, so a database or index key can
// be tested against a request addressing fields.
func (r Request) Matches(k Key) bool {
	for _, kw := range r.keywords {
		v, ok := k.Get(kw)
		if !ok {
			continue
		}
		if !slices.Contains(r.values[kw], v) {
			return false
		}
	}
	return true
}

// MatchesAll is Matches but every request keyword must be present in the key.
func (r Request) MatchesAll(k Key) bool {
	for _, kw := range r.keywords {
		v, ok := k.Get(kw)
		if !ok || !slices.Contains(r.values[kw], v) {
			return false
		}
	}
	return true
}

// Project keeps only the given keywords, in the request's order.
func (r Request) Project(keywords []string) Request {
	p := Request{}
	for _, kw := range r.keywords {
		if slices.Contains(keywords, kw) {
			p.Set(kw, r.values[kw]...)
		}
	}
	return p
}

// Expand returns the cartesian product of all alternatives as keys.
func (r Request) Expand() []Key {
	if r.Empty() {
		return nil
	}

	keys := []Key{{}}
	for _, kw := range r.keywords {
		next := make([]Key, 0, len(keys)*len(r.values[kw]))
		for _, k := range keys {
			for _, v := range r.values[kw] {
				c := k.Clone()
				c.Set(kw, v)
				next = append(next, c)
			}
		}
		keys = next
	}
	return keys
}

func (r Request) String() string {
	parts := make([]string, len(r.keywords))
	for i, kw := range r.keywords {
		parts[i] = kw + "=" + strings.Join(r.values[kw], "/")
	}
	return strings.Join(parts, ",")
}
