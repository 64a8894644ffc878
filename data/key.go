package data

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Candidate is anything the pattern matcher can evaluate: a Key carries one
// value per keyword, a Request may carry several alternatives.
type Candidate interface {
	Keywords() []string
	Values(keyword string) ([]string, bool)
}

// Key is an ordered keyword to value mapping identifying one logical record.
// The keyword order is the insertion order and defines the canonical string.
// Keys are built once and must not be modified after being handed to a catalog.
type Key struct {
	keywords []string
	values   map[string]string
}

// NewKey builds a key from alternating keyword/value pairs.
func NewKey(pairs ...string) Key {
	k := Key{}
	for i := 0; i+1 < len(pairs); i += 2 {
		k.Set(pairs[i], pairs[i+1])
	}
	if len(pairs)%2 == 1 {
		k.Set(pairs[len(pairs)-1], "")
	}
	return k
}

// ParseKey parses the form produced by String, with or without braces.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")

	k := Key{}
	if s == "" {
		return k, nil
	}

	for _, part := range strings.Split(s, ",") {
		kw, value, ok := strings.Cut(part, "=")
		kw = strings.TrimSpace(kw)
		if !ok || kw == "" {
			return Key{}, fmt.Errorf("%w: malformed key element '%s' in '%s'", ErrInvalid, part, s)
		}
		if k.Has(kw) {
			return Key{}, fmt.Errorf("%w: duplicate keyword '%s' in '%s'", ErrInvalid, kw, s)
		}
		k.Set(kw, strings.TrimSpace(value))
	}

	return k, nil
}

// Set assigns a value, appending the keyword if it is new.
func (k *Key) Set(keyword, value string) {
	if k.values == nil {
		k.values = make(map[string]string)
	}
	if _, exists := k.values[keyword]; !exists {
		k.keywords = append(k.keywords, keyword)
	}
	k.values[keyword] = value
}

func (k Key) Get(keyword string) (string, bool) {
	v, ok := k.values[keyword]
	return v, ok
}

// Value returns the keyword value or an empty string.
func (k Key) Value(keyword string) string {
	return k.values[keyword]
}

func (k Key) Has(keyword string) bool {
	_, ok := k.values[keyword]
	return ok
}

// Values implements Candidate.
func (k Key) Values(keyword string) ([]string, bool) {
	v, ok := k.values[keyword]
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

// Keywords returns the keywords in insertion order.
func (k Key) Keywords() []string {
	return slices.Clone(k.keywords)
}

func (k Key) Len() int {
	return len(k.keywords)
}

func (k Key) Empty() bool {
	return len(k.keywords) == 0
}

// Equal reports whether both keys hold the same keyword/value pairs,
// regardless of keyword order.
func (k Key) Equal(other Key) bool {
	if len(k.keywords) != len(other.keywords) {
		return false
	}
	for kw, v := range k.values {
		if ov, ok := other.values[kw]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Fingerprint is an order insensitive identity, suitable as a map key.
// Two keys have the same fingerprint if and only if they are Equal.
func (k Key) Fingerprint() string {
	sorted := slices.Clone(k.keywords)
	slices.Sort(sorted)

	var sb strings.Builder
	for i, kw := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(kw))
		sb.WriteByte('=')
		sb.WriteString(strconv.Quote(k.values[kw]))
	}
	return sb.String()
}

// ValuesString joins the values with ':' in keyword order. It is the
// canonical form matched by filespaces and the default database name.
func (k Key) ValuesString() string {
	values := make([]string, len(k.keywords))
	for i, kw := range k.keywords {
		values[i] = k.values[kw]
	}
	return strings.Join(values, ":")
}

func (k Key) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, kw := range k.keywords {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(kw)
		sb.WriteByte('=')
		sb.WriteString(k.values[kw])
	}
	sb.WriteByte('}')
	return sb.String()
}

func (k Key) Clone() Key {
	c := Key{}
	for _, kw := range k.keywords {
		c.Set(kw, k.values[kw])
	}
	return c
}

// Subset returns a new key holding only the given keywords that are present.
func (k Key) Subset(keywords []string) Key {
	sub := Key{}
	for _, kw := range keywords {
		if v, ok := k.values[kw]; ok {
			sub.Set(kw, v)
		}
	}
	return sub
}

// Merge concatenates keys in order; later values overwrite earlier ones.
func Merge(keys ...Key) Key {
	merged := Key{}
	for _, k := range keys {
		for _, kw := range k.keywords {
			merged.Set(kw, k.values[kw])
		}
	}
	return merged
}

// MarshalJSON writes the key as ordered [keyword, value] pairs, so values may
// hold any character.
func (k Key) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, len(k.keywords))
	for i, kw := range k.keywords {
		pairs[i] = [2]string{kw, k.values[kw]}
	}
	return json.Marshal(pairs)
}

func (k *Key) UnmarshalJSON(raw []byte) error {
	var pairs [][2]string
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return fmt.Errorf("%w: malformed key %s: %v", ErrInvalid, raw, err)
	}

	parsed := Key{}
	for _, pair := range pairs {
		if pair[0] == "" {
			return fmt.Errorf("%w: empty keyword in key %s", ErrInvalid, raw)
		}
		if parsed.Has(pair[0]) {
			return fmt.Errorf("%w: duplicate keyword '%s' in key %s", ErrInvalid, pair[0], raw)
		}
		parsed.Set(pair[0], pair[1])
	}
	*k = parsed
	return nil
}
