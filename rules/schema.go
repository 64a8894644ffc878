package rules

import (
	"fmt"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
)

// Schema decides whether a key may be archived and how it splits into
// database, index and datum parts.
type Schema interface {
	// Match returns the first rule accepting the key, or nil.
	Match(key data.Key) *Rule
}

// Rule describes one three level layout of keys.
type Rule struct {
	Database *Matcher
	Index    *Matcher
	Datum    *Matcher
	Defaults map[string]string
}

// Split divides a key along the rule levels. Optional keywords absent from
// the key receive their default. It fails if the key carries keywords the
// rule does not know, lacks a required keyword or a value does not match.
func (r *Rule) Split(key data.Key) (db, index, datum data.Key, ok bool) {
	for _, kw := range key.Keywords() {
		if !r.Database.Has(kw) && !r.Index.Has(kw) && !r.Datum.Has(kw) {
			return data.Key{}, data.Key{}, data.Key{}, false
		}
	}

	levels := []*Matcher{r.Database, r.Index, r.Datum}
	parts := make([]data.Key, len(levels))
	for i, m := range levels {
		for _, kw := range m.Keywords() {
			v, present := key.Get(kw)
			switch {
			case present:
				if !m.MatchValue(kw, v) {
					return data.Key{}, data.Key{}, data.Key{}, false
				}
			case m.Optional(kw):
				v = r.Defaults[kw]
			default:
				return data.Key{}, data.Key{}, data.Key{}, false
			}
			parts[i].Set(kw, v)
		}
	}

	return parts[0], parts[1], parts[2], true
}

// Keywords lists the keywords of all levels in order.
func (r *Rule) Keywords() []string {
	kws := r.Database.Keywords()
	kws = append(kws, r.Index.Keywords()...)
	return append(kws, r.Datum.Keywords()...)
}

func (r *Rule) String() string {
	return fmt.Sprintf("[%s][%s][%s]", r.Database, r.Index, r.Datum)
}

// Rules is an ordered schema; the first matching rule wins.
type Rules []*Rule

func (rs Rules) Match(key data.Key) *Rule {
	for _, r := range rs {
		if _, _, _, ok := r.Split(key); ok {
			return r
		}
	}
	return nil
}

// DatabaseKeywords is the union of database level keywords of all rules.
func (rs Rules) DatabaseKeywords() []string {
	var kws []string
	seen := make(map[string]bool)
	for _, r := range rs {
		for _, kw := range r.Database.Keywords() {
			if !seen[kw] {
				seen[kw] = true
				kws = append(kws, kw)
			}
		}
	}
	return kws
}

type ruleConfig struct {
	Database any               `config:"database"`
	Index    any               `config:"index"`
	Datum    any               `config:"datum"`
	Defaults map[string]string `config:"defaults"`
}

// FromConfig reads the "schema" list of a configuration:
//
//	schema:
//	  - database: [class=od|rd, expver, stream, date, time]
//	    index: [type, levtype]
//	    datum: [step, param, levelist?]
//	    defaults: {levelist: "0"}
func FromConfig(cfg *config.Config) (Rules, error) {
	var rs Rules
	for i, sub := range cfg.Subs("schema") {
		var rc ruleConfig
		if err := sub.Decode(&rc); err != nil {
			return nil, data.ConfigurationError(cfg.Origin(), "schema rule %d: %v", i, err)
		}

		levels := make([]*Matcher, 3)
		for j, value := range []any{rc.Database, rc.Index, rc.Datum} {
			m, err := MatcherFromValue(value)
			if err != nil {
				return nil, data.ConfigurationError(cfg.Origin(), "schema rule %d: %v", i, err)
			}
			levels[j] = m
		}
		if levels[0].Len() == 0 {
			return nil, data.ConfigurationError(cfg.Origin(), "schema rule %d has no database keywords", i)
		}

		rs = append(rs, &Rule{
			Database: levels[0],
			Index:    levels[1],
			Datum:    levels[2],
			Defaults: rc.Defaults,
		})
	}

	return rs, nil
}
