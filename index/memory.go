package index

import (
	"github.com/mwantia/fdb/data"
	"github.com/tidwall/btree"
)

// Memory is an ordered in-memory entry set keyed by the datum fingerprint.
// Writers buffer in it until they flush; some readers load a whole segment
// into it.
type Memory struct {
	entries *btree.Map[string, Entry]
}

func NewMemory() *Memory {
	return &Memory{
		entries: btree.NewMap[string, Entry](0),
	}
}

func (m *Memory) Put(key data.Key, field Field) {
	m.entries.Set(key.Fingerprint(), Entry{Key: key, Field: field})
}

func (m *Memory) Get(key data.Key) (Field, bool) {
	e, ok := m.entries.Get(key.Fingerprint())
	return e.Field, ok
}

func (m *Memory) Scan(fn func(Entry) error) error {
	var err error
	m.entries.Scan(func(_ string, e Entry) bool {
		err = fn(e)
		return err == nil
	})
	return err
}

func (m *Memory) Len() int {
	return m.entries.Len()
}

// Entries returns a copy in key order.
func (m *Memory) Entries() []Entry {
	entries := make([]Entry, 0, m.entries.Len())
	m.entries.Scan(func(_ string, e Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

func (m *Memory) Clear() {
	m.entries.Clear()
}
