// Package bolt persists index segments as buckets of a bbolt file. The file
// is opened only while a segment is loaded or written so several indexes
// of one session can share it.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/index"
	bolt "go.etcd.io/bbolt"
)

const Type = "bolt"

var segmentsBucket = []byte("segments")

type value struct {
	Key   data.Key    `json:"key"`
	Field index.Field `json:"field"`
}

type BoltIndex struct {
	mu sync.RWMutex

	opts    index.Options
	entries *index.Memory
	segment int64
	dirty   bool
}

func Build(ctx context.Context, opts index.Options) (index.Index, error) {
	bi := &BoltIndex{
		opts:    opts,
		entries: index.NewMemory(),
		segment: -1,
	}

	if opts.ReadOnly {
		if err := bi.load(); err != nil {
			return nil, err
		}
		bi.segment = opts.Offset
	}
	return bi, nil
}

func (bi *BoltIndex) open(readOnly bool) (*bolt.DB, error) {
	return bolt.Open(bi.opts.Path, 0644, &bolt.Options{
		Timeout:  5 * time.Second,
		ReadOnly: readOnly,
	})
}

func segmentName(id int64) []byte {
	name := make([]byte, 8)
	binary.BigEndian.PutUint64(name, uint64(id))
	return name
}

func (bi *BoltIndex) load() error {
	db, err := bi.open(true)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		segments := tx.Bucket(segmentsBucket)
		if segments == nil {
			return fmt.Errorf("%w: no segments in %s", data.ErrNotExist, bi.opts.Path)
		}
		b := segments.Bucket(segmentName(bi.opts.Offset))
		if b == nil {
			return fmt.Errorf("%w: segment %d in %s", data.ErrNotExist, bi.opts.Offset, bi.opts.Path)
		}

		return b.ForEach(func(_, raw []byte) error {
			var v value
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			bi.entries.Put(v.Key, v.Field)
			return nil
		})
	})
}

func (*BoltIndex) Type() string {
	return Type
}

func (bi *BoltIndex) Put(ctx context.Context, key data.Key, field index.Field) error {
	if bi.opts.ReadOnly {
		return data.ErrReadOnly
	}

	bi.mu.Lock()
	defer bi.mu.Unlock()

	bi.entries.Put(key, field)
	bi.dirty = true
	return nil
}

func (bi *BoltIndex) Get(ctx context.Context, key data.Key) (index.Field, bool, error) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	f, ok := bi.entries.Get(key)
	return f, ok, nil
}

func (bi *BoltIndex) Scan(ctx context.Context, fn func(index.Entry) error) error {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	return bi.entries.Scan(fn)
}

func (bi *BoltIndex) Len() int {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	return bi.entries.Len()
}

func (bi *BoltIndex) Flush(ctx context.Context) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	if bi.opts.ReadOnly || !bi.dirty {
		return nil
	}

	db, err := bi.open(false)
	if err != nil {
		return err
	}
	defer db.Close()

	var segment int64
	err = db.Update(func(tx *bolt.Tx) error {
		segments, err := tx.CreateBucketIfNotExists(segmentsBucket)
		if err != nil {
			return err
		}
		seq, err := segments.NextSequence()
		if err != nil {
			return err
		}
		segment = int64(seq)

		b, err := segments.CreateBucket(segmentName(segment))
		if err != nil {
			return err
		}

		return bi.entries.Scan(func(e index.Entry) error {
			raw, err := json.Marshal(value{Key: e.Key, Field: e.Field})
			if err != nil {
				return err
			}
			return b.Put([]byte(e.Key.Fingerprint()), raw)
		})
	})
	if err != nil {
		return err
	}

	bi.segment = segment
	bi.dirty = false
	return nil
}

func (bi *BoltIndex) Close(ctx context.Context) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	bi.entries.Clear()
	return nil
}

func (bi *BoltIndex) Locator() index.Locator {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	return index.Locator{Path: bi.opts.Path, Offset: bi.segment}
}
