// Package btree keeps an index in memory and persists it as a segment
// appended to a file of the session's store.
package btree

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/index"
)

const Type = "btree"

type BTreeIndex struct {
	mu sync.RWMutex

	opts    index.Options
	entries *index.Memory
	offset  int64
	dirty   bool
}

// Build opens a writer, or loads the segment at opts.Offset for a reader.
func Build(ctx context.Context, opts index.Options) (index.Index, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: btree index needs a store", data.ErrInvalid)
	}

	bi := &BTreeIndex{
		opts:    opts,
		entries: index.NewMemory(),
		offset:  -1,
	}

	if opts.ReadOnly {
		if err := bi.load(ctx); err != nil {
			return nil, err
		}
		bi.offset = opts.Offset
	}
	return bi, nil
}

func (bi *BTreeIndex) load(ctx context.Context) error {
	header, err := bi.opts.Store.Read(ctx, bi.opts.Path, bi.opts.Offset, index.HeaderSize)
	if err != nil {
		return err
	}
	length, err := index.SegmentLength(header)
	if err != nil {
		return err
	}

	body, err := bi.opts.Store.Read(ctx, bi.opts.Path, bi.opts.Offset+index.HeaderSize, length)
	if err != nil {
		return err
	}
	return index.DecodeSegment(body, bi.entries)
}

func (*BTreeIndex) Type() string {
	return Type
}

func (bi *BTreeIndex) Put(ctx context.Context, key data.Key, field index.Field) error {
	if bi.opts.ReadOnly {
		return data.ErrReadOnly
	}

	bi.mu.Lock()
	defer bi.mu.Unlock()

	bi.entries.Put(key, field)
	bi.dirty = true
	return nil
}

func (bi *BTreeIndex) Get(ctx context.Context, key data.Key) (index.Field, bool, error) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	f, ok := bi.entries.Get(key)
	return f, ok, nil
}

func (bi *BTreeIndex) Scan(ctx context.Context, fn func(index.Entry) error) error {
	bi.mu.RLock()
	entries := bi.entries.Entries()
	bi.mu.RUnlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (bi *BTreeIndex) Len() int {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	return bi.entries.Len()
}

func (bi *BTreeIndex) Flush(ctx context.Context) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	if bi.opts.ReadOnly || !bi.dirty {
		return nil
	}

	buf, err := index.EncodeSegment(bi.entries.Entries())
	if err != nil {
		return err
	}

	offset, err := bi.opts.Store.Append(ctx, bi.opts.Path, buf)
	if err != nil {
		return err
	}

	bi.offset = offset
	bi.dirty = false
	return nil
}

func (bi *BTreeIndex) Close(ctx context.Context) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	bi.entries.Clear()
	return nil
}

func (bi *BTreeIndex) Locator() index.Locator {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	return index.Locator{Path: bi.opts.Path, Offset: bi.offset}
}
