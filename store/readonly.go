package store

import (
	"context"
	"fmt"

	"github.com/mwantia/fdb/data"
)

// ReadOnlyStore wraps any Store to make it read-only.
// Reads are passed through to the underlying store, every write fails with
// data.ErrReadOnly.
type ReadOnlyStore struct {
	store Store
}

// NewReadOnly creates a read-only wrapper around the given store.
func NewReadOnly(store Store) *ReadOnlyStore {
	return &ReadOnlyStore{
		store: store,
	}
}

func (ros *ReadOnlyStore) Name() string {
	return ros.store.Name()
}

func (ros *ReadOnlyStore) Exists(ctx context.Context, path string) (bool, error) {
	return ros.store.Exists(ctx, path)
}

func (ros *ReadOnlyStore) Read(ctx context.Context, path string, offset, length int64) ([]byte, error) {
	return ros.store.Read(ctx, path, offset, length)
}

func (ros *ReadOnlyStore) List(ctx context.Context, path string) ([]Entry, error) {
	return ros.store.List(ctx, path)
}

func (ros *ReadOnlyStore) Append(ctx context.Context, path string, _ []byte) (int64, error) {
	return 0, ros.denied("append", path)
}

func (ros *ReadOnlyStore) Write(ctx context.Context, path string, _ []byte) error {
	return ros.denied("write", path)
}

func (ros *ReadOnlyStore) Delete(ctx context.Context, path string, _ bool) error {
	return ros.denied("delete", path)
}

func (ros *ReadOnlyStore) MkdirAll(ctx context.Context, path string) error {
	return ros.denied("mkdir", path)
}

func (ros *ReadOnlyStore) Close(ctx context.Context) error {
	return ros.store.Close(ctx)
}

func (ros *ReadOnlyStore) denied(op, path string) error {
	return fmt.Errorf("%w: %s %s on %s store", data.ErrReadOnly, op, path, ros.store.Name())
}
