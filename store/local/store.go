// Package local stores catalog files on a locally mounted filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/store"
)

type LocalStore struct {
	mu   sync.RWMutex
	base string
}

// NewLocalStore creates a store resolving paths below base. An empty base
// uses paths as given.
func NewLocalStore(base string) *LocalStore {
	if base != "" {
		base = filepath.Clean(base)
	}
	return &LocalStore{
		base: base,
	}
}

// Build is the registry builder reading the optional "base" setting.
func Build(_ context.Context, cfg *config.Config) (store.Store, error) {
	base := cfg.GetString("base", "")
	if base != "" {
		base = cfg.ExpandPath(base)
	}
	return NewLocalStore(base), nil
}

func (*LocalStore) Name() string {
	return "local"
}

func (ls *LocalStore) resolvePath(path string) string {
	if ls.base == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(ls.base, filepath.Clean(path))
}

func mapError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", data.ErrNotExist, err)
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %v", data.ErrExist, err)
	}
	return err
}

func (ls *LocalStore) Exists(ctx context.Context, path string) (bool, error) {
	if _, err := os.Stat(ls.resolvePath(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ls *LocalStore) Read(ctx context.Context, path string, offset, length int64) ([]byte, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	file, err := os.Open(ls.resolvePath(path))
	if err != nil {
		return nil, mapError(err)
	}
	defer file.Close()

	if length < 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		return io.ReadAll(file)
	}

	buf := make([]byte, length)
	n, err := file.ReadAt(buf, offset)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == length) {
		return nil, fmt.Errorf("failed to read %d bytes at %d from '%s': %w", length, offset, path, err)
	}
	return buf, nil
}

func (ls *LocalStore) Append(ctx context.Context, path string, dat []byte) (int64, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	file, err := os.OpenFile(ls.resolvePath(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, mapError(err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}

	if _, err := file.Write(dat); err != nil {
		return 0, err
	}
	return info.Size(), file.Sync()
}

func (ls *LocalStore) Write(ctx context.Context, path string, dat []byte) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	fullPath := ls.resolvePath(path)
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, dat, 0644); err != nil {
		return mapError(err)
	}
	return os.Rename(tmp, fullPath)
}

func (ls *LocalStore) Delete(ctx context.Context, path string, recursive bool) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	fullPath := ls.resolvePath(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return mapError(err)
	}

	if info.IsDir() && recursive {
		return os.RemoveAll(fullPath)
	}
	return os.Remove(fullPath)
}

func (ls *LocalStore) List(ctx context.Context, path string) ([]store.Entry, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	entries, err := os.ReadDir(ls.resolvePath(path))
	if err != nil {
		return nil, mapError(err)
	}

	result := make([]store.Entry, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result = append(result, store.Entry{
			Name: entry.Name(),
			Size: info.Size(),
			Dir:  entry.IsDir(),
		})
	}
	return result, nil
}

func (ls *LocalStore) MkdirAll(ctx context.Context, path string) error {
	return os.MkdirAll(ls.resolvePath(path), 0755)
}

// Close is a no-op; the filesystem persists independently.
func (ls *LocalStore) Close(ctx context.Context) error {
	return nil
}
