package consul

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/data"
	"github.com/mwantia/fdb/store"
)

// ConsulStore keeps catalog files in the Consul KV store.
//
// Directories are virtual and exist as key prefixes only. Consul limits a
// value to 512KB, so this store suits small catalogs and index files.
type ConsulStore struct {
	mu sync.RWMutex
	kv *api.KV

	config *ConsulStoreConfig
}

type ConsulStoreConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string `config:"address"`

	Token      string `config:"token"`
	Datacenter string `config:"datacenter"`
	Namespace  string `config:"namespace"`

	// Prefix for all keys in Consul KV (default: "fdb")
	Prefix string `config:"prefix"`
}

// casAttempts bounds the retries of a contended append.
const casAttempts = 8

func NewConsulStore(config *ConsulStoreConfig) (*ConsulStore, error) {
	if config == nil {
		config = &ConsulStoreConfig{}
	}
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	if config.Prefix == "" {
		config.Prefix = "fdb"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulStore{
		kv:     client.KV(),
		config: config,
	}, nil
}

// Build is the registry builder. The token falls back to CONSUL_HTTP_TOKEN.
func Build(_ context.Context, cfg *config.Config) (store.Store, error) {
	sc := &ConsulStoreConfig{}
	if err := cfg.Decode(sc); err != nil {
		return nil, data.ConfigurationError(cfg.Origin(), "consul store: %v", err)
	}
	sc.Token = cfg.Resource("token", "CONSUL_HTTP_TOKEN", "")

	return NewConsulStore(sc)
}

func (*ConsulStore) Name() string {
	return "consul"
}

func (cs *ConsulStore) buildKey(p string) string {
	return strings.Trim(path.Join(cs.config.Prefix, path.Clean("/"+p)), "/")
}

func queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}

func (cs *ConsulStore) Exists(ctx context.Context, p string) (bool, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	key := cs.buildKey(p)
	pair, _, err := cs.kv.Get(key, queryOptions(ctx))
	if err != nil {
		return false, err
	}
	if pair != nil {
		return true, nil
	}

	keys, _, err := cs.kv.Keys(key+"/", "", queryOptions(ctx))
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

func (cs *ConsulStore) Read(ctx context.Context, p string, offset, length int64) ([]byte, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	key := cs.buildKey(p)
	pair, _, err := cs.kv.Get(key, queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: %s", data.ErrNotExist, key)
	}

	size := int64(len(pair.Value))
	if length < 0 {
		length = max(size-offset, 0)
	}
	if offset+length > size {
		return nil, fmt.Errorf("failed to read %d bytes at %d from '%s': value holds %d bytes", length, offset, key, size)
	}
	return pair.Value[offset : offset+length], nil
}

// Append uses check-and-set on the modify index so concurrent writers do
// not lose data.
func (cs *ConsulStore) Append(ctx context.Context, p string, dat []byte) (int64, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	key := cs.buildKey(p)
	for range casAttempts {
		pair, _, err := cs.kv.Get(key, queryOptions(ctx))
		if err != nil {
			return 0, err
		}

		next := &api.KVPair{Key: key}
		var offset int64
		if pair != nil {
			offset = int64(len(pair.Value))
			next.ModifyIndex = pair.ModifyIndex
			next.Value = append(pair.Value, dat...)
		} else {
			next.Value = dat
		}

		ok, _, err := cs.kv.CAS(next, writeOptions(ctx))
		if err != nil {
			return 0, err
		}
		if ok {
			return offset, nil
		}
	}

	return 0, fmt.Errorf("failed to append to '%s': modified concurrently", key)
}

func (cs *ConsulStore) Write(ctx context.Context, p string, dat []byte) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	_, err := cs.kv.Put(&api.KVPair{Key: cs.buildKey(p), Value: dat}, writeOptions(ctx))
	return err
}

func (cs *ConsulStore) Delete(ctx context.Context, p string, recursive bool) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	key := cs.buildKey(p)
	pair, _, err := cs.kv.Get(key, queryOptions(ctx))
	if err != nil {
		return err
	}

	if recursive {
		keys, _, err := cs.kv.Keys(key+"/", "", queryOptions(ctx))
		if err != nil {
			return err
		}
		if pair == nil && len(keys) == 0 {
			return fmt.Errorf("%w: %s", data.ErrNotExist, key)
		}
		if _, err := cs.kv.DeleteTree(key+"/", writeOptions(ctx)); err != nil {
			return err
		}
	} else if pair == nil {
		return fmt.Errorf("%w: %s", data.ErrNotExist, key)
	}

	_, err = cs.kv.Delete(key, writeOptions(ctx))
	return err
}

func (cs *ConsulStore) List(ctx context.Context, p string) ([]store.Entry, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	prefix := cs.buildKey(p) + "/"
	keys, _, err := cs.kv.Keys(prefix, "/", queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", data.ErrNotExist, prefix)
	}

	entries := make([]store.Entry, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, prefix)
		if name == "" {
			continue
		}
		if strings.HasSuffix(name, "/") {
			entries = append(entries, store.Entry{Name: strings.TrimSuffix(name, "/"), Dir: true})
			continue
		}

		entry := store.Entry{Name: name}
		if pair, _, err := cs.kv.Get(k, queryOptions(ctx)); err == nil && pair != nil {
			entry.Size = int64(len(pair.Value))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MkdirAll is a no-op; directories are virtual.
func (cs *ConsulStore) MkdirAll(ctx context.Context, p string) error {
	return nil
}

// Close is a no-op; the Consul client is stateless.
func (cs *ConsulStore) Close(ctx context.Context) error {
	return nil
}
