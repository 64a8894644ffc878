// Package registry maps backend names to builders. Catalogs, database
// sessions, index implementations and stores each keep one registry; the
// name comes from configuration and is resolved at build time.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mwantia/fdb/data"
)

// Builder constructs a T from the arguments A.
type Builder[A, T any] func(ctx context.Context, args A) (T, error)

// Registry is safe for concurrent use. The zero value is ready to use; Kind
// only names the registry in error messages.
type Registry[A, T any] struct {
	Kind string

	once     sync.Once
	mu       sync.RWMutex
	builders map[string]Builder[A, T]
}

func New[A, T any](kind string) *Registry[A, T] {
	return &Registry[A, T]{Kind: kind}
}

func (r *Registry[A, T]) init() {
	r.once.Do(func() {
		r.builders = make(map[string]Builder[A, T])
	})
}

// Register adds a builder. Registering a name twice fails with
// data.ErrAlreadyRegistered.
func (r *Registry[A, T]) Register(name string, builder Builder[A, T]) error {
	if name == "" || builder == nil {
		return fmt.Errorf("%w: %s builder needs a name and a function", data.ErrInvalid, r.Kind)
	}

	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[name]; exists {
		return fmt.Errorf("%w: %s builder '%s'", data.ErrAlreadyRegistered, r.Kind, name)
	}

	r.builders[name] = builder
	return nil
}

// MustRegister is Register for composition code where a duplicate is a bug.
func (r *Registry[A, T]) MustRegister(name string, builder Builder[A, T]) {
	if err := r.Register(name, builder); err != nil {
		panic(err)
	}
}

// Build looks up the builder registered under name and runs it.
func (r *Registry[A, T]) Build(ctx context.Context, name string, args A) (T, error) {
	r.init()
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, data.RegistryError(r.Kind, name, r.Names())
	}

	return builder(ctx, args)
}

func (r *Registry[A, T]) Has(name string) bool {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.builders[name]
	return ok
}

// Names lists the registered names in sorted order.
func (r *Registry[A, T]) Names() []string {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
