package data

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Standard catalog errors. Implementations wrap these so callers can test the
// class with errors.Is.
var (
	// Fatal error classes
	ErrConfiguration  = errors.New("fdb: configuration error")
	ErrRouting        = errors.New("fdb: routing error")
	ErrRegistry       = errors.New("fdb: registry error")
	ErrNotImplemented = errors.New("fdb: not implemented")

	// Registry errors
	ErrAlreadyRegistered = errors.New("fdb: builder already registered")

	// Database and storage errors
	ErrNotExist   = errors.New("fdb: does not exist")
	ErrExist      = errors.New("fdb: already exists")
	ErrReadOnly   = errors.New("fdb: read-only database")
	ErrDisabled   = errors.New("fdb: backend disabled")
	ErrMismatch   = errors.New("fdb: database key mismatch")
	ErrNotLiteral = errors.New("fdb: rule value is not a literal")

	// I/O errors
	ErrClosed  = errors.New("fdb: already closed")
	ErrInvalid = errors.New("fdb: invalid argument")
)

// ConfigurationError reports a malformed table, template or setting, naming
// the source it was read from.
func ConfigurationError(source string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, source, fmt.Sprintf(format, args...))
}

// RoutingError reports that no rule, filespace or sub-backend accepts a key.
func RoutingError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRouting, fmt.Sprintf(format, args...))
}

// RegistryError reports an unknown builder name together with the known ones.
func RegistryError(registry, name string, known []string) error {
	return fmt.Errorf("%w: no %s builder called '%s', known values are [%s]",
		ErrRegistry, registry, name, strings.Join(known, ", "))
}

// NotImplemented reports a callback invoked outside its supported context.
func NotImplemented(what string) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, what)
}

// Errors collects failures of independent steps so one failure does not stop
// the others from running.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.errors)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
