// Package stream decouples a producer walking a catalog from the consumer
// reading its results. Results flow through a bounded channel, so the
// producer never runs more than the channel capacity ahead of the consumer.
package stream

import (
	"context"
	"errors"
	"iter"
	"sync"
)

// DefaultCapacity is the channel size used by catalog queries.
const DefaultCapacity = 64

// Producer emits results until it is done or emit fails. emit fails once the
// iterator is closed or its context is cancelled.
type Producer[T any] func(ctx context.Context, emit func(T) error) error

// Iterator is a pull iterator over the results of a producer goroutine. It
// is meant for a single consumer; Close may be called from any goroutine.
type Iterator[T any] struct {
	ch     chan T
	done   chan struct{}
	cancel context.CancelFunc

	err     error
	current T

	closeOnce sync.Once
	mu        sync.Mutex
	closing   bool
}

// Produce starts producer in its own goroutine.
func Produce[T any](ctx context.Context, capacity int, producer Producer[T]) *Iterator[T] {
	ctx, cancel := context.WithCancel(ctx)

	it := &Iterator[T]{
		ch:     make(chan T, max(capacity, 0)),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	emit := func(v T) error {
		select {
		case it.ch <- v:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(it.done)

		err := producer(ctx, emit)
		if err != nil && errors.Is(err, context.Canceled) && it.isClosing() {
			err = nil
		}
		it.err = err
		close(it.ch)
	}()

	return it
}

// FromSlice is an iterator over fixed values.
func FromSlice[T any](ctx context.Context, values []T) *Iterator[T] {
	return Produce(ctx, len(values), func(ctx context.Context, emit func(T) error) error {
		for _, v := range values {
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Empty is an iterator without values.
func Empty[T any]() *Iterator[T] {
	return FromSlice[T](context.Background(), nil)
}

// Failed is an iterator reporting err without values.
func Failed[T any](err error) *Iterator[T] {
	return Produce(context.Background(), 0, func(context.Context, func(T) error) error {
		return err
	})
}

func (it *Iterator[T]) isClosing() bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	return it.closing
}

// Next blocks until the next value is available. It returns false when the
// producer finished; Err then reports why.
func (it *Iterator[T]) Next() bool {
	v, ok := <-it.ch
	if !ok {
		<-it.done
		it.cancel()
		return false
	}
	it.current = v
	return true
}

// Value is the value read by the last successful Next.
func (it *Iterator[T]) Value() T {
	return it.current
}

// Err is the producer's error, valid once Next returned false.
func (it *Iterator[T]) Err() error {
	select {
	case <-it.done:
		return it.err
	default:
		return nil
	}
}

// Close cancels the producer, discards pending values and waits for the
// producer goroutine to return. It is safe to call more than once.
func (it *Iterator[T]) Close() error {
	it.closeOnce.Do(func() {
		it.mu.Lock()
		it.closing = true
		it.mu.Unlock()

		it.cancel()
		for range it.ch {
		}
		<-it.done
	})
	return it.err
}

// All adapts the iterator to a range loop. Breaking out of the loop closes
// the iterator.
func (it *Iterator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for it.Next() {
			if !yield(it.Value()) {
				it.Close()
				return
			}
		}
	}
}

// Collect reads every remaining value and closes the iterator.
func (it *Iterator[T]) Collect() ([]T, error) {
	var values []T
	for it.Next() {
		values = append(values, it.Value())
	}
	if err := it.Err(); err != nil {
		it.Close()
		return values, err
	}
	return values, it.Close()
}
