package stream

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Merge fans several iterators into one. Values keep their order per
// source; sources interleave. The first failing source stops the others.
func Merge[T any](ctx context.Context, capacity int, sources ...*Iterator[T]) *Iterator[T] {
	if len(sources) == 1 {
		return sources[0]
	}

	return Produce(ctx, capacity, func(ctx context.Context, emit func(T) error) error {
		eg, ctx := errgroup.WithContext(ctx)

		for _, src := range sources {
			eg.Go(func() error {
				defer src.Close()

				for {
					select {
					case v, ok := <-src.ch:
						if !ok {
							<-src.done
							return src.err
						}
						if err := emit(v); err != nil {
							return err
						}
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			})
		}

		return eg.Wait()
	})
}

// Map transforms the values of an iterator.
func Map[T, U any](ctx context.Context, src *Iterator[T], fn func(T) (U, error)) *Iterator[U] {
	return Produce(ctx, cap(src.ch), func(ctx context.Context, emit func(U) error) error {
		defer src.Close()

		for {
			select {
			case v, ok := <-src.ch:
				if !ok {
					<-src.done
					return src.err
				}
				u, err := fn(v)
				if err != nil {
					return err
				}
				if err := emit(u); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
