package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(n int) Producer[int] {
	return func(ctx context.Context, emit func(int) error) error {
		for i := range n {
			if err := emit(i); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestIterator_YieldsInOrder(t *testing.T) {
	it := Produce(context.Background(), 2, counting(10))

	values, err := it.Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, values)
}

func TestIterator_ProducerError(t *testing.T) {
	boom := errors.New("boom")
	it := Produce(context.Background(), 0, func(ctx context.Context, emit func(string) error) error {
		if err := emit("one"); err != nil {
			return err
		}
		return boom
	})

	require.True(t, it.Next())
	assert.Equal(t, "one", it.Value())
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), boom)
	assert.ErrorIs(t, it.Close(), boom)
}

func TestIterator_CloseReleasesProducer(t *testing.T) {
	var open atomic.Int32

	it := Produce(context.Background(), 1, func(ctx context.Context, emit func(int) error) error {
		open.Add(1)
		defer open.Add(-1)

		for i := 0; ; i++ {
			if err := emit(i); err != nil {
				return err
			}
		}
	})

	for range 3 {
		require.True(t, it.Next())
	}
	assert.Equal(t, int32(1), open.Load())

	require.NoError(t, it.Close())
	assert.Equal(t, int32(0), open.Load())
	assert.False(t, it.Next())
	require.NoError(t, it.Close())
}

func TestIterator_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it := Produce(ctx, 0, func(ctx context.Context, emit func(int) error) error {
		<-ctx.Done()
		return ctx.Err()
	})

	cancel()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), context.Canceled)
}

func TestIterator_RangeBreakCloses(t *testing.T) {
	var open atomic.Int32
	it := Produce(context.Background(), 0, func(ctx context.Context, emit func(int) error) error {
		open.Add(1)
		defer open.Add(-1)
		return counting(1000)(ctx, emit)
	})

	sum := 0
	for v := range it.All() {
		sum += v
		if v == 4 {
			break
		}
	}
	assert.Equal(t, 10, sum)
	assert.Equal(t, int32(0), open.Load())
}

func TestMerge_CombinesSources(t *testing.T) {
	ctx := context.Background()
	merged := Merge(ctx, 4,
		Produce(ctx, 0, counting(3)),
		FromSlice(ctx, []int{10, 11}),
		Empty[int](),
	)

	values, err := merged.Collect()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 10, 11}, values)
}

func TestMerge_FirstErrorStopsOthers(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var open atomic.Int32

	endless := Produce(ctx, 0, func(ctx context.Context, emit func(int) error) error {
		open.Add(1)
		defer open.Add(-1)
		for {
			if err := emit(1); err != nil {
				return err
			}
		}
	})

	merged := Merge(ctx, 0, endless, Failed[int](boom))

	deadline := time.After(5 * time.Second)
	for merged.Next() {
		select {
		case <-deadline:
			t.Fatal("merge did not stop")
		default:
		}
	}
	assert.ErrorIs(t, merged.Err(), boom)
	require.ErrorIs(t, merged.Close(), boom)
	assert.Equal(t, int32(0), open.Load())
}

func TestMerge_CloseStopsSlowSources(t *testing.T) {
	ctx := context.Background()
	var open atomic.Int32

	slow := Produce(ctx, 0, func(ctx context.Context, emit func(int) error) error {
		open.Add(1)
		defer open.Add(-1)
		<-ctx.Done()
		return ctx.Err()
	})

	merged := Merge(ctx, 0, slow, Produce(ctx, 0, counting(1)))
	require.True(t, merged.Next())
	require.NoError(t, merged.Close())
	assert.Equal(t, int32(0), open.Load())
}

func TestMap(t *testing.T) {
	ctx := context.Background()
	doubled := Map(ctx, Produce(ctx, 0, counting(3)), func(v int) (int, error) {
		return v * 2, nil
	})

	values, err := doubled.Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, values)
}

func TestIterator_ExhaustionReleasesContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	var producerCtx context.Context
	it := Produce(parent, 1, func(ctx context.Context, emit func(int) error) error {
		producerCtx = ctx
		return emit(1)
	})

	require.True(t, it.Next())
	assert.False(t, it.Next())
	require.NoError(t, it.Err())

	// no Close: reaching the end is enough
	assert.ErrorIs(t, producerCtx.Err(), context.Canceled)
	assert.NoError(t, parent.Err())
}
