package traversal

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// FromSlice returns an iterator over items.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

// result carries a value or error through a channel.
type result[T any] struct {
	val T
	err error
}

// Stream runs produce on its own goroutine and returns an iterator over the
// values it emits. emit blocks until the value is pulled and fails once the
// iterator is closed. A produce error is returned by the pull following the
// last emitted value. Close cancels produce and waits for it to return.
func Stream[T any](ctx context.Context, produce func(ctx context.Context, emit func(T) error) error) Iterator[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan result[T])
	it := &streamIter[T]{ch: ch, cancel: cancel}

	it.wg.Go(func() {
		defer close(ch)
		emit := func(v T) error {
			select {
			case ch <- result[T]{val: v}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := produce(ctx, emit); err != nil && ctx.Err() == nil {
			select {
			case ch <- result[T]{err: err}:
			case <-ctx.Done():
			}
		}
	})
	return it
}

type streamIter[T any] struct {
	ch     <-chan result[T]
	cancel context.CancelFunc
	wg     conc.WaitGroup
	once   sync.Once
}

func (it *streamIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case r, open := <-it.ch:
		if !open {
			return zero, false, nil
		}
		if r.err != nil {
			return zero, false, r.err
		}
		return r.val, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (it *streamIter[T]) Close() error {
	it.once.Do(func() {
		it.cancel()
		it.wg.Wait()
	})
	return nil
}

// Collect drains it into a slice and closes it.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Close()
	var out []T
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
