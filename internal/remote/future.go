package remote

import (
	"context"
	"time"
)

// Future is the pending result of a remote call. A caller that stops waiting
// simply abandons it; the call still runs to completion and its result is
// dropped unless someone else awaits it.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in its own goroutine and returns a future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Ready returns an already completed future.
func Ready[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)
	return f
}

func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the result is ready or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitTimeout is Await with a fresh deadline of d.
func (f *Future[T]) AwaitTimeout(d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return f.Await(ctx)
}

// Then calls fn with the result once it is ready, on a separate goroutine.
func (f *Future[T]) Then(fn func(T, error)) {
	go func() {
		<-f.done
		fn(f.val, f.err)
	}()
}
