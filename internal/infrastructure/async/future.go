package async

import (
	"context"
	"sync"
)

// Future is the pending result of an asynchronous operation. It is completed
// exactly once. Callbacks registered with Then always run on the owner.
type Future[T any] struct {
	owner *Owner
	done  chan struct{}

	mu        sync.Mutex
	completed bool
	value     T
	err       error
	callbacks []func(T, error)
}

// NewFuture creates a pending future bound to owner
func NewFuture[T any](owner *Owner) *Future[T] {
	return &Future[T]{owner: owner, done: make(chan struct{})}
}

// Resolved returns a future already completed with value
func Resolved[T any](owner *Owner, value T) *Future[T] {
	f := NewFuture[T](owner)
	f.Complete(value, nil)
	return f
}

// Rejected returns a future already completed with err
func Rejected[T any](owner *Owner, err error) *Future[T] {
	f := NewFuture[T](owner)
	var zero T
	f.Complete(zero, err)
	return f
}

// Complete settles the future. Later calls are ignored and return false.
func (f *Future[T]) Complete(value T, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		f.post(cb, value, err)
	}
	return true
}

// Then registers cb to run on the owner once the future completes.
func (f *Future[T]) Then(cb func(T, error)) *Future[T] {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return f
	}
	value, err := f.value, f.err
	f.mu.Unlock()

	f.post(cb, value, err)
	return f
}

// Await blocks until the future completes or ctx is done. Calling Await from
// a closure running on the owner deadlocks when completion is itself posted
// to the owner.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the future completes
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome without blocking. ok is false while pending.
func (f *Future[T]) Result() (value T, err error, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.completed
}

func (f *Future[T]) post(cb func(T, error), value T, err error) {
	if f.owner == nil || !f.owner.Post(func() { cb(value, err) }) {
		cb(value, err)
	}
}
