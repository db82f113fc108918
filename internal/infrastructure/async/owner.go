package async

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when work is posted to a closed owner or lane.
var ErrClosed = errors.New("async: closed")

// Owner runs posted closures one at a time, in FIFO order, on a single
// dedicated goroutine. State that is only touched from posted closures
// needs no further locking.
type Owner struct {
	logger *zap.Logger

	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewOwner starts the owner loop
func NewOwner(logger *zap.Logger) *Owner {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Owner{
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go o.loop()
	return o
}

// Post enqueues fn. It never blocks and is safe to call from the owner
// itself. Returns false when the owner is closed.
func (o *Owner) Post(fn func()) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, fn)
	select {
	case o.wake <- struct{}{}:
	default:
	}
	o.mu.Unlock()
	return true
}

// Sync blocks until every closure posted before the call has run.
func (o *Owner) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !o.Post(func() { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, runs what is already queued and waits for
// the loop to exit or ctx to expire.
func (o *Owner) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.wake)
	}
	o.mu.Unlock()

	select {
	case <-o.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Owner) loop() {
	defer close(o.stopped)
	for {
		_, open := <-o.wake
		for _, fn := range o.take() {
			o.run(fn)
		}
		if !open {
			// queue may have grown between take and close
			for _, fn := range o.take() {
				o.run(fn)
			}
			return
		}
	}
}

func (o *Owner) take() []func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := o.queue
	o.queue = nil
	return batch
}

func (o *Owner) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("owner task panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
