package async

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool is the shared worker pool lanes run on.
type Pool struct {
	*ants.Pool
}

// NewPool creates a worker pool with size workers
func NewPool(size int, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 8
	}
	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(r interface{}) {
			logger.Error("pool worker panicked", zap.Any("panic", r))
		}),
		ants.WithLogger(antsLogger{logger.Sugar()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Pool{Pool: p}, nil
}

type antsLogger struct {
	s *zap.SugaredLogger
}

func (l antsLogger) Printf(format string, args ...interface{}) {
	l.s.Infof(format, args...)
}

// Lane runs submitted tasks one after another in submission order, using
// at most one worker of the pool at a time.
type Lane struct {
	name   string
	pool   *Pool
	logger *zap.Logger

	mu      sync.Mutex
	queue   []func()
	running bool
}

// NewLane creates a serial lane on pool
func NewLane(name string, pool *Pool, logger *zap.Logger) *Lane {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lane{
		name:   name,
		pool:   pool,
		logger: logger.With(zap.String("lane", name)),
	}
}

// Submit enqueues task behind every task submitted earlier.
func (l *Lane) Submit(task func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.queue = append(l.queue, task)
	if l.running {
		return nil
	}
	if err := l.pool.Submit(l.drain); err != nil {
		l.queue = l.queue[:len(l.queue)-1]
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrClosed
		}
		return fmt.Errorf("lane %s: %w", l.name, err)
	}
	l.running = true
	return nil
}

// Pending returns the number of queued tasks not yet started
func (l *Lane) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Lane) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(task)
	}
}

func (l *Lane) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("lane task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

// Run executes work on lane and completes the returned future on owner.
// When work succeeds, onResolved runs on the owner right after the future
// completes.
func Run[T any](lane *Lane, owner *Owner, work func() (T, error), onResolved func(T)) *Future[T] {
	f := NewFuture[T](owner)
	err := lane.Submit(func() {
		value, err := protect(work)
		settle := func() {
			f.Complete(value, err)
			if err == nil && onResolved != nil {
				onResolved(value)
			}
		}
		if !owner.Post(settle) {
			f.Complete(value, err)
		}
	})
	if err != nil {
		var zero T
		f.Complete(zero, err)
	}
	return f
}

func protect[T any](work func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("async: task panicked: %v", r)
		}
	}()
	return work()
}
