package event

import (
	"fmt"
	"sync"

	"github.com/ledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ListenerFunc adapts a function to shared.ChangeListener. It is always used
// through a pointer so two wrappers of the same function stay distinct.
type ListenerFunc[T any] struct {
	fn func(shared.Change[T])
}

// NewListenerFunc wraps fn as a listener
func NewListenerFunc[T any](fn func(shared.Change[T])) *ListenerFunc[T] {
	return &ListenerFunc[T]{fn: fn}
}

// OnChange calls the wrapped function
func (l *ListenerFunc[T]) OnChange(change shared.Change[T]) {
	l.fn(change)
}

type pendingOp[T any] struct {
	add      bool
	listener shared.ChangeListener[T]
	kinds    []shared.ChangeKind
}

// Bus fans a change out to its listeners synchronously, in registration order.
// Listeners added or removed while a dispatch is running take effect once
// the outermost dispatch returns.
type Bus[T any] struct {
	name     string
	registry *Registry[T]
	logger   *zap.Logger

	mu      sync.Mutex
	depth   int
	pending []pendingOp[T]
}

// NewBus creates a change bus. name identifies the bus in logs.
func NewBus[T any](name string, logger *zap.Logger) *Bus[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus[T]{
		name:     name,
		registry: NewRegistry[T](),
		logger:   logger.With(zap.String("bus", name)),
	}
}

// AddListener registers listener, optionally restricted to kinds. Listeners
// must be comparable; use a pointer or NewListenerFunc for anything else.
func (b *Bus[T]) AddListener(listener shared.ChangeListener[T], kinds ...shared.ChangeKind) {
	if listener != nil && !isComparable(listener) {
		b.logger.Warn("listener ignored: type is not comparable", zap.String("type", fmt.Sprintf("%T", listener)))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.depth > 0 {
		b.pending = append(b.pending, pendingOp[T]{add: true, listener: listener, kinds: kinds})
		return
	}
	if b.registry.Register(listener, kinds...) {
		b.logger.Debug("listener added", zap.Int("listeners", b.registry.Len()))
	}
}

// RemoveListener unregisters listener
func (b *Bus[T]) RemoveListener(listener shared.ChangeListener[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.depth > 0 {
		b.pending = append(b.pending, pendingOp[T]{listener: listener})
		return
	}
	if b.registry.Unregister(listener) {
		b.logger.Debug("listener removed", zap.Int("listeners", b.registry.Len()))
	}
}

// Dispatch delivers change to every listener accepting its kind.
// Changes without models are dropped.
func (b *Bus[T]) Dispatch(change shared.Change[T]) {
	if len(change.Models) == 0 {
		return
	}

	b.mu.Lock()
	b.depth++
	b.mu.Unlock()

	for _, l := range b.registry.Listeners(change.Kind) {
		b.dispatchToListener(l, change)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth--
	if b.depth == 0 {
		b.flushPending()
	}
}

// Notify builds a change of kind for models and dispatches it
func (b *Bus[T]) Notify(kind shared.ChangeKind, models ...T) {
	b.Dispatch(shared.NewChange(kind, models))
}

// Len returns the number of registered listeners
func (b *Bus[T]) Len() int {
	return b.registry.Len()
}

// flushPending must be called with b.mu held
func (b *Bus[T]) flushPending() {
	ops := b.pending
	b.pending = nil
	for _, op := range ops {
		if op.add {
			b.registry.Register(op.listener, op.kinds...)
		} else {
			b.registry.Unregister(op.listener)
		}
	}
}

func (b *Bus[T]) dispatchToListener(listener shared.ChangeListener[T], change shared.Change[T]) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked",
				zap.String("kind", change.Kind.String()),
				zap.String("change_id", change.ID.String()),
				zap.Any("panic", r),
			)
		}
	}()

	listener.OnChange(change)
}

var _ shared.ChangeSource[int] = (*Bus[int])(nil)
