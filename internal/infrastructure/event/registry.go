package event

import (
	"reflect"
	"sync"

	"github.com/ledger/backend/internal/domain/shared"
)

// registration binds a listener to the change kinds it wants.
// A nil kinds set means every kind.
type registration[T any] struct {
	listener shared.ChangeListener[T]
	kinds    map[shared.ChangeKind]struct{}
}

func (r registration[T]) accepts(kind shared.ChangeKind) bool {
	if r.kinds == nil {
		return true
	}
	_, ok := r.kinds[kind]
	return ok
}

// Registry keeps listeners in insertion order, unique by identity.
type Registry[T any] struct {
	entries []registration[T]
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Register adds a listener. Registering a listener that is already present
// is a no-op and returns false. Listeners are matched by ==, so a listener
// whose type is not comparable is rejected too.
func (r *Registry[T]) Register(listener shared.ChangeListener[T], kinds ...shared.ChangeKind) bool {
	if listener == nil || !isComparable(listener) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(listener) >= 0 {
		return false
	}

	reg := registration[T]{listener: listener}
	if len(kinds) > 0 {
		reg.kinds = make(map[shared.ChangeKind]struct{}, len(kinds))
		for _, k := range kinds {
			reg.kinds[k] = struct{}{}
		}
	}
	r.entries = append(r.entries, reg)
	return true
}

// Unregister removes a listener. Returns false when it was not registered.
func (r *Registry[T]) Unregister(listener shared.ChangeListener[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(listener)
	if i < 0 {
		return false
	}
	r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
	return true
}

// Listeners returns a snapshot of the listeners accepting kind.
func (r *Registry[T]) Listeners(kind shared.ChangeKind) []shared.ChangeListener[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]shared.ChangeListener[T], 0, len(r.entries))
	for _, e := range r.entries {
		if e.accepts(kind) {
			out = append(out, e.listener)
		}
	}
	return out
}

// Len returns the number of registered listeners
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear removes all listeners
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

func (r *Registry[T]) indexOf(listener shared.ChangeListener[T]) int {
	if listener == nil || !isComparable(listener) {
		return -1
	}
	for i, e := range r.entries {
		if sameListener(e.listener, listener) {
			return i
		}
	}
	return -1
}

func isComparable(v any) bool {
	return reflect.TypeOf(v).Comparable()
}

// sameListener compares by ==. A comparable struct can still hold an
// uncomparable value in an interface field; == panics on those, and they
// count as different.
func sameListener[T any](a, b shared.ChangeListener[T]) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
