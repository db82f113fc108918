package shared

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind tags the mutation carried by a Change.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeUpdated  ChangeKind = "UPDATED"
	ChangeDeleted  ChangeKind = "DELETED"
	ChangeUpserted ChangeKind = "UPSERTED"
)

// String returns the kind name
func (k ChangeKind) String() string {
	return string(k)
}

// Change is a tagged event describing models that were written to a store.
// Upserted is never split into Added and Updated: consumers must treat the
// models as "may or may not have existed before".
type Change[T any] struct {
	ID         uuid.UUID
	Kind       ChangeKind
	Models     []T
	OccurredAt time.Time
}

// NewChange creates a change event with a fresh id.
func NewChange[T any](kind ChangeKind, models []T) Change[T] {
	return Change[T]{
		ID:         uuid.New(),
		Kind:       kind,
		Models:     models,
		OccurredAt: time.Now(),
	}
}

// ChangeListener receives change events. Implementations are compared by
// identity, so they should be pointer types.
type ChangeListener[T any] interface {
	OnChange(change Change[T])
}

// ChangeSource is the subscription side of a change bus. When kinds is
// non-empty the listener only receives changes of those kinds.
type ChangeSource[T any] interface {
	AddListener(listener ChangeListener[T], kinds ...ChangeKind)
	RemoveListener(listener ChangeListener[T])
}
