package trade

import (
	"context"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
)

// QueueStore defines the persistence capabilities for queues. Writes
// reconcile the queue's product orders in the same transaction.
type QueueStore interface {
	shared.Store[Queue]
	shared.Searcher[Queue]

	// SelectAllInRange lists queues dated within [start, end]
	SelectAllInRange(ctx context.Context, start, end time.Time) ([]Queue, error)
	// SelectAllWithOrdersInfoInRange lists dashboard projections dated within [start, end]
	SelectAllWithOrdersInfoInRange(ctx context.Context, start, end time.Time) ([]QueueWithProductOrdersInfo, error)
	// SelectAllIDsByCustomerID lists the ids of queues referencing a customer
	SelectAllIDsByCustomerID(ctx context.Context, customerID int64) ([]int64, error)
	// NullifyCustomer clears the customer of every queue referencing it and
	// returns the affected queue ids
	NullifyCustomer(ctx context.Context, customerID int64) ([]int64, error)
}

// ProductOrderStore defines the persistence capabilities for product
// orders. Writes for a queue that does not exist are rejected.
type ProductOrderStore interface {
	shared.Store[ProductOrder]

	// SelectAllByQueueID lists the orders of a queue in insertion order
	SelectAllByQueueID(ctx context.Context, queueID int64) ([]ProductOrder, error)
}
