package ledger

import (
	"context"

	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/event"
)

// ProductOrderRepository is the asynchronous façade over the product order
// store. Orders are normally written through their queue; writes here are
// rejected for queues that do not exist.
type ProductOrderRepository struct {
	*repository[trade.ProductOrder]
	orders trade.ProductOrderStore
}

// NewProductOrderRepository creates a ProductOrderRepository broadcasting on bus
func NewProductOrderRepository(store trade.ProductOrderStore, bus *event.Bus[trade.ProductOrder], rt Runtime) *ProductOrderRepository {
	return &ProductOrderRepository{
		repository: newRepository[trade.ProductOrder]("product_order", store, nil, bus, rt),
		orders:     store,
	}
}

// SelectAllByQueueID lists the orders of a queue
func (r *ProductOrderRepository) SelectAllByQueueID(ctx context.Context, queueID int64) *async.Future[[]trade.ProductOrder] {
	return read(r.repository, func() ([]trade.ProductOrder, error) {
		return r.orders.SelectAllByQueueID(ctx, queueID)
	})
}
