package ledger

import (
	"context"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/event"
)

// MetricsRecorder receives ledger activity
type MetricsRecorder interface {
	RecordChange(ctx context.Context, entity, kind string, n int)
	RecordQueue(ctx context.Context, status, paymentMethod string, grandTotal float64)
}

// ObserveMetrics reports every broadcast change to rec. The returned
// function detaches the listeners.
func (l *Ledger) ObserveMetrics(rec MetricsRecorder) func() {
	ctx := context.Background()

	products := event.NewListenerFunc(func(c shared.Change[catalog.Product]) {
		rec.RecordChange(ctx, "product", c.Kind.String(), len(c.Models))
	})
	customers := event.NewListenerFunc(func(c shared.Change[partner.Customer]) {
		rec.RecordChange(ctx, "customer", c.Kind.String(), len(c.Models))
	})
	queues := event.NewListenerFunc(func(c shared.Change[trade.Queue]) {
		rec.RecordChange(ctx, "queue", c.Kind.String(), len(c.Models))
		if c.Kind != shared.ChangeAdded {
			return
		}
		for _, q := range c.Models {
			rec.RecordQueue(ctx, string(q.Status), string(q.PaymentMethod), q.GrandTotal().InexactFloat64())
		}
	})
	orders := event.NewListenerFunc(func(c shared.Change[trade.ProductOrder]) {
		rec.RecordChange(ctx, "product_order", c.Kind.String(), len(c.Models))
	})

	l.Products.AddListener(products)
	l.Customers.AddListener(customers)
	l.Queues.AddListener(queues)
	l.ProductOrders.AddListener(orders)

	return func() {
		l.Products.RemoveListener(products)
		l.Customers.RemoveListener(customers)
		l.Queues.RemoveListener(queues)
		l.ProductOrders.RemoveListener(orders)
	}
}
