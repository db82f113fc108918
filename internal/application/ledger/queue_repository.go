package ledger

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/event"
)

// QueueRepository is the asynchronous façade over the queue store. Queue
// writes settle the customer's balance in the same transaction, and every
// customer whose balance or debt moved is broadcast as updated after the
// queue change.
type QueueRepository struct {
	*repository[trade.Queue]
	queues trade.QueueStore
}

// NewQueueRepository creates a QueueRepository broadcasting queue changes on
// bus and customer changes on customerBus
func NewQueueRepository(
	store trade.QueueStore,
	customers partner.CustomerStore,
	tx shared.Transactor,
	bus *event.Bus[trade.Queue],
	customerBus *event.Bus[partner.Customer],
	rt Runtime,
) *QueueRepository {
	w := queueWriter{
		queues:      store,
		customers:   customers,
		tx:          tx,
		customerBus: customerBus,
	}
	return &QueueRepository{
		repository: newRepository[trade.Queue]("queue", store, w, bus, rt),
		queues:     store,
	}
}

// Search lists queues whose customer or ordered products match query,
// newest first
func (r *QueueRepository) Search(ctx context.Context, query string) *async.Future[[]trade.Queue] {
	return read(r.repository, func() ([]trade.Queue, error) {
		return r.queues.Search(ctx, query)
	})
}

// SelectAllInRange lists queues dated within [start, end]
func (r *QueueRepository) SelectAllInRange(ctx context.Context, start, end time.Time) *async.Future[[]trade.Queue] {
	return read(r.repository, func() ([]trade.Queue, error) {
		return r.queues.SelectAllInRange(ctx, start, end)
	})
}

// SelectAllWithOrdersInfoInRange lists dashboard projections dated within [start, end]
func (r *QueueRepository) SelectAllWithOrdersInfoInRange(ctx context.Context, start, end time.Time) *async.Future[[]trade.QueueWithProductOrdersInfo] {
	return read(r.repository, func() ([]trade.QueueWithProductOrdersInfo, error) {
		return r.queues.SelectAllWithOrdersInfoInRange(ctx, start, end)
	})
}

// SelectAllIDsByCustomerID lists the ids of the customer's queues
func (r *QueueRepository) SelectAllIDsByCustomerID(ctx context.Context, customerID int64) *async.Future[[]int64] {
	return read(r.repository, func() ([]int64, error) {
		return r.queues.SelectAllIDsByCustomerID(ctx, customerID)
	})
}

// queueWriter applies the payment rules of trade to the customers a queue
// write touches
type queueWriter struct {
	queues      trade.QueueStore
	customers   partner.CustomerStore
	tx          shared.Transactor
	customerBus *event.Bus[partner.Customer]
}

func (w queueWriter) insert(ctx context.Context, q trade.Queue) (*applied[trade.Queue], error) {
	var out *applied[trade.Queue]
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := w.snapshot(ctx, q.CustomerID)
		if err != nil {
			return err
		}
		rowID, err := w.queues.Insert(ctx, q)
		if err != nil {
			return err
		}
		saved, err := w.queues.SelectByRowID(ctx, rowID)
		if err != nil || saved == nil {
			return err
		}
		if err := checkPayment(before, nil, *saved); err != nil {
			return err
		}
		if c, ok := before[saved.CustomerID]; ok {
			if err := w.setBalance(ctx, c, trade.BalanceOnMadePayment(c, *saved)); err != nil {
				return err
			}
		}
		out, err = w.settle(ctx, *saved, before)
		return err
	})
	return out, err
}

func (w queueWriter) update(ctx context.Context, q trade.Queue) (*applied[trade.Queue], error) {
	var out *applied[trade.Queue]
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = w.replace(ctx, q)
		return err
	})
	return out, err
}

// replace must run inside a transaction
func (w queueWriter) replace(ctx context.Context, q trade.Queue) (*applied[trade.Queue], error) {
	old, err := w.queues.SelectByID(ctx, q.ID)
	if err != nil || old == nil {
		return nil, err
	}
	before, err := w.snapshot(ctx, old.CustomerID, q.CustomerID)
	if err != nil {
		return nil, err
	}
	n, err := w.queues.Update(ctx, q)
	if err != nil || n == 0 {
		return nil, err
	}
	saved, err := w.queues.SelectByID(ctx, q.ID)
	if err != nil || saved == nil {
		return nil, err
	}
	if err := checkPayment(before, old, *saved); err != nil {
		return nil, err
	}

	// A customer that was replaced gets its payment back
	if c, ok := before[old.CustomerID]; ok && old.CustomerID != saved.CustomerID {
		if err := w.setBalance(ctx, c, trade.BalanceOnRevertedPayment(c, *old)); err != nil {
			return nil, err
		}
	}
	if c, ok := before[saved.CustomerID]; ok {
		if err := w.setBalance(ctx, c, trade.BalanceOnUpdatedPayment(c, *old, *saved)); err != nil {
			return nil, err
		}
	}
	return w.settle(ctx, *saved, before)
}

func (w queueWriter) remove(ctx context.Context, q trade.Queue) (*applied[trade.Queue], error) {
	var out *applied[trade.Queue]
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		old, err := w.queues.SelectByID(ctx, q.ID)
		if err != nil || old == nil {
			return err
		}
		before, err := w.snapshot(ctx, old.CustomerID)
		if err != nil {
			return err
		}
		n, err := w.queues.Delete(ctx, *old)
		if err != nil || n == 0 {
			return err
		}
		if c, ok := before[old.CustomerID]; ok {
			if err := w.setBalance(ctx, c, trade.BalanceOnRevertedPayment(c, *old)); err != nil {
				return err
			}
		}
		out, err = w.settle(ctx, *old, before)
		return err
	})
	return out, err
}

func (w queueWriter) upsert(ctx context.Context, q trade.Queue) (*applied[trade.Queue], error) {
	if q.ID == 0 {
		return w.insert(ctx, q)
	}
	var out *applied[trade.Queue]
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		exists, err := w.queues.IsExistsByID(ctx, q.ID)
		if err != nil {
			return err
		}
		if exists {
			out, err = w.replace(ctx, q)
		} else {
			out, err = w.insert(ctx, q)
		}
		return err
	})
	return out, err
}

// snapshot reads the customers with the given ids as they are before the
// write. Zero ids and missing customers are skipped.
func (w queueWriter) snapshot(ctx context.Context, ids ...int64) (map[int64]partner.Customer, error) {
	out := make(map[int64]partner.Customer, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := out[id]; ok {
			continue
		}
		c, err := w.customers.SelectByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out[id] = *c
		}
	}
	return out, nil
}

// checkPayment rejects a completed queue paid from an account balance that
// has no customer, or whose customer cannot cover it. old is the stored
// version on update and nil on insert.
func checkPayment(before map[int64]partner.Customer, old *trade.Queue, q trade.Queue) error {
	if q.Status != trade.QueueStatusCompleted || q.PaymentMethod != trade.PaymentMethodAccountBalance {
		return nil
	}
	var customer *partner.Customer
	sufficient := false
	if c, ok := before[q.CustomerID]; ok {
		customer = &c
		sufficient = trade.IsBalanceSufficient(c, old, q)
	}
	if !trade.IsPaymentMethodAllowed(q.PaymentMethod, q.Status, customer, sufficient) {
		return shared.NewDomainError(shared.CodeOutOfRange, "Customer balance is insufficient")
	}
	return nil
}

func (w queueWriter) setBalance(ctx context.Context, c partner.Customer, balance int64) error {
	if balance == c.Balance {
		return nil
	}
	if balance < 0 {
		return shared.NewDomainError(shared.CodeOutOfRange, "Customer balance is insufficient")
	}
	c.Balance = balance
	_, err := w.customers.Update(ctx, c)
	return err
}

// settle re-reads the customers in before and schedules a broadcast of
// those whose balance or debt changed
func (w queueWriter) settle(ctx context.Context, q trade.Queue, before map[int64]partner.Customer) (*applied[trade.Queue], error) {
	out := &applied[trade.Queue]{model: q}
	var changed []partner.Customer
	for _, id := range slices.Sorted(maps.Keys(before)) {
		current, err := w.customers.SelectByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			continue
		}
		old := before[id]
		if current.Balance != old.Balance || !current.Debt.Equal(old.Debt) {
			changed = append(changed, *current)
		}
	}
	if len(changed) > 0 {
		out.follow = func() {
			w.customerBus.Notify(shared.ChangeUpdated, changed...)
		}
	}
	// the broadcast queue carries its customer as it is after the write
	if q.Customer != nil {
		if current, err := w.customers.SelectByID(ctx, q.Customer.ID); err == nil && current != nil {
			q.Customer = current
			out.model = q
		}
	}
	return out, nil
}
