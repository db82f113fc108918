package ledger

import (
	"context"

	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/event"
	"github.com/shopspring/decimal"
)

// CustomerRepository is the asynchronous façade over the customer store.
// Customers carry their debt as derived by the store.
type CustomerRepository struct {
	*repository[partner.Customer]
	customers partner.CustomerStore
	balances  customerWriter
}

// NewCustomerRepository creates a CustomerRepository. Deleting a customer
// detaches it from its queues, which are broadcast on queueBus.
func NewCustomerRepository(
	store partner.CustomerStore,
	queues trade.QueueStore,
	tx shared.Transactor,
	bus *event.Bus[partner.Customer],
	queueBus *event.Bus[trade.Queue],
	rt Runtime,
) *CustomerRepository {
	w := customerWriter{
		storeWriter: storeWriter[partner.Customer]{store: store},
		customers:   store,
		queues:      queues,
		tx:          tx,
		queueBus:    queueBus,
	}
	return &CustomerRepository{
		repository: newRepository[partner.Customer]("customer", store, w, bus, rt),
		customers:  store,
		balances:   w,
	}
}

// Search lists customers matching every token of query as a word prefix
func (r *CustomerRepository) Search(ctx context.Context, query string) *async.Future[[]partner.Customer] {
	return read(r.repository, func() ([]partner.Customer, error) {
		return r.customers.Search(ctx, query)
	})
}

// SelectAllInfoWithBalance lists customers holding a positive balance
func (r *CustomerRepository) SelectAllInfoWithBalance(ctx context.Context) *async.Future[[]partner.CustomerBalanceInfo] {
	return read(r.repository, func() ([]partner.CustomerBalanceInfo, error) {
		return r.customers.SelectAllInfoWithBalance(ctx)
	})
}

// SelectAllInfoWithDebt lists customers owing money
func (r *CustomerRepository) SelectAllInfoWithDebt(ctx context.Context) *async.Future[[]partner.CustomerDebtInfo] {
	return read(r.repository, func() ([]partner.CustomerDebtInfo, error) {
		return r.customers.SelectAllInfoWithDebt(ctx)
	})
}

// TotalDebtByID resolves to minus the grand total of the customer's unpaid
// queues, zero when there are none
func (r *CustomerRepository) TotalDebtByID(ctx context.Context, id int64) *async.Future[decimal.Decimal] {
	return read(r.repository, func() (decimal.Decimal, error) {
		return r.customers.TotalDebtByID(ctx, id)
	})
}

// Deposit adds amount to the customer's balance and resolves to the updated
// customer, or nil when it does not exist. Listeners get the stored row.
func (r *CustomerRepository) Deposit(ctx context.Context, id, amount int64) *async.Future[*partner.Customer] {
	return r.moveBalance(ctx, id, amount, partner.Customer.Deposit)
}

// Withdraw takes amount out of the customer's balance. It fails with an
// out of range error when the balance does not cover it.
func (r *CustomerRepository) Withdraw(ctx context.Context, id, amount int64) *async.Future[*partner.Customer] {
	return r.moveBalance(ctx, id, amount, partner.Customer.Withdraw)
}

func (r *CustomerRepository) moveBalance(ctx context.Context, id, amount int64, move balanceMove) *async.Future[*partner.Customer] {
	var done *applied[partner.Customer]
	return async.Run(r.lane, r.owner, func() (*partner.Customer, error) {
		a, err := r.balances.moveBalance(context.WithoutCancel(ctx), id, amount, move)
		if err != nil || a == nil {
			return nil, err
		}
		done = a
		c := a.model
		return &c, nil
	}, func(*partner.Customer) {
		if done != nil {
			r.broadcast(shared.ChangeUpdated, []*applied[partner.Customer]{done})
		}
	})
}

type balanceMove func(c partner.Customer, amount int64) (int64, error)

// customerWriter detaches a customer from its queues before deleting it
type customerWriter struct {
	storeWriter[partner.Customer]
	customers partner.CustomerStore
	queues    trade.QueueStore
	tx        shared.Transactor
	queueBus  *event.Bus[trade.Queue]
}

// remove clears the customer of every queue referencing it, then deletes
// it, in one transaction. The detached queues are broadcast as updated
// before the customer is broadcast as deleted.
func (w customerWriter) remove(ctx context.Context, c partner.Customer) (*applied[partner.Customer], error) {
	var out *applied[partner.Customer]
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := w.customers.SelectByID(ctx, c.ID)
		if err != nil || current == nil {
			return err
		}
		ids, err := w.queues.NullifyCustomer(ctx, c.ID)
		if err != nil {
			return err
		}
		n, err := w.customers.Delete(ctx, *current)
		if err != nil || n == 0 {
			return err
		}
		detached, err := w.queues.SelectByIDs(ctx, ids)
		if err != nil {
			return err
		}

		out = &applied[partner.Customer]{model: *current}
		if len(detached) > 0 {
			out.precede = func() {
				w.queueBus.Notify(shared.ChangeUpdated, detached...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// moveBalance validates the move against the stored customer, then applies
// it as a delta so a concurrent balance change is never overwritten. The
// store rechecks the bounds against the row it updates.
func (w customerWriter) moveBalance(ctx context.Context, id, amount int64, move balanceMove) (*applied[partner.Customer], error) {
	var out *applied[partner.Customer]
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := w.customers.SelectByID(ctx, id)
		if err != nil || current == nil {
			return err
		}
		balance, err := move(*current, amount)
		if err != nil {
			return err
		}
		n, err := w.customers.AddBalance(ctx, id, balance-current.Balance)
		if err != nil {
			return err
		}
		if n == 0 {
			return shared.NewDomainError(shared.CodeOutOfRange, "Customer balance is out of range")
		}
		saved, err := w.customers.SelectByID(ctx, id)
		if err != nil || saved == nil {
			return err
		}
		out = &applied[partner.Customer]{model: *saved}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
