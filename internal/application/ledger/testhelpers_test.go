package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/event"
	"github.com/ledger/backend/internal/infrastructure/migration"
	"github.com/ledger/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testDate = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func newTestRuntime(t *testing.T) Runtime {
	t.Helper()
	owner := async.NewOwner(zap.NewNop())
	pool, err := async.NewPool(4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = owner.Close(ctx)
		pool.Release()
	})
	return Runtime{Owner: owner, Pool: pool, Logger: zap.NewNop()}
}

// newTestLedger builds a Ledger over a migrated in-memory database
func newTestLedger(t *testing.T) (*Ledger, Runtime) {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	rt := newTestRuntime(t)
	l := New(Stores{
		Products:      persistence.NewGormProductStore(db.DB),
		Customers:     persistence.NewGormCustomerStore(db.DB),
		Queues:        persistence.NewGormQueueStore(db.DB),
		ProductOrders: persistence.NewGormProductOrderStore(db.DB),
		Tx:            db,
	}, rt)
	return l, rt
}

// await resolves f and waits for the broadcasts that follow it
func await[T any](t *testing.T, rt Runtime, f *async.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.Await(ctx)
	require.NoError(t, rt.Owner.Sync(ctx))
	return v, err
}

func mustAwait[T any](t *testing.T, rt Runtime, f *async.Future[T]) T {
	t.Helper()
	v, err := await(t, rt, f)
	require.NoError(t, err)
	return v
}

// recorder collects the changes of one bus, and appends a tag per change
// to a log shared across recorders
type recorder[T any] struct {
	mu      sync.Mutex
	tag     string
	changes []shared.Change[T]
	log     *[]string
}

func record[T any](src shared.ChangeSource[T], tag string, log *[]string) *recorder[T] {
	r := &recorder[T]{tag: tag, log: log}
	src.AddListener(event.NewListenerFunc(func(c shared.Change[T]) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.changes = append(r.changes, c)
		if r.log != nil {
			*r.log = append(*r.log, r.tag+":"+c.Kind.String())
		}
	}))
	return r
}

func (r *recorder[T]) all() []shared.Change[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.Change[T](nil), r.changes...)
}

func (r *recorder[T]) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func addProduct(t *testing.T, l *Ledger, rt Runtime, name string, price int64) catalog.Product {
	t.Helper()
	id := mustAwait(t, rt, l.Products.Add(context.Background(), catalog.Product{Name: name, Price: price}))
	require.Positive(t, id)
	return catalog.Product{ID: id, Name: name, Price: price}
}

func order(p catalog.Product, qty string) trade.ProductOrder {
	o := trade.ProductOrder{
		ProductID:       p.ID,
		ProductName:     p.Name,
		ProductPrice:    p.Price,
		Quantity:        dec(qty),
		DiscountPercent: decimal.Zero,
	}
	return o.Recalculated()
}

func queue(customerID int64, status trade.QueueStatus, method trade.PaymentMethod, orders ...trade.ProductOrder) trade.Queue {
	return trade.Queue{
		CustomerID:    customerID,
		Status:        status,
		PaymentMethod: method,
		Date:          testDate,
		ProductOrders: orders,
	}
}
