package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDatabase opens a migrated in-memory database
func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	return db
}

type testStores struct {
	db        *Database
	products  *GormProductStore
	customers *GormCustomerStore
	queues    *GormQueueStore
	orders    *GormProductOrderStore
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	db := newTestDatabase(t)
	return testStores{
		db:        db,
		products:  NewGormProductStore(db.DB),
		customers: NewGormCustomerStore(db.DB),
		queues:    NewGormQueueStore(db.DB),
		orders:    NewGormProductOrderStore(db.DB),
	}
}

var testDate = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testOrder(product catalog.Product, qty string) trade.ProductOrder {
	o := trade.ProductOrder{
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductPrice:    product.Price,
		Quantity:        dec(qty),
		DiscountPercent: decimal.Zero,
	}
	return o.Recalculated()
}

func testQueue(customerID int64, status trade.QueueStatus, date time.Time, orders ...trade.ProductOrder) trade.Queue {
	return trade.Queue{
		CustomerID:    customerID,
		Status:        status,
		PaymentMethod: trade.PaymentMethodCash,
		Date:          date,
		ProductOrders: orders,
	}
}

func mustInsertProduct(t *testing.T, s testStores, name string, price int64) catalog.Product {
	t.Helper()
	id, err := s.products.Insert(context.Background(), catalog.Product{Name: name, Price: price})
	require.NoError(t, err)
	return catalog.Product{ID: id, Name: name, Price: price}
}

func mustInsertCustomer(t *testing.T, s testStores, name string, balance int64) partner.Customer {
	t.Helper()
	id, err := s.customers.Insert(context.Background(), partner.Customer{Name: name, Balance: balance})
	require.NoError(t, err)
	return partner.Customer{ID: id, Name: name, Balance: balance, Debt: decimal.Zero}
}

func mustInsertQueue(t *testing.T, s testStores, q trade.Queue) trade.Queue {
	t.Helper()
	id, err := s.queues.Insert(context.Background(), q)
	require.NoError(t, err)
	got, err := s.queues.SelectByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	return *got
}
