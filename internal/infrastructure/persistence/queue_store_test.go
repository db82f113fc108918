package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormQueueStore_InsertWithOrders(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	tea := mustInsertProduct(t, s, "Tea", 100)
	cake := mustInsertProduct(t, s, "Cake", 250)
	amy := mustInsertCustomer(t, s, "Amy", 0)

	q := mustInsertQueue(t, s, testQueue(amy.ID, trade.QueueStatusUnpaid, testDate,
		testOrder(tea, "2"), testOrder(cake, "1.5")))

	assert.Equal(t, amy.ID, q.CustomerID)
	require.NotNil(t, q.Customer)
	assert.Equal(t, "Amy", q.Customer.Name)
	assert.True(t, q.Customer.Debt.Equal(dec("-575")), q.Customer.Debt.String())
	assert.Equal(t, trade.QueueStatusUnpaid, q.Status)
	assert.Equal(t, trade.PaymentMethodCash, q.PaymentMethod)
	assert.True(t, testDate.Equal(q.Date))

	require.Len(t, q.ProductOrders, 2)
	assert.Equal(t, "Tea", q.ProductOrders[0].ProductName)
	assert.Equal(t, q.ID, q.ProductOrders[0].QueueID)
	assert.True(t, q.ProductOrders[1].Quantity.Equal(dec("1.5")))
	assert.True(t, q.ProductOrders[1].TotalPrice.Equal(dec("375")))
	assert.True(t, q.GrandTotal().Equal(dec("575")))

	orders, err := s.orders.SelectAllByQueueID(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestGormQueueStore_QueueWithoutCustomer(t *testing.T) {
	s := newTestStores(t)
	tea := mustInsertProduct(t, s, "Tea", 100)

	q := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1")))
	assert.Zero(t, q.CustomerID)
	assert.Nil(t, q.Customer)
}

func TestGormQueueStore_UpdateReconcilesOrders(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	tea := mustInsertProduct(t, s, "Tea", 100)
	cake := mustInsertProduct(t, s, "Cake", 250)
	pie := mustInsertProduct(t, s, "Pie", 300)

	q := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusInQueue, testDate,
		testOrder(tea, "1"), testOrder(cake, "1")))
	keptID := q.ProductOrders[0].ID
	removedID := q.ProductOrders[1].ID

	kept := q.ProductOrders[0]
	kept.Quantity = dec("3")
	kept = kept.Recalculated()
	q.ProductOrders = []trade.ProductOrder{kept, testOrder(pie, "1")}
	q.Status = trade.QueueStatusCompleted

	affected, err := s.queues.Update(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := s.queues.SelectByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.QueueStatusCompleted, got.Status)
	require.Len(t, got.ProductOrders, 2)
	assert.Equal(t, keptID, got.ProductOrders[0].ID)
	assert.True(t, got.ProductOrders[0].TotalPrice.Equal(dec("300")))
	assert.Equal(t, "Pie", got.ProductOrders[1].ProductName)

	removed, err := s.orders.SelectByID(ctx, removedID)
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestGormQueueStore_UpdateMissingQueue(t *testing.T) {
	s := newTestStores(t)
	tea := mustInsertProduct(t, s, "Tea", 100)

	q := testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1"))
	q.ID = 77
	affected, err := s.queues.Update(context.Background(), q)
	require.NoError(t, err)
	assert.Zero(t, affected)

	orders, err := s.orders.SelectAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGormQueueStore_DeleteCascadesOrders(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	tea := mustInsertProduct(t, s, "Tea", 100)
	q := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1")))

	affected, err := s.queues.Delete(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	orders, err := s.orders.SelectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	affected, err = s.queues.Delete(ctx, q)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestGormQueueStore_ProductDeleteKeepsSnapshot(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	tea := mustInsertProduct(t, s, "Tea", 100)
	q := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1")))

	tea.Price = 999
	_, err := s.products.Update(ctx, tea)
	require.NoError(t, err)
	_, err = s.products.Delete(ctx, tea)
	require.NoError(t, err)

	got, err := s.queues.SelectByID(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, got.ProductOrders, 1)
	o := got.ProductOrders[0]
	assert.Zero(t, o.ProductID)
	assert.Equal(t, "Tea", o.ProductName)
	assert.Equal(t, int64(100), o.ProductPrice)
}

func TestGormQueueStore_Upsert(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	tea := mustInsertProduct(t, s, "Tea", 100)

	rowID, err := s.queues.Upsert(ctx, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1")))
	require.NoError(t, err)
	q, err := s.queues.SelectByRowID(ctx, rowID)
	require.NoError(t, err)
	require.NotNil(t, q)

	q.Status = trade.QueueStatusInProcess
	again, err := s.queues.Upsert(ctx, *q)
	require.NoError(t, err)
	assert.Equal(t, rowID, again)

	got, err := s.queues.SelectByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.QueueStatusInProcess, got.Status)
	assert.Len(t, got.ProductOrders, 1)
}

func TestGormQueueStore_Ranges(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	tea := mustInsertProduct(t, s, "Tea", 100)

	day := func(d int) time.Time { return time.Date(2024, time.May, d, 12, 0, 0, 0, time.UTC) }
	first := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusCompleted, day(1), testOrder(tea, "1")))
	second := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusCompleted, day(5), testOrder(tea, "2")))
	mustInsertQueue(t, s, testQueue(0, trade.QueueStatusCompleted, day(20), testOrder(tea, "3")))

	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

	got, err := s.queues.SelectAllInRange(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)

	infos, err := s.queues.SelectAllWithOrdersInfoInRange(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, second.ID, infos[1].ID)
	assert.True(t, infos[1].GrandTotal().Equal(dec("200")))

	// bounds are inclusive
	got, err = s.queues.SelectAllInRange(ctx, day(5), day(5))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)
}

func TestGormQueueStore_NullifyCustomer(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	tea := mustInsertProduct(t, s, "Tea", 100)
	amy := mustInsertCustomer(t, s, "Amy", 0)
	bob := mustInsertCustomer(t, s, "Bob", 0)

	q1 := mustInsertQueue(t, s, testQueue(amy.ID, trade.QueueStatusUnpaid, testDate, testOrder(tea, "1")))
	q2 := mustInsertQueue(t, s, testQueue(amy.ID, trade.QueueStatusCompleted, testDate, testOrder(tea, "1")))
	q3 := mustInsertQueue(t, s, testQueue(bob.ID, trade.QueueStatusCompleted, testDate, testOrder(tea, "1")))

	ids, err := s.queues.SelectAllIDsByCustomerID(ctx, amy.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{q1.ID, q2.ID}, ids)

	nulled, err := s.queues.NullifyCustomer(ctx, amy.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{q1.ID, q2.ID}, nulled)

	ids, err = s.queues.SelectAllIDsByCustomerID(ctx, amy.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	debt, err := s.customers.TotalDebtByID(ctx, amy.ID)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())

	got, err := s.queues.SelectByID(ctx, q3.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.CustomerID)

	nulled, err = s.queues.NullifyCustomer(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, nulled)
}

func TestGormQueueStore_Search(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	tea := mustInsertProduct(t, s, "Green Tea", 100)
	cake := mustInsertProduct(t, s, "Cheesecake", 250)
	amy := mustInsertCustomer(t, s, "Amy Green", 0)

	older := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1")))
	newer := mustInsertQueue(t, s, testQueue(amy.ID, trade.QueueStatusInQueue, testDate.Add(time.Hour), testOrder(cake, "1")))
	mustInsertQueue(t, s, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(cake, "2")))

	got, err := s.queues.Search(ctx, "gree")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID, "newest first")
	assert.Equal(t, older.ID, got[1].ID)

	got, err = s.queues.Search(ctx, "amy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newer.ID, got[0].ID)

	got, err = s.queues.Search(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGormProductOrderStore_RequiresQueue(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	tea := mustInsertProduct(t, s, "Tea", 100)

	o := testOrder(tea, "1")
	o.QueueID = 404
	_, err := s.orders.Insert(ctx, o)
	assert.True(t, shared.IsStoreError(err, shared.StoreConstraint), err)

	_, err = s.orders.Upsert(ctx, o)
	assert.True(t, shared.IsStoreError(err, shared.StoreConstraint), err)

	q := mustInsertQueue(t, s, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1")))
	o.QueueID = q.ID
	rowID, err := s.orders.Insert(ctx, o)
	require.NoError(t, err)

	id, err := s.orders.SelectIDByRowID(ctx, rowID)
	require.NoError(t, err)
	o.ID = id
	o.Quantity = dec("4")
	o = o.Recalculated()
	affected, err := s.orders.Update(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	orders, err := s.orders.SelectAllByQueueID(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[1].TotalPrice.Equal(dec("400")))

	affected, err = s.orders.Delete(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestGormProductOrderStore_InsideQueueTransaction(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	tea := mustInsertProduct(t, s, "Tea", 100)

	var queueID int64
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		rowID, err := s.queues.Insert(ctx, testQueue(0, trade.QueueStatusInQueue, testDate, testOrder(tea, "1")))
		if err != nil {
			return err
		}
		queueID = rowID
		o := testOrder(tea, "2")
		o.QueueID = rowID
		_, err = s.orders.Insert(ctx, o)
		return err
	})
	require.NoError(t, err)

	orders, err := s.orders.SelectAllByQueueID(ctx, queueID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
