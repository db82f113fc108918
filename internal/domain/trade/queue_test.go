package trade

import (
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func order(price int64, qty, discount string) ProductOrder {
	o := ProductOrder{
		ProductID:       1,
		ProductName:     "Item",
		ProductPrice:    price,
		Quantity:        dec(qty),
		DiscountPercent: dec(discount),
	}
	return o.Recalculated()
}

func TestNewProductOrder(t *testing.T) {
	product := catalog.Product{ID: 4, Name: "Latte", Price: 1500}

	t.Run("snapshots product and derives total", func(t *testing.T) {
		o, err := NewProductOrder(product, dec("2"), dec("10"))
		require.NoError(t, err)
		assert.Equal(t, int64(4), o.ProductID)
		assert.Equal(t, "Latte", o.ProductName)
		assert.Equal(t, int64(1500), o.ProductPrice)
		assert.True(t, dec("2700").Equal(o.TotalPrice), "got %s", o.TotalPrice)
		assert.True(t, dec("300").Equal(o.Discount()))
	})

	t.Run("snapshot survives product edits", func(t *testing.T) {
		o, err := NewProductOrder(product, dec("1"), decimal.Zero)
		require.NoError(t, err)
		product.Name = "Renamed"
		product.Price = 9999
		assert.Equal(t, "Latte", o.ProductName)
		assert.Equal(t, int64(1500), o.ReferencedProduct().Price)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewProductOrder(product, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrOutOfRange)
	})

	t.Run("rejects discount above 100", func(t *testing.T) {
		_, err := NewProductOrder(product, dec("1"), dec("100.5"))
		assert.ErrorIs(t, err, shared.ErrOutOfRange)
	})
}

func TestProductOrder_CalculateTotalPrice(t *testing.T) {
	tests := []struct {
		name  string
		order ProductOrder
		want  string
	}{
		{"no discount", order(100, "3", "0"), "300"},
		{"fractional quantity rounds half up", order(333, "0.5", "0"), "166.5"},
		{"fraction of cent rounds half up", order(1, "0.125", "0"), "0.13"},
		{"full discount", order(100, "3", "100"), "0"},
		{"missing product price", ProductOrder{Quantity: dec("2"), DiscountPercent: decimal.Zero}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.order.CalculateTotalPrice()
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestQueue_Totals(t *testing.T) {
	q := Queue{
		Status:        QueueStatusUnpaid,
		PaymentMethod: PaymentMethodCash,
		ProductOrders: []ProductOrder{
			order(100, "2", "10"),
			order(50, "1", "0"),
			order(20, "1.5", "50"),
		},
	}

	// grand total is the sum of order totals
	sum := decimal.Zero
	for _, o := range q.ProductOrders {
		sum = sum.Add(o.TotalPrice)
	}
	assert.True(t, sum.Equal(q.GrandTotal()))
	assert.True(t, dec("245").Equal(q.GrandTotal()), "got %s", q.GrandTotal())

	// total discount is price * quantity * percent / 100 per order
	assert.True(t, dec("35").Equal(q.TotalDiscount()), "got %s", q.TotalDiscount())
}

func TestQueue_Validate(t *testing.T) {
	t.Run("drafts without orders cannot be saved", func(t *testing.T) {
		q, err := NewQueue(0, QueueStatusInQueue, PaymentMethodCash, time.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, q.Validate(), shared.ErrEmptyOrders)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := NewQueue(0, "DONE", PaymentMethodCash, time.Now())
		assert.ErrorIs(t, err, shared.ErrOutOfRange)
	})

	t.Run("validates orders", func(t *testing.T) {
		q := Queue{
			Status:        QueueStatusInQueue,
			PaymentMethod: PaymentMethodCash,
			ProductOrders: []ProductOrder{{Quantity: decimal.Zero}},
		}
		assert.ErrorIs(t, q.Validate(), shared.ErrOutOfRange)
	})
}

func TestQueue_WithIDAndClone(t *testing.T) {
	q := Queue{ProductOrders: []ProductOrder{order(1, "1", "0")}}
	saved := q.WithID(9)

	assert.Equal(t, int64(9), saved.ID)
	assert.Equal(t, int64(9), saved.ProductOrders[0].QueueID)
	assert.Equal(t, int64(0), q.ProductOrders[0].QueueID)
}

func TestParseEnums(t *testing.T) {
	s, err := ParseQueueStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, QueueStatusCompleted, s)

	m, err := ParsePaymentMethod("account_balance")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodAccountBalance, m)

	_, err = ParsePaymentMethod("card")
	assert.ErrorIs(t, err, shared.ErrOutOfRange)
}
