package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQueues() []trade.Queue {
	order := trade.ProductOrder{
		ProductID:       3,
		ProductName:     "Tea, green",
		ProductPrice:    250,
		Quantity:        decimal.RequireFromString("2"),
		DiscountPercent: decimal.RequireFromString("10"),
	}.Recalculated()
	return []trade.Queue{
		{
			ID:            1,
			CustomerID:    7,
			Customer:      &partner.Customer{ID: 7, Name: "Amy"},
			Status:        trade.QueueStatusCompleted,
			PaymentMethod: trade.PaymentMethodCash,
			Date:          time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC),
			ProductOrders: []trade.ProductOrder{order},
		},
		{
			ID:            2,
			Status:        trade.QueueStatusInQueue,
			PaymentMethod: trade.PaymentMethodCash,
			Date:          time.Date(2024, time.March, 16, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteQueues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQueues(&buf, sampleQueues(), time.UTC))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,date,customer_id,customer_name,status,payment_method,items,total_discount,grand_total", lines[0])
	assert.Equal(t, "1,2024-03-15T10:30:00Z,7,Amy,COMPLETED,CASH,1,50.00,450.00", lines[1])
	assert.Equal(t, "2,2024-03-16T09:00:00Z,0,,IN_QUEUE,CASH,0,0.00,0.00", lines[2])

	rows, err := ReadQueues(&buf)
	require.NoError(t, err)
	assert.Equal(t, QueueRows(sampleQueues(), time.UTC), rows)
}

func TestWriteProductOrders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProductOrders(&buf, sampleQueues()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `1,3,"Tea, green",250,2,10,450.00`, lines[1])
}
