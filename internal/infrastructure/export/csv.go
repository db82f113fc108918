// Package export writes ledger data as CSV.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/ledger/backend/internal/domain/trade"
)

// QueueRow is one exported queue
type QueueRow struct {
	ID            int64  `csv:"id"`
	Date          string `csv:"date"`
	CustomerID    int64  `csv:"customer_id"`
	CustomerName  string `csv:"customer_name"`
	Status        string `csv:"status"`
	PaymentMethod string `csv:"payment_method"`
	Items         int    `csv:"items"`
	TotalDiscount string `csv:"total_discount"`
	GrandTotal    string `csv:"grand_total"`
}

// ProductOrderRow is one exported order line
type ProductOrderRow struct {
	QueueID         int64  `csv:"queue_id"`
	ProductID       int64  `csv:"product_id"`
	ProductName     string `csv:"product_name"`
	ProductPrice    int64  `csv:"product_price"`
	Quantity        string `csv:"quantity"`
	DiscountPercent string `csv:"discount_percent"`
	TotalPrice      string `csv:"total_price"`
}

// QueueRows flattens queues into rows, with dates in loc
func QueueRows(queues []trade.Queue, loc *time.Location) []QueueRow {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]QueueRow, len(queues))
	for i, q := range queues {
		row := QueueRow{
			ID:            q.ID,
			Date:          q.Date.In(loc).Format(time.RFC3339),
			CustomerID:    q.CustomerID,
			Status:        q.Status.String(),
			PaymentMethod: q.PaymentMethod.String(),
			Items:         len(q.ProductOrders),
			TotalDiscount: q.TotalDiscount().StringFixed(2),
			GrandTotal:    q.GrandTotal().StringFixed(2),
		}
		if q.Customer != nil {
			row.CustomerName = q.Customer.Name
		}
		rows[i] = row
	}
	return rows
}

// ProductOrderRows flattens the orders of every queue
func ProductOrderRows(queues []trade.Queue) []ProductOrderRow {
	var rows []ProductOrderRow
	for _, q := range queues {
		for _, o := range q.ProductOrders {
			rows = append(rows, ProductOrderRow{
				QueueID:         q.ID,
				ProductID:       o.ProductID,
				ProductName:     o.ProductName,
				ProductPrice:    o.ProductPrice,
				Quantity:        o.Quantity.String(),
				DiscountPercent: o.DiscountPercent.String(),
				TotalPrice:      o.TotalPrice.StringFixed(2),
			})
		}
	}
	return rows
}

// WriteQueues writes queues as CSV with a header row
func WriteQueues(w io.Writer, queues []trade.Queue, loc *time.Location) error {
	rows := QueueRows(queues, loc)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write queues csv: %w", err)
	}
	return nil
}

// WriteProductOrders writes the order lines of queues as CSV
func WriteProductOrders(w io.Writer, queues []trade.Queue) error {
	rows := ProductOrderRows(queues)
	if rows == nil {
		rows = []ProductOrderRow{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write product orders csv: %w", err)
	}
	return nil
}

// ReadQueues parses rows written by WriteQueues
func ReadQueues(r io.Reader) ([]QueueRow, error) {
	var rows []QueueRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read queues csv: %w", err)
	}
	return rows, nil
}
