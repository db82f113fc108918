package trade

import (
	"slices"
	"time"

	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Queue is a single sales transaction. It owns its product orders and may
// reference a customer. Customer is the joined customer row, populated by
// the store on reads and ignored on writes.
type Queue struct {
	ID            int64             `json:"id"`
	CustomerID    int64             `json:"customer_id"`
	Customer      *partner.Customer `json:"customer,omitempty"`
	Status        QueueStatus       `json:"status"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Date          time.Time         `json:"date"`
	ProductOrders []ProductOrder    `json:"product_orders"`
}

// NewQueue creates a draft queue without orders
func NewQueue(customerID int64, status QueueStatus, method PaymentMethod, date time.Time) (*Queue, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError(shared.CodeOutOfRange, "Unknown queue status")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeOutOfRange, "Unknown payment method")
	}
	return &Queue{
		CustomerID:    customerID,
		Status:        status,
		PaymentMethod: method,
		Date:          date,
		ProductOrders: []ProductOrder{},
	}, nil
}

// Validate checks the queue can be saved
func (q Queue) Validate() error {
	if !q.Status.IsValid() {
		return shared.NewDomainError(shared.CodeOutOfRange, "Unknown queue status")
	}
	if !q.PaymentMethod.IsValid() {
		return shared.NewDomainError(shared.CodeOutOfRange, "Unknown payment method")
	}
	if len(q.ProductOrders) == 0 {
		return shared.NewDomainError(shared.CodeEmptyOrders, "Queue must contain at least one product order")
	}
	for _, o := range q.ProductOrders {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GrandTotal sums the total price of every order
func (q Queue) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, o := range q.ProductOrders {
		total = total.Add(o.TotalPrice)
	}
	return total
}

// TotalDiscount sums the discount of every order
func (q Queue) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, o := range q.ProductOrders {
		total = total.Add(o.Discount())
	}
	return total
}

// HasCustomer reports whether the queue references a customer
func (q Queue) HasCustomer() bool {
	return q.CustomerID != 0
}

// ModelID returns the logical id
func (q Queue) ModelID() int64 {
	return q.ID
}

// WithID returns a copy carrying id, propagated to its orders
func (q Queue) WithID(id int64) Queue {
	q = q.Clone()
	q.ID = id
	for i := range q.ProductOrders {
		q.ProductOrders[i].QueueID = id
	}
	return q
}

// Clone returns a copy that shares no slices or pointers with q
func (q Queue) Clone() Queue {
	q.ProductOrders = slices.Clone(q.ProductOrders)
	if q.Customer != nil {
		c := *q.Customer
		q.Customer = &c
	}
	return q
}

// Info projects the queue for the dashboard
func (q Queue) Info() QueueWithProductOrdersInfo {
	return QueueWithProductOrdersInfo{
		ID:            q.ID,
		CustomerID:    q.CustomerID,
		Status:        q.Status,
		PaymentMethod: q.PaymentMethod,
		Date:          q.Date,
		ProductOrders: slices.Clone(q.ProductOrders),
	}
}

// QueueWithProductOrdersInfo is the dashboard projection of a queue.
type QueueWithProductOrdersInfo struct {
	ID            int64          `json:"id"`
	CustomerID    int64          `json:"customer_id"`
	Status        QueueStatus    `json:"status"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Date          time.Time      `json:"date"`
	ProductOrders []ProductOrder `json:"product_orders"`
}

// ModelID returns the queue id
func (i QueueWithProductOrdersInfo) ModelID() int64 {
	return i.ID
}

// GrandTotal sums the total price of every order
func (i QueueWithProductOrdersInfo) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, o := range i.ProductOrders {
		total = total.Add(o.TotalPrice)
	}
	return total
}
