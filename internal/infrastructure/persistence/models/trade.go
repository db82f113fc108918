package models

import (
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// QueueModel is the persistence model for trade.Queue
type QueueModel struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID    *int64              `gorm:"column:customer_id"`
	Status        string              `gorm:"column:status;not null"`
	PaymentMethod string              `gorm:"column:payment_method;not null"`
	Date          int64               `gorm:"column:date;not null"`
	Customer      *CustomerModel      `gorm:"foreignKey:CustomerID"`
	ProductOrders []ProductOrderModel `gorm:"foreignKey:QueueID"`
}

// TableName returns the table name for GORM
func (QueueModel) TableName() string {
	return "queue"
}

// ToDomain converts the model and its loaded associations to a trade.Queue.
// debts supplies the derived debt of the joined customer.
func (m *QueueModel) ToDomain(debts map[int64]decimal.Decimal) trade.Queue {
	q := trade.Queue{
		ID:            m.ID,
		CustomerID:    IDValue(m.CustomerID),
		Status:        trade.QueueStatus(m.Status),
		PaymentMethod: trade.PaymentMethod(m.PaymentMethod),
		Date:          FromMillis(m.Date),
		ProductOrders: make([]trade.ProductOrder, len(m.ProductOrders)),
	}
	if m.Customer != nil {
		debt, ok := debts[m.Customer.ID]
		if !ok {
			debt = decimal.Zero
		}
		c := m.Customer.ToDomain(debt)
		q.Customer = &c
	}
	for i := range m.ProductOrders {
		q.ProductOrders[i] = m.ProductOrders[i].ToDomain()
	}
	return q
}

// ToInfo converts the model to the dashboard projection
func (m *QueueModel) ToInfo() trade.QueueWithProductOrdersInfo {
	info := trade.QueueWithProductOrdersInfo{
		ID:            m.ID,
		CustomerID:    IDValue(m.CustomerID),
		Status:        trade.QueueStatus(m.Status),
		PaymentMethod: trade.PaymentMethod(m.PaymentMethod),
		Date:          FromMillis(m.Date),
		ProductOrders: make([]trade.ProductOrder, len(m.ProductOrders)),
	}
	for i := range m.ProductOrders {
		info.ProductOrders[i] = m.ProductOrders[i].ToDomain()
	}
	return info
}

// FromDomain populates the queue columns from a trade.Queue. Associations
// are written separately.
func (m *QueueModel) FromDomain(q trade.Queue) {
	m.ID = q.ID
	m.CustomerID = NullableID(q.CustomerID)
	m.Status = q.Status.String()
	m.PaymentMethod = q.PaymentMethod.String()
	m.Date = ToMillis(q.Date)
}

// QueueModelFromDomain creates a model from a trade.Queue
func QueueModelFromDomain(q trade.Queue) *QueueModel {
	m := &QueueModel{}
	m.FromDomain(q)
	return m
}

// ProductOrderModel is the persistence model for trade.ProductOrder
type ProductOrderModel struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	QueueID         int64           `gorm:"column:queue_id;not null"`
	ProductID       *int64          `gorm:"column:product_id"`
	ProductName     string          `gorm:"column:product_name;not null;default:''"`
	ProductPrice    int64           `gorm:"column:product_price;not null;default:0"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:text;not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:text;not null"`
	TotalPrice      decimal.Decimal `gorm:"column:total_price;type:text;not null"`
}

// TableName returns the table name for GORM
func (ProductOrderModel) TableName() string {
	return "product_order"
}

// ToDomain converts the model to a trade.ProductOrder
func (m *ProductOrderModel) ToDomain() trade.ProductOrder {
	return trade.ProductOrder{
		ID:              m.ID,
		QueueID:         m.QueueID,
		ProductID:       IDValue(m.ProductID),
		ProductName:     m.ProductName,
		ProductPrice:    m.ProductPrice,
		Quantity:        m.Quantity,
		DiscountPercent: m.DiscountPercent,
		TotalPrice:      m.TotalPrice,
	}
}

// FromDomain populates the model from a trade.ProductOrder. total_price is
// always derived from price, quantity and discount; o.TotalPrice is ignored.
func (m *ProductOrderModel) FromDomain(o trade.ProductOrder) {
	m.ID = o.ID
	m.QueueID = o.QueueID
	m.ProductID = NullableID(o.ProductID)
	m.ProductName = o.ProductName
	m.ProductPrice = o.ProductPrice
	m.Quantity = o.Quantity
	m.DiscountPercent = o.DiscountPercent
	m.TotalPrice = o.CalculateTotalPrice()
}

// ProductOrderModelFromDomain creates a model from a trade.ProductOrder
func ProductOrderModelFromDomain(o trade.ProductOrder) *ProductOrderModel {
	m := &ProductOrderModel{}
	m.FromDomain(o)
	return m
}

// ProductOrdersToDomain converts a slice of models
func ProductOrdersToDomain(rows []ProductOrderModel) []trade.ProductOrder {
	out := make([]trade.ProductOrder, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
