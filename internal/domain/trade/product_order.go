package trade

import (
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// QuantityMaxFractionDigits bounds the precision of order quantities.
const QuantityMaxFractionDigits int32 = 3

var maxDiscountPercent = decimal.NewFromInt(100)

// ProductOrder is a line item of a queue. ProductName and ProductPrice are
// snapshots taken when the order was made and stay valid after the
// referenced product is edited or deleted.
type ProductOrder struct {
	ID              int64           `json:"id"`
	QueueID         int64           `json:"queue_id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ProductPrice    int64           `json:"product_price"`
	Quantity        decimal.Decimal `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// NewProductOrder snapshots product into a new order line
func NewProductOrder(product catalog.Product, quantity, discountPercent decimal.Decimal) (*ProductOrder, error) {
	o := &ProductOrder{
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductPrice:    product.Price,
		Quantity:        quantity.Round(QuantityMaxFractionDigits),
		DiscountPercent: discountPercent,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	o.TotalPrice = o.CalculateTotalPrice()
	return o, nil
}

// Validate checks the order invariants
func (o ProductOrder) Validate() error {
	if !o.Quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeOutOfRange, "Quantity must be positive")
	}
	if o.DiscountPercent.IsNegative() || o.DiscountPercent.GreaterThan(maxDiscountPercent) {
		return shared.NewDomainError(shared.CodeOutOfRange, "Discount must be between 0 and 100 percent")
	}
	if o.ProductPrice < 0 {
		return shared.NewDomainError(shared.CodeOutOfRange, "Product price cannot be negative")
	}
	return nil
}

// GrossPrice is price times quantity before discount
func (o ProductOrder) GrossPrice() decimal.Decimal {
	return decimal.NewFromInt(o.ProductPrice).Mul(o.Quantity)
}

// Discount is the amount taken off the gross price
func (o ProductOrder) Discount() decimal.Decimal {
	return valueobject.DiscountOf(o.GrossPrice(), o.DiscountPercent)
}

// CalculateTotalPrice derives the discounted total, never below zero
func (o ProductOrder) CalculateTotalPrice() decimal.Decimal {
	total := valueobject.RoundHalfUp(
		valueobject.ApplyDiscount(o.GrossPrice(), o.DiscountPercent),
		valueobject.DefaultScale,
	)
	return decimal.Max(decimal.Zero, total)
}

// Recalculated returns a copy whose TotalPrice matches its inputs
func (o ProductOrder) Recalculated() ProductOrder {
	o.TotalPrice = o.CalculateTotalPrice()
	return o
}

// ReferencedProduct rebuilds the product snapshot, or nil when the order
// was never tied to a product.
func (o ProductOrder) ReferencedProduct() *catalog.Product {
	if o.ProductName == "" {
		return nil
	}
	return &catalog.Product{ID: o.ProductID, Name: o.ProductName, Price: o.ProductPrice}
}

// ModelID returns the logical id
func (o ProductOrder) ModelID() int64 {
	return o.ID
}
