package catalog

import (
	"strings"

	"github.com/ledger/backend/internal/domain/shared"
)

// Product is a catalog entry sold through product orders.
// A zero ID means the product has not been persisted yet.
type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// NewProduct creates a draft product after validating its fields
func NewProduct(name string, price int64) (*Product, error) {
	p := &Product{
		Name:  strings.TrimSpace(name),
		Price: price,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the product invariants
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return shared.NewDomainError(shared.CodeEmptyName, "Product name cannot be empty")
	}
	if p.Price < 0 {
		return shared.NewDomainError(shared.CodeOutOfRange, "Product price cannot be negative")
	}
	return nil
}

// ModelID returns the logical id
func (p Product) ModelID() int64 {
	return p.ID
}

// WithID returns a copy of the product carrying id
func (p Product) WithID(id int64) Product {
	p.ID = id
	return p
}
