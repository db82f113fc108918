package catalog

import "github.com/ledger/backend/internal/domain/shared"

// ProductStore defines the persistence capabilities for products
type ProductStore interface {
	shared.Store[Product]
	shared.Searcher[Product]
}
