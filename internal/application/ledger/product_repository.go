package ledger

import (
	"context"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/event"
)

// ProductRepository is the asynchronous façade over the product store
type ProductRepository struct {
	*repository[catalog.Product]
	products catalog.ProductStore
}

// NewProductRepository creates a ProductRepository broadcasting on bus
func NewProductRepository(store catalog.ProductStore, bus *event.Bus[catalog.Product], rt Runtime) *ProductRepository {
	return &ProductRepository{
		repository: newRepository[catalog.Product]("product", store, nil, bus, rt),
		products:   store,
	}
}

// Search lists products matching every token of query as a word prefix
func (r *ProductRepository) Search(ctx context.Context, query string) *async.Future[[]catalog.Product] {
	return read(r.repository, func() ([]catalog.Product, error) {
		return r.products.Search(ctx, query)
	})
}
