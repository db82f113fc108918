package ledger

import (
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/event"
)

// Stores are the persistence capabilities the ledger is built on
type Stores struct {
	Products      catalog.ProductStore
	Customers     partner.CustomerStore
	Queues        trade.QueueStore
	ProductOrders trade.ProductOrderStore
	Tx            shared.Transactor
}

// Ledger groups the repositories of one database
type Ledger struct {
	Products      *ProductRepository
	Customers     *CustomerRepository
	Queues        *QueueRepository
	ProductOrders *ProductOrderRepository
}

// New creates every repository and the change buses they share
func New(stores Stores, rt Runtime) *Ledger {
	productBus := event.NewBus[catalog.Product]("product", rt.Logger)
	customerBus := event.NewBus[partner.Customer]("customer", rt.Logger)
	queueBus := event.NewBus[trade.Queue]("queue", rt.Logger)
	orderBus := event.NewBus[trade.ProductOrder]("product_order", rt.Logger)

	return &Ledger{
		Products:      NewProductRepository(stores.Products, productBus, rt),
		Customers:     NewCustomerRepository(stores.Customers, stores.Queues, stores.Tx, customerBus, queueBus, rt),
		Queues:        NewQueueRepository(stores.Queues, stores.Customers, stores.Tx, queueBus, customerBus, rt),
		ProductOrders: NewProductOrderRepository(stores.ProductOrders, orderBus, rt),
	}
}
