package listing

import (
	"cmp"
	"slices"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/trade"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CustomerSortBy names a customer sort key
type CustomerSortBy string

const (
	CustomerSortByName    CustomerSortBy = "NAME"
	CustomerSortByBalance CustomerSortBy = "BALANCE"
)

// ProductSortBy names a product sort key
type ProductSortBy string

const (
	ProductSortByName  ProductSortBy = "NAME"
	ProductSortByPrice ProductSortBy = "PRICE"
)

// QueueSortBy names a queue sort key
type QueueSortBy string

const (
	QueueSortByCustomerName QueueSortBy = "CUSTOMER_NAME"
	QueueSortByDate         QueueSortBy = "DATE"
	QueueSortByTotalPrice   QueueSortBy = "TOTAL_PRICE"
)

// SortMethod is a sort key with its direction
type SortMethod[K comparable] struct {
	By        K    `json:"by"`
	Ascending bool `json:"ascending"`
}

// Toggle selects by. Selecting the current key flips the direction,
// another key keeps it.
func (m SortMethod[K]) Toggle(by K) SortMethod[K] {
	if m.By == by {
		return SortMethod[K]{By: by, Ascending: !m.Ascending}
	}
	return SortMethod[K]{By: by, Ascending: m.Ascending}
}

// Sorter orders lists stably. Names are compared case-insensitively with
// the collation rules of Language.
type Sorter struct {
	Language language.Tag
}

// NewSorter creates a Sorter collating names for lang
func NewSorter(lang language.Tag) Sorter {
	return Sorter{Language: lang}
}

// collator is created per sort: a collate.Collator is not safe for
// concurrent use
func (s Sorter) collator() *collate.Collator {
	return collate.New(s.Language, collate.IgnoreCase, collate.Loose)
}

// Customers returns a sorted copy of customers
func (s Sorter) Customers(customers []partner.Customer, m SortMethod[CustomerSortBy]) []partner.Customer {
	out := slices.Clone(customers)
	switch m.By {
	case CustomerSortByName:
		c := s.collator()
		slices.SortStableFunc(out, directed(m.Ascending, func(a, b partner.Customer) int {
			return c.CompareString(a.Name, b.Name)
		}))
	case CustomerSortByBalance:
		slices.SortStableFunc(out, directed(m.Ascending, func(a, b partner.Customer) int {
			return cmp.Compare(a.Balance, b.Balance)
		}))
	}
	return out
}

// Products returns a sorted copy of products
func (s Sorter) Products(products []catalog.Product, m SortMethod[ProductSortBy]) []catalog.Product {
	out := slices.Clone(products)
	switch m.By {
	case ProductSortByName:
		c := s.collator()
		slices.SortStableFunc(out, directed(m.Ascending, func(a, b catalog.Product) int {
			return c.CompareString(a.Name, b.Name)
		}))
	case ProductSortByPrice:
		slices.SortStableFunc(out, directed(m.Ascending, func(a, b catalog.Product) int {
			return cmp.Compare(a.Price, b.Price)
		}))
	}
	return out
}

// Queues returns a sorted copy of queues. Queues without a customer sort
// last by customer name in either direction.
func (s Sorter) Queues(queues []trade.Queue, m SortMethod[QueueSortBy]) []trade.Queue {
	out := slices.Clone(queues)
	switch m.By {
	case QueueSortByCustomerName:
		c := s.collator()
		byName := directed(m.Ascending, func(a, b trade.Queue) int {
			return c.CompareString(a.Customer.Name, b.Customer.Name)
		})
		slices.SortStableFunc(out, func(a, b trade.Queue) int {
			switch {
			case a.Customer == nil && b.Customer == nil:
				return 0
			case a.Customer == nil:
				return 1
			case b.Customer == nil:
				return -1
			}
			return byName(a, b)
		})
	case QueueSortByDate:
		slices.SortStableFunc(out, directed(m.Ascending, func(a, b trade.Queue) int {
			return a.Date.Compare(b.Date)
		}))
	case QueueSortByTotalPrice:
		slices.SortStableFunc(out, directed(m.Ascending, func(a, b trade.Queue) int {
			return a.GrandTotal().Cmp(b.GrandTotal())
		}))
	}
	return out
}

func directed[T any](ascending bool, compare func(a, b T) int) func(a, b T) int {
	if ascending {
		return compare
	}
	return func(a, b T) int { return compare(b, a) }
}
