// Package listing narrows and orders the lists shown for customers,
// products and queues.
package listing

import (
	"cmp"
	"slices"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// Range is an inclusive bound. A nil side is unbounded.
type Range[T any] struct {
	Min *T `json:"min,omitempty"`
	Max *T `json:"max,omitempty"`
}

// Between builds a range bounded on both sides
func Between[T any](lo, hi T) Range[T] {
	return Range[T]{Min: &lo, Max: &hi}
}

// AtLeast builds a range bounded below
func AtLeast[T any](lo T) Range[T] {
	return Range[T]{Min: &lo}
}

// AtMost builds a range bounded above
func AtMost[T any](hi T) Range[T] {
	return Range[T]{Max: &hi}
}

// IsUnbounded reports whether the range accepts everything
func (r Range[T]) IsUnbounded() bool {
	return r.Min == nil && r.Max == nil
}

func (r Range[T]) contains(v T, compare func(a, b T) int) bool {
	if r.Min != nil && compare(v, *r.Min) < 0 {
		return false
	}
	if r.Max != nil && compare(v, *r.Max) > 0 {
		return false
	}
	return true
}

func compareDecimal(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// CustomerFilters narrows a customer list. Debt bounds and the debt itself
// are compared as absolute amounts, so -100 and 100 bound alike.
type CustomerFilters struct {
	Balance Range[int64]           `json:"balance"`
	Debt    Range[decimal.Decimal] `json:"debt"`
}

// Matches reports whether c passes every filter
func (f CustomerFilters) Matches(c partner.Customer) bool {
	return f.Balance.contains(c.Balance, cmp.Compare[int64]) &&
		absRange(f.Debt).contains(c.Debt.Abs(), compareDecimal)
}

func absRange(r Range[decimal.Decimal]) Range[decimal.Decimal] {
	out := Range[decimal.Decimal]{}
	if r.Min != nil {
		lo := r.Min.Abs()
		out.Min = &lo
	}
	if r.Max != nil {
		hi := r.Max.Abs()
		out.Max = &hi
	}
	return out
}

// Filter returns the customers that match, in input order
func (f CustomerFilters) Filter(customers []partner.Customer) []partner.Customer {
	return filter(customers, f.Matches)
}

// ProductFilters narrows a product list
type ProductFilters struct {
	Price Range[int64] `json:"price"`
}

// Matches reports whether p passes every filter
func (f ProductFilters) Matches(p catalog.Product) bool {
	return f.Price.contains(p.Price, cmp.Compare[int64])
}

// Filter returns the products that match, in input order
func (f ProductFilters) Filter(products []catalog.Product) []catalog.Product {
	return filter(products, f.Matches)
}

// QueueFilters narrows a queue list. A queue without customer passes only
// when ShowNullCustomer is set; one with a customer passes when CustomerIDs
// is empty or lists it. An empty Statuses accepts every status.
type QueueFilters struct {
	CustomerIDs      []int64                    `json:"customer_ids"`
	ShowNullCustomer bool                       `json:"show_null_customer"`
	Statuses         map[trade.QueueStatus]bool `json:"statuses"`
	TotalPrice       Range[decimal.Decimal]     `json:"total_price"`
	Date             trade.QueueDate            `json:"date"`
}

// NewQueueFilters accepts every queue
func NewQueueFilters() QueueFilters {
	return QueueFilters{
		ShowNullCustomer: true,
		Date:             trade.QueueDate{Range: trade.QueueDateAllTime},
	}
}

// WithStatuses returns a copy restricted to statuses
func (f QueueFilters) WithStatuses(statuses ...trade.QueueStatus) QueueFilters {
	f.Statuses = make(map[trade.QueueStatus]bool, len(statuses))
	for _, s := range statuses {
		f.Statuses[s] = true
	}
	return f
}

// Matches reports whether q passes every filter
func (f QueueFilters) Matches(q trade.Queue) bool {
	if q.HasCustomer() {
		if len(f.CustomerIDs) > 0 && !slices.Contains(f.CustomerIDs, q.CustomerID) {
			return false
		}
	} else if !f.ShowNullCustomer {
		return false
	}
	if len(f.Statuses) > 0 && !f.Statuses[q.Status] {
		return false
	}
	if !f.TotalPrice.contains(q.GrandTotal(), compareDecimal) {
		return false
	}
	return f.Date.Range == "" || f.Date.Contains(q.Date)
}

// Filter returns the queues that match, in input order
func (f QueueFilters) Filter(queues []trade.Queue) []trade.Queue {
	return filter(queues, f.Matches)
}

func filter[T any](list []T, keep func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
