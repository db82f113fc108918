package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// TopRankings is the length of the ranking lists of a Summary
const TopRankings = 4

// StatusCount is the number of queues in one status
type StatusCount struct {
	Status trade.QueueStatus `json:"status"`
	Count  int               `json:"count"`
}

// CustomerRanking ranks a customer by the number of its queues
type CustomerRanking struct {
	Rank       int              `json:"rank"`
	Customer   partner.Customer `json:"customer"`
	QueueCount int              `json:"queue_count"`
}

// ProductSalesRanking ranks a product by the quantity sold
type ProductSalesRanking struct {
	Rank        int             `json:"rank"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// Summary is the read model of the dashboard summary cards
type Summary struct {
	TotalQueues       int                   `json:"total_queues"`
	UncompletedQueues int                   `json:"uncompleted_queues"`
	Uncompleted       []StatusCount         `json:"uncompleted"`
	OldestUncompleted *time.Time            `json:"oldest_uncompleted,omitempty"`
	ActiveCustomers   int                   `json:"active_customers"`
	TopCustomers      []CustomerRanking     `json:"top_customers"`
	ProductsSold      decimal.Decimal       `json:"products_sold"`
	TopProducts       []ProductSalesRanking `json:"top_products"`
}

// NewSummary summarizes queues. Rankings are ordered by count, then by
// first appearance, and keep at most TopRankings entries. Orders whose
// product was deleted count towards ProductsSold but are not ranked.
func NewSummary(queues []trade.Queue) Summary {
	s := Summary{
		TotalQueues:  len(queues),
		Uncompleted:  make([]StatusCount, len(trade.UncompletedQueueStatuses)),
		ProductsSold: decimal.Zero,
	}
	for i, status := range trade.UncompletedQueueStatuses {
		s.Uncompleted[i] = StatusCount{Status: status}
	}

	var customers []CustomerRanking
	customerIndex := map[int64]int{}
	var products []ProductSalesRanking
	productIndex := map[int64]int{}

	for _, q := range queues {
		if i := slices.IndexFunc(s.Uncompleted, func(c StatusCount) bool { return c.Status == q.Status }); i >= 0 {
			s.UncompletedQueues++
			s.Uncompleted[i].Count++
			if s.OldestUncompleted == nil || q.Date.Before(*s.OldestUncompleted) {
				d := q.Date
				s.OldestUncompleted = &d
			}
		}

		if q.HasCustomer() {
			i, ok := customerIndex[q.CustomerID]
			if !ok {
				c := partner.Customer{ID: q.CustomerID}
				if q.Customer != nil {
					c = *q.Customer
				}
				i = len(customers)
				customerIndex[q.CustomerID] = i
				customers = append(customers, CustomerRanking{Customer: c})
			}
			customers[i].QueueCount++
		}

		for _, o := range q.ProductOrders {
			s.ProductsSold = s.ProductsSold.Add(o.Quantity)
			if o.ProductID == 0 {
				continue
			}
			i, ok := productIndex[o.ProductID]
			if !ok {
				i = len(products)
				productIndex[o.ProductID] = i
				products = append(products, ProductSalesRanking{ProductID: o.ProductID, ProductName: o.ProductName, Quantity: decimal.Zero})
			}
			products[i].Quantity = products[i].Quantity.Add(o.Quantity)
		}
	}

	s.ActiveCustomers = len(customers)
	slices.SortStableFunc(customers, func(a, b CustomerRanking) int {
		return cmp.Compare(b.QueueCount, a.QueueCount)
	})
	slices.SortStableFunc(products, func(a, b ProductSalesRanking) int {
		return b.Quantity.Cmp(a.Quantity)
	})
	s.TopCustomers = customers[:min(len(customers), TopRankings)]
	s.TopProducts = products[:min(len(products), TopRankings)]
	for i := range s.TopCustomers {
		s.TopCustomers[i].Rank = i + 1
	}
	for i := range s.TopProducts {
		s.TopProducts[i].Rank = i + 1
	}
	return s
}
