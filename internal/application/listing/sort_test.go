package listing

import (
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestSortMethod_Toggle(t *testing.T) {
	m := SortMethod[CustomerSortBy]{By: CustomerSortByName, Ascending: true}

	m = m.Toggle(CustomerSortByName)
	assert.Equal(t, SortMethod[CustomerSortBy]{By: CustomerSortByName, Ascending: false}, m)

	m = m.Toggle(CustomerSortByBalance)
	assert.Equal(t, SortMethod[CustomerSortBy]{By: CustomerSortByBalance, Ascending: false}, m, "switching keeps direction")

	m = m.Toggle(CustomerSortByBalance)
	assert.True(t, m.Ascending)
}

func TestSorter_Customers(t *testing.T) {
	s := NewSorter(language.English)
	customers := []partner.Customer{
		{ID: 1, Name: "bob", Balance: 10},
		{ID: 2, Name: "Amy", Balance: 30},
		{ID: 3, Name: "Bob", Balance: 10},
		{ID: 4, Name: "carl", Balance: 20},
	}

	got := s.Customers(customers, SortMethod[CustomerSortBy]{By: CustomerSortByName, Ascending: true})
	assert.Equal(t, []int64{2, 1, 3, 4}, ids(got), "case-insensitive and stable")

	got = s.Customers(customers, SortMethod[CustomerSortBy]{By: CustomerSortByName})
	assert.Equal(t, []int64{4, 1, 3, 2}, ids(got))

	got = s.Customers(customers, SortMethod[CustomerSortBy]{By: CustomerSortByBalance, Ascending: true})
	assert.Equal(t, []int64{1, 3, 4, 2}, ids(got))

	got = s.Customers(customers, SortMethod[CustomerSortBy]{By: CustomerSortByBalance})
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(got), "equal keys keep input order descending too")

	assert.Equal(t, int64(1), customers[0].ID, "input untouched")
}

func TestSorter_Products(t *testing.T) {
	s := NewSorter(language.English)
	products := []catalog.Product{
		{ID: 1, Name: "tea", Price: 5},
		{ID: 2, Name: "Coffee", Price: 9},
		{ID: 3, Name: "Éclair", Price: 5},
	}

	got := s.Products(products, SortMethod[ProductSortBy]{By: ProductSortByName, Ascending: true})
	assert.Equal(t, []int64{2, 3, 1}, ids(got))

	got = s.Products(products, SortMethod[ProductSortBy]{By: ProductSortByPrice, Ascending: true})
	assert.Equal(t, []int64{1, 3, 2}, ids(got))
}

func TestSorter_Queues(t *testing.T) {
	s := NewSorter(language.English)
	at := func(h int) time.Time { return time.Date(2024, time.May, 1, h, 0, 0, 0, time.UTC) }
	amy := &partner.Customer{ID: 7, Name: "Amy"}
	zed := &partner.Customer{ID: 8, Name: "zed"}
	queues := []trade.Queue{
		{ID: 1, Date: at(3), ProductOrders: []trade.ProductOrder{{TotalPrice: dec("30")}}},
		{ID: 2, CustomerID: 8, Customer: zed, Date: at(1), ProductOrders: []trade.ProductOrder{{TotalPrice: dec("10")}}},
		{ID: 3, CustomerID: 7, Customer: amy, Date: at(2), ProductOrders: []trade.ProductOrder{{TotalPrice: dec("20")}}},
		{ID: 4, Date: at(4), ProductOrders: []trade.ProductOrder{{TotalPrice: dec("20")}}},
	}

	tests := []struct {
		name   string
		method SortMethod[QueueSortBy]
		want   []int64
	}{
		{"customer name ascending, nulls last", SortMethod[QueueSortBy]{By: QueueSortByCustomerName, Ascending: true}, []int64{3, 2, 1, 4}},
		{"customer name descending, nulls last", SortMethod[QueueSortBy]{By: QueueSortByCustomerName}, []int64{2, 3, 1, 4}},
		{"date ascending", SortMethod[QueueSortBy]{By: QueueSortByDate, Ascending: true}, []int64{2, 3, 1, 4}},
		{"date descending", SortMethod[QueueSortBy]{By: QueueSortByDate}, []int64{4, 1, 3, 2}},
		{"total price stable", SortMethod[QueueSortBy]{By: QueueSortByTotalPrice, Ascending: true}, []int64{2, 3, 4, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(s.Queues(queues, tt.method)))
		})
	}
}
