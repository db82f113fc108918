package report

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/report"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/migration"
	"github.com/ledger/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var now = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type plainFormatter struct{}

func (plainFormatter) Format(amount decimal.Decimal, _ language.Tag) string { return amount.String() }

func (plainFormatter) FormatWithUnit(amount decimal.Decimal, _ language.Tag) string {
	return fmt.Sprintf("$%s", amount.String())
}

func (plainFormatter) Parse(text string, _ language.Tag) decimal.Decimal {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (plainFormatter) DecimalSeparator(language.Tag) string { return "." }

func (plainFormatter) Symbol(language.Tag) string { return "$" }

type fixture struct {
	ledger *ledger.Ledger
	rt     ledger.Runtime
	dash   *Dashboard
	tea    catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	owner := async.NewOwner(zap.NewNop())
	pool, err := async.NewPool(4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = owner.Close(ctx)
		pool.Release()
	})
	rt := ledger.Runtime{Owner: owner, Pool: pool, Logger: zap.NewNop()}
	l := ledger.New(ledger.Stores{
		Products:      persistence.NewGormProductStore(db.DB),
		Customers:     persistence.NewGormCustomerStore(db.DB),
		Queues:        persistence.NewGormQueueStore(db.DB),
		ProductOrders: persistence.NewGormProductOrderStore(db.DB),
		Tx:            db,
	}, rt)

	f := &fixture{ledger: l, rt: rt}
	f.dash = NewDashboard(l, owner, DashboardOptions{
		Clock:     shared.FixedClock{At: now},
		Formatter: plainFormatter{},
		Language:  language.English,
	})
	t.Cleanup(f.dash.Close)

	id := mustAwait(t, f, l.Products.Add(context.Background(), catalog.Product{Name: "Tea", Price: 100}))
	f.tea = catalog.Product{ID: id, Name: "Tea", Price: 100}
	return f
}

func mustAwait[T any](t *testing.T, f *fixture, fut *async.Future[T]) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := fut.Await(ctx)
	require.NoError(t, err)
	require.NoError(t, f.rt.Owner.Sync(ctx))
	return v
}

func (f *fixture) addCustomer(t *testing.T, name string, balance int64) partner.Customer {
	t.Helper()
	c := partner.Customer{Name: name, Balance: balance, Debt: decimal.Zero}
	c.ID = mustAwait(t, f, f.ledger.Customers.Add(context.Background(), c))
	return c
}

func (f *fixture) addQueue(t *testing.T, customerID int64, status trade.QueueStatus, date time.Time, qty int64) trade.Queue {
	t.Helper()
	o := trade.ProductOrder{
		ProductID:       f.tea.ID,
		ProductName:     f.tea.Name,
		ProductPrice:    f.tea.Price,
		Quantity:        decimal.NewFromInt(qty),
		DiscountPercent: decimal.Zero,
	}
	q := trade.Queue{
		CustomerID:    customerID,
		Status:        status,
		PaymentMethod: trade.PaymentMethodCash,
		Date:          date,
		ProductOrders: []trade.ProductOrder{o.Recalculated()},
	}
	q.ID = mustAwait(t, f, f.ledger.Queues.Add(context.Background(), q))
	return q
}

func (f *fixture) eventually(t *testing.T, cond func(DashboardState) bool) DashboardState {
	t.Helper()
	var last DashboardState
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.rt.Owner.Sync(ctx)
		last = f.dash.State()
		return cond(last)
	}, 3*time.Second, 10*time.Millisecond)
	return last
}

func TestDashboard_LoadsOnStart(t *testing.T) {
	f := newFixture(t)
	amy := f.addCustomer(t, "Amy", 1000)
	f.addCustomer(t, "Bob", 0)
	f.addQueue(t, amy.ID, trade.QueueStatusCompleted, now, 2)
	f.addQueue(t, amy.ID, trade.QueueStatusUnpaid, now.AddDate(0, 0, -1), 1)
	f.addQueue(t, 0, trade.QueueStatusCompleted, now.AddDate(0, -1, 0), 5)

	f.dash.Start(context.Background())
	state := f.eventually(t, func(s DashboardState) bool {
		return len(s.Queues) == 2 && len(s.CustomersWithDebt) == 1 && len(s.CustomersWithBalance) == 1
	})

	assert.Equal(t, trade.QueueDateThisMonth, state.Date.Range)
	assert.Equal(t, []partner.CustomerBalanceInfo{{ID: amy.ID, Balance: 1000}}, state.CustomersWithBalance)
	assert.Equal(t, amy.ID, state.CustomersWithDebt[0].ID)
	assert.True(t, decimal.NewFromInt(-100).Equal(state.CustomersWithDebt[0].Debt))
	assert.Equal(t, int64(1000), state.TotalBalance)
	assert.True(t, decimal.NewFromInt(200).Equal(state.Revenue.Received), state.Revenue.Received)
	assert.True(t, decimal.NewFromInt(300).Equal(state.Revenue.Projected), state.Revenue.Projected)
	assert.Equal(t, 1, state.Summary.UncompletedQueues)
	assert.Equal(t, 1, state.Summary.ActiveCustomers)

	chart := state.Revenue.Chart
	assert.Len(t, chart.XAxisDomain, 31)
	assert.Len(t, chart.YAxisDomain, 101)
	groups := map[string]int{}
	for _, p := range chart.Data {
		groups[p.Group]++
	}
	assert.Equal(t, map[string]int{ProjectedIncome: 31, ReceivedIncome: 31}, groups)
	require.NotEmpty(t, state.QueuesChart.Data)
	assert.Equal(t, []string{"0", "5"}, state.QueuesChart.YAxisDomain)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	amy := f.addCustomer(t, "Amy", 250)
	f.addQueue(t, amy.ID, trade.QueueStatusUnpaid, now, 2)
	f.addQueue(t, amy.ID, trade.QueueStatusCompleted, now.AddDate(0, -2, 0), 4)

	opts := DashboardOptions{Clock: shared.FixedClock{At: now}, Formatter: plainFormatter{}, Language: language.English}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	month := trade.MustQueueDate(trade.QueueDateThisMonth, opts.Clock)
	state, err := Snapshot(ctx, f.ledger, month, opts)
	require.NoError(t, err)
	assert.Len(t, state.Queues, 1)
	assert.Equal(t, int64(250), state.TotalBalance)
	assert.True(t, decimal.NewFromInt(-200).Equal(state.TotalDebt), state.TotalDebt)

	year := trade.MustQueueDate(trade.QueueDateThisYear, opts.Clock)
	state, err = Snapshot(ctx, f.ledger, year, opts)
	require.NoError(t, err)
	assert.Len(t, state.Queues, 2)
	assert.Equal(t, trade.QueueDateThisYear, state.Date.Range)
}

func TestAllTimeIncludesFutureQueues(t *testing.T) {
	f := newFixture(t)
	f.addQueue(t, 0, trade.QueueStatusCompleted, now.AddDate(0, 0, -3), 1)
	tomorrow := f.addQueue(t, 0, trade.QueueStatusCompleted, now.AddDate(0, 0, 1), 2)

	opts := DashboardOptions{Clock: shared.FixedClock{At: now}, Formatter: plainFormatter{}, Language: language.English}
	allTime := trade.MustQueueDate(trade.QueueDateAllTime, opts.Clock)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := Snapshot(ctx, f.ledger, allTime, opts)
	require.NoError(t, err)
	assert.Len(t, state.Queues, 2)
	assert.True(t, decimal.NewFromInt(300).Equal(state.Revenue.Received), state.Revenue.Received)

	f.dash.Start(context.Background())
	f.dash.SetDate(context.Background(), allTime)
	state = f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 2 })
	assert.True(t, slices.ContainsFunc(state.Queues, func(q trade.QueueWithProductOrdersInfo) bool { return q.ID == tomorrow.ID }))
}

func TestDashboard_FollowsWrites(t *testing.T) {
	f := newFixture(t)
	f.dash.Start(context.Background())
	f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 0 })

	amy := f.addCustomer(t, "Amy", 500)
	f.eventually(t, func(s DashboardState) bool { return len(s.CustomersWithBalance) == 1 })

	q := f.addQueue(t, amy.ID, trade.QueueStatusUnpaid, now, 3)
	state := f.eventually(t, func(s DashboardState) bool {
		return len(s.Queues) == 1 && len(s.CustomersWithDebt) == 1
	})
	assert.True(t, decimal.NewFromInt(-300).Equal(state.CustomersWithDebt[0].Debt))

	// outside the range: not listed
	f.addQueue(t, amy.ID, trade.QueueStatusCompleted, now.AddDate(-1, 0, 0), 1)
	f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 1 })

	q.Status = trade.QueueStatusCompleted
	mustAwait(t, f, f.ledger.Queues.Update(context.Background(), q))
	state = f.eventually(t, func(s DashboardState) bool { return len(s.CustomersWithDebt) == 0 })
	assert.True(t, decimal.NewFromInt(300).Equal(state.Revenue.Received))

	// moving a queue out of the range drops it
	q.Date = now.AddDate(0, -2, 0)
	mustAwait(t, f, f.ledger.Queues.Update(context.Background(), q))
	f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 0 })

	amy.Balance = 0
	mustAwait(t, f, f.ledger.Customers.Update(context.Background(), amy))
	f.eventually(t, func(s DashboardState) bool { return len(s.CustomersWithBalance) == 0 })
}

func TestDashboard_CustomerDeletion(t *testing.T) {
	f := newFixture(t)
	amy := f.addCustomer(t, "Amy", 500)
	f.addQueue(t, amy.ID, trade.QueueStatusUnpaid, now, 1)
	f.dash.Start(context.Background())
	f.eventually(t, func(s DashboardState) bool { return len(s.CustomersWithDebt) == 1 && len(s.Queues) == 1 })

	mustAwait(t, f, f.ledger.Customers.Delete(context.Background(), amy))
	state := f.eventually(t, func(s DashboardState) bool {
		return len(s.CustomersWithDebt) == 0 && len(s.CustomersWithBalance) == 0
	})
	require.Len(t, state.Queues, 1)
	assert.Zero(t, state.Queues[0].CustomerID)
	assert.Zero(t, state.Summary.ActiveCustomers)
}

func TestDashboard_SetDate(t *testing.T) {
	f := newFixture(t)
	f.addQueue(t, 0, trade.QueueStatusCompleted, now, 1)
	f.addQueue(t, 0, trade.QueueStatusCompleted, time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC), 1)
	f.dash.Start(context.Background())
	f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 1 })

	f.dash.SetDate(context.Background(), trade.MustQueueDate(trade.QueueDateAllTime, shared.FixedClock{At: now}))
	state := f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 2 })

	// all time starts at the oldest queue, bucketed by year
	assert.Equal(t, []string{"2022", "2023", "2024"}, state.Revenue.Chart.XAxisDomain)

	today := trade.MustQueueDate(trade.QueueDateToday, shared.FixedClock{At: now.AddDate(0, 0, 1)})
	f.dash.SetDate(context.Background(), today)
	state = f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 0 })
	assert.Equal(t, trade.QueueDateToday, state.Date.Range)
}

func TestDashboard_Subscribe(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var seen []int
	unsubscribe := f.dash.Subscribe(func(s DashboardState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, len(s.Queues))
	})
	f.dash.Start(context.Background())
	f.addQueue(t, 0, trade.QueueStatusInQueue, now, 1)
	f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 1 })

	mu.Lock()
	require.NotEmpty(t, seen)
	assert.Equal(t, 1, seen[len(seen)-1])
	count := len(seen)
	mu.Unlock()

	unsubscribe()
	f.addQueue(t, 0, trade.QueueStatusInQueue, now, 1)
	f.eventually(t, func(s DashboardState) bool { return len(s.Queues) == 2 })
	mu.Lock()
	assert.Equal(t, count, len(seen))
	mu.Unlock()
}

func TestBuildRevenue(t *testing.T) {
	clock := shared.FixedClock{At: now}
	month := trade.MustQueueDate(trade.QueueDateThisMonth, clock)
	tea := trade.ProductOrder{ProductPrice: 100, Quantity: decimal.NewFromInt(1), DiscountPercent: decimal.Zero}
	lines := func(qty int64) []trade.ProductOrder {
		o := tea
		o.Quantity = decimal.NewFromInt(qty)
		return []trade.ProductOrder{o.Recalculated()}
	}
	queues := []trade.Queue{
		{Status: trade.QueueStatusCompleted, Date: now, ProductOrders: lines(1)},
		{Status: trade.QueueStatusUnpaid, Date: now.Add(time.Hour), ProductOrders: lines(1)},
		{Status: trade.QueueStatusCompleted, Date: now.AddDate(0, 0, -1), ProductOrders: lines(2)},
	}

	tests := []struct {
		name      string
		scale     ChartScale
		top       string
		projected float64
		received  float64
	}{
		// 237 would top at 300 here; 200 on six ticks tops at 200
		{"linear", ScaleLinear, "$200", 100, 50},
		{"padded", ScalePadded, "$300", 67, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DashboardOptions{Clock: clock, Formatter: plainFormatter{}, Language: language.English, Scale: tt.scale}
			rev, err := buildRevenue(queues, month.Start, month.End, opts)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(300).Equal(rev.Received), rev.Received.String())
			assert.True(t, decimal.NewFromInt(400).Equal(rev.Projected), rev.Projected.String())

			require.Len(t, rev.Chart.XAxisDomain, 31)
			require.Len(t, rev.Chart.Data, 62)
			require.Len(t, rev.Chart.YAxisDomain, 101)
			assert.Equal(t, tt.top, rev.Chart.YAxisDomain[100])

			// March 15 holds both queues of today
			day15 := rev.Chart.Data[2*14 : 2*14+2]
			assert.Equal(t, report.ChartPoint{Key: "15", Value: tt.projected, Group: ProjectedIncome}, day15[0])
			assert.Equal(t, report.ChartPoint{Key: "15", Value: tt.received, Group: ReceivedIncome}, day15[1])
			assert.Equal(t, report.ChartPoint{Key: "1", Value: 0, Group: ProjectedIncome}, rev.Chart.Data[0])
		})
	}
}

func TestParseChartScale(t *testing.T) {
	for in, want := range map[string]ChartScale{"": ScaleLinear, "linear": ScaleLinear, "Padded": ScalePadded} {
		got, err := ParseChartScale(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseChartScale("log")
	assert.ErrorIs(t, err, shared.ErrOutOfRange)
}

func TestChartSpan(t *testing.T) {
	clock := shared.FixedClock{At: now}
	yearStart := trade.MustQueueDate(trade.QueueDateThisYear, clock).Start
	allTime := trade.MustQueueDate(trade.QueueDateAllTime, clock)

	start, end := chartSpan(allTime, nil, yearStart)
	assert.Equal(t, yearStart, start)
	assert.Equal(t, allTime.End, end)

	old := now.AddDate(-3, 0, 0)
	start, _ = chartSpan(allTime, []trade.Queue{{Date: now}, {Date: old}}, yearStart)
	assert.Equal(t, old, start)

	future := now.AddDate(0, 0, 2)
	_, end = chartSpan(allTime, []trade.Queue{{Date: old}, {Date: future}}, yearStart)
	assert.Equal(t, future, end)

	month := trade.MustQueueDate(trade.QueueDateThisMonth, clock)
	start, end = chartSpan(month, []trade.Queue{{Date: old}}, yearStart)
	assert.Equal(t, month.Start, start)
	assert.Equal(t, month.End, end)
}
