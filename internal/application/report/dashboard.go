package report

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/report"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/event"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// DashboardState is a snapshot of the dashboard
type DashboardState struct {
	Date                 trade.QueueDate                    `json:"date"`
	CustomersWithBalance []partner.CustomerBalanceInfo      `json:"customers_with_balance"`
	CustomersWithDebt    []partner.CustomerDebtInfo         `json:"customers_with_debt"`
	TotalBalance         int64                              `json:"total_balance"`
	TotalDebt            decimal.Decimal                    `json:"total_debt"`
	Queues               []trade.QueueWithProductOrdersInfo `json:"queues"`
	Revenue              Revenue                            `json:"revenue"`
	QueuesChart          report.ChartModel                  `json:"queues_chart"`
	Summary              report.Summary                     `json:"summary"`
}

// DashboardOptions configures a Dashboard
type DashboardOptions struct {
	Clock     shared.Clock
	Formatter report.CurrencyFormatter
	Language  language.Tag
	Scale     ChartScale
	Logger    *zap.Logger
}

// Dashboard keeps the dashboard collections in step with the customer and
// queue buses. Its state is only mutated on the owner.
type Dashboard struct {
	customers *ledger.CustomerRepository
	queues    *ledger.QueueRepository
	owner     *async.Owner
	opts      DashboardOptions
	logger    *zap.Logger

	customerListener *event.ListenerFunc[partner.Customer]
	queueListener    *event.ListenerFunc[trade.Queue]

	mu          sync.RWMutex
	date        trade.QueueDate
	generation  uint64
	withBalance []partner.CustomerBalanceInfo
	withDebt    []partner.CustomerDebtInfo
	queueList   []trade.Queue
	subscribers map[int]func(DashboardState)
	nextSub     int
}

// NewDashboard creates a dashboard over the ledger showing this month
func NewDashboard(l *ledger.Ledger, owner *async.Owner, opts DashboardOptions) *Dashboard {
	opts = opts.withDefaults()
	d := &Dashboard{
		customers:   l.Customers,
		queues:      l.Queues,
		owner:       owner,
		opts:        opts,
		logger:      opts.Logger.Named("dashboard"),
		date:        trade.MustQueueDate(trade.QueueDateThisMonth, opts.Clock),
		withBalance: []partner.CustomerBalanceInfo{},
		withDebt:    []partner.CustomerDebtInfo{},
		queueList:   []trade.Queue{},
		subscribers: map[int]func(DashboardState){},
	}
	d.customerListener = event.NewListenerFunc(d.onCustomerChange)
	d.queueListener = event.NewListenerFunc(d.onQueueChange)
	return d
}

// Start subscribes to the buses and loads every collection
func (d *Dashboard) Start(ctx context.Context) {
	d.customers.AddListener(d.customerListener)
	d.queues.AddListener(d.queueListener)

	d.customers.SelectAllInfoWithBalance(ctx).Then(func(infos []partner.CustomerBalanceInfo, err error) {
		if err != nil {
			d.logger.Warn("failed to load customers with balance", zap.Error(err))
			return
		}
		d.mutate(func() { d.withBalance = infos })
	})
	d.customers.SelectAllInfoWithDebt(ctx).Then(func(infos []partner.CustomerDebtInfo, err error) {
		if err != nil {
			d.logger.Warn("failed to load customers with debt", zap.Error(err))
			return
		}
		d.mutate(func() { d.withDebt = infos })
	})
	d.owner.Post(func() { d.reloadQueues(ctx) })
}

// Close unsubscribes from the buses and drops every subscriber
func (d *Dashboard) Close() {
	d.customers.RemoveListener(d.customerListener)
	d.queues.RemoveListener(d.queueListener)
	d.mu.Lock()
	clear(d.subscribers)
	d.mu.Unlock()
}

// SetDate switches the active range and reloads the queues. Results of
// loads started for an earlier range are dropped.
func (d *Dashboard) SetDate(ctx context.Context, date trade.QueueDate) {
	d.owner.Post(func() {
		d.mu.Lock()
		d.date = date
		d.mu.Unlock()
		d.reloadQueues(ctx)
	})
}

// Subscribe registers fn for every state change and returns its
// unsubscribe function. fn runs on the owner.
func (d *Dashboard) Subscribe(fn func(DashboardState)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.subscribers[id] = fn
	return func() {
		d.mu.Lock()
		delete(d.subscribers, id)
		d.mu.Unlock()
	}
}

// State builds a snapshot of the current collections
func (d *Dashboard) State() DashboardState {
	d.mu.RLock()
	date := d.date
	withBalance := slices.Clone(d.withBalance)
	withDebt := slices.Clone(d.withDebt)
	queues := slices.Clone(d.queueList)
	d.mu.RUnlock()

	return d.opts.build(date, withBalance, withDebt, queues)
}

// Snapshot loads the dashboard for date once, without following later
// changes
func Snapshot(ctx context.Context, l *ledger.Ledger, date trade.QueueDate, opts DashboardOptions) (DashboardState, error) {
	opts = opts.withDefaults()
	balanceF := l.Customers.SelectAllInfoWithBalance(ctx)
	debtF := l.Customers.SelectAllInfoWithDebt(ctx)
	queuesF := selectQueues(ctx, l.Queues, date)

	withBalance, err := balanceF.Await(ctx)
	if err != nil {
		return DashboardState{}, err
	}
	withDebt, err := debtF.Await(ctx)
	if err != nil {
		return DashboardState{}, err
	}
	queues, err := queuesF.Await(ctx)
	if err != nil {
		return DashboardState{}, err
	}
	return opts.build(date, withBalance, withDebt, queues), nil
}

func (o DashboardOptions) withDefaults() DashboardOptions {
	if o.Clock == nil {
		o.Clock = shared.NewSystemClock(nil)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o DashboardOptions) build(date trade.QueueDate, withBalance []partner.CustomerBalanceInfo, withDebt []partner.CustomerDebtInfo, queues []trade.Queue) DashboardState {
	state := DashboardState{
		Date:                 date,
		CustomersWithBalance: withBalance,
		CustomersWithDebt:    withDebt,
		TotalDebt:            decimal.Zero,
		Queues:               make([]trade.QueueWithProductOrdersInfo, len(queues)),
		Summary:              report.NewSummary(queues),
	}
	for _, c := range withBalance {
		state.TotalBalance += c.Balance
	}
	for _, c := range withDebt {
		state.TotalDebt = state.TotalDebt.Add(c.Debt)
	}
	for i, q := range queues {
		state.Queues[i] = q.Info()
	}

	loc := o.Clock.Location()
	yearStart := trade.MustQueueDate(trade.QueueDateThisYear, o.Clock).Start
	start, end := chartSpan(date, queues, yearStart)
	rev, err := buildRevenue(queues, start, end, o)
	if err != nil {
		o.Logger.Warn("failed to build revenue chart", zap.Error(err))
	}
	state.Revenue = rev
	chart, err := buildQueueCountChart(queues, start, end, loc)
	if err != nil {
		o.Logger.Warn("failed to build queue chart", zap.Error(err))
	}
	state.QueuesChart = chart
	return state
}

// selectQueues loads the queues dated within date. ALL_TIME has no bounds,
// so it includes queues dated after today.
func selectQueues(ctx context.Context, queues *ledger.QueueRepository, date trade.QueueDate) *async.Future[[]trade.Queue] {
	if date.IsAllTime() {
		return queues.SelectAll(ctx)
	}
	return queues.SelectAllInRange(ctx, date.Start, date.End)
}

// reloadQueues runs on the owner
func (d *Dashboard) reloadQueues(ctx context.Context) {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	date := d.date
	d.mu.Unlock()

	selectQueues(ctx, d.queues, date).Then(func(queues []trade.Queue, err error) {
		if err != nil {
			d.logger.Warn("failed to load queues", zap.String("range", string(date.Range)), zap.Error(err))
			return
		}
		d.mu.RLock()
		stale := gen != d.generation
		d.mu.RUnlock()
		if stale {
			return
		}
		d.mutate(func() { d.queueList = queues })
	})
}

func (d *Dashboard) onCustomerChange(change shared.Change[partner.Customer]) {
	balanceSync := ledger.Synchronizer[partner.CustomerBalanceInfo]{Keep: partner.CustomerBalanceInfo.HasBalance}
	infos := make([]partner.CustomerBalanceInfo, len(change.Models))
	for i, c := range change.Models {
		infos[i] = c.BalanceInfo()
	}

	d.mutate(func() {
		d.withBalance = balanceSync.Apply(d.withBalance, change.Kind, infos)
		if change.Kind == shared.ChangeDeleted {
			debts := make([]partner.CustomerDebtInfo, len(change.Models))
			for i, c := range change.Models {
				debts[i] = c.DebtInfo()
			}
			d.withDebt = ledger.Synchronizer[partner.CustomerDebtInfo]{}.Apply(d.withDebt, shared.ChangeDeleted, debts)
		}
		for i, q := range d.queueList {
			if j := slices.IndexFunc(change.Models, func(c partner.Customer) bool { return c.ID == q.CustomerID }); j >= 0 {
				q = q.Clone()
				if change.Kind == shared.ChangeDeleted {
					q.CustomerID, q.Customer = 0, nil
				} else {
					c := change.Models[j]
					q.Customer = &c
				}
				d.queueList[i] = q
			}
		}
	})

	if change.Kind == shared.ChangeDeleted {
		return
	}
	for _, c := range change.Models {
		d.refreshDebt(c.ID)
	}
}

// refreshDebt re-queries the total debt of a customer
func (d *Dashboard) refreshDebt(id int64) {
	debtSync := ledger.Synchronizer[partner.CustomerDebtInfo]{Keep: partner.CustomerDebtInfo.HasDebt}
	d.customers.TotalDebtByID(context.Background(), id).Then(func(debt decimal.Decimal, err error) {
		if err != nil {
			d.logger.Warn("failed to load customer debt", zap.Int64("customer_id", id), zap.Error(err))
			return
		}
		info := partner.CustomerDebtInfo{ID: id, Debt: debt}
		d.mutate(func() {
			d.withDebt = debtSync.Apply(d.withDebt, shared.ChangeUpdated, []partner.CustomerDebtInfo{info})
		})
	})
}

func (d *Dashboard) onQueueChange(change shared.Change[trade.Queue]) {
	d.mutate(func() {
		date := d.date
		queueSync := ledger.Synchronizer[trade.Queue]{Keep: func(q trade.Queue) bool { return date.Contains(q.Date) }}
		d.queueList = queueSync.Apply(d.queueList, change.Kind, change.Models)
	})
}

// mutate applies fn under the lock, then publishes the new state
func (d *Dashboard) mutate(fn func()) {
	d.mu.Lock()
	fn()
	subs := make([]func(DashboardState), 0, len(d.subscribers))
	for _, id := range slices.Sorted(maps.Keys(d.subscribers)) {
		subs = append(subs, d.subscribers[id])
	}
	d.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	state := d.State()
	for _, fn := range subs {
		fn(state)
	}
}
