// Package selection holds the list-screen helpers: the debounced search
// coordinator and the multi-row selection.
package selection

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ledger/backend/internal/infrastructure/async"
	"go.uber.org/zap"
)

// DefaultSearchDelay is how long a query must stay unchanged before it runs
const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer runs the last triggered function once no new trigger arrived
// for its delay
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, dropping the previously scheduled one
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop drops the scheduled function, if any
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// SearchResult is what a search delivers. Empty is set for a blank query,
// which never reaches the search function.
type SearchResult[T any] struct {
	Query string
	Items []T
	Empty bool
	Err   error
}

// SearchFunc runs one query
type SearchFunc[T any] func(ctx context.Context, query string) *async.Future[[]T]

// SearchCoordinator debounces search queries and delivers only the result
// of the latest one. Results are delivered on the owner.
type SearchCoordinator[T any] struct {
	owner     *async.Owner
	debouncer *Debouncer
	search    SearchFunc[T]
	deliver   func(SearchResult[T])
	logger    *zap.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewSearchCoordinator creates a coordinator. A non-positive delay falls
// back to DefaultSearchDelay.
func NewSearchCoordinator[T any](owner *async.Owner, delay time.Duration, search SearchFunc[T], deliver func(SearchResult[T]), logger *zap.Logger) *SearchCoordinator[T] {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchCoordinator[T]{
		owner:     owner,
		debouncer: NewDebouncer(delay),
		search:    search,
		deliver:   deliver,
		logger:    logger.Named("search"),
	}
}

// OnSearch supersedes any pending or running search with query
func (c *SearchCoordinator[T]) OnSearch(query string) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	c.debouncer.Trigger(func() {
		c.owner.Post(func() { c.run(ctx, gen, query) })
	})
}

// Close drops any pending search
func (c *SearchCoordinator[T]) Close() {
	c.debouncer.Stop()
	c.mu.Lock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
}

// run executes on the owner
func (c *SearchCoordinator[T]) run(ctx context.Context, gen uint64, query string) {
	if !c.current(gen) {
		return
	}
	if strings.TrimSpace(query) == "" {
		c.deliver(SearchResult[T]{Query: query, Items: []T{}, Empty: true})
		return
	}
	c.search(ctx, query).Then(func(items []T, err error) {
		if !c.current(gen) {
			c.logger.Debug("stale search result dropped", zap.String("query", query))
			return
		}
		if err != nil {
			c.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		}
		c.deliver(SearchResult[T]{Query: query, Items: items, Err: err})
	})
}

func (c *SearchCoordinator[T]) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}
