package ledger

import (
	"context"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/event"
	"go.uber.org/zap"
)

// Runtime is the async infrastructure shared by all repositories. Futures
// resolve on Owner and broadcasts run there; store calls run on Pool.
type Runtime struct {
	Owner  *async.Owner
	Pool   *async.Pool
	Logger *zap.Logger
}

type model interface {
	shared.Identifiable
	Validate() error
}

// applied is one successful write: the latest state of the model plus
// broadcasts for other entities touched by the write, run before or after
// the model's own broadcast.
type applied[T any] struct {
	model   T
	precede func()
	follow  func()
}

// writer performs single-model writes. A nil result with a nil error
// means the write matched no row.
type writer[T any] interface {
	insert(ctx context.Context, m T) (*applied[T], error)
	update(ctx context.Context, m T) (*applied[T], error)
	remove(ctx context.Context, m T) (*applied[T], error)
	upsert(ctx context.Context, m T) (*applied[T], error)
}

// storeWriter writes straight to the store and re-reads the written row
type storeWriter[T model] struct {
	store shared.Store[T]
}

func (w storeWriter[T]) insert(ctx context.Context, m T) (*applied[T], error) {
	rowID, err := w.store.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	return reread(w.store.SelectByRowID(ctx, rowID))
}

func (w storeWriter[T]) update(ctx context.Context, m T) (*applied[T], error) {
	n, err := w.store.Update(ctx, m)
	if err != nil || n == 0 {
		return nil, err
	}
	return reread(w.store.SelectByID(ctx, m.ModelID()))
}

func (w storeWriter[T]) remove(ctx context.Context, m T) (*applied[T], error) {
	current, err := w.store.SelectByID(ctx, m.ModelID())
	if err != nil || current == nil {
		return nil, err
	}
	n, err := w.store.Delete(ctx, *current)
	if err != nil || n == 0 {
		return nil, err
	}
	return &applied[T]{model: *current}, nil
}

func (w storeWriter[T]) upsert(ctx context.Context, m T) (*applied[T], error) {
	rowID, err := w.store.Upsert(ctx, m)
	if err != nil {
		return nil, err
	}
	return reread(w.store.SelectByRowID(ctx, rowID))
}

func reread[T any](m *T, err error) (*applied[T], error) {
	if err != nil || m == nil {
		return nil, err
	}
	return &applied[T]{model: *m}, nil
}

// repository is the core every entity repository is built on. All store
// calls of one repository run on its lane, so completions and broadcasts
// keep submission order.
type repository[T model] struct {
	name   string
	store  shared.Store[T]
	writer writer[T]
	bus    *event.Bus[T]
	lane   *async.Lane
	owner  *async.Owner
	logger *zap.Logger
}

func newRepository[T model](name string, store shared.Store[T], w writer[T], bus *event.Bus[T], rt Runtime) *repository[T] {
	logger := rt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if w == nil {
		w = storeWriter[T]{store: store}
	}
	return &repository[T]{
		name:   name,
		store:  store,
		writer: w,
		bus:    bus,
		lane:   async.NewLane(name, rt.Pool, logger),
		owner:  rt.Owner,
		logger: logger.Named(name),
	}
}

// AddListener subscribes listener to this repository's changes
func (r *repository[T]) AddListener(listener shared.ChangeListener[T], kinds ...shared.ChangeKind) {
	r.bus.AddListener(listener, kinds...)
}

// RemoveListener unsubscribes listener
func (r *repository[T]) RemoveListener(listener shared.ChangeListener[T]) {
	r.bus.RemoveListener(listener)
}

// SelectAll lists every model
func (r *repository[T]) SelectAll(ctx context.Context) *async.Future[[]T] {
	return read(r, func() ([]T, error) {
		return r.store.SelectAll(ctx)
	})
}

// SelectByID resolves to the model, or nil when absent
func (r *repository[T]) SelectByID(ctx context.Context, id int64) *async.Future[*T] {
	return read(r, func() (*T, error) {
		return r.store.SelectByID(ctx, id)
	})
}

// SelectByIDs lists the models with the given ids
func (r *repository[T]) SelectByIDs(ctx context.Context, ids []int64) *async.Future[[]T] {
	return read(r, func() ([]T, error) {
		return r.store.SelectByIDs(ctx, ids)
	})
}

// IsExistsByID reports whether a model with id exists
func (r *repository[T]) IsExistsByID(ctx context.Context, id int64) *async.Future[bool] {
	return read(r, func() (bool, error) {
		return r.store.IsExistsByID(ctx, id)
	})
}

// Add inserts m and resolves to its id. Listeners get the stored row.
func (r *repository[T]) Add(ctx context.Context, m T) *async.Future[int64] {
	return r.writeOne(ctx, shared.ChangeAdded, m, r.writer.insert, appliedID[T])
}

// AddAll inserts every model. Ids are aligned with models; failed entries
// are zero.
func (r *repository[T]) AddAll(ctx context.Context, models []T) *async.Future[[]int64] {
	return r.writeAll(ctx, shared.ChangeAdded, models, r.writer.insert, appliedID[T])
}

// Update writes m and resolves to the affected row count
func (r *repository[T]) Update(ctx context.Context, m T) *async.Future[int64] {
	return r.writeOne(ctx, shared.ChangeUpdated, m, r.writer.update, appliedOne[T])
}

// UpdateAll writes every model; counts are aligned with models
func (r *repository[T]) UpdateAll(ctx context.Context, models []T) *async.Future[[]int64] {
	return r.writeAll(ctx, shared.ChangeUpdated, models, r.writer.update, appliedOne[T])
}

// Delete removes m and resolves to the affected row count. Listeners get
// the row as it was before deletion.
func (r *repository[T]) Delete(ctx context.Context, m T) *async.Future[int64] {
	return r.writeOne(ctx, shared.ChangeDeleted, m, r.writer.remove, appliedOne[T])
}

// DeleteAll removes every model; counts are aligned with models
func (r *repository[T]) DeleteAll(ctx context.Context, models []T) *async.Future[[]int64] {
	return r.writeAll(ctx, shared.ChangeDeleted, models, r.writer.remove, appliedOne[T])
}

// Upsert inserts or updates m and resolves to its id
func (r *repository[T]) Upsert(ctx context.Context, m T) *async.Future[int64] {
	return r.writeOne(ctx, shared.ChangeUpserted, m, r.writer.upsert, appliedID[T])
}

// UpsertAll upserts every model. Ids are aligned with models; failed
// entries are zero.
func (r *repository[T]) UpsertAll(ctx context.Context, models []T) *async.Future[[]int64] {
	return r.writeAll(ctx, shared.ChangeUpserted, models, r.writer.upsert, appliedID[T])
}

// read runs a query on the repository lane
func read[R any, T model](r *repository[T], query func() (R, error)) *async.Future[R] {
	return async.Run(r.lane, r.owner, query, nil)
}

func appliedID[T model](a *applied[T]) int64 {
	return a.model.ModelID()
}

func appliedOne[T model](*applied[T]) int64 {
	return 1
}

type writeOp[T any] func(ctx context.Context, m T) (*applied[T], error)

// writeOne applies op on the lane. Writes are detached from caller
// cancellation: once queued they run to completion.
func (r *repository[T]) writeOne(ctx context.Context, kind shared.ChangeKind, m T, op writeOp[T], result func(*applied[T]) int64) *async.Future[int64] {
	var done *applied[T]
	return async.Run(r.lane, r.owner, func() (int64, error) {
		a, err := r.apply(context.WithoutCancel(ctx), kind, m, op)
		if err != nil || a == nil {
			return 0, err
		}
		done = a
		return result(a), nil
	}, func(int64) {
		if done != nil {
			r.broadcast(kind, []*applied[T]{done})
		}
	})
}

// writeAll applies op to each model in turn. A failing entry is logged and
// reported as zero; the others still run. Successful writes are broadcast
// as one change.
func (r *repository[T]) writeAll(ctx context.Context, kind shared.ChangeKind, models []T, op writeOp[T], result func(*applied[T]) int64) *async.Future[[]int64] {
	var done []*applied[T]
	return async.Run(r.lane, r.owner, func() ([]int64, error) {
		ctx := context.WithoutCancel(ctx)
		out := make([]int64, len(models))
		for i, m := range models {
			a, err := r.apply(ctx, kind, m, op)
			if err != nil {
				r.logger.Warn("batch entry failed",
					zap.String("kind", kind.String()),
					zap.Int("index", i),
					zap.Int64("id", m.ModelID()),
					zap.Error(err),
				)
				continue
			}
			if a != nil {
				out[i] = result(a)
				done = append(done, a)
			}
		}
		return out, nil
	}, func([]int64) {
		r.broadcast(kind, done)
	})
}

func (r *repository[T]) apply(ctx context.Context, kind shared.ChangeKind, m T, op writeOp[T]) (*applied[T], error) {
	if kind != shared.ChangeDeleted {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	return op(ctx, m)
}

// broadcast runs on the owner after the write's future resolved
func (r *repository[T]) broadcast(kind shared.ChangeKind, done []*applied[T]) {
	if len(done) == 0 {
		return
	}
	models := make([]T, len(done))
	for i, a := range done {
		if a.precede != nil {
			a.precede()
		}
		models[i] = a.model
	}
	r.bus.Notify(kind, models...)
	for _, a := range done {
		if a.follow != nil {
			a.follow()
		}
	}
	r.logger.Debug("changes broadcast", zap.String("kind", kind.String()), zap.Int("models", len(models)))
}
