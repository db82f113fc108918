package persistence

import (
	"context"
	"time"

	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormQueueStore implements trade.QueueStore using GORM. Queue writes
// reconcile the product_order rows in the same transaction.
type GormQueueStore struct {
	db *gorm.DB
}

// NewGormQueueStore creates a new GormQueueStore
func NewGormQueueStore(db *gorm.DB) *GormQueueStore {
	return &GormQueueStore{db: db}
}

func preloadQueue(db *gorm.DB, withCustomer bool) *gorm.DB {
	db = db.Preload("ProductOrders", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_order.id")
	})
	if withCustomer {
		db = db.Preload("Customer")
	}
	return db
}

// SelectAll lists every queue by id
func (s *GormQueueStore) SelectAll(ctx context.Context) ([]trade.Queue, error) {
	return s.find(ctx, "queue.selectAll", func(db *gorm.DB) *gorm.DB {
		return db.Order("queue.id")
	})
}

// SelectByID returns the queue or nil
func (s *GormQueueStore) SelectByID(ctx context.Context, id int64) (*trade.Queue, error) {
	return s.first(ctx, "queue.selectById", "queue.id = ?", id)
}

// SelectByIDs returns the queues with the given ids, ordered by id
func (s *GormQueueStore) SelectByIDs(ctx context.Context, ids []int64) ([]trade.Queue, error) {
	if len(ids) == 0 {
		return []trade.Queue{}, nil
	}
	return s.find(ctx, "queue.selectByIds", func(db *gorm.DB) *gorm.DB {
		return db.Where("queue.id IN ?", ids).Order("queue.id")
	})
}

// SelectByRowID returns the queue stored at rowID or nil
func (s *GormQueueStore) SelectByRowID(ctx context.Context, rowID int64) (*trade.Queue, error) {
	return s.first(ctx, "queue.selectByRowId", "queue.rowid = ?", rowID)
}

// SelectIDByRowID maps a rowid to the logical id, 0 when absent
func (s *GormQueueStore) SelectIDByRowID(ctx context.Context, rowID int64) (int64, error) {
	id, err := idOfRowID(conn(ctx, s.db), "queue", rowID)
	return id, mapError("queue.selectIdByRowId", err)
}

// SelectRowIDByID maps a logical id to the rowid, 0 when absent
func (s *GormQueueStore) SelectRowIDByID(ctx context.Context, id int64) (int64, error) {
	rowID, err := rowIDOf(conn(ctx, s.db), "queue", id)
	return rowID, mapError("queue.selectRowIdById", err)
}

// IsExistsByID reports whether a queue with id exists
func (s *GormQueueStore) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	ok, err := existsByID(conn(ctx, s.db), &models.QueueModel{}, id)
	return ok, mapError("queue.isExistsById", err)
}

// Insert writes a new queue with its orders and returns its rowid
func (s *GormQueueStore) Insert(ctx context.Context, q trade.Queue) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		rowID, err = s.insert(tx, q)
		return err
	})
	if err != nil {
		return 0, mapError("queue.insert", err)
	}
	return rowID, nil
}

// Update writes an existing queue and reconciles its orders: new orders
// are inserted, known ones updated and missing ones deleted.
func (s *GormQueueStore) Update(ctx context.Context, q trade.Queue) (int64, error) {
	var affected int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		affected, err = s.update(tx, q)
		return err
	})
	if err != nil {
		return 0, mapError("queue.update", err)
	}
	return affected, nil
}

// Delete removes a queue; its orders cascade
func (s *GormQueueStore) Delete(ctx context.Context, q trade.Queue) (int64, error) {
	res := conn(ctx, s.db).Delete(&models.QueueModel{}, q.ID)
	if res.Error != nil {
		return 0, mapError("queue.delete", res.Error)
	}
	return res.RowsAffected, nil
}

// Upsert updates the queue when it exists, otherwise inserts it
func (s *GormQueueStore) Upsert(ctx context.Context, q trade.Queue) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := rowIDOf(tx, "queue", q.ID)
		if err != nil {
			return err
		}
		if q.ID == 0 || existing == 0 {
			rowID, err = s.insert(tx, q)
			return err
		}
		rowID = existing
		_, err = s.update(tx, q)
		return err
	})
	if err != nil {
		return 0, mapError("queue.upsert", err)
	}
	return rowID, nil
}

// Search matches queues whose customer name or any ordered product name
// has a word starting with every token of query, newest first
func (s *GormQueueStore) Search(ctx context.Context, query string) ([]trade.Queue, error) {
	match, ok := ftsMatch(query)
	if !ok {
		return []trade.Queue{}, nil
	}
	return s.find(ctx, "queue.search", func(db *gorm.DB) *gorm.DB {
		return db.Where(`queue.customer_id IN (SELECT docid FROM customer_fts WHERE customer_fts MATCH ?)
			OR queue.id IN (
				SELECT product_order.queue_id FROM product_order
				WHERE product_order.product_id IN (SELECT docid FROM product_fts WHERE product_fts MATCH ?)
			)`, match, match).
			Order("queue.date DESC").Order("queue.id DESC")
	})
}

// SelectAllInRange lists queues dated within [start, end], oldest first
func (s *GormQueueStore) SelectAllInRange(ctx context.Context, start, end time.Time) ([]trade.Queue, error) {
	return s.find(ctx, "queue.selectAllInRange", func(db *gorm.DB) *gorm.DB {
		return db.Where("queue.date BETWEEN ? AND ?", models.ToMillis(start), models.ToMillis(end)).
			Order("queue.date").Order("queue.id")
	})
}

// SelectAllWithOrdersInfoInRange lists dashboard projections within [start, end]
func (s *GormQueueStore) SelectAllWithOrdersInfoInRange(ctx context.Context, start, end time.Time) ([]trade.QueueWithProductOrdersInfo, error) {
	var rows []models.QueueModel
	err := preloadQueue(conn(ctx, s.db), false).
		Where("queue.date BETWEEN ? AND ?", models.ToMillis(start), models.ToMillis(end)).
		Order("queue.date").Order("queue.id").
		Find(&rows).Error
	if err != nil {
		return nil, mapError("queue.selectAllWithOrdersInfoInRange", err)
	}
	out := make([]trade.QueueWithProductOrdersInfo, len(rows))
	for i := range rows {
		out[i] = rows[i].ToInfo()
	}
	return out, nil
}

// SelectAllIDsByCustomerID lists the ids of queues referencing a customer
func (s *GormQueueStore) SelectAllIDsByCustomerID(ctx context.Context, customerID int64) ([]int64, error) {
	ids := []int64{}
	err := conn(ctx, s.db).Model(&models.QueueModel{}).
		Where("customer_id = ?", customerID).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, mapError("queue.selectAllIdsByCustomerId", err)
	}
	return ids, nil
}

// NullifyCustomer clears customer_id on every queue referencing customerID
func (s *GormQueueStore) NullifyCustomer(ctx context.Context, customerID int64) ([]int64, error) {
	ids := []int64{}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.QueueModel{}).
			Where("customer_id = ?", customerID).Order("id").Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&models.QueueModel{}).
			Where("id IN ?", ids).Update("customer_id", gorm.Expr("NULL")).Error
	})
	if err != nil {
		return nil, mapError("queue.nullifyCustomer", err)
	}
	return ids, nil
}

func (s *GormQueueStore) find(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) ([]trade.Queue, error) {
	var rows []models.QueueModel
	db := conn(ctx, s.db)
	if err := preloadQueue(db, true).Scopes(scope).Find(&rows).Error; err != nil {
		return nil, mapError(op, err)
	}
	out, err := queuesToDomain(db, rows)
	return out, mapError(op, err)
}

func (s *GormQueueStore) first(ctx context.Context, op, cond string, arg int64) (*trade.Queue, error) {
	out, err := s.find(ctx, op, func(db *gorm.DB) *gorm.DB {
		return db.Where(cond, arg).Limit(1)
	})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

func (s *GormQueueStore) insert(tx *gorm.DB, q trade.Queue) (int64, error) {
	m := models.QueueModelFromDomain(q)
	if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
		return 0, err
	}
	for _, o := range q.ProductOrders {
		o.QueueID = m.ID
		if _, err := insertOrder(tx, o); err != nil {
			return 0, err
		}
	}
	return m.ID, nil
}

func (s *GormQueueStore) update(tx *gorm.DB, q trade.Queue) (int64, error) {
	m := models.QueueModelFromDomain(q)
	res := tx.Model(&models.QueueModel{}).Where("id = ?", q.ID).Updates(map[string]any{
		"customer_id":    m.CustomerID,
		"status":         m.Status,
		"payment_method": m.PaymentMethod,
		"date":           m.Date,
	})
	if res.Error != nil || res.RowsAffected == 0 {
		return 0, res.Error
	}

	var existing []int64
	if err := tx.Model(&models.ProductOrderModel{}).
		Where("queue_id = ?", q.ID).Pluck("id", &existing).Error; err != nil {
		return 0, err
	}
	stale := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		stale[id] = struct{}{}
	}

	for _, o := range q.ProductOrders {
		o.QueueID = q.ID
		if _, ok := stale[o.ID]; ok {
			delete(stale, o.ID)
			if _, err := updateOrder(tx, o); err != nil {
				return 0, err
			}
			continue
		}
		o.ID = 0
		if _, err := insertOrder(tx, o); err != nil {
			return 0, err
		}
	}

	if len(stale) > 0 {
		ids := make([]int64, 0, len(stale))
		for id := range stale {
			ids = append(ids, id)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.ProductOrderModel{}).Error; err != nil {
			return 0, err
		}
	}
	return res.RowsAffected, nil
}

// queuesToDomain converts rows, filling the debt of joined customers
func queuesToDomain(db *gorm.DB, rows []models.QueueModel) ([]trade.Queue, error) {
	out := make([]trade.Queue, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	customerIDs := []int64{}
	seen := make(map[int64]bool)
	for _, r := range rows {
		if r.Customer != nil && !seen[r.Customer.ID] {
			seen[r.Customer.ID] = true
			customerIDs = append(customerIDs, r.Customer.ID)
		}
	}
	debts, err := debtsByCustomer(db, customerIDs)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[i] = rows[i].ToDomain(debts)
	}
	return out, nil
}

var _ trade.QueueStore = (*GormQueueStore)(nil)
