package persistence

import (
	"context"
	"fmt"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductOrderStore implements trade.ProductOrderStore using GORM.
// Orders are only written for an existing queue; called with a context
// carrying a queue transaction, the queue may be the one being written.
type GormProductOrderStore struct {
	db *gorm.DB
}

// NewGormProductOrderStore creates a new GormProductOrderStore
func NewGormProductOrderStore(db *gorm.DB) *GormProductOrderStore {
	return &GormProductOrderStore{db: db}
}

// SelectAll lists every order by id
func (s *GormProductOrderStore) SelectAll(ctx context.Context) ([]trade.ProductOrder, error) {
	var rows []models.ProductOrderModel
	if err := conn(ctx, s.db).Order("id").Find(&rows).Error; err != nil {
		return nil, mapError("productOrder.selectAll", err)
	}
	return models.ProductOrdersToDomain(rows), nil
}

// SelectByID returns the order or nil
func (s *GormProductOrderStore) SelectByID(ctx context.Context, id int64) (*trade.ProductOrder, error) {
	return s.selectOne(ctx, "productOrder.selectById", "id = ?", id)
}

// SelectByIDs returns the orders with the given ids, ordered by id
func (s *GormProductOrderStore) SelectByIDs(ctx context.Context, ids []int64) ([]trade.ProductOrder, error) {
	if len(ids) == 0 {
		return []trade.ProductOrder{}, nil
	}
	var rows []models.ProductOrderModel
	if err := conn(ctx, s.db).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, mapError("productOrder.selectByIds", err)
	}
	return models.ProductOrdersToDomain(rows), nil
}

// SelectByRowID returns the order stored at rowID or nil
func (s *GormProductOrderStore) SelectByRowID(ctx context.Context, rowID int64) (*trade.ProductOrder, error) {
	return s.selectOne(ctx, "productOrder.selectByRowId", "rowid = ?", rowID)
}

// SelectIDByRowID maps a rowid to the logical id, 0 when absent
func (s *GormProductOrderStore) SelectIDByRowID(ctx context.Context, rowID int64) (int64, error) {
	id, err := idOfRowID(conn(ctx, s.db), "product_order", rowID)
	return id, mapError("productOrder.selectIdByRowId", err)
}

// SelectRowIDByID maps a logical id to the rowid, 0 when absent
func (s *GormProductOrderStore) SelectRowIDByID(ctx context.Context, id int64) (int64, error) {
	rowID, err := rowIDOf(conn(ctx, s.db), "product_order", id)
	return rowID, mapError("productOrder.selectRowIdById", err)
}

// IsExistsByID reports whether an order with id exists
func (s *GormProductOrderStore) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	ok, err := existsByID(conn(ctx, s.db), &models.ProductOrderModel{}, id)
	return ok, mapError("productOrder.isExistsById", err)
}

// SelectAllByQueueID lists the orders of a queue by id
func (s *GormProductOrderStore) SelectAllByQueueID(ctx context.Context, queueID int64) ([]trade.ProductOrder, error) {
	var rows []models.ProductOrderModel
	if err := conn(ctx, s.db).Where("queue_id = ?", queueID).Order("id").Find(&rows).Error; err != nil {
		return nil, mapError("productOrder.selectAllByQueueId", err)
	}
	return models.ProductOrdersToDomain(rows), nil
}

// Insert writes a new order for an existing queue
func (s *GormProductOrderStore) Insert(ctx context.Context, o trade.ProductOrder) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := requireQueue(tx, "productOrder.insert", o.QueueID); err != nil {
			return err
		}
		var err error
		rowID, err = insertOrder(tx, o)
		return err
	})
	if err != nil {
		return 0, mapError("productOrder.insert", err)
	}
	return rowID, nil
}

// Update writes an existing order
func (s *GormProductOrderStore) Update(ctx context.Context, o trade.ProductOrder) (int64, error) {
	var affected int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := requireQueue(tx, "productOrder.update", o.QueueID); err != nil {
			return err
		}
		var err error
		affected, err = updateOrder(tx, o)
		return err
	})
	if err != nil {
		return 0, mapError("productOrder.update", err)
	}
	return affected, nil
}

// Delete removes an order
func (s *GormProductOrderStore) Delete(ctx context.Context, o trade.ProductOrder) (int64, error) {
	res := conn(ctx, s.db).Delete(&models.ProductOrderModel{}, o.ID)
	if res.Error != nil {
		return 0, mapError("productOrder.delete", res.Error)
	}
	return res.RowsAffected, nil
}

// Upsert updates the order when it exists, otherwise inserts it
func (s *GormProductOrderStore) Upsert(ctx context.Context, o trade.ProductOrder) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := requireQueue(tx, "productOrder.upsert", o.QueueID); err != nil {
			return err
		}
		existing, err := rowIDOf(tx, "product_order", o.ID)
		if err != nil {
			return err
		}
		if o.ID == 0 || existing == 0 {
			rowID, err = insertOrder(tx, o)
			return err
		}
		rowID = existing
		_, err = updateOrder(tx, o)
		return err
	})
	if err != nil {
		return 0, mapError("productOrder.upsert", err)
	}
	return rowID, nil
}

func (s *GormProductOrderStore) selectOne(ctx context.Context, op, cond string, arg int64) (*trade.ProductOrder, error) {
	var rows []models.ProductOrderModel
	if err := conn(ctx, s.db).Where(cond, arg).Limit(1).Find(&rows).Error; err != nil {
		return nil, mapError(op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	o := rows[0].ToDomain()
	return &o, nil
}

func requireQueue(tx *gorm.DB, op string, queueID int64) error {
	ok, err := existsByID(tx, &models.QueueModel{}, queueID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewStoreError(shared.StoreConstraint, op,
			fmt.Errorf("queue %d does not exist", queueID))
	}
	return nil
}

func insertOrder(tx *gorm.DB, o trade.ProductOrder) (int64, error) {
	m := models.ProductOrderModelFromDomain(o)
	if err := tx.Create(m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

func updateOrder(tx *gorm.DB, o trade.ProductOrder) (int64, error) {
	m := models.ProductOrderModelFromDomain(o)
	res := tx.Model(&models.ProductOrderModel{}).Where("id = ?", o.ID).Updates(map[string]any{
		"queue_id":         m.QueueID,
		"product_id":       m.ProductID,
		"product_name":     m.ProductName,
		"product_price":    m.ProductPrice,
		"quantity":         m.Quantity,
		"discount_percent": m.DiscountPercent,
		"total_price":      m.TotalPrice,
	})
	return res.RowsAffected, res.Error
}

var _ trade.ProductOrderStore = (*GormProductOrderStore)(nil)
