package persistence

import (
	"context"
	"math"

	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCustomerStore implements partner.CustomerStore using GORM. Customers
// are returned with their debt derived from unpaid queues.
type GormCustomerStore struct {
	db *gorm.DB
}

// NewGormCustomerStore creates a new GormCustomerStore
func NewGormCustomerStore(db *gorm.DB) *GormCustomerStore {
	return &GormCustomerStore{db: db}
}

// SelectAll lists every customer by id
func (s *GormCustomerStore) SelectAll(ctx context.Context) ([]partner.Customer, error) {
	var rows []models.CustomerModel
	db := conn(ctx, s.db)
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, mapError("customer.selectAll", err)
	}
	out, err := withDebts(db, rows)
	return out, mapError("customer.selectAll", err)
}

// SelectByID returns the customer or nil
func (s *GormCustomerStore) SelectByID(ctx context.Context, id int64) (*partner.Customer, error) {
	return s.selectOne(ctx, "customer.selectById", "id = ?", id)
}

// SelectByIDs returns the customers with the given ids, ordered by id
func (s *GormCustomerStore) SelectByIDs(ctx context.Context, ids []int64) ([]partner.Customer, error) {
	if len(ids) == 0 {
		return []partner.Customer{}, nil
	}
	var rows []models.CustomerModel
	db := conn(ctx, s.db)
	if err := db.Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, mapError("customer.selectByIds", err)
	}
	out, err := withDebts(db, rows)
	return out, mapError("customer.selectByIds", err)
}

// SelectByRowID returns the customer stored at rowID or nil
func (s *GormCustomerStore) SelectByRowID(ctx context.Context, rowID int64) (*partner.Customer, error) {
	return s.selectOne(ctx, "customer.selectByRowId", "rowid = ?", rowID)
}

// SelectIDByRowID maps a rowid to the logical id, 0 when absent
func (s *GormCustomerStore) SelectIDByRowID(ctx context.Context, rowID int64) (int64, error) {
	id, err := idOfRowID(conn(ctx, s.db), "customer", rowID)
	return id, mapError("customer.selectIdByRowId", err)
}

// SelectRowIDByID maps a logical id to the rowid, 0 when absent
func (s *GormCustomerStore) SelectRowIDByID(ctx context.Context, id int64) (int64, error) {
	rowID, err := rowIDOf(conn(ctx, s.db), "customer", id)
	return rowID, mapError("customer.selectRowIdById", err)
}

// IsExistsByID reports whether a customer with id exists
func (s *GormCustomerStore) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	ok, err := existsByID(conn(ctx, s.db), &models.CustomerModel{}, id)
	return ok, mapError("customer.isExistsById", err)
}

// Insert writes a new customer and returns its rowid
func (s *GormCustomerStore) Insert(ctx context.Context, c partner.Customer) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		rowID, err = s.insert(tx, c)
		return err
	})
	if err != nil {
		return 0, mapError("customer.insert", err)
	}
	return rowID, nil
}

// Update writes name and balance of an existing customer
func (s *GormCustomerStore) Update(ctx context.Context, c partner.Customer) (int64, error) {
	var affected int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		affected, err = s.update(tx, c)
		return err
	})
	if err != nil {
		return 0, mapError("customer.update", err)
	}
	return affected, nil
}

// Delete removes a customer. Queues referencing it lose their customer
// through the foreign key.
func (s *GormCustomerStore) Delete(ctx context.Context, c partner.Customer) (int64, error) {
	var affected int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		rowID, err := rowIDOf(tx, "customer", c.ID)
		if err != nil || rowID == 0 {
			return err
		}
		if err := customerFts.delete(tx, rowID); err != nil {
			return err
		}
		res := tx.Delete(&models.CustomerModel{}, c.ID)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, mapError("customer.delete", err)
	}
	return affected, nil
}

// Upsert updates the customer when it exists, otherwise inserts it
func (s *GormCustomerStore) Upsert(ctx context.Context, c partner.Customer) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := rowIDOf(tx, "customer", c.ID)
		if err != nil {
			return err
		}
		if c.ID == 0 || existing == 0 {
			rowID, err = s.insert(tx, c)
			return err
		}
		rowID = existing
		_, err = s.update(tx, c)
		return err
	})
	if err != nil {
		return 0, mapError("customer.upsert", err)
	}
	return rowID, nil
}

// Search matches every token as a word prefix of the customer name
func (s *GormCustomerStore) Search(ctx context.Context, query string) ([]partner.Customer, error) {
	match, ok := ftsMatch(query)
	if !ok {
		return []partner.Customer{}, nil
	}
	var rows []models.CustomerModel
	db := conn(ctx, s.db)
	err := db.Raw(`
		SELECT customer.* FROM customer
		WHERE customer.rowid IN (SELECT docid FROM customer_fts WHERE customer_fts MATCH ?)
		ORDER BY customer.name`, match).
		Scan(&rows).Error
	if err != nil {
		return nil, mapError("customer.search", err)
	}
	out, err := withDebts(db, rows)
	return out, mapError("customer.search", err)
}

// SelectAllInfoWithBalance lists customers whose balance is positive
func (s *GormCustomerStore) SelectAllInfoWithBalance(ctx context.Context) ([]partner.CustomerBalanceInfo, error) {
	var rows []models.CustomerModel
	err := conn(ctx, s.db).Select("id", "balance").Where("balance > 0").Order("id").Find(&rows).Error
	if err != nil {
		return nil, mapError("customer.selectAllInfoWithBalance", err)
	}
	out := make([]partner.CustomerBalanceInfo, len(rows))
	for i, r := range rows {
		out[i] = partner.CustomerBalanceInfo{ID: r.ID, Balance: r.Balance}
	}
	return out, nil
}

// SelectAllInfoWithDebt lists customers whose debt is negative, by id
func (s *GormCustomerStore) SelectAllInfoWithDebt(ctx context.Context) ([]partner.CustomerDebtInfo, error) {
	var ids []int64
	db := conn(ctx, s.db)
	if err := db.Model(&models.CustomerModel{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, mapError("customer.selectAllInfoWithDebt", err)
	}
	debts, err := debtsByCustomer(db, nil)
	if err != nil {
		return nil, mapError("customer.selectAllInfoWithDebt", err)
	}
	out := make([]partner.CustomerDebtInfo, 0, len(debts))
	for _, id := range ids {
		if d, ok := debts[id]; ok && d.IsNegative() {
			out = append(out, partner.CustomerDebtInfo{ID: id, Debt: d})
		}
	}
	return out, nil
}

// TotalDebtByID returns minus the grand total of the customer's unpaid
// queues, zero when there are none
func (s *GormCustomerStore) TotalDebtByID(ctx context.Context, id int64) (decimal.Decimal, error) {
	debts, err := debtsByCustomer(conn(ctx, s.db), []int64{id})
	if err != nil {
		return decimal.Zero, mapError("customer.totalDebtById", err)
	}
	if d, ok := debts[id]; ok {
		return d, nil
	}
	return decimal.Zero, nil
}

// AddBalance adds delta to the balance unless that leaves 0..MaxUnit
func (s *GormCustomerStore) AddBalance(ctx context.Context, id, delta int64) (int64, error) {
	if delta == math.MinInt64 {
		return 0, nil
	}
	q := conn(ctx, s.db).Model(&models.CustomerModel{}).Where("id = ?", id)
	if delta >= 0 {
		q = q.Where("balance <= ?", partner.MaxUnit-delta)
	} else {
		q = q.Where("balance >= ?", -delta)
	}
	res := q.Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return 0, mapError("customer.addBalance", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormCustomerStore) selectOne(ctx context.Context, op, cond string, arg int64) (*partner.Customer, error) {
	var rows []models.CustomerModel
	db := conn(ctx, s.db)
	if err := db.Where(cond, arg).Limit(1).Find(&rows).Error; err != nil {
		return nil, mapError(op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out, err := withDebts(db, rows)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &out[0], nil
}

func (s *GormCustomerStore) insert(tx *gorm.DB, c partner.Customer) (int64, error) {
	m := models.CustomerModelFromDomain(c)
	if err := tx.Create(m).Error; err != nil {
		return 0, err
	}
	if err := customerFts.insert(tx, m.ID, m.Name); err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (s *GormCustomerStore) update(tx *gorm.DB, c partner.Customer) (int64, error) {
	rowID, err := rowIDOf(tx, "customer", c.ID)
	if err != nil || rowID == 0 {
		return 0, err
	}
	if err := customerFts.delete(tx, rowID); err != nil {
		return 0, err
	}
	res := tx.Model(&models.CustomerModel{}).Where("id = ?", c.ID).
		Updates(map[string]any{"name": c.Name, "balance": c.Balance})
	if res.Error != nil {
		return 0, res.Error
	}
	if err := customerFts.insert(tx, rowID, c.Name); err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// withDebts converts rows to customers carrying their derived debt
func withDebts(db *gorm.DB, rows []models.CustomerModel) ([]partner.Customer, error) {
	out := make([]partner.Customer, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	debts, err := debtsByCustomer(db, ids)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		debt, ok := debts[rows[i].ID]
		if !ok {
			debt = decimal.Zero
		}
		out[i] = rows[i].ToDomain(debt)
	}
	return out, nil
}

// debtsByCustomer sums the unpaid order totals per customer and negates
// them. A nil ids slice covers every customer. Totals are summed as
// decimals in Go since SQLite would sum the text column as floating point.
func debtsByCustomer(db *gorm.DB, ids []int64) (map[int64]decimal.Decimal, error) {
	debts := make(map[int64]decimal.Decimal)
	if ids != nil && len(ids) == 0 {
		return debts, nil
	}

	type unpaidRow struct {
		CustomerID int64
		TotalPrice decimal.Decimal
	}
	q := db.Table("product_order").
		Select("queue.customer_id AS customer_id, product_order.total_price AS total_price").
		Joins("JOIN queue ON queue.id = product_order.queue_id").
		Where("queue.status = ? AND queue.customer_id IS NOT NULL", trade.QueueStatusUnpaid.String())
	if ids != nil {
		q = q.Where("queue.customer_id IN ?", ids)
	}

	var rows []unpaidRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		debts[r.CustomerID] = debts[r.CustomerID].Sub(r.TotalPrice)
	}
	return debts, nil
}

var _ partner.CustomerStore = (*GormCustomerStore)(nil)
