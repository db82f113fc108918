package persistence

import (
	"context"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductStore implements catalog.ProductStore using GORM. The id column
// aliases the rowid, and every write keeps product_fts in sync.
type GormProductStore struct {
	db *gorm.DB
}

// NewGormProductStore creates a new GormProductStore
func NewGormProductStore(db *gorm.DB) *GormProductStore {
	return &GormProductStore{db: db}
}

// SelectAll lists every product by id
func (s *GormProductStore) SelectAll(ctx context.Context) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := conn(ctx, s.db).Order("id").Find(&rows).Error; err != nil {
		return nil, mapError("product.selectAll", err)
	}
	return models.ProductsToDomain(rows), nil
}

// SelectByID returns the product or nil
func (s *GormProductStore) SelectByID(ctx context.Context, id int64) (*catalog.Product, error) {
	return s.selectOne(ctx, "product.selectById", "id = ?", id)
}

// SelectByIDs returns the products with the given ids, ordered by id
func (s *GormProductStore) SelectByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := conn(ctx, s.db).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, mapError("product.selectByIds", err)
	}
	return models.ProductsToDomain(rows), nil
}

// SelectByRowID returns the product stored at rowID or nil
func (s *GormProductStore) SelectByRowID(ctx context.Context, rowID int64) (*catalog.Product, error) {
	return s.selectOne(ctx, "product.selectByRowId", "rowid = ?", rowID)
}

// SelectIDByRowID maps a rowid to the logical id, 0 when absent
func (s *GormProductStore) SelectIDByRowID(ctx context.Context, rowID int64) (int64, error) {
	id, err := idOfRowID(conn(ctx, s.db), "product", rowID)
	return id, mapError("product.selectIdByRowId", err)
}

// SelectRowIDByID maps a logical id to the rowid, 0 when absent
func (s *GormProductStore) SelectRowIDByID(ctx context.Context, id int64) (int64, error) {
	rowID, err := rowIDOf(conn(ctx, s.db), "product", id)
	return rowID, mapError("product.selectRowIdById", err)
}

// IsExistsByID reports whether a product with id exists
func (s *GormProductStore) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	ok, err := existsByID(conn(ctx, s.db), &models.ProductModel{}, id)
	return ok, mapError("product.isExistsById", err)
}

// Insert writes a new product and returns its rowid
func (s *GormProductStore) Insert(ctx context.Context, p catalog.Product) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		rowID, err = s.insert(tx, p)
		return err
	})
	if err != nil {
		return 0, mapError("product.insert", err)
	}
	return rowID, nil
}

// Update writes an existing product and returns the affected row count
func (s *GormProductStore) Update(ctx context.Context, p catalog.Product) (int64, error) {
	var affected int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		affected, err = s.update(tx, p)
		return err
	})
	if err != nil {
		return 0, mapError("product.update", err)
	}
	return affected, nil
}

// Delete removes a product and returns the affected row count. Order
// snapshots referencing it keep their name and price.
func (s *GormProductStore) Delete(ctx context.Context, p catalog.Product) (int64, error) {
	var affected int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		rowID, err := rowIDOf(tx, "product", p.ID)
		if err != nil || rowID == 0 {
			return err
		}
		if err := productFts.delete(tx, rowID); err != nil {
			return err
		}
		res := tx.Delete(&models.ProductModel{}, p.ID)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, mapError("product.delete", err)
	}
	return affected, nil
}

// Upsert updates the product when it exists, otherwise inserts it
func (s *GormProductStore) Upsert(ctx context.Context, p catalog.Product) (int64, error) {
	var rowID int64
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := rowIDOf(tx, "product", p.ID)
		if err != nil {
			return err
		}
		if p.ID == 0 || existing == 0 {
			rowID, err = s.insert(tx, p)
			return err
		}
		rowID = existing
		_, err = s.update(tx, p)
		return err
	})
	if err != nil {
		return 0, mapError("product.upsert", err)
	}
	return rowID, nil
}

// Search matches every token as a word prefix of the product name
func (s *GormProductStore) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	match, ok := ftsMatch(query)
	if !ok {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	err := conn(ctx, s.db).Raw(`
		SELECT product.* FROM product
		WHERE product.rowid IN (SELECT docid FROM product_fts WHERE product_fts MATCH ?)
		ORDER BY product.name`, match).
		Scan(&rows).Error
	if err != nil {
		return nil, mapError("product.search", err)
	}
	return models.ProductsToDomain(rows), nil
}

func (s *GormProductStore) selectOne(ctx context.Context, op, cond string, arg int64) (*catalog.Product, error) {
	var rows []models.ProductModel
	if err := conn(ctx, s.db).Where(cond, arg).Limit(1).Find(&rows).Error; err != nil {
		return nil, mapError(op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].ToDomain()
	return &p, nil
}

func (s *GormProductStore) insert(tx *gorm.DB, p catalog.Product) (int64, error) {
	m := models.ProductModelFromDomain(p)
	if err := tx.Create(m).Error; err != nil {
		return 0, err
	}
	if err := productFts.insert(tx, m.ID, m.Name); err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (s *GormProductStore) update(tx *gorm.DB, p catalog.Product) (int64, error) {
	rowID, err := rowIDOf(tx, "product", p.ID)
	if err != nil || rowID == 0 {
		return 0, err
	}
	if err := productFts.delete(tx, rowID); err != nil {
		return 0, err
	}
	res := tx.Model(&models.ProductModel{}).Where("id = ?", p.ID).
		Updates(map[string]any{"name": p.Name, "price": p.Price})
	if res.Error != nil {
		return 0, res.Error
	}
	if err := productFts.insert(tx, rowID, p.Name); err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

var _ catalog.ProductStore = (*GormProductStore)(nil)
