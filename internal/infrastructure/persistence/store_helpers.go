package persistence

import (
	"gorm.io/gorm"
)

// rowIDOf returns the rowid of the row with logical id, or 0
func rowIDOf(tx *gorm.DB, table string, id int64) (int64, error) {
	var rowIDs []int64
	if err := tx.Raw("SELECT rowid FROM "+table+" WHERE id = ?", id).Scan(&rowIDs).Error; err != nil {
		return 0, err
	}
	if len(rowIDs) == 0 {
		return 0, nil
	}
	return rowIDs[0], nil
}

// idOfRowID returns the logical id of the row at rowID, or 0
func idOfRowID(tx *gorm.DB, table string, rowID int64) (int64, error) {
	var ids []int64
	if err := tx.Raw("SELECT id FROM "+table+" WHERE rowid = ?", rowID).Scan(&ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func existsByID(tx *gorm.DB, model any, id int64) (bool, error) {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
