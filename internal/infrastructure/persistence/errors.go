package persistence

import (
	"context"
	"errors"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// mapError converts a gorm or sqlite error into a shared.StoreError.
// Errors that already are StoreErrors pass through.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *shared.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return shared.NewStoreError(shared.StoreIO, op, err)
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewStoreError(shared.StoreConflict, op, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.NewStoreError(shared.StoreConstraint, op, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				return shared.NewStoreError(shared.StoreConflict, op, err)
			}
			return shared.NewStoreError(shared.StoreConstraint, op, err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return shared.NewStoreError(shared.StoreConflict, op, err)
		}
	}

	return shared.NewStoreError(shared.StoreIO, op, err)
}
