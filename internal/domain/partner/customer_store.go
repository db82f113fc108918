package partner

import (
	"context"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerStore defines the persistence capabilities for customers.
// Customers returned by the store carry their derived debt.
type CustomerStore interface {
	shared.Store[Customer]
	shared.Searcher[Customer]

	// SelectAllInfoWithBalance lists customers whose balance is positive
	SelectAllInfoWithBalance(ctx context.Context) ([]CustomerBalanceInfo, error)
	// SelectAllInfoWithDebt lists customers whose debt is negative
	SelectAllInfoWithDebt(ctx context.Context) ([]CustomerDebtInfo, error)
	// TotalDebtByID returns the negated sum of the customer's unpaid queues
	TotalDebtByID(ctx context.Context, id int64) (decimal.Decimal, error)
	// AddBalance adds delta to the stored balance in one statement. It
	// affects no row when the customer is missing or the result would fall
	// outside 0..MaxUnit.
	AddBalance(ctx context.Context, id, delta int64) (int64, error)
}
