package partner

import "github.com/shopspring/decimal"

// CustomerBalanceInfo is the dashboard projection of a customer holding balance.
type CustomerBalanceInfo struct {
	ID      int64 `json:"id"`
	Balance int64 `json:"balance"`
}

// ModelID returns the customer id
func (i CustomerBalanceInfo) ModelID() int64 {
	return i.ID
}

// HasBalance reports whether the projection belongs in the balance list
func (i CustomerBalanceInfo) HasBalance() bool {
	return i.Balance > 0
}

// CustomerDebtInfo is the dashboard projection of a customer owing money.
type CustomerDebtInfo struct {
	ID   int64           `json:"id"`
	Debt decimal.Decimal `json:"debt"`
}

// ModelID returns the customer id
func (i CustomerDebtInfo) ModelID() int64 {
	return i.ID
}

// HasDebt reports whether the projection belongs in the debt list
func (i CustomerDebtInfo) HasDebt() bool {
	return i.Debt.IsNegative()
}
