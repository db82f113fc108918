package partner

import (
	"math"
	"strings"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MaxUnit is the largest balance a customer can hold.
const MaxUnit int64 = math.MaxInt64

// Customer is an account that may hold a prepaid balance and accrue debt
// through unpaid queues. Debt is never stored: it is derived from the
// customer's UNPAID queues and is always zero or negative.
type Customer struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Balance int64           `json:"balance"`
	Debt    decimal.Decimal `json:"debt"`
}

// NewCustomer creates a draft customer after validating its fields
func NewCustomer(name string, balance int64) (*Customer, error) {
	c := &Customer{
		Name:    strings.TrimSpace(name),
		Balance: balance,
		Debt:    decimal.Zero,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the customer invariants
func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewDomainError(shared.CodeEmptyName, "Customer name cannot be empty")
	}
	if c.Balance < 0 {
		return shared.NewDomainError(shared.CodeOutOfRange, "Customer balance cannot be negative")
	}
	if c.Debt.IsPositive() {
		return shared.NewDomainError(shared.CodeOutOfRange, "Customer debt cannot be positive")
	}
	return nil
}

// ModelID returns the logical id
func (c Customer) ModelID() int64 {
	return c.ID
}

// WithID returns a copy of the customer carrying id
func (c Customer) WithID(id int64) Customer {
	c.ID = id
	return c
}

// Deposit returns the balance after adding amount.
func (c Customer) Deposit(amount int64) (int64, error) {
	if amount < 0 {
		return c.Balance, shared.NewDomainError(shared.CodeOutOfRange, "Deposit amount cannot be negative")
	}
	if amount > MaxUnit-c.Balance {
		return c.Balance, shared.NewDomainError(shared.CodeOutOfRange, "Balance would exceed the maximum allowed")
	}
	return c.Balance + amount, nil
}

// Withdraw returns the balance after taking amount out.
func (c Customer) Withdraw(amount int64) (int64, error) {
	if amount < 0 {
		return c.Balance, shared.NewDomainError(shared.CodeOutOfRange, "Withdraw amount cannot be negative")
	}
	if amount > c.Balance {
		return c.Balance, shared.NewDomainError(shared.CodeOutOfRange, "Insufficient balance to withdraw")
	}
	return c.Balance - amount, nil
}

// BalanceInfo projects the customer into a balance entry
func (c Customer) BalanceInfo() CustomerBalanceInfo {
	return CustomerBalanceInfo{ID: c.ID, Balance: c.Balance}
}

// DebtInfo projects the customer into a debt entry
func (c Customer) DebtInfo() CustomerDebtInfo {
	return CustomerDebtInfo{ID: c.ID, Debt: c.Debt}
}
