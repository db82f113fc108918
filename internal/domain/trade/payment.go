package trade

import (
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// settlesWithBalance reports whether q draws from the customer's balance
func settlesWithBalance(q Queue) bool {
	return q.Status == QueueStatusCompleted && q.PaymentMethod == PaymentMethodAccountBalance
}

// belongsTo reports whether q references the saved customer c
func belongsTo(c partner.Customer, q Queue) bool {
	return c.ID != 0 && c.ID == q.CustomerID
}

// IsBalanceSufficient reports whether c can pay newQueue from its balance.
// When editing, oldQueue is the persisted version: if it was already paid
// from the same customer's balance, that payment is refunded first so an
// already-paid queue stays payable on re-open.
func IsBalanceSufficient(c partner.Customer, oldQueue *Queue, newQueue Queue) bool {
	if !belongsTo(c, newQueue) {
		return false
	}
	original := decimal.NewFromInt(c.Balance)
	if oldQueue != nil && belongsTo(c, *oldQueue) && settlesWithBalance(*oldQueue) {
		original = original.Add(oldQueue.GrandTotal())
	}
	return !original.Sub(newQueue.GrandTotal()).IsNegative()
}

// BalanceOnMadePayment returns c's balance after q is first saved.
func BalanceOnMadePayment(c partner.Customer, q Queue) int64 {
	balance := decimal.NewFromInt(c.Balance)
	if belongsTo(c, q) && settlesWithBalance(q) && balance.GreaterThanOrEqual(q.GrandTotal()) {
		return balance.Sub(q.GrandTotal()).IntPart()
	}
	return c.Balance
}

// BalanceOnUpdatedPayment returns c's balance after oldQueue is replaced by
// newQueue. c must be the customer referenced by newQueue; the customer of
// oldQueue, when different, is handled by BalanceOnRevertedPayment.
func BalanceOnUpdatedPayment(c partner.Customer, oldQueue, newQueue Queue) int64 {
	if !belongsTo(c, newQueue) {
		return c.Balance
	}
	balance := decimal.NewFromInt(c.Balance)
	oldTotal := oldQueue.GrandTotal()
	newTotal := newQueue.GrandTotal()

	isPaidWithBalance := settlesWithBalance(newQueue)
	isCash := newQueue.PaymentMethod == PaymentMethodCash
	isTotalChanged := !oldTotal.Equal(newTotal)
	wasCompleted := oldQueue.Status == QueueStatusCompleted
	wasAccountBalance := oldQueue.PaymentMethod == PaymentMethodAccountBalance
	oldHasCustomer := oldQueue.HasCustomer()
	// Switching means a saved customer replaced by another saved customer.
	isSwitched := oldQueue.HasCustomer() && c.ID != oldQueue.CustomerID

	if isPaidWithBalance {
		if isTotalChanged && wasAccountBalance && wasCompleted && oldHasCustomer && !isSwitched {
			// Still paid from the same balance: only charge the difference.
			return balance.Add(oldTotal).Sub(newTotal).IntPart()
		}
		if isSwitched || isTotalChanged || !oldHasCustomer || !wasCompleted || !wasAccountBalance {
			return balance.Sub(newTotal).IntPart()
		}
		return c.Balance
	}

	if oldHasCustomer && wasAccountBalance && wasCompleted && !isSwitched &&
		((newQueue.PaymentMethod == PaymentMethodAccountBalance && newQueue.Status != QueueStatusCompleted) || isCash) {
		return balance.Add(oldTotal).IntPart()
	}
	return c.Balance
}

// BalanceOnRevertedPayment returns c's balance after q is removed, or after
// c stops being q's customer.
func BalanceOnRevertedPayment(c partner.Customer, q Queue) int64 {
	if belongsTo(c, q) && settlesWithBalance(q) {
		return decimal.NewFromInt(c.Balance).Add(q.GrandTotal()).IntPart()
	}
	return c.Balance
}

// DebtOnMadePayment returns c's debt after q is first saved
func DebtOnMadePayment(c partner.Customer, q Queue) decimal.Decimal {
	if belongsTo(c, q) && q.Status == QueueStatusUnpaid {
		return c.Debt.Sub(q.GrandTotal())
	}
	return c.Debt
}

// DebtOnUpdatedPayment returns c's debt after oldQueue is replaced by newQueue
func DebtOnUpdatedPayment(c partner.Customer, oldQueue, newQueue Queue) decimal.Decimal {
	if !belongsTo(c, newQueue) {
		return c.Debt
	}
	isUnpaid := newQueue.Status == QueueStatusUnpaid
	wasUnpaid := oldQueue.Status == QueueStatusUnpaid
	isTotalChanged := !oldQueue.GrandTotal().Equal(newQueue.GrandTotal())
	isCustomerChanged := c.ID != oldQueue.CustomerID

	switch {
	case !isUnpaid && wasUnpaid && (!isCustomerChanged || isTotalChanged):
		return c.Debt.Add(oldQueue.GrandTotal())
	case isUnpaid && (!wasUnpaid || isCustomerChanged):
		return c.Debt.Sub(newQueue.GrandTotal())
	case isUnpaid && isTotalChanged:
		return c.Debt.Add(oldQueue.GrandTotal()).Sub(newQueue.GrandTotal())
	}
	return c.Debt
}

// DebtOnRevertedPayment returns c's debt after q is removed
func DebtOnRevertedPayment(c partner.Customer, q Queue) decimal.Decimal {
	if belongsTo(c, q) && q.Status == QueueStatusUnpaid {
		return c.Debt.Add(q.GrandTotal())
	}
	return c.Debt
}

// IsPaymentMethodAllowed applies the payment-method rule: cash is always
// allowed, account balance only for a completed queue with a customer whose
// balance covers it.
func IsPaymentMethodAllowed(method PaymentMethod, status QueueStatus, customer *partner.Customer, balanceSufficient bool) bool {
	switch method {
	case PaymentMethodCash:
		return true
	case PaymentMethodAccountBalance:
		return status == QueueStatusCompleted && customer != nil && balanceSufficient
	}
	return false
}

// AllowedPaymentMethods lists the methods allowed for the inputs
func AllowedPaymentMethods(status QueueStatus, customer *partner.Customer, balanceSufficient bool) []PaymentMethod {
	methods := []PaymentMethod{PaymentMethodCash}
	if IsPaymentMethodAllowed(PaymentMethodAccountBalance, status, customer, balanceSufficient) {
		methods = append(methods, PaymentMethodAccountBalance)
	}
	return methods
}
