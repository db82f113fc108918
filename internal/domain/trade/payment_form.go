package trade

import (
	"slices"
	"time"

	"github.com/ledger/backend/internal/domain/partner"
)

// PaymentForm holds the inputs of a queue being created or edited and keeps
// its payment method within the allowed set. Whenever an input change makes
// the current method disallowed, it falls back to CASH.
type PaymentForm struct {
	initial  *Queue
	customer *partner.Customer
	draft    Queue
}

// NewPaymentForm starts a form. initial is the persisted queue when editing,
// nil when creating.
func NewPaymentForm(initial *Queue, customer *partner.Customer) *PaymentForm {
	f := &PaymentForm{customer: customer}
	if initial != nil {
		q := initial.Clone()
		f.initial = &q
		f.draft = initial.Clone()
	} else {
		f.draft = Queue{
			Status:        QueueStatusInQueue,
			PaymentMethod: PaymentMethodCash,
			Date:          time.Now(),
			ProductOrders: []ProductOrder{},
		}
	}
	if customer != nil {
		f.draft.CustomerID = customer.ID
	}
	f.reconcile()
	return f
}

// SetStatus changes the queue status
func (f *PaymentForm) SetStatus(status QueueStatus) {
	f.draft.Status = status
	f.reconcile()
}

// SetCustomer changes the customer; nil clears it
func (f *PaymentForm) SetCustomer(customer *partner.Customer) {
	f.customer = customer
	f.draft.CustomerID = 0
	if customer != nil {
		f.draft.CustomerID = customer.ID
	}
	f.reconcile()
}

// SetProductOrders replaces the order lines
func (f *PaymentForm) SetProductOrders(orders []ProductOrder) {
	f.draft.ProductOrders = slices.Clone(orders)
	f.reconcile()
}

// SetDate changes the queue date
func (f *PaymentForm) SetDate(date time.Time) {
	f.draft.Date = date
}

// SetPaymentMethod selects method when allowed and reports whether it was
// applied.
func (f *PaymentForm) SetPaymentMethod(method PaymentMethod) bool {
	if !f.isAllowed(method) {
		return false
	}
	f.draft.PaymentMethod = method
	return true
}

// PaymentMethod returns the current method
func (f *PaymentForm) PaymentMethod() PaymentMethod {
	return f.draft.PaymentMethod
}

// AllowedPaymentMethods lists the methods the current inputs allow
func (f *PaymentForm) AllowedPaymentMethods() []PaymentMethod {
	return AllowedPaymentMethods(f.draft.Status, f.customer, f.balanceSufficient())
}

// Queue returns a copy of the queue built from the form inputs
func (f *PaymentForm) Queue() Queue {
	q := f.draft.Clone()
	if f.customer != nil {
		c := *f.customer
		q.Customer = &c
	}
	return q
}

func (f *PaymentForm) balanceSufficient() bool {
	if f.customer == nil {
		return false
	}
	return IsBalanceSufficient(*f.customer, f.initial, f.draft)
}

func (f *PaymentForm) isAllowed(method PaymentMethod) bool {
	return IsPaymentMethodAllowed(method, f.draft.Status, f.customer, f.balanceSufficient())
}

func (f *PaymentForm) reconcile() {
	if !f.isAllowed(f.draft.PaymentMethod) {
		f.draft.PaymentMethod = PaymentMethodCash
	}
}
