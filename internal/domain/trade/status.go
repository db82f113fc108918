package trade

import (
	"fmt"
	"strings"

	"github.com/ledger/backend/internal/domain/shared"
)

// QueueStatus is the progress of a queue. Stored as its uppercase name.
type QueueStatus string

const (
	QueueStatusInQueue   QueueStatus = "IN_QUEUE"
	QueueStatusInProcess QueueStatus = "IN_PROCESS"
	QueueStatusUnpaid    QueueStatus = "UNPAID"
	QueueStatusCompleted QueueStatus = "COMPLETED"
)

// AllQueueStatuses lists statuses in declaration order
var AllQueueStatuses = []QueueStatus{
	QueueStatusInQueue,
	QueueStatusInProcess,
	QueueStatusUnpaid,
	QueueStatusCompleted,
}

// UncompletedQueueStatuses lists statuses that still need attention
var UncompletedQueueStatuses = []QueueStatus{
	QueueStatusInQueue,
	QueueStatusInProcess,
	QueueStatusUnpaid,
}

// IsValid reports whether s is a known status
func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusInQueue, QueueStatusInProcess, QueueStatusUnpaid, QueueStatusCompleted:
		return true
	}
	return false
}

// String returns the status name
func (s QueueStatus) String() string {
	return string(s)
}

// ParseQueueStatus parses a case-insensitive status name
func ParseQueueStatus(s string) (QueueStatus, error) {
	status := QueueStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewDomainError(shared.CodeOutOfRange, fmt.Sprintf("Unknown queue status: %s", s))
	}
	return status, nil
}

// PaymentMethod is how a queue is settled. Stored as its uppercase name.
type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "CASH"
	PaymentMethodAccountBalance PaymentMethod = "ACCOUNT_BALANCE"
)

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodAccountBalance
}

// String returns the method name
func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod parses a case-insensitive payment method name
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !method.IsValid() {
		return "", shared.NewDomainError(shared.CodeOutOfRange, fmt.Sprintf("Unknown payment method: %s", s))
	}
	return method, nil
}
