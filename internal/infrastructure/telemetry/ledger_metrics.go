package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics counts committed ledger changes and the value of recorded
// queues
type LedgerMetrics struct {
	changes    *Counter
	queueTotal *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	changes, err := NewCounter(meter,
		"ledger_changes_total",
		"Models broadcast by ledger repositories",
		"{models}",
	)
	if err != nil {
		return nil, err
	}
	queueTotal, err := NewHistogram(meter,
		"ledger_queue_grand_total",
		"Grand total of added queues",
		"{currency}",
		0, 10, 50, 100, 500, 1000, 5000, 10000, 50000,
	)
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{changes: changes, queueTotal: queueTotal}, nil
}

// RecordChange counts n models of entity changed with kind
func (m *LedgerMetrics) RecordChange(ctx context.Context, entity, kind string, n int) {
	m.changes.Add(ctx, int64(n), AttrEntity.String(entity), AttrChangeKind.String(kind))
}

// RecordQueue observes the grand total of one added queue
func (m *LedgerMetrics) RecordQueue(ctx context.Context, status, paymentMethod string, grandTotal float64) {
	m.queueTotal.Record(ctx, grandTotal, AttrQueueStatus.String(status), AttrPayment.String(paymentMethod))
}
