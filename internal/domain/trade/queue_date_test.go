package trade

import (
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueDate(t *testing.T) {
	// Wednesday
	clock := shared.FixedClock{At: time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)}

	tests := []struct {
		r     QueueDateRange
		start time.Time
		end   time.Time
	}{
		{QueueDateToday, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{QueueDateYesterday, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
		{QueueDateThisWeek, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)},
		{QueueDateThisMonth, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{QueueDateThisYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			qd, err := NewQueueDate(tt.r, clock)
			require.NoError(t, err)
			assert.True(t, tt.start.Equal(qd.Start), "start %s", qd.Start)
			assert.True(t, tt.end.Add(-time.Nanosecond).Equal(qd.End), "end %s", qd.End)
		})
	}

	t.Run("custom is not a preset", func(t *testing.T) {
		_, err := NewQueueDate(QueueDateCustom, clock)
		assert.ErrorIs(t, err, shared.ErrOutOfRange)
	})
}

func TestQueueDate_Contains(t *testing.T) {
	qd, err := NewCustomQueueDate(
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	assert.True(t, qd.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "start day is inclusive")
	assert.True(t, qd.Contains(time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC)), "end day is inclusive")
	assert.False(t, qd.Contains(time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)))
	assert.False(t, qd.Contains(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))

	all := MustQueueDate(QueueDateAllTime, shared.FixedClock{At: time.Now()})
	assert.True(t, all.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, all.IsAllTime())

	_, err = NewCustomQueueDate(time.Now(), time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, shared.ErrOutOfRange)
}
