package trade

import (
	"time"

	"github.com/ledger/backend/internal/domain/shared"
)

// QueueDateRange names a preset date window.
type QueueDateRange string

const (
	QueueDateAllTime   QueueDateRange = "ALL_TIME"
	QueueDateToday     QueueDateRange = "TODAY"
	QueueDateYesterday QueueDateRange = "YESTERDAY"
	QueueDateThisWeek  QueueDateRange = "THIS_WEEK"
	QueueDateThisMonth QueueDateRange = "THIS_MONTH"
	QueueDateThisYear  QueueDateRange = "THIS_YEAR"
	QueueDateCustom    QueueDateRange = "CUSTOM"
)

// QueueDate is either ALL_TIME or a closed range of instants. Presets are
// resolved against a clock when built, so a stored QueueDate does not roll
// over at midnight.
type QueueDate struct {
	Range QueueDateRange `json:"range"`
	Start time.Time      `json:"start"`
	End   time.Time      `json:"end"`
}

// NewQueueDate resolves a preset against clock
func NewQueueDate(r QueueDateRange, clock shared.Clock) (QueueDate, error) {
	now := clock.Now()
	loc := clock.Location()
	today := startOfDay(now, loc)

	switch r {
	case QueueDateAllTime:
		return QueueDate{Range: r, Start: time.Unix(0, 0).In(loc), End: endOfDay(today)}, nil
	case QueueDateToday:
		return QueueDate{Range: r, Start: today, End: endOfDay(today)}, nil
	case QueueDateYesterday:
		y := today.AddDate(0, 0, -1)
		return QueueDate{Range: r, Start: y, End: endOfDay(y)}, nil
	case QueueDateThisWeek:
		// ISO weeks start on Monday.
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return QueueDate{Range: r, Start: start, End: endOfDay(start.AddDate(0, 0, 6))}, nil
	case QueueDateThisMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return QueueDate{Range: r, Start: start, End: endOfDay(start.AddDate(0, 1, -1))}, nil
	case QueueDateThisYear:
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return QueueDate{Range: r, Start: start, End: endOfDay(start.AddDate(1, 0, -1))}, nil
	}
	return QueueDate{}, shared.NewDomainError(shared.CodeOutOfRange, "Unknown queue date range: "+string(r))
}

// MustQueueDate is NewQueueDate for presets known to be valid
func MustQueueDate(r QueueDateRange, clock shared.Clock) QueueDate {
	qd, err := NewQueueDate(r, clock)
	if err != nil {
		panic(err)
	}
	return qd
}

// NewCustomQueueDate builds an inclusive range between start and end
func NewCustomQueueDate(start, end time.Time) (QueueDate, error) {
	if end.Before(start) {
		return QueueDate{}, shared.NewDomainError(shared.CodeOutOfRange, "Date range end is before its start")
	}
	return QueueDate{Range: QueueDateCustom, Start: start, End: end}, nil
}

// IsAllTime reports whether the range is unbounded
func (d QueueDate) IsAllTime() bool {
	return d.Range == QueueDateAllTime
}

// Contains reports whether t falls on a calendar day between the start and
// end days, both inclusive, in the zone of Start. ALL_TIME contains every
// instant.
func (d QueueDate) Contains(t time.Time) bool {
	if d.IsAllTime() {
		return true
	}
	loc := d.Start.Location()
	day := startOfDay(t, loc)
	return !day.Before(startOfDay(d.Start, loc)) && !day.After(startOfDay(d.End, loc))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
