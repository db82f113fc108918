package report

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ledger/backend/internal/domain/report"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// YAxisTicks is the tick count of every dashboard chart, zero included
const YAxisTicks = 6

// Revenue series names
const (
	ReceivedIncome  = "RECEIVED_INCOME"
	ProjectedIncome = "PROJECTED_INCOME"
)

// Revenue is the income of the queues in the dashboard range
type Revenue struct {
	Received  decimal.Decimal   `json:"received"`
	Projected decimal.Decimal   `json:"projected"`
	Chart     report.ChartModel `json:"chart"`
}

// chartSpan is the date range a chart covers. ALL_TIME starts at the
// oldest queue, or at the start of this year when there is none, and ends
// today or at the newest queue, whichever is later.
func chartSpan(date trade.QueueDate, queues []trade.Queue, yearStart time.Time) (time.Time, time.Time) {
	if !date.IsAllTime() {
		return date.Start, date.End
	}
	if len(queues) == 0 {
		return yearStart, date.End
	}
	cmpDate := func(a, b trade.Queue) int { return a.Date.Compare(b.Date) }
	oldest := slices.MinFunc(queues, cmpDate)
	newest := slices.MaxFunc(queues, cmpDate)
	end := date.End
	if newest.Date.After(end) {
		end = newest.Date
	}
	return oldest.Date, end
}

// ChartScale picks how revenue amounts map onto the 0..100 chart axis
type ChartScale string

const (
	// ScaleLinear tops the axis at the nice ceiling of the peak on
	// YAxisTicks ticks
	ScaleLinear ChartScale = "LINEAR"
	// ScalePadded tops the axis at the peak plus one percent, ceiled to
	// one significant digit
	ScalePadded ChartScale = "PADDED"
)

// ParseChartScale reads a scale name, case insensitive. Empty is linear.
func ParseChartScale(s string) (ChartScale, error) {
	switch scale := ChartScale(strings.ToUpper(s)); scale {
	case "", ScaleLinear:
		return ScaleLinear, nil
	case ScalePadded:
		return scale, nil
	}
	return "", shared.NewDomainError(shared.CodeOutOfRange, "Unknown chart scale: "+s)
}

// buildRevenue sums received income from completed queues and projected
// income from every queue, and charts both per date bucket. Every bucket of
// start..end is charted, projected before received.
func buildRevenue(queues []trade.Queue, start, end time.Time, o DashboardOptions) (Revenue, error) {
	rev := Revenue{Received: decimal.Zero, Projected: decimal.Zero}
	receivedRaw := make(map[time.Time]decimal.Decimal)
	projectedRaw := make(map[time.Time]decimal.Decimal)
	for _, q := range queues {
		total := q.GrandTotal()
		if q.Status == trade.QueueStatusCompleted {
			rev.Received = rev.Received.Add(total)
			receivedRaw[q.Date] = receivedRaw[q.Date].Add(total)
		}
		rev.Projected = rev.Projected.Add(total)
		projectedRaw[q.Date] = projectedRaw[q.Date].Add(total)
	}

	loc := o.Clock.Location()
	received := report.ToDateTimeData(receivedRaw, start, end, loc)
	projected := report.ToDateTimeData(projectedRaw, start, end, loc)

	// received never exceeds projected in a bucket, so both series share
	// the projected top
	var receivedPct, projectedPct *report.OrderedMap[decimal.Decimal]
	var yDomain []string
	switch o.Scale {
	case ScalePadded:
		top := report.PaddedMax(report.PeakOf(projected))
		projectedPct = report.ToPercentageData(projected, false)
		receivedPct = report.ToPercentageOf(received, top)
		yDomain = report.ToPercentageDomain(top, o.Formatter, o.Language)
	default:
		peak := decimal.Max(decimal.NewFromInt(YAxisTicks-1), report.PeakOf(projected))
		var err error
		if yDomain, err = report.ToPercentageLinearDomain(peak, YAxisTicks, o.Formatter, o.Language); err != nil {
			return Revenue{}, err
		}
		if projectedPct, err = linearPercentages(projected, peak); err != nil {
			return Revenue{}, err
		}
		if receivedPct, err = linearPercentages(received, peak); err != nil {
			return Revenue{}, err
		}
	}

	rev.Chart = report.ChartModel{
		XAxisDomain: projected.Keys(),
		YAxisDomain: yDomain,
		Data:        make([]report.ChartPoint, 0, 2*projected.Len()),
	}
	projectedPct.Each(func(key string, v decimal.Decimal) {
		r, _ := receivedPct.Get(key)
		rev.Chart.Data = append(rev.Chart.Data,
			report.ChartPoint{Key: key, Value: v.InexactFloat64(), Group: ProjectedIncome},
			report.ChartPoint{Key: key, Value: r.InexactFloat64(), Group: ReceivedIncome},
		)
	})
	return rev, nil
}

func linearPercentages(data *report.OrderedMap[decimal.Decimal], peak decimal.Decimal) (*report.OrderedMap[decimal.Decimal], error) {
	out := report.NewOrderedMap[decimal.Decimal]()
	var err error
	data.Each(func(key string, v decimal.Decimal) {
		if err != nil {
			return
		}
		var pct float64
		pct, err = report.ToPercentageLinear(v, peak, YAxisTicks)
		out.Set(key, decimal.NewFromFloat(pct))
	})
	return out, err
}

// buildQueueCountChart counts queues per date bucket. The y axis runs from
// zero to the nice ceiling of the largest count.
func buildQueueCountChart(queues []trade.Queue, start, end time.Time, loc *time.Location) (report.ChartModel, error) {
	raw := make(map[time.Time]decimal.Decimal)
	for _, q := range queues {
		raw[q.Date] = raw[q.Date].Add(decimal.NewFromInt(1))
	}
	counts := report.ToDateTimeData(raw, start, end, loc)
	peak := decimal.Max(decimal.NewFromInt(YAxisTicks-1), report.PeakOf(counts))

	scale, err := valueobject.CalculateNiceScale(0, peak.InexactFloat64(), YAxisTicks)
	if err != nil {
		return report.ChartModel{}, err
	}
	chart := report.ChartModel{
		XAxisDomain: counts.Keys(),
		YAxisDomain: []string{"0", strconv.FormatFloat(scale.Max, 'f', -1, 64)},
		Data:        make([]report.ChartPoint, 0, counts.Len()),
	}
	counts.Each(func(key string, n decimal.Decimal) {
		chart.Data = append(chart.Data, report.ChartPoint{Key: key, Value: n.InexactFloat64()})
	})
	return chart, nil
}
