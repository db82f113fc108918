package report

import (
	"cmp"

	"github.com/ledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

var hundred = decimal.NewFromInt(100)

// CompareKeys orders keys by length, then lexicographically, so numeric
// day keys sort as numbers ("2" before "10")
func CompareKeys(a, b string) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// PaddedMax is the top of a percentage axis whose largest value is peak:
// peak plus one percent, ceiled to one significant digit and at least ten.
// A zero peak gives one.
func PaddedMax(peak decimal.Decimal) decimal.Decimal {
	if peak.IsZero() {
		return decimal.NewFromInt(1)
	}
	return valueobject.CeilToNearestTen(peak.Add(valueobject.Divide(peak, hundred)))
}

// PeakOf returns the largest value of data, zero when none is positive
func PeakOf(data *OrderedMap[decimal.Decimal]) decimal.Decimal {
	peak := decimal.Zero
	data.Each(func(_ string, v decimal.Decimal) {
		peak = decimal.Max(peak, v)
	})
	return peak
}

// ToPercentageData rescales every value to a percentage of the PaddedMax of
// its largest value. Key order is kept unless sorted is set, which orders
// the keys with CompareKeys.
func ToPercentageData(data *OrderedMap[decimal.Decimal], sorted bool) *OrderedMap[decimal.Decimal] {
	out := ToPercentageOf(data, PaddedMax(PeakOf(data)))
	if sorted {
		out.SortKeys(CompareKeys)
	}
	return out
}

// ToPercentageOf rescales every value to a percentage of top, keeping key
// order
func ToPercentageOf(data *OrderedMap[decimal.Decimal], top decimal.Decimal) *OrderedMap[decimal.Decimal] {
	out := NewOrderedMap[decimal.Decimal]()
	data.Each(func(k string, v decimal.Decimal) {
		out.Set(k, valueobject.Divide(v, top).Mul(hundred))
	})
	return out
}

// ToPercentageDomain labels the 101 percentage ticks 0..100 of an axis
// topped at top with the amounts they stand for
func ToPercentageDomain(top decimal.Decimal, f CurrencyFormatter, lang language.Tag) []string {
	gap := valueobject.Divide(top, hundred)
	out := make([]string, 0, 101)
	for pct := int64(0); pct <= 100; pct++ {
		out = append(out, f.FormatWithUnit(decimal.NewFromInt(pct).Mul(gap), lang))
	}
	return out
}

// linearTop is the top of a nice axis of the given ticks covering peak, at
// least one
func linearTop(peak decimal.Decimal, ticks int) (decimal.Decimal, error) {
	top, err := valueobject.CeilToNearestNiceNumber(peak, ticks)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Max(top, decimal.NewFromInt(1)), nil
}

// ToPercentageLinear places value on a 0..100 axis whose top is the nice
// ceiling of peak
func ToPercentageLinear(value, peak decimal.Decimal, ticks int) (float64, error) {
	top, err := linearTop(peak, ticks)
	if err != nil {
		return 0, err
	}
	pct, _ := valueobject.Divide(value, top).Mul(hundred).Float64()
	return pct, nil
}

// ToPercentageLinearDomain labels the ticks of the axis built by
// ToPercentageLinear
func ToPercentageLinearDomain(peak decimal.Decimal, ticks int, f CurrencyFormatter, lang language.Tag) ([]string, error) {
	top, err := linearTop(peak, ticks)
	if err != nil {
		return nil, err
	}
	return ToPercentageDomain(top, f, lang), nil
}
