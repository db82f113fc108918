package valueobject

import (
	"math"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// NiceScale is an axis range whose bounds are multiples of TickSpacing.
type NiceScale struct {
	Min         float64
	Max         float64
	TickSpacing float64
}

// Ticks returns the number of tick marks covering the scale, inclusive.
func (s NiceScale) Ticks() int {
	if s.TickSpacing == 0 {
		return 0
	}
	return int(math.Round((s.Max-s.Min)/s.TickSpacing)) + 1
}

// scale factors for bringing large amounts into float64 range, largest first
var scaleFactors = []decimal.Decimal{
	decimal.New(1, 12),
	decimal.New(1, 9),
	decimal.New(1, 6),
	decimal.New(1, 3),
	decimal.New(1, 2),
}

// NiceNumber returns a value in {1, 2, 5, 10}·10^k close to rng.
// With round set, the fraction is rounded to the nearest nice value,
// otherwise it is ceiled.
func NiceNumber(rng float64, round bool) float64 {
	exponent := log10Floor(rng)
	fraction := rng / pow10(exponent)

	var nice float64
	if round {
		switch {
		case fraction < 1.5:
			nice = 1
		case fraction < 3:
			nice = 2
		case fraction < 7:
			nice = 5
		default:
			nice = 10
		}
	} else {
		switch {
		case fraction <= 1:
			nice = 1
		case fraction <= 2:
			nice = 2
		case fraction <= 5:
			nice = 5
		default:
			nice = 10
		}
	}
	return nice * pow10(exponent)
}

// CalculateNiceScale computes a nice axis covering [min, max] with roughly
// the given number of ticks.
func CalculateNiceScale(min, max float64, ticks int) (NiceScale, error) {
	if ticks < 2 {
		return NiceScale{}, shared.NewDomainError(shared.CodeOutOfRange, "Ticks must be at least 2")
	}
	if min > max {
		return NiceScale{}, shared.NewDomainError(shared.CodeOutOfRange, "Minimum cannot exceed maximum")
	}
	rng := max - min
	if rng == 0 {
		rng = 1
	}
	spacing := NiceNumber(NiceNumber(rng, false)/float64(ticks-1), true)
	return NiceScale{
		Min:         math.Floor(min/spacing) * spacing,
		Max:         math.Ceil(max/spacing) * spacing,
		TickSpacing: spacing,
	}, nil
}

// CeilToNearestNiceNumber rounds amount up to the top of a nice axis with
// the given number of ticks. The amount is scaled down by the largest of
// hundred, thousand, million, billion or trillion not above it before the
// float math, then scaled back.
func CeilToNearestNiceNumber(amount decimal.Decimal, ticks int) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, shared.NewDomainError(shared.CodeOutOfRange, "Amount cannot be negative")
	}
	if ticks < 2 {
		return decimal.Zero, shared.NewDomainError(shared.CodeOutOfRange, "Ticks must be at least 2")
	}

	factor := decimal.NewFromInt(1)
	for _, f := range scaleFactors {
		if amount.GreaterThanOrEqual(f) {
			factor = f
			break
		}
	}

	scaled, _ := decimal.Max(amount, decimal.NewFromInt(1)).Div(factor).Float64()
	scale, err := CalculateNiceScale(0, scaled, ticks)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(scale.Max).Mul(factor), nil
}

// log10Floor returns ⌊log10(v)⌋ for v > 0.
func log10Floor(v float64) float64 {
	return math.Floor(math.Log10(v))
}

// pow10 returns 10^e for an integral e.
func pow10(e float64) float64 {
	return math.Pow(10, e)
}
