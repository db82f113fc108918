package valueobject

import (
	"github.com/shopspring/decimal"
)

// DefaultScale is the fraction-digit count used by money division.
const DefaultScale int32 = 2

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// Divide divides a by b rounding HALF_UP at DefaultScale.
// A zero divisor yields zero.
func Divide(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, DefaultScale)
}

// RoundHalfUp rounds d half away from zero at the given scale.
func RoundHalfUp(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Round(scale)
}

// RoundDown truncates d toward zero at the given scale.
func RoundDown(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Truncate(scale)
}

// Percent returns part/whole as a percentage in [0, 100] units, HALF_UP at DefaultScale.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return Divide(part, whole).Mul(hundred)
}

// ApplyDiscount returns amount reduced by discountPercent (0-100).
func ApplyDiscount(amount, discountPercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(hundred.Sub(discountPercent)).Div(hundred)
}

// DiscountOf returns the discounted part of amount for discountPercent (0-100).
func DiscountOf(amount, discountPercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(discountPercent).Div(hundred)
}

// CeilToNearestTen rounds amount up to one significant digit, using the
// magnitude of its integer part, with a minimum result of 10.
// 7 -> 10, 237.5 -> 300, 1020 -> 2000.
func CeilToNearestTen(amount decimal.Decimal) decimal.Decimal {
	amount = decimal.Max(amount, decimal.NewFromInt(1))
	magnitude := len(amount.Truncate(0).String())
	rounding := ten.Pow(decimal.NewFromInt(int64(magnitude - 1)))
	result := amount.Div(rounding).Ceil().Mul(rounding)
	return decimal.Max(result, ten)
}

// MaxOf returns the largest value in values, or zero when empty.
func MaxOf(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Max(values[0], values[1:]...)
}

// SumOf adds all values.
func SumOf(values ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum
}
