package report

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// CurrencyFormatter renders and reads money amounts for a language
type CurrencyFormatter interface {
	// Format renders amount with the currency symbol, rounded down to the
	// currency's fraction digits.
	Format(amount decimal.Decimal, lang language.Tag) string
	// FormatWithUnit renders amount shortened with a K, M, B or T suffix.
	FormatWithUnit(amount decimal.Decimal, lang language.Tag) string
	// Parse reads a user-entered amount. Unreadable input is zero.
	Parse(text string, lang language.Tag) decimal.Decimal
	DecimalSeparator(lang language.Tag) string
	Symbol(lang language.Tag) string
}

// ChartPoint is one bar of a chart. Group separates stacked series.
type ChartPoint struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Group string  `json:"group,omitempty"`
}

// ChartModel is everything needed to draw one chart. Values of Data are
// percentages of the y axis.
type ChartModel struct {
	XAxisDomain []string     `json:"x_axis_domain"`
	YAxisDomain []string     `json:"y_axis_domain"`
	Data        []ChartPoint `json:"data"`
}
