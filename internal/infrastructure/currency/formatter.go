// Package currency formats and parses money amounts for a locale. Amounts
// are decimal values in the locale currency's major unit.
package currency

import (
	"strings"
	"sync"
	"unicode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Units are the suffixes FormatWithUnit appends for thousands, millions,
// billions and trillions
type Units struct {
	Thousand string
	Million  string
	Billion  string
	Trillion string
}

// DefaultUnits are the English short scale suffixes
var DefaultUnits = Units{Thousand: "K", Million: "M", Billion: "B", Trillion: "T"}

var (
	thousand = decimal.New(1, 3)
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
	trillion = decimal.New(1, 12)
)

// suffixSymbolLanguages place the currency symbol after the amount,
// separated by a no-break space
var suffixSymbolLanguages = map[language.Base]bool{}

func init() {
	for _, tag := range []language.Tag{
		language.French, language.German, language.Spanish, language.Italian,
		language.Dutch, language.Polish, language.Russian, language.Czech,
		language.Swedish, language.Finnish, language.Danish, language.Norwegian,
		language.Vietnamese, language.Turkish,
	} {
		base, _ := tag.Base()
		suffixSymbolLanguages[base] = true
	}
}

// locale is the resolved formatting data of one language tag
type locale struct {
	tag              language.Tag
	unit             currency.Unit
	symbol           string
	fractionDigits   int32
	decimalSeparator string
	symbolAtEnd      bool
}

// Formatter formats amounts in the currency of the requested language
type Formatter struct {
	units  Units
	logger *zap.Logger

	locales sync.Map // language.Tag -> *locale
}

// NewFormatter creates a Formatter using DefaultUnits
func NewFormatter(logger *zap.Logger) *Formatter {
	return NewFormatterWithUnits(DefaultUnits, logger)
}

// NewFormatterWithUnits creates a Formatter with custom unit suffixes
func NewFormatterWithUnits(units Units, logger *zap.Logger) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Formatter{units: units, logger: logger.Named("currency")}
}

func (f *Formatter) locale(tag language.Tag) *locale {
	if l, ok := f.locales.Load(tag); ok {
		return l.(*locale)
	}
	unit, _ := currency.FromTag(tag)
	scale, _ := currency.Standard.Rounding(unit)
	p := message.NewPrinter(tag)
	sample := p.Sprint(number.Decimal(1.5, number.MinFractionDigits(1)))
	sep := strings.TrimFunc(sample, unicode.IsDigit)
	if sep == "" {
		sep = "."
	}
	base, _ := tag.Base()
	l := &locale{
		tag:              tag,
		unit:             unit,
		symbol:           p.Sprint(currency.Symbol(unit)),
		fractionDigits:   int32(scale),
		decimalSeparator: sep,
		symbolAtEnd:      suffixSymbolLanguages[base],
	}
	actual, _ := f.locales.LoadOrStore(tag, l)
	return actual.(*locale)
}

// Format renders amount with the locale's grouping and currency symbol.
// Fraction digits beyond the currency's are truncated and trailing zeros
// dropped, so 10000.50 in en-US is "$10,000.5".
func (f *Formatter) Format(amount decimal.Decimal, tag language.Tag) string {
	return f.format(amount, f.locale(tag), "")
}

// FormatWithUnit abbreviates amounts of a thousand and more to one
// fraction digit followed by K, M, B or T. Digits are truncated, never
// rounded: 1555 is "$1.5K".
func (f *Formatter) FormatWithUnit(amount decimal.Decimal, tag language.Tag) string {
	l := f.locale(tag)
	abs := amount.Abs()
	var divisor decimal.Decimal
	var suffix string
	switch {
	case abs.LessThan(thousand):
		return f.format(amount, l, "")
	case abs.LessThan(million):
		divisor, suffix = thousand, f.units.Thousand
	case abs.LessThan(billion):
		divisor, suffix = million, f.units.Million
	case abs.LessThan(trillion):
		divisor, suffix = billion, f.units.Billion
	default:
		divisor, suffix = trillion, f.units.Trillion
	}
	scaled := abs.DivRound(divisor, 8).RoundDown(1)
	if amount.IsNegative() {
		scaled = scaled.Neg()
	}
	return f.format(scaled, l, suffix)
}

func (f *Formatter) format(amount decimal.Decimal, l *locale, suffix string) string {
	truncated := amount.Abs().RoundDown(l.fractionDigits)
	value, _ := truncated.Float64()
	digits := message.NewPrinter(l.tag).Sprint(number.Decimal(value, number.MaxFractionDigits(int(l.fractionDigits))))

	var b strings.Builder
	if amount.IsNegative() && !truncated.IsZero() {
		b.WriteString("-")
	}
	if l.symbolAtEnd {
		b.WriteString(digits)
		b.WriteString("\u00a0")
		b.WriteString(l.symbol)
	} else {
		b.WriteString(l.symbol)
		b.WriteString(digits)
	}
	b.WriteString(suffix)
	return b.String()
}

// Parse reads an amount typed or formatted for the locale. Everything but
// digits, the minus sign and the decimal separator is ignored. Text that
// does not hold a valid amount parses to zero.
func (f *Formatter) Parse(text string, tag language.Tag) decimal.Decimal {
	l := f.locale(tag)
	cleaned, ok := clean(text, l)
	if !ok {
		f.logger.Debug("unparsable amount", zap.String("text", text), zap.String("language", tag.String()))
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		f.logger.Warn("unparsable amount", zap.String("text", text), zap.Error(err))
		return decimal.Zero
	}
	return d
}

// IsValid reports whether Parse would read an actual amount from text
func (f *Formatter) IsValid(text string, tag language.Tag) bool {
	_, ok := clean(text, f.locale(tag))
	return ok
}

// clean keeps digits, the minus sign and the decimal separator, and
// rewrites the result in the form decimal.NewFromString accepts
func clean(text string, l *locale) (string, bool) {
	var b strings.Builder
	digits, fraction, separators, minus := 0, 0, 0, 0
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			digits++
			if separators > 0 {
				fraction++
			}
		case r == '-':
			if b.Len() > 0 {
				return "", false
			}
			b.WriteRune(r)
			minus++
		case string(r) == l.decimalSeparator:
			b.WriteRune('.')
			separators++
		}
	}
	if digits == 0 || separators > 1 || minus > 1 || fraction > int(l.fractionDigits) {
		return "", false
	}
	s := b.String()
	if strings.HasPrefix(s, "-.") {
		s = "-0" + s[1:]
	} else if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	return strings.TrimSuffix(s, "."), true
}

// DecimalSeparator returns the locale's decimal separator
func (f *Formatter) DecimalSeparator(tag language.Tag) string {
	return f.locale(tag).decimalSeparator
}

// Symbol returns the locale currency's symbol
func (f *Formatter) Symbol(tag language.Tag) string {
	return f.locale(tag).symbol
}

// FractionDigits returns the number of minor-unit digits of the locale's
// currency
func (f *Formatter) FractionDigits(tag language.Tag) int32 {
	return f.locale(tag).fractionDigits
}

// ToCents scales amount to the currency's minor unit
func (f *Formatter) ToCents(amount decimal.Decimal, tag language.Tag) decimal.Decimal {
	return amount.Shift(f.FractionDigits(tag))
}

// FromCents scales a minor-unit amount back to the major unit, truncating
// any digits the currency cannot hold
func (f *Formatter) FromCents(cents decimal.Decimal, tag language.Tag) decimal.Decimal {
	digits := f.FractionDigits(tag)
	return cents.Shift(-digits).RoundDown(digits)
}
