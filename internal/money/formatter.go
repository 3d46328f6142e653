// Package money formats currency amounts for invoice display.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders an amount in a currency as display text.
type Formatter interface {
	Format(amount float64, currencyCode string) string
}

// Locales used by the invoice templates.
const (
	LocaleUS    = "en-US"
	LocaleIndia = "en-IN"
)

// LocaleFormatter formats amounts with CLDR grouping rules for a locale and
// the narrow currency symbol, e.g. "$1,234.50" or "₹1,23,456.00".
type LocaleFormatter struct {
	tag language.Tag
}

// NewLocaleFormatter returns a formatter for a BCP 47 locale. Unparseable
// locales fall back to en-US.
func NewLocaleFormatter(locale string) *LocaleFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &LocaleFormatter{tag: tag}
}

// Locale returns the formatter's language tag as a string.
func (f *LocaleFormatter) Locale() string {
	return f.tag.String()
}

// Format never panics. Unknown or malformed currency codes produce the plain
// "<CODE> <amount>" fallback.
func (f *LocaleFormatter) Format(amount float64, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return Fallback(amount, code)
	}

	rounded := Round(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}

	p := message.NewPrinter(f.tag)
	symbol := p.Sprint(currency.NarrowSymbol(unit))
	digits := p.Sprint(number.Decimal(rounded, number.Scale(2)))
	if symbol == "" {
		return Fallback(amount, code)
	}
	return sign + symbol + digits
}

// Fallback renders "<code> <amount with two decimals>".
func Fallback(amount float64, code string) string {
	return strings.TrimSpace(code + " " + decimal.NewFromFloat(amount).StringFixed(2))
}

// Round rounds to two decimal places, half away from zero.
func Round(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// FixedFormatter is a deterministic formatter that ignores locale data. It is
// used when a template must not depend on CLDR tables.
type FixedFormatter struct{}

// Format implements Formatter.
func (FixedFormatter) Format(amount float64, currencyCode string) string {
	return Fallback(amount, strings.ToUpper(strings.TrimSpace(currencyCode)))
}
