// Package currency converts and formats monetary amounts for display.
// It is never the system of record for rates: the analytics backend converts
// at the source of truth, and this package only covers display-side gaps.
//
// Nothing in this package returns an error or panics. It sits on every render
// path of every monetary value, so all failure modes degrade to a best-effort
// result instead.
package currency

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// BaseCurrency is the fixed base of the rate table. Its own rate is exactly 1.
const BaseCurrency = "DKK"

// rates maps a currency code to units of that currency per one unit of the
// base currency. Static fallback table for display-only conversions; live
// rates come from the analytics backend.
var rates = map[string]float64{
	"DKK": 1,
	"USD": 0.145,
	"EUR": 0.134,
}

// symbols is the manual fallback used when the locale formatter rejects a
// currency code.
var symbols = map[string]string{
	"DKK": "kr.",
	"USD": "$",
	"EUR": "€",
}

// locales maps a currency code to the display locale used for formatting.
var locales = map[string]language.Tag{
	"DKK": language.Danish,
	"USD": language.AmericanEnglish,
	"EUR": language.German,
}

// rateOf returns the rate for code, treating unknown codes as already being
// in the base currency. A typo'd code degrades to a wrong-but-rendered value
// rather than a blank dashboard; see the package tests, which pin this down
// deliberately.
func rateOf(code string) float64 {
	if rate, ok := rates[strings.ToUpper(code)]; ok {
		return rate
	}
	return 1
}

// Convert converts amount from one currency code to another via the base
// currency, rounded to 2 decimal places half-up. Identical codes
// short-circuit to the untouched input, avoiding floating-point drift.
func Convert(amount float64, from, to string) float64 {
	if strings.EqualFold(from, to) {
		return amount
	}
	// decimal.NewFromFloat panics on non-finite input.
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	amt := decimal.NewFromFloat(amount)
	inBase := amt.Div(decimal.NewFromFloat(rateOf(from)))
	result, _ := inBase.Mul(decimal.NewFromFloat(rateOf(to))).Round(2).Float64()
	return result
}

// FormatOptions controls Format output.
type FormatOptions struct {
	// ShowDecimals renders two fraction digits when true (the default via
	// DefaultFormatOptions), none when false.
	ShowDecimals bool
}

// DefaultFormatOptions returns the options used when the caller passes none.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{ShowDecimals: true}
}

// Format renders amount with its currency symbol using locale-aware
// formatting. Unsupported codes fall back to the manual symbol table and
// plain numeric formatting.
func Format(amount float64, code string, opts ...FormatOptions) string {
	o := DefaultFormatOptions()
	if len(opts) > 0 {
		o = opts[0]
	}

	upper := strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(upper)
	if err != nil {
		return fallbackFormat(amount, upper, o)
	}

	tag, ok := locales[upper]
	if !ok {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	var n number.Formatter
	if o.ShowDecimals {
		n = number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2))
	} else {
		n = number.Decimal(amount, number.MaxFractionDigits(0))
	}
	return p.Sprintf("%v %v", currency.Symbol(unit), n)
}

func fallbackFormat(amount float64, code string, o FormatOptions) string {
	sym, ok := symbols[code]
	if !ok {
		sym = code
	}
	digits := 2
	if !o.ShowDecimals {
		digits = 0
	}
	return sym + " " + strconv.FormatFloat(amount, 'f', digits, 64)
}
