// Package money centralizes the decimal conventions the rest of the engine
// relies on: 28-digit intermediate precision, half-up display quantization,
// and basis-point fee math. Nothing in this package touches float64.
package money

import (
	"github.com/shopspring/decimal"
)

// DisplayScale is the number of fractional digits quantities and prices are
// rounded to at display/persistence/trade-record boundaries. Matching
// intermediates are never quantized.
const DisplayScale = 8

// init raises shopspring's division precision so chained Div/Mul calls
// during matching keep at least 28 significant digits before any
// quantization happens at a boundary.
func init() {
	decimal.DivisionPrecision = 28
}

// Quantize rounds d to 8 fractional digits, half-up (away from zero on
// ties), the convention spec.md requires for display and trade records.
// shopspring's Round already rounds ties away from zero; exact ties are
// additionally resolved explicitly below.
func Quantize(d decimal.Decimal) decimal.Decimal {
	const scale = 8
	rounded := d.Round(scale)

	// Detect an exact tie and round it away from zero.
	shifted := d.Shift(scale)
	frac := shifted.Sub(shifted.Truncate(0)).Abs()
	if frac.Equal(decimal.NewFromFloat(0.5)) {
		if d.IsNegative() {
			rounded = shifted.Truncate(0).Sub(decimal.New(1, 0)).Shift(-scale)
		} else {
			rounded = shifted.Truncate(0).Add(decimal.New(1, 0)).Shift(-scale)
		}
	}
	return rounded
}

// QuantizeString renders d quantized to 8dp as a plain decimal string, the
// wire/persistence representation for every Decimal field.
func QuantizeString(d decimal.Decimal) string {
	return Quantize(d).StringFixed(8)
}

// Notional returns price * quantity, unquantized (matching intermediate).
func Notional(price, quantity decimal.Decimal) decimal.Decimal {
	return price.Mul(quantity)
}

// BpsOf returns notional * bps / 10_000, quantized to 8dp. A negative bps
// denotes a rebate paid to the maker; the sign is preserved.
func BpsOf(notional decimal.Decimal, bps int64) decimal.Decimal {
	fee := notional.Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(10_000))
	return Quantize(fee)
}
