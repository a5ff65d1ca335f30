// Package money holds the fixed-point helpers shared by the billing engine.
// Every amount is a decimal.Decimal carried at cent precision.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits persisted for money columns.
const Places int32 = 2

// Cent is the smallest representable amount.
var Cent = decimal.New(1, -Places)

// FloorCents truncates toward negative infinity at cent precision.
func FloorCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(Places)
}

// Quantize rounds to cents using banker's rounding.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// SplitEven divides total into n parts of floor(total/n) each, with the
// last part absorbing the remainder so the parts sum exactly to total.
func SplitEven(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, fmt.Errorf("split into %d parts", n)
	}
	count := decimal.NewFromInt(int64(n))
	base := FloorCents(total.Div(count))

	parts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		parts[i] = base
	}
	parts[n-1] = total.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts, nil
}

// Sum adds the given amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	return Max(d, decimal.Zero)
}

// Parse reads a user supplied amount and rejects more than two decimals.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if !d.Equal(d.Truncate(Places)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimals", raw, Places)
	}
	return d, nil
}

// Percent returns base*pct/100 quantized to cents.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Quantize(base.Mul(pct).Div(decimal.NewFromInt(100)))
}

// String formats an amount with exactly two decimals.
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
