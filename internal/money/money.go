// Package money parses remote decimal strings and derives line-item profit
// figures with fixed-point arithmetic.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Parse converts a remote decimal string. Empty strings parse as zero.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// ParseOrZero is Parse with malformed input treated as zero
func ParseOrZero(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseOptional returns an invalid NullDecimal for empty or malformed input
func ParseOptional(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Round2 rounds half away from zero to two decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineFigures are the derived financial fields of one order line
type LineFigures struct {
	NetRevenue   decimal.Decimal
	CostSnapshot decimal.Decimal
	TotalCost    decimal.Decimal
	Profit       decimal.Decimal
	ProfitMargin decimal.Decimal
}

// ComputeLine derives revenue, cost, profit and margin for a line item
func ComputeLine(lineTotal, unitCost decimal.Decimal, quantity int) LineFigures {
	netRevenue := Round2(lineTotal)
	totalCost := Round2(unitCost.Mul(decimal.NewFromInt(int64(quantity))))
	profit := netRevenue.Sub(totalCost)
	return LineFigures{
		NetRevenue:   netRevenue,
		CostSnapshot: unitCost,
		TotalCost:    totalCost,
		Profit:       profit,
		ProfitMargin: Margin(profit, netRevenue),
	}
}

// Margin returns profit as a percentage of revenue, or zero when revenue is
// not positive.
func Margin(profit, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return Round2(profit.Div(revenue).Mul(hundred))
}
