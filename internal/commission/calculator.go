package commission

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeLineCommission applies percentage to the discounted line subtotal.
// The result is not rounded; round only when presenting.
func ComputeLineCommission(subtotal, percentage decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.Zero
	}
	return subtotal.Mul(percentage).Div(hundred)
}

// Round2 is the presentation rounding for currency amounts.
func Round2(d decimal.Decimal) string {
	return d.StringFixed(2)
}
