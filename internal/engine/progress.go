package engine

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PercentFunded returns collected as a percentage of target, clamped to [0, 100].
// A non-positive target yields 0 rather than failing: this is a display value.
func PercentFunded(target, collected decimal.Decimal) float64 {
	if !target.IsPositive() || !collected.IsPositive() {
		return 0
	}
	pct := collected.Mul(hundred).Div(target)
	if pct.GreaterThan(hundred) {
		return 100
	}
	f, _ := pct.Float64()
	return f
}
