// Package units converts between ledger-native integers and the human-facing
// values chainfund displays: wei <-> decimal amounts, days <-> seconds, and
// percent <-> basis points.
package units

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of fractional digits of the reference ledger unit (wei per ether).
	Decimals = 18

	// SecondsPerDay is the day length used for every day <-> second conversion.
	SecondsPerDay = 86400
)

var (
	// ErrInvalidAmount indicates a monetary value that is negative, malformed,
	// or more precise than the ledger unit allows.
	ErrInvalidAmount = errors.New("units: invalid amount")
	// ErrInvalidDuration indicates a negative or fractional day count.
	ErrInvalidDuration = errors.New("units: invalid duration")
)

// ToDecimal renders a smallest-unit integer as an exact decimal amount.
func ToDecimal(wei *big.Int) (decimal.Decimal, error) {
	if wei == nil || wei.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, wei)
	}
	return decimal.NewFromBigInt(wei, -Decimals), nil
}

// ToDisplayAmount renders a smallest-unit integer as a decimal string.
// Trailing fractional zeros are trimmed; zero renders as "0".
func ToDisplayAmount(wei *big.Int) (string, error) {
	d, err := ToDecimal(wei)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// ToLedgerAmount parses a non-negative decimal string ("0.25", "10", ".5")
// into smallest ledger units. Signs, exponents, and more than Decimals
// fractional digits are rejected.
func ToLedgerAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !isPlainDecimal(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, s, Decimals)
	}

	normalized := s
	if strings.HasPrefix(normalized, ".") {
		normalized = "0" + normalized
	}
	normalized = strings.TrimSuffix(normalized, ".")

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal amount into smallest ledger units.
func FromDecimal(d decimal.Decimal) (*big.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d)
	}
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidAmount, d, Decimals)
	}
	return shifted.BigInt(), nil
}

// isPlainDecimal accepts digits with at most one dot and at least one digit.
func isPlainDecimal(s string) bool {
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// DaysToSeconds converts a whole number of days into seconds.
func DaysToSeconds(days float64) (int64, error) {
	if math.IsNaN(days) || math.IsInf(days, 0) || days < 0 || days != math.Trunc(days) {
		return 0, fmt.Errorf("%w: %v days", ErrInvalidDuration, days)
	}
	if days > float64(math.MaxInt64/SecondsPerDay) {
		return 0, fmt.Errorf("%w: %v days overflows", ErrInvalidDuration, days)
	}
	return int64(days) * SecondsPerDay, nil
}

// SecondsToDays converts seconds into whole days, truncating any remainder.
// Negative input yields 0.
func SecondsToDays(secs int64) int64 {
	if secs <= 0 {
		return 0
	}
	return secs / SecondsPerDay
}

// PercentToBasisPoints converts a percentage into integer basis points,
// rounding to the nearest basis point with ties rounding up.
func PercentToBasisPoints(pct float64) (int64, error) {
	if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < 0 {
		return 0, fmt.Errorf("%w: %v%%", ErrInvalidAmount, pct)
	}
	// NewFromFloat keeps the shortest decimal form, so 1.005 stays a tie.
	bp := decimal.NewFromFloat(pct).Shift(2).Round(0)
	if !bp.LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: %v%% overflows", ErrInvalidAmount, pct)
	}
	return bp.IntPart(), nil
}

// BasisPointsToPercent converts basis points back into a percentage.
func BasisPointsToPercent(bp int64) float64 {
	return float64(bp) / 100
}
