// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/units"
)

// Currency is the display symbol of the ledger's base unit.
const Currency = "ETH"

// FormatAmount renders a ledger amount exactly, with thousands separators
// on the integer part and no trailing fractional zeros.
// e.g., 1234.5 -> "1,234.5 ETH"
func FormatAmount(d decimal.Decimal) string {
	return FormatNumberString(d.String()) + " " + Currency
}

// FormatAmountShort renders an amount rounded to 4 decimal places, for tables.
// Non-zero amounts that round to zero show as "<0.0001".
func FormatAmountShort(d decimal.Decimal) string {
	r := d.Round(4)
	if r.IsZero() && !d.IsZero() {
		if d.IsNegative() {
			return ">-0.0001"
		}
		return "<0.0001"
	}
	return FormatNumberString(r.String())
}

// FormatNumberString adds comma separators to the integer part of a
// decimal string, leaving the fraction untouched.
func FormatNumberString(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		// Beyond int64: leave the digits alone.
		return s
	}
	out := FormatNumber(n)
	if intPart == "-0" {
		out = "-0"
	}
	if hasFrac {
		out += "." + frac
	}
	return out
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent formats a 0-100 value as a percentage string.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatInterest renders a basis-point rate as a percentage.
// e.g., 550 -> "5.5%"
func FormatInterest(bps int64) string {
	return strconv.FormatFloat(units.BasisPointsToPercent(bps), 'f', -1, 64) + "%"
}

// FormatDaysLeft renders a campaign or loan countdown.
func FormatDaysLeft(days int, ended bool) string {
	switch {
	case ended:
		return "Ended"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

// FormatDays renders a whole number of days.
func FormatDays(days int64) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// FormatStage renders a loan stage, showing the raw code for unknown ones.
func FormatStage(stage model.LoanStage, status model.LoanStatus) string {
	if stage == model.StageUnknown {
		return fmt.Sprintf("Unknown (%d)", int(status))
	}
	return string(stage)
}

// FormatIdentity shortens a ledger address for tables.
// e.g., "0x1234567890abcdef1234" -> "0x1234…1234"
func FormatIdentity(addr string) string {
	if addr == "" {
		return "-"
	}
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// FormatAgo renders t relative to now, e.g. "3 minutes ago".
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatDelta formats a signed amount change.
func FormatDelta(delta decimal.Decimal) string {
	if delta.IsNegative() {
		return "-" + FormatAmountShort(delta.Neg())
	}
	return "+" + FormatAmountShort(delta)
}

// FormatYesNo renders an eligibility flag.
func FormatYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
