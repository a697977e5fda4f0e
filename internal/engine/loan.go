package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/units"
)

// StageOf maps a ledger status code to its stage label.
// Codes outside the contract's range map to StageUnknown.
func StageOf(status model.LoanStatus) model.LoanStage {
	switch status {
	case model.LoanPending:
		return model.StagePending
	case model.LoanActive:
		return model.StageActive
	case model.LoanRepaid:
		return model.StageRepaid
	case model.LoanDefaulted:
		return model.StageDefaulted
	default:
		return model.StageUnknown
	}
}

// RemainingDays returns the days left on a loan. A recorded end time is
// authoritative. Without one the full duration is counted from now, so a
// loan with no recorded end always shows its whole term.
func RemainingDays(s model.LoanSnapshot, now time.Time) int {
	if !s.EndTime.IsZero() {
		return DaysLeft(s.EndTime, now)
	}
	return DaysLeft(addSeconds(now, s.DurationSecs), now)
}

// DeriveLoanView computes what caller may do with loan s at now.
func DeriveLoanView(s model.LoanSnapshot, caller string, now time.Time) model.LoanView {
	isOwner := IsOwner(caller, s.Borrower)
	isPending := s.Status == model.LoanPending
	isActive := s.Status == model.LoanActive

	return model.LoanView{
		Stage:           StageOf(s.Status),
		RemainingDays:   RemainingDays(s, now),
		IsOwner:         isOwner,
		CanFund:         isPending && !isOwner,
		CanRepay:        isActive && isOwner,
		PercentFunded:   PercentFunded(s.Amount, s.TotalContributed),
		InterestPercent: units.BasisPointsToPercent(s.InterestRate),
		DurationDays:    units.SecondsToDays(s.DurationSecs),
	}
}

// FilterByBorrower returns the loans requested by caller, in their original order.
func FilterByBorrower(loans []model.LoanSnapshot, caller string) []model.LoanSnapshot {
	if caller == "" {
		return nil
	}
	var out []model.LoanSnapshot
	for _, l := range loans {
		if IsOwner(caller, l.Borrower) {
			out = append(out, l)
		}
	}
	return out
}

var basisPoints = decimal.NewFromInt(10000)

// AmountDue returns principal plus interest less what has been repaid,
// never below zero.
func AmountDue(s model.LoanSnapshot) decimal.Decimal {
	owed := s.Amount.Mul(basisPoints.Add(decimal.NewFromInt(s.InterestRate))).Div(basisPoints)
	due := owed.Sub(s.AmountRepaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// FundingGap returns how much a loan still needs to be fully funded.
func FundingGap(s model.LoanSnapshot) decimal.Decimal {
	gap := s.Amount.Sub(s.TotalContributed)
	if gap.IsNegative() {
		return decimal.Zero
	}
	return gap
}
