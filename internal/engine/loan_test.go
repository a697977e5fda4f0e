package engine

import (
	"testing"
	"time"

	"github.com/theirongolddev/chainfund/internal/model"
)

func loan(status model.LoanStatus) model.LoanSnapshot {
	return model.LoanSnapshot{
		ID:               7,
		Borrower:         "0xBorrower",
		Purpose:          "seed stock",
		Amount:           dec("2"),
		InterestRate:     550,
		DurationSecs:     30 * 86400,
		TotalContributed: dec("0.5"),
		Status:           status,
	}
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		status model.LoanStatus
		want   model.LoanStage
	}{
		{model.LoanPending, model.StagePending},
		{model.LoanActive, model.StageActive},
		{model.LoanRepaid, model.StageRepaid},
		{model.LoanDefaulted, model.StageDefaulted},
		{4, model.StageUnknown},
		{-1, model.StageUnknown},
		{255, model.StageUnknown},
	}
	for _, tt := range tests {
		if got := StageOf(tt.status); got != tt.want {
			t.Fatalf("StageOf(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestSelfFundingBlocked(t *testing.T) {
	v := DeriveLoanView(loan(model.LoanPending), "0xBorrower", t0)
	if v.CanFund {
		t.Fatal("borrower CanFund = true, want false")
	}
	if !v.IsOwner {
		t.Fatal("IsOwner = false, want true")
	}
	if v.CanRepay {
		t.Fatal("CanRepay on pending loan = true, want false")
	}
}

func TestFundEligibility(t *testing.T) {
	tests := []struct {
		status model.LoanStatus
		caller string
		want   bool
	}{
		{model.LoanPending, "0xLender", true},
		{model.LoanPending, "", true},
		{model.LoanActive, "0xLender", false},
		{model.LoanRepaid, "0xLender", false},
		{model.LoanDefaulted, "0xLender", false},
		{9, "0xLender", false},
	}
	for _, tt := range tests {
		if got := DeriveLoanView(loan(tt.status), tt.caller, t0).CanFund; got != tt.want {
			t.Fatalf("status %d caller %q: CanFund = %v, want %v", tt.status, tt.caller, got, tt.want)
		}
	}
}

func TestRepayEligibility(t *testing.T) {
	tests := []struct {
		status model.LoanStatus
		caller string
		want   bool
	}{
		{model.LoanActive, "0xBorrower", true},
		{model.LoanActive, "0xLender", false},
		{model.LoanActive, "", false},
		{model.LoanRepaid, "0xBorrower", false},
		{model.LoanDefaulted, "0xBorrower", false},
		{model.LoanPending, "0xBorrower", false},
	}
	for _, tt := range tests {
		if got := DeriveLoanView(loan(tt.status), tt.caller, t0).CanRepay; got != tt.want {
			t.Fatalf("status %d caller %q: CanRepay = %v, want %v", tt.status, tt.caller, got, tt.want)
		}
	}
}

func TestRemainingDaysWithoutRecordedEnd(t *testing.T) {
	l := loan(model.LoanActive)
	l.StartTime = t0

	v := DeriveLoanView(l, "0xBorrower", t0)
	if v.RemainingDays != 30 {
		t.Fatalf("RemainingDays at creation = %d, want 30", v.RemainingDays)
	}

	// Without a recorded end the term is counted from now.
	v = DeriveLoanView(l, "0xBorrower", t0.Add(10*day))
	if v.RemainingDays != 30 {
		t.Fatalf("RemainingDays after 10 days = %d, want 30", v.RemainingDays)
	}
}

func TestRemainingDaysHugeDuration(t *testing.T) {
	l := loan(model.LoanPending)
	l.DurationSecs = 100_000_000_000

	// Saturates at the largest time.Duration instead of wrapping.
	if got := DeriveLoanView(l, "", t0).RemainingDays; got != 106752 {
		t.Fatalf("RemainingDays = %d, want 106752", got)
	}
}

func TestRemainingDaysUnstarted(t *testing.T) {
	l := loan(model.LoanPending)
	for _, now := range []time.Time{t0, t0.Add(100 * day)} {
		if got := DeriveLoanView(l, "", now).RemainingDays; got != 30 {
			t.Fatalf("RemainingDays at %v = %d, want 30", now, got)
		}
	}
}

func TestRemainingDaysRecordedEndWins(t *testing.T) {
	l := loan(model.LoanActive)
	l.StartTime = t0.Add(-day)
	l.EndTime = t0.Add(4*day + time.Minute)

	if got := DeriveLoanView(l, "", t0).RemainingDays; got != 5 {
		t.Fatalf("RemainingDays = %d, want 5", got)
	}
	if got := DeriveLoanView(l, "", t0.Add(90*day)).RemainingDays; got != 0 {
		t.Fatalf("RemainingDays past end = %d, want 0", got)
	}
}

func TestLoanViewFigures(t *testing.T) {
	v := DeriveLoanView(loan(model.LoanPending), "0xLender", t0)
	if v.PercentFunded != 25 {
		t.Fatalf("PercentFunded = %v, want 25", v.PercentFunded)
	}
	if v.InterestPercent != 5.5 {
		t.Fatalf("InterestPercent = %v, want 5.5", v.InterestPercent)
	}
	if v.DurationDays != 30 {
		t.Fatalf("DurationDays = %d, want 30", v.DurationDays)
	}
	if v.Stage != model.StagePending {
		t.Fatalf("Stage = %q, want %q", v.Stage, model.StagePending)
	}
}

func TestFilterByBorrower(t *testing.T) {
	ls := []model.LoanSnapshot{
		{ID: 3, Borrower: "0xA"},
		{ID: 1, Borrower: "0xB"},
		{ID: 2, Borrower: "0xA"},
	}
	got := FilterByBorrower(ls, "0xA")
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("FilterByBorrower = %+v, want ids [3 2]", got)
	}
	if got := FilterByBorrower(ls, ""); got != nil {
		t.Fatalf("FilterByBorrower without identity = %+v, want nil", got)
	}
}

func TestAmountDue(t *testing.T) {
	l := loan(model.LoanActive) // 2 at 5.5%
	if got := AmountDue(l).String(); got != "2.11" {
		t.Fatalf("AmountDue = %s, want 2.11", got)
	}
	l.AmountRepaid = dec("0.11")
	if got := AmountDue(l).String(); got != "2" {
		t.Fatalf("AmountDue after partial = %s, want 2", got)
	}
	l.AmountRepaid = dec("5")
	if !AmountDue(l).IsZero() {
		t.Fatalf("AmountDue overpaid = %s, want 0", AmountDue(l))
	}
}

func TestFundingGap(t *testing.T) {
	l := loan(model.LoanPending)
	if got := FundingGap(l).String(); got != "1.5" {
		t.Fatalf("FundingGap = %s, want 1.5", got)
	}
	l.TotalContributed = dec("3")
	if !FundingGap(l).IsZero() {
		t.Fatalf("FundingGap overfunded = %s, want 0", FundingGap(l))
	}
}
