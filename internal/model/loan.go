package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the ledger's raw status code for a loan.
type LoanStatus int

// Status codes written by the microfinance contract.
const (
	LoanPending   LoanStatus = 0
	LoanActive    LoanStatus = 1
	LoanRepaid    LoanStatus = 2
	LoanDefaulted LoanStatus = 3
)

// LoanStage is the human-facing label of a loan's lifecycle stage.
type LoanStage string

// Known stages. StageUnknown covers status codes outside the contract's range.
const (
	StagePending   LoanStage = "Pending"
	StageActive    LoanStage = "Active"
	StageRepaid    LoanStage = "Repaid"
	StageDefaulted LoanStage = "Defaulted"
	StageUnknown   LoanStage = "Unknown"
)

// LoanSnapshot is one microloan as read from the ledger.
type LoanSnapshot struct {
	ID               int64           `json:"id"`
	Borrower         string          `json:"borrower"`
	Purpose          string          `json:"purpose"`
	Amount           decimal.Decimal `json:"amount"`
	InterestRate     int64           `json:"interest_rate_bps"`
	DurationSecs     int64           `json:"duration_secs"`
	StartTime        time.Time       `json:"start_time,omitzero"` // zero until funded
	EndTime          time.Time       `json:"end_time,omitzero"`   // zero until recorded
	AmountRepaid     decimal.Decimal `json:"amount_repaid"`
	TotalContributed decimal.Decimal `json:"total_contributed"`
	Status           LoanStatus      `json:"status"`
}

// LoanView holds the stage, countdown, and eligibility derived for one caller.
type LoanView struct {
	Stage           LoanStage `json:"stage"`
	RemainingDays   int       `json:"remaining_days"`
	IsOwner         bool      `json:"is_owner"`
	CanFund         bool      `json:"can_fund"`
	CanRepay        bool      `json:"can_repay"`
	PercentFunded   float64   `json:"percent_funded"`
	InterestPercent float64   `json:"interest_percent"`
	DurationDays    int64     `json:"duration_days"`
}
