// Package ledger talks to the smart contracts that hold campaign and loan
// funds. The contracts are reached through a gateway that performs reads
// (Call) and signed writes (Send); chainfund never signs anything itself.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Crowdfunding contract methods.
const (
	MethodGetCampaigns          = "getCampaigns"
	MethodGetDonators           = "getDonators"
	MethodCreateCampaign        = "createCampaign"
	MethodDonateToCampaign      = "donateToCampaign"
	MethodClaimCampaignFunds    = "claimCampaignFunds"
	MethodRequestRefund         = "requestRefund"
	MethodMintCampaignNFT       = "mintCampaignNFT"
	MethodGetCampaignNFTDetails = "getCampaignNFTDetails"
)

// Microfinance contract methods.
const (
	MethodNumberOfLoans  = "numberOfLoans"
	MethodGetLoanDetails = "getLoanDetails"
	MethodCreateLoan     = "createLoan"
	MethodFundLoan       = "fundLoan"
	MethodRepayLoan      = "repayLoan"
)

// ErrUnavailable indicates the gateway could not be reached at all.
var ErrUnavailable = errors.New("ledger: gateway unavailable")

// Gateway is the ledger transport. Implementations own timeouts, signing,
// and broadcast; callers treat every error as final and never retry.
type Gateway interface {
	// Call performs a read-only contract call and returns the raw result.
	Call(ctx context.Context, contract, method string, args ...any) (json.RawMessage, error)
	// Send submits a state-changing transaction and waits for its receipt.
	Send(ctx context.Context, tx Tx) (*Receipt, error)
}

// Tx is a state-changing contract call.
type Tx struct {
	Contract string
	Method   string
	Args     []any
	Value    *big.Int // wei attached to the call, nil for none
	From     string
}

// Receipt is the gateway's confirmation of a mined transaction.
type Receipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Status      string `json:"status"`
}

// Receipt statuses reported by the gateway.
const (
	StatusSuccess  = "success"
	StatusReverted = "reverted"
)

// Contracts holds the addresses of the two deployed contracts.
type Contracts struct {
	Crowdfunding string
	Microfinance string
}

// GatewayError is a failure reported by, or on the way to, the gateway.
// It is passed to callers unchanged.
type GatewayError struct {
	StatusCode int    // HTTP status, 0 when the request never completed
	Code       string // gateway error code, e.g. "execution_reverted"
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("ledger: %s", e.Message)
	case e.Code != "":
		return fmt.Sprintf("ledger: %s (%d %s)", e.Message, e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("ledger: %s (%d)", e.Message, e.StatusCode)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }
