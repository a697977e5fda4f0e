// Package ledgertest provides an in-memory ledger for tests. It implements
// ledger.Gateway and follows the crowdfunding and microfinance contracts'
// rules closely enough to exercise refresh and eligibility flows.
package ledgertest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/theirongolddev/chainfund/internal/ledger"
)

// Contract addresses used by the fake.
const (
	Crowdfunding = "0xCrowd"
	Microfinance = "0xMicro"
)

// Contracts returns the fake's contract addresses.
func Contracts() ledger.Contracts {
	return ledger.Contracts{Crowdfunding: Crowdfunding, Microfinance: Microfinance}
}

// Campaign is a campaign held by the fake ledger.
type Campaign struct {
	Owner       string
	Title       string
	Description string
	Target      *big.Int
	Collected   *big.Int
	Deadline    int64
	Image       string
	Claimed     bool
	Donors      []string
	Amounts     []*big.Int
	TokenID     int64 // 0 until a receipt NFT is minted
}

// Loan is a loan held by the fake ledger.
type Loan struct {
	Borrower     string
	Purpose      string
	Amount       *big.Int
	InterestRate int64
	Duration     int64
	Start        int64
	End          int64
	Repaid       *big.Int
	Contributed  *big.Int
	Status       int64
}

// Ledger is a goroutine-safe fake gateway.
type Ledger struct {
	// Now is the ledger's clock; defaults to time.Now.
	Now func() time.Time
	// SendHook runs before each Send is applied, outside the lock.
	SendHook func(ledger.Tx)

	mu        sync.Mutex
	campaigns []*Campaign
	loans     []*Loan
	callErr   map[string]error
	sendErr   error
	calls     []string
	sends     []ledger.Tx
	nextToken int64
	txCount   int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{Now: time.Now, callErr: make(map[string]error)}
}

// AddCampaign stores c and returns its ordinal id.
func (l *Ledger) AddCampaign(c Campaign) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c.Collected == nil {
		c.Collected = new(big.Int)
	}
	l.campaigns = append(l.campaigns, &c)
	return len(l.campaigns) - 1
}

// AddLoan stores ln and returns its id.
func (l *Ledger) AddLoan(ln Loan) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ln.Repaid == nil {
		ln.Repaid = new(big.Int)
	}
	if ln.Contributed == nil {
		ln.Contributed = new(big.Int)
	}
	l.loans = append(l.loans, &ln)
	return int64(len(l.loans) - 1)
}

// Campaign returns a copy of campaign id.
func (l *Ledger) Campaign(id int) Campaign {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.campaigns[id]
}

// Loan returns a copy of loan id.
func (l *Ledger) Loan(id int64) Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.loans[id]
}

// FailCall makes every Call of method fail with err. A nil err clears it.
func (l *Ledger) FailCall(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.callErr, method)
		return
	}
	l.callErr[method] = err
}

// FailSend makes every Send fail with err. A nil err clears it.
func (l *Ledger) FailSend(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

// Calls returns the methods called so far, in order.
func (l *Ledger) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// Sends returns the transactions submitted so far, in order.
func (l *Ledger) Sends() []ledger.Tx {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.sends)
}

// Call implements ledger.Gateway.
func (l *Ledger) Call(ctx context.Context, contract, method string, args ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, method)
	if err := l.callErr[method]; err != nil {
		return nil, err
	}

	var result any
	switch method {
	case ledger.MethodGetCampaigns:
		out := make([]map[string]any, 0, len(l.campaigns))
		for _, c := range l.campaigns {
			out = append(out, map[string]any{
				"owner":           c.Owner,
				"title":           c.Title,
				"description":     c.Description,
				"target":          c.Target.String(),
				"deadline":        c.Deadline,
				"amountCollected": c.Collected.String(),
				"image":           c.Image,
				"claimed":         c.Claimed,
			})
		}
		result = out

	case ledger.MethodGetDonators:
		c, err := l.campaign(args, 0)
		if err != nil {
			return nil, err
		}
		amounts := make([]string, len(c.Amounts))
		for i, a := range c.Amounts {
			amounts[i] = a.String()
		}
		donors := append([]string{}, c.Donors...)
		result = []any{donors, amounts}

	case ledger.MethodGetCampaignNFTDetails:
		c, err := l.campaign(args, 0)
		if err != nil {
			return nil, err
		}
		result = map[string]any{"hasNFT": c.TokenID != 0, "tokenId": c.TokenID}

	case ledger.MethodNumberOfLoans:
		result = len(l.loans)

	case ledger.MethodGetLoanDetails:
		id, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		if id < 0 || id >= int64(len(l.loans)) {
			return nil, revert("loan does not exist")
		}
		ln := l.loans[id]
		result = map[string]any{
			"id":               id,
			"borrower":         ln.Borrower,
			"purpose":          ln.Purpose,
			"amount":           ln.Amount.String(),
			"interestRate":     ln.InterestRate,
			"duration":         ln.Duration,
			"startTime":        ln.Start,
			"endTime":          ln.End,
			"amountRepaid":     ln.Repaid.String(),
			"status":           ln.Status,
			"totalContributed": ln.Contributed.String(),
		}

	default:
		return nil, &ledger.GatewayError{StatusCode: http.StatusNotFound, Code: "unknown_method", Message: method}
	}

	return json.Marshal(result)
}

// Send implements ledger.Gateway.
func (l *Ledger) Send(ctx context.Context, tx ledger.Tx) (*ledger.Receipt, error) {
	if hook := l.SendHook; hook != nil {
		hook(tx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sends = append(l.sends, tx)
	if l.sendErr != nil {
		return nil, l.sendErr
	}
	if err := l.apply(tx); err != nil {
		return nil, err
	}

	l.txCount++
	return &ledger.Receipt{
		TxHash:      fmt.Sprintf("0x%064x", l.txCount),
		BlockNumber: uint64(100 + l.txCount),
		Status:      ledger.StatusSuccess,
	}, nil
}

func (l *Ledger) apply(tx ledger.Tx) error {
	now := l.Now().Unix()
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	switch tx.Method {
	case ledger.MethodCreateCampaign:
		owner, _ := argString(tx.Args, 0)
		title, _ := argString(tx.Args, 1)
		desc, _ := argString(tx.Args, 2)
		target, err := argBig(tx.Args, 3)
		if err != nil {
			return err
		}
		deadline, err := argInt(tx.Args, 4)
		if err != nil {
			return err
		}
		image, _ := argString(tx.Args, 5)
		if deadline <= now {
			return revert("the deadline should be a date in the future")
		}
		l.campaigns = append(l.campaigns, &Campaign{
			Owner: owner, Title: title, Description: desc, Target: target,
			Collected: new(big.Int), Deadline: deadline, Image: image,
		})

	case ledger.MethodDonateToCampaign:
		c, err := l.campaign(tx.Args, 0)
		if err != nil {
			return err
		}
		if now >= c.Deadline {
			return revert("campaign has ended")
		}
		c.Donors = append(c.Donors, tx.From)
		c.Amounts = append(c.Amounts, new(big.Int).Set(value))
		c.Collected.Add(c.Collected, value)

	case ledger.MethodClaimCampaignFunds:
		c, err := l.campaign(tx.Args, 0)
		if err != nil {
			return err
		}
		switch {
		case tx.From != c.Owner:
			return revert("only the owner can claim")
		case now < c.Deadline:
			return revert("campaign has not ended")
		case c.Claimed:
			return revert("funds already claimed")
		case c.Collected.Cmp(c.Target) < 0:
			return revert("goal not met")
		}
		c.Claimed = true

	case ledger.MethodRequestRefund:
		c, err := l.campaign(tx.Args, 0)
		if err != nil {
			return err
		}
		if now < c.Deadline || c.Collected.Cmp(c.Target) >= 0 {
			return revert("refund not available")
		}
		refunded := false
		for i := len(c.Donors) - 1; i >= 0; i-- {
			if c.Donors[i] == tx.From {
				c.Collected.Sub(c.Collected, c.Amounts[i])
				c.Donors = slices.Delete(c.Donors, i, i+1)
				c.Amounts = slices.Delete(c.Amounts, i, i+1)
				refunded = true
			}
		}
		if !refunded {
			return revert("nothing to refund")
		}

	case ledger.MethodMintCampaignNFT:
		c, err := l.campaign(tx.Args, 0)
		if err != nil {
			return err
		}
		if now < c.Deadline || c.Collected.Cmp(c.Target) < 0 || c.TokenID != 0 {
			return revert("cannot mint")
		}
		l.nextToken++
		c.TokenID = l.nextToken

	case ledger.MethodCreateLoan:
		purpose, _ := argString(tx.Args, 0)
		amount, err := argBig(tx.Args, 1)
		if err != nil {
			return err
		}
		rate, err := argInt(tx.Args, 2)
		if err != nil {
			return err
		}
		duration, err := argInt(tx.Args, 3)
		if err != nil {
			return err
		}
		l.loans = append(l.loans, &Loan{
			Borrower: tx.From, Purpose: purpose, Amount: amount,
			InterestRate: rate, Duration: duration,
			Repaid: new(big.Int), Contributed: new(big.Int),
		})

	case ledger.MethodFundLoan:
		ln, err := l.loan(tx.Args)
		if err != nil {
			return err
		}
		if ln.Status != 0 {
			return revert("loan is not pending")
		}
		if tx.From == ln.Borrower {
			return revert("borrower cannot fund own loan")
		}
		ln.Contributed.Add(ln.Contributed, value)
		if ln.Contributed.Cmp(ln.Amount) >= 0 {
			ln.Status = 1
			ln.Start = now
		}

	case ledger.MethodRepayLoan:
		ln, err := l.loan(tx.Args)
		if err != nil {
			return err
		}
		if ln.Status != 1 {
			return revert("loan is not active")
		}
		if tx.From != ln.Borrower {
			return revert("only the borrower can repay")
		}
		ln.Repaid.Add(ln.Repaid, value)
		due := new(big.Int).Mul(ln.Amount, big.NewInt(10000+ln.InterestRate))
		due.Quo(due, big.NewInt(10000))
		if ln.Repaid.Cmp(due) >= 0 {
			ln.Status = 2
			ln.End = now
		}

	default:
		return &ledger.GatewayError{StatusCode: http.StatusNotFound, Code: "unknown_method", Message: tx.Method}
	}
	return nil
}

func (l *Ledger) campaign(args []any, i int) (*Campaign, error) {
	id, err := argInt(args, i)
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= int64(len(l.campaigns)) {
		return nil, revert("campaign does not exist")
	}
	return l.campaigns[id], nil
}

func (l *Ledger) loan(args []any) (*Loan, error) {
	id, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= int64(len(l.loans)) {
		return nil, revert("loan does not exist")
	}
	return l.loans[id], nil
}

func revert(reason string) *ledger.GatewayError {
	return &ledger.GatewayError{StatusCode: http.StatusOK, Code: "execution_reverted", Message: reason}
}

func badArgs(format string, args ...any) *ledger.GatewayError {
	return &ledger.GatewayError{StatusCode: http.StatusBadRequest, Code: "invalid_args", Message: fmt.Sprintf(format, args...)}
}

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", badArgs("missing argument %d", i)
	}
	return fmt.Sprint(args[i]), nil
}

func argBig(args []any, i int) (*big.Int, error) {
	s, err := argString(args, i)
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, badArgs("argument %d: want integer, got %q", i, s)
	}
	return n, nil
}

func argInt(args []any, i int) (int64, error) {
	n, err := argBig(args, i)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, badArgs("argument %d out of range", i)
	}
	return n.Int64(), nil
}
