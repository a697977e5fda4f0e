// Package actions submits monetary actions to the ledger and re-reads the
// affected state once each action settles.
//
// The runner never updates a snapshot on its own: a result always carries
// state read back from the ledger after the transaction, or an error.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/theirongolddev/chainfund/internal/identity"
	"github.com/theirongolddev/chainfund/internal/ledger"
	"github.com/theirongolddev/chainfund/internal/mirror"
	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/units"
)

var (
	// ErrNotConnected indicates an action attempted without a connected identity.
	ErrNotConnected = errors.New("actions: no identity connected")
	// ErrActionInFlight indicates an earlier action on the same entity has not settled.
	ErrActionInFlight = errors.New("actions: an action for this item is already in flight")
	// ErrRefresh indicates the action succeeded but re-reading the ledger failed.
	ErrRefresh = errors.New("actions: refresh after action failed")
)

// Subject is the kind of entity an action targets.
type Subject string

const (
	SubjectCampaign Subject = "campaign"
	SubjectLoan     Subject = "loan"
)

type flagKey struct {
	subject Subject
	id      int64
}

// Options configures a Runner.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Runner submits actions on behalf of the connected identity.
type Runner struct {
	gw        ledger.Gateway
	contracts ledger.Contracts
	mirror    *mirror.Mirror
	ident     identity.Provider
	log       *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	inflight map[flagKey]string
}

// NewRunner returns a Runner that sends through gw as the identity from ident.
func NewRunner(gw ledger.Gateway, contracts ledger.Contracts, ident identity.Provider, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		gw:        gw,
		contracts: contracts,
		mirror:    mirror.New(gw, contracts),
		ident:     ident,
		log:       opts.Logger,
		now:       opts.Now,
		inflight:  make(map[flagKey]string),
	}
}

// InFlight reports whether an action on subject id is pending.
func (r *Runner) InFlight(subject Subject, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[flagKey{subject, id}]
	return ok
}

// acquire sets the in-flight flag for subject id. The returned release
// must be called on every exit path.
func (r *Runner) acquire(subject Subject, id int64, method string) (release func(), err error) {
	key := flagKey{subject, id}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pending, ok := r.inflight[key]; ok {
		return nil, fmt.Errorf("%w: %s %d (%s)", ErrActionInFlight, subject, id, pending)
	}
	r.inflight[key] = method
	return func() {
		r.mu.Lock()
		delete(r.inflight, key)
		r.mu.Unlock()
	}, nil
}

// caller returns the connected identity or ErrNotConnected.
func (r *Runner) caller(ctx context.Context) (string, error) {
	addr := identity.Resolve(ctx, r.ident)
	if addr == "" {
		return "", ErrNotConnected
	}
	return addr, nil
}

// positiveAmount parses a user-entered ether amount into wei.
func positiveAmount(amount string) (*big.Int, error) {
	wei, err := units.ToLedgerAmount(amount)
	if err != nil {
		return nil, err
	}
	if wei.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", units.ErrInvalidAmount)
	}
	return wei, nil
}

// send submits tx and logs the outcome. Gateway errors are returned unchanged.
func (r *Runner) send(ctx context.Context, tx ledger.Tx, subject Subject, id int64) (*ledger.Receipt, error) {
	start := r.now()
	receipt, err := r.gw.Send(ctx, tx)
	if err != nil {
		r.log.Error("ledger action failed",
			slog.String("method", tx.Method),
			slog.String("subject", string(subject)),
			slog.Int64("id", id),
			slog.Any("error", err))
		return nil, err
	}
	r.log.Info("ledger action settled",
		slog.String("method", tx.Method),
		slog.String("subject", string(subject)),
		slog.Int64("id", id),
		slog.String("tx", receipt.TxHash),
		slog.Uint64("block", receipt.BlockNumber),
		slog.Duration("elapsed", r.now().Sub(start)))
	return receipt, nil
}

func (r *Runner) refreshFailed(method string, err error) error {
	r.log.Warn("refresh after action failed", slog.String("method", method), slog.Any("error", err))
	return fmt.Errorf("%w: %w", ErrRefresh, err)
}

// CampaignResult is the state of a campaign read back after an action.
type CampaignResult struct {
	Receipt   *ledger.Receipt
	Campaign  model.CampaignSnapshot
	Donations []model.Donation
	NFT       model.NFTDetails
}

// LoanResult is the loan list read back after an action. Loan actions move
// aggregate figures, so the whole list is re-read rather than one loan.
type LoanResult struct {
	Receipt *ledger.Receipt
	Loans   []model.LoanSnapshot
}

// Loan returns the loan with the given id from the result.
func (lr *LoanResult) Loan(id int64) (model.LoanSnapshot, bool) {
	for _, l := range lr.Loans {
		if l.ID == id {
			return l, true
		}
	}
	return model.LoanSnapshot{}, false
}

// campaignAction runs one crowdfunding transaction on campaign id.
func (r *Runner) campaignAction(ctx context.Context, id int, method string, value *big.Int) (*CampaignResult, error) {
	from, err := r.caller(ctx)
	if err != nil {
		return nil, err
	}
	release, err := r.acquire(SubjectCampaign, int64(id), method)
	if err != nil {
		return nil, err
	}
	defer release()

	receipt, err := r.send(ctx, ledger.Tx{
		Contract: r.contracts.Crowdfunding,
		Method:   method,
		Args:     []any{id},
		Value:    value,
		From:     from,
	}, SubjectCampaign, int64(id))
	if err != nil {
		return nil, err
	}

	res := &CampaignResult{Receipt: receipt}
	if res.Campaign, err = r.mirror.Campaign(ctx, id); err != nil {
		return res, r.refreshFailed(method, err)
	}
	if res.Donations, err = r.mirror.Donations(ctx, id); err != nil {
		return res, r.refreshFailed(method, err)
	}
	if res.NFT, err = r.mirror.NFT(ctx, id); err != nil {
		return res, r.refreshFailed(method, err)
	}
	return res, nil
}

// loanAction runs one microfinance transaction on loan id.
func (r *Runner) loanAction(ctx context.Context, id int64, method string, value *big.Int) (*LoanResult, error) {
	from, err := r.caller(ctx)
	if err != nil {
		return nil, err
	}
	release, err := r.acquire(SubjectLoan, id, method)
	if err != nil {
		return nil, err
	}
	defer release()

	receipt, err := r.send(ctx, ledger.Tx{
		Contract: r.contracts.Microfinance,
		Method:   method,
		Args:     []any{id},
		Value:    value,
		From:     from,
	}, SubjectLoan, id)
	if err != nil {
		return nil, err
	}

	res := &LoanResult{Receipt: receipt}
	if res.Loans, err = r.mirror.Loans(ctx, nil); err != nil {
		return res, r.refreshFailed(method, err)
	}
	return res, nil
}

// Donate sends amount (in ether) to campaign id.
func (r *Runner) Donate(ctx context.Context, id int, amount string) (*CampaignResult, error) {
	if _, err := r.caller(ctx); err != nil {
		return nil, err
	}
	wei, err := positiveAmount(amount)
	if err != nil {
		return nil, err
	}
	return r.campaignAction(ctx, id, ledger.MethodDonateToCampaign, wei)
}

// ClaimFunds withdraws a funded campaign's balance to its owner.
func (r *Runner) ClaimFunds(ctx context.Context, id int) (*CampaignResult, error) {
	return r.campaignAction(ctx, id, ledger.MethodClaimCampaignFunds, nil)
}

// RequestRefund asks the ledger to return the caller's donations to a failed campaign.
func (r *Runner) RequestRefund(ctx context.Context, id int) (*CampaignResult, error) {
	return r.campaignAction(ctx, id, ledger.MethodRequestRefund, nil)
}

// MintReceipt mints the receipt NFT of a funded campaign.
func (r *Runner) MintReceipt(ctx context.Context, id int) (*CampaignResult, error) {
	return r.campaignAction(ctx, id, ledger.MethodMintCampaignNFT, nil)
}

// FundLoan contributes amount (in ether) to pending loan id.
func (r *Runner) FundLoan(ctx context.Context, id int64, amount string) (*LoanResult, error) {
	if _, err := r.caller(ctx); err != nil {
		return nil, err
	}
	wei, err := positiveAmount(amount)
	if err != nil {
		return nil, err
	}
	return r.loanAction(ctx, id, ledger.MethodFundLoan, wei)
}

// RepayLoan pays amount (in ether) towards active loan id.
func (r *Runner) RepayLoan(ctx context.Context, id int64, amount string) (*LoanResult, error) {
	if _, err := r.caller(ctx); err != nil {
		return nil, err
	}
	wei, err := positiveAmount(amount)
	if err != nil {
		return nil, err
	}
	return r.loanAction(ctx, id, ledger.MethodRepayLoan, wei)
}
