// Package mirror fetches ledger state and maps it into snapshots.
// It holds nothing between calls: every read goes to the ledger.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/chainfund/internal/ledger"
	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/snapshot"
)

// ErrNotFound indicates an id the ledger does not hold.
var ErrNotFound = errors.New("mirror: not found")

// Mirror reads campaigns, donations, loans, and receipt NFTs from the ledger.
type Mirror struct {
	gw        ledger.Gateway
	contracts ledger.Contracts
	workers   int
}

// New returns a Mirror reading from gw.
func New(gw ledger.Gateway, contracts ledger.Contracts) *Mirror {
	return &Mirror{gw: gw, contracts: contracts}
}

// WithWorkers bounds the number of concurrent loan reads. Zero means GOMAXPROCS.
func (m *Mirror) WithWorkers(n int) *Mirror {
	m.workers = n
	return m
}

// Campaigns returns every campaign on the ledger in ledger order.
func (m *Mirror) Campaigns(ctx context.Context) ([]model.CampaignSnapshot, error) {
	raw, err := m.gw.Call(ctx, m.contracts.Crowdfunding, ledger.MethodGetCampaigns)
	if err != nil {
		return nil, err
	}
	return snapshot.MapCampaigns(raw)
}

// Campaign returns campaign id. The ledger only lists campaigns as a
// whole, so this reads the full list.
func (m *Mirror) Campaign(ctx context.Context, id int) (model.CampaignSnapshot, error) {
	all, err := m.Campaigns(ctx)
	if err != nil {
		return model.CampaignSnapshot{}, err
	}
	if id < 0 || id >= len(all) {
		return model.CampaignSnapshot{}, fmt.Errorf("%w: campaign %d", ErrNotFound, id)
	}
	return all[id], nil
}

// UserCampaigns returns the campaigns owned by caller.
// Without an identity it returns nothing and makes no ledger call.
func (m *Mirror) UserCampaigns(ctx context.Context, caller string) ([]model.CampaignSnapshot, error) {
	if caller == "" {
		return nil, nil
	}
	all, err := m.Campaigns(ctx)
	if err != nil {
		return nil, err
	}
	var mine []model.CampaignSnapshot
	for _, c := range all {
		if c.Owner == caller {
			mine = append(mine, c)
		}
	}
	return mine, nil
}

// Donations returns the donations to campaign id in ledger order.
func (m *Mirror) Donations(ctx context.Context, id int) ([]model.Donation, error) {
	raw, err := m.gw.Call(ctx, m.contracts.Crowdfunding, ledger.MethodGetDonators, id)
	if err != nil {
		return nil, err
	}
	return snapshot.MapDonations(id, raw)
}

// NFT returns the receipt token details of campaign id.
func (m *Mirror) NFT(ctx context.Context, id int) (model.NFTDetails, error) {
	raw, err := m.gw.Call(ctx, m.contracts.Crowdfunding, ledger.MethodGetCampaignNFTDetails, id)
	if err != nil {
		return model.NFTDetails{}, err
	}
	return snapshot.MapNFTDetails(id, raw)
}

// Loan returns loan id.
func (m *Mirror) Loan(ctx context.Context, id int64) (model.LoanSnapshot, error) {
	count, err := m.LoanCount(ctx)
	if err != nil {
		return model.LoanSnapshot{}, err
	}
	if id < 0 || id >= count {
		return model.LoanSnapshot{}, fmt.Errorf("%w: loan %d", ErrNotFound, id)
	}
	return m.loan(ctx, id)
}

// LoanCount returns the number of loans on the ledger.
func (m *Mirror) LoanCount(ctx context.Context) (int64, error) {
	raw, err := m.gw.Call(ctx, m.contracts.Microfinance, ledger.MethodNumberOfLoans)
	if err != nil {
		return 0, err
	}
	return snapshot.MapLoanCount(raw)
}

func (m *Mirror) loan(ctx context.Context, id int64) (model.LoanSnapshot, error) {
	raw, err := m.gw.Call(ctx, m.contracts.Microfinance, ledger.MethodGetLoanDetails, id)
	if err != nil {
		return model.LoanSnapshot{}, err
	}
	return snapshot.MapLoan(id, raw)
}

// State is one complete read of the ledger.
type State struct {
	Campaigns []model.CampaignSnapshot
	Loans     []model.LoanSnapshot
	FetchedAt time.Time
}

// Refresh reads every campaign and loan. Either the whole state is
// returned or an error is; a half-read ledger is never reported.
func (m *Mirror) Refresh(ctx context.Context, now func() time.Time) (*State, error) {
	campaigns, err := m.Campaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading campaigns: %w", err)
	}
	loans, err := m.Loans(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("reading loans: %w", err)
	}
	return &State{Campaigns: campaigns, Loans: loans, FetchedAt: now()}, nil
}
