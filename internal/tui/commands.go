package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/chainfund/internal/actions"
	"github.com/theirongolddev/chainfund/internal/config"
	"github.com/theirongolddev/chainfund/internal/mirror"
	"github.com/theirongolddev/chainfund/internal/model"
)

// readTimeout bounds one full ledger read started from the dashboard.
const readTimeout = 2 * time.Minute

type connectedMsg struct {
	backend *Backend
	err     error
}

// progressMsg reports loan read progress during the first load.
type progressMsg struct {
	current int
	total   int
}

// ledgerMsg carries a complete ledger read.
type ledgerMsg struct {
	state *mirror.State
	took  time.Duration
	err   error
}

// detailMsg carries the donations and receipt token of one campaign.
type detailMsg struct {
	id        int
	donations []model.Donation
	nft       model.NFTDetails
	err       error
}

type campaignActionMsg struct {
	id     int
	action string
	res    *actions.CampaignResult
	err    error
}

type loanActionMsg struct {
	id     int64 // -1 for a loan request
	action string
	res    *actions.LoanResult
	err    error
}

type campaignsCreatedMsg struct {
	res *actions.CampaignsResult
	err error
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func connectCmd(connect ConnectFunc, cfg config.Config) tea.Cmd {
	return func() tea.Msg {
		if connect == nil {
			return connectedMsg{err: errNoConnector}
		}
		b, err := connect(cfg)
		return connectedMsg{backend: b, err: err}
	}
}

// loadLedgerCmd reads the whole ledger in a goroutine, streaming loan
// progress through sub so the loading screen can show it.
func loadLedgerCmd(b *Backend, now func() time.Time, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
			defer cancel()

			start := now()
			campaigns, err := b.Mirror.Campaigns(ctx)
			if err != nil {
				sub <- ledgerMsg{err: err}
				return
			}
			loans, err := b.Mirror.Loans(ctx, func(current, total int) {
				// Non-blocking: drop progress updates the UI has not caught up with.
				select {
				case sub <- progressMsg{current: current, total: total}:
				default:
				}
			})
			if err != nil {
				sub <- ledgerMsg{err: err}
				return
			}
			sub <- ledgerMsg{
				state: &mirror.State{Campaigns: campaigns, Loans: loans, FetchedAt: now()},
				took:  now().Sub(start),
			}
		}()

		return <-sub
	}
}

func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshCmd re-reads the ledger without progress reporting.
func refreshCmd(b *Backend, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		start := now()
		state, err := b.Mirror.Refresh(ctx, now)
		return ledgerMsg{state: state, took: now().Sub(start), err: err}
	}
}

func detailCmd(b *Backend, id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		donations, err := b.Mirror.Donations(ctx, id)
		if err != nil {
			return detailMsg{id: id, err: err}
		}
		nft, err := b.Mirror.NFT(ctx, id)
		return detailMsg{id: id, donations: donations, nft: nft, err: err}
	}
}

func campaignActionCmd(b *Backend, id int, action, amount string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()

		var res *actions.CampaignResult
		var err error
		switch action {
		case actionDonate:
			res, err = b.Runner.Donate(ctx, id, amount)
		case actionClaim:
			res, err = b.Runner.ClaimFunds(ctx, id)
		case actionRefund:
			res, err = b.Runner.RequestRefund(ctx, id)
		case actionMint:
			res, err = b.Runner.MintReceipt(ctx, id)
		}
		return campaignActionMsg{id: id, action: action, res: res, err: err}
	}
}

func loanActionCmd(b *Backend, id int64, action, amount string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()

		var res *actions.LoanResult
		var err error
		switch action {
		case actionFund:
			res, err = b.Runner.FundLoan(ctx, id, amount)
		case actionRepay:
			res, err = b.Runner.RepayLoan(ctx, id, amount)
		}
		return loanActionMsg{id: id, action: action, res: res, err: err}
	}
}

func createCampaignCmd(b *Backend, in actions.CampaignInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		res, err := b.Runner.CreateCampaign(ctx, in)
		return campaignsCreatedMsg{res: res, err: err}
	}
}

func createLoanCmd(b *Backend, in actions.LoanInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		res, err := b.Runner.CreateLoan(ctx, in)
		return loanActionMsg{id: -1, action: actionRequest, res: res, err: err}
	}
}
