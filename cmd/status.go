package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/identity"
	"github.com/theirongolddev/chainfund/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the ledger and what you may do on it",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	progress("Reading the ledger...")
	start := time.Now()
	campaigns, err := c.mirror.Campaigns(ctx)
	if err != nil {
		return err
	}
	loans, err := c.mirror.Loans(ctx, loanProgress)
	if err != nil {
		return err
	}
	caller := identity.Resolve(ctx, c.ident)
	now := time.Now()
	c.log.Debug("ledger read", "campaigns", len(campaigns), "loans", len(loans), "took", time.Since(start))

	var open, funded, canDonate, canClaim, canRefund int
	raised := decimal.Zero
	for _, s := range campaigns {
		v := engine.DeriveCampaignView(s, caller, now)
		if !v.IsEnded {
			open++
		}
		if engine.GoalMet(s) {
			funded++
		}
		if v.CanDonate {
			canDonate++
		}
		if v.CanClaim {
			canClaim++
		}
		if v.CanRefund {
			canRefund++
		}
		raised = raised.Add(s.AmountCollected)
	}

	stages := make(map[model.LoanStage]int)
	var canFund, canRepay int
	lent, repaid := decimal.Zero, decimal.Zero
	for _, l := range loans {
		v := engine.DeriveLoanView(l, caller, now)
		stages[v.Stage]++
		if v.CanFund {
			canFund++
		}
		if v.CanRepay {
			canRepay++
		}
		lent = lent.Add(l.TotalContributed)
		repaid = repaid.Add(l.AmountRepaid)
	}

	who := "not set (read-only)"
	if caller != "" {
		who = caller
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CHAINFUND"))
	fmt.Println()
	fmt.Print(cli.RenderFields("Ledger", [][]string{
		{"Gateway", c.cfg.Ledger.GatewayURL},
		{"Identity", who},
		{"---"},
		{"Campaigns", formatNumber(int64(len(campaigns)))},
		{"Open", formatNumber(int64(open))},
		{"Funded", formatNumber(int64(funded))},
		{"Raised", cli.FormatAmount(raised)},
		{"---"},
		{"Loans", formatNumber(int64(len(loans)))},
		{"Pending", formatNumber(int64(stages[model.StagePending]))},
		{"Active", formatNumber(int64(stages[model.StageActive]))},
		{"Repaid", formatNumber(int64(stages[model.StageRepaid]))},
		{"Defaulted", formatNumber(int64(stages[model.StageDefaulted]))},
		{"Lent", cli.FormatAmount(lent)},
		{"Paid back", cli.FormatAmount(repaid)},
	}))
	fmt.Println()

	if caller == "" {
		fmt.Println(cli.RenderNotice("Set identity.address (or --address) to see what you may do."))
		fmt.Println()
		return nil
	}
	fmt.Print(cli.RenderFields("You may", [][]string{
		{"Donate to", formatNumber(int64(canDonate)) + " campaigns"},
		{"Claim", formatNumber(int64(canClaim)) + " campaigns"},
		{"Refund from", formatNumber(int64(canRefund)) + " campaigns"},
		{"Fund", formatNumber(int64(canFund)) + " loans"},
		{"Repay", formatNumber(int64(canRepay)) + " loans"},
	}))
	fmt.Println()
	return nil
}
