package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/actions"
	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/identity"
)

var fundCmd = &cobra.Command{
	Use:   "fund <loan-id> [amount]",
	Short: "Fund a pending loan (defaults to the remaining gap)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLoanAction(actionFund),
}

var repayCmd = &cobra.Command{
	Use:   "repay <loan-id> [amount]",
	Short: "Repay your active loan (defaults to the amount due)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLoanAction(actionRepay),
}

const (
	actionFund  = "fund"
	actionRepay = "repay"
)

func init() {
	for _, c := range []*cobra.Command{fundCmd, repayCmd} {
		c.Flags().BoolVar(&flagForce, "force", false, "Send even when the action looks ineligible")
		rootCmd.AddCommand(c)
	}
}

func runLoanAction(action string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		id, err := parseLoanID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		caller := identity.Resolve(ctx, c.ident)
		if caller == "" {
			return actions.ErrNotConnected
		}

		l, err := c.mirror.Loan(ctx, id)
		if err != nil {
			return err
		}
		view := engine.DeriveLoanView(l, caller, time.Now())

		var amount string
		switch action {
		case actionFund:
			switch {
			case view.IsOwner && !flagForce:
				return errors.New("you cannot fund your own loan (use --force to send anyway)")
			case !view.CanFund && !flagForce:
				return errors.New("only pending loans can be funded (use --force to send anyway)")
			}
			amount = engine.FundingGap(l).String()
		case actionRepay:
			if !view.CanRepay && !flagForce {
				return errors.New("only the borrower can repay an active loan (use --force to send anyway)")
			}
			amount = engine.AmountDue(l).String()
		}
		if len(args) == 2 {
			amount = args[1]
		}

		progress("Sending %s of %s for loan #%d...", action, amount, id)
		var res *actions.LoanResult
		if action == actionFund {
			res, err = c.runner.FundLoan(ctx, id, amount)
		} else {
			res, err = c.runner.RepayLoan(ctx, id, amount)
		}
		if res == nil {
			return err
		}
		if err := reportReceipt(res.Receipt, err); err != nil {
			return err
		}
		if updated, ok := res.Loan(id); ok {
			printLoan(updated, engine.DeriveLoanView(updated, caller, time.Now()))
		} else if err == nil {
			fmt.Println()
		}
		return nil
	}
}
