package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/actions"
)

var (
	flagTitle       string
	flagDescription string
	flagTarget      string
	flagRunDays     float64
	flagImage       string

	flagPurpose  string
	flagAmount   string
	flagInterest float64
	flagLoanDays float64
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign or request a loan",
}

var createCampaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Start a crowdfunding campaign owned by you",
	Args:  cobra.NoArgs,
	RunE:  runCreateCampaign,
}

var createLoanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Request a microloan with you as borrower",
	Args:  cobra.NoArgs,
	RunE:  runCreateLoan,
}

func init() {
	f := createCampaignCmd.Flags()
	f.StringVar(&flagTitle, "title", "", "Campaign title")
	f.StringVar(&flagDescription, "description", "", "Campaign description")
	f.StringVar(&flagTarget, "target", "", "Funding goal in ETH")
	f.Float64Var(&flagRunDays, "days", 30, "Days until the deadline")
	f.StringVar(&flagImage, "image", "", "Image URL")
	_ = createCampaignCmd.MarkFlagRequired("title")
	_ = createCampaignCmd.MarkFlagRequired("description")
	_ = createCampaignCmd.MarkFlagRequired("target")

	f = createLoanCmd.Flags()
	f.StringVar(&flagPurpose, "purpose", "", "What the loan is for")
	f.StringVar(&flagAmount, "amount", "", "Requested amount in ETH")
	f.Float64Var(&flagInterest, "interest", 0, "Interest rate in percent, e.g. 5.5")
	f.Float64Var(&flagLoanDays, "days", 30, "Loan duration in days")
	_ = createLoanCmd.MarkFlagRequired("purpose")
	_ = createLoanCmd.MarkFlagRequired("amount")

	createCmd.AddCommand(createCampaignCmd)
	createCmd.AddCommand(createLoanCmd)
	rootCmd.AddCommand(createCmd)
}

func runCreateCampaign(_ *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	in := actions.CampaignInput{
		Title:       flagTitle,
		Description: flagDescription,
		Target:      flagTarget,
		Deadline:    time.Now().Add(time.Duration(flagRunDays * float64(24*time.Hour))),
		Image:       flagImage,
	}

	progress("Creating campaign...")
	res, err := c.runner.CreateCampaign(ctx, in)
	if res == nil {
		return err
	}
	if err := reportReceipt(res.Receipt, err); err != nil {
		return err
	}
	if n := len(res.Campaigns); n > 0 {
		fmt.Printf("  Ledger now holds %s campaigns; yours is likely #%d.\n\n", formatNumber(int64(n)), n-1)
	}
	return nil
}

func runCreateLoan(_ *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	in := actions.LoanInput{
		Purpose:         flagPurpose,
		Amount:          flagAmount,
		InterestPercent: flagInterest,
		DurationDays:    flagLoanDays,
	}

	progress("Requesting loan...")
	res, err := c.runner.CreateLoan(ctx, in)
	if res == nil {
		return err
	}
	if err := reportReceipt(res.Receipt, err); err != nil {
		return err
	}
	if n := len(res.Loans); n > 0 {
		fmt.Printf("  Ledger now holds %s loans; yours is likely #%d.\n\n", formatNumber(int64(n)), res.Loans[n-1].ID)
	}
	return nil
}
