package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/identity"
	"github.com/theirongolddev/chainfund/internal/model"
)

var flagStage string

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "List microloans",
	Args:  cobra.NoArgs,
	RunE:  runLoans,
}

var loanCmd = &cobra.Command{
	Use:   "loan <id>",
	Short: "Show one microloan",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoan,
}

func init() {
	loansCmd.Flags().BoolVar(&flagMine, "mine", false, "Only loans you requested")
	loansCmd.Flags().StringVar(&flagStage, "stage", "", "Only loans in this stage (pending, active, repaid, defaulted)")
	loansCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
	loanCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(loansCmd)
	rootCmd.AddCommand(loanCmd)
}

type loanRow struct {
	model.LoanSnapshot
	View model.LoanView `json:"view"`
}

func runLoans(_ *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	caller := identity.Resolve(ctx, c.ident)
	loans, err := c.mirror.Loans(ctx, loanProgress)
	if err != nil {
		return err
	}
	if flagMine {
		if caller == "" {
			return fmt.Errorf("--mine needs an identity; set identity.address or pass --address")
		}
		loans = engine.FilterByBorrower(loans, caller)
	}

	now := time.Now()
	rows := make([]loanRow, 0, len(loans))
	for _, l := range loans {
		v := engine.DeriveLoanView(l, caller, now)
		if flagStage != "" && !stageMatches(v.Stage, flagStage) {
			continue
		}
		rows = append(rows, loanRow{LoanSnapshot: l, View: v})
	}
	if flagJSON {
		return writeJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Println()
		fmt.Println(cli.RenderNotice("No loans found."))
		fmt.Println()
		return nil
	}

	table := cli.Table{
		Title:    fmt.Sprintf("Loans (%d)", len(rows)),
		Headers:  []string{"ID", "Purpose", "Borrower", "Amount", "Funded", "Interest", "Days", "Stage", "You may"},
		TextCols: 3,
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			truncate(r.Purpose, 28),
			cli.FormatIdentity(r.Borrower),
			cli.FormatAmountShort(r.Amount),
			cli.FormatPercent(r.View.PercentFunded),
			cli.FormatInterest(r.InterestRate),
			strconv.Itoa(r.View.RemainingDays),
			cli.RenderStage(r.View.Stage, r.Status),
			loanAllowed(r.View),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(table))
	fmt.Println()
	return nil
}

func stageMatches(stage model.LoanStage, want string) bool {
	return strings.EqualFold(string(stage), strings.TrimSpace(want))
}

func loanAllowed(v model.LoanView) string {
	var out []string
	if v.CanFund {
		out = append(out, "fund")
	}
	if v.CanRepay {
		out = append(out, "repay")
	}
	return joinOrDash(out)
}

func runLoan(_ *cobra.Command, args []string) error {
	id, err := parseLoanID(args[0])
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	caller := identity.Resolve(ctx, c.ident)
	l, err := c.mirror.Loan(ctx, id)
	if err != nil {
		return err
	}
	view := engine.DeriveLoanView(l, caller, time.Now())
	if flagJSON {
		return writeJSON(loanRow{LoanSnapshot: l, View: view})
	}
	printLoan(l, view)
	return nil
}

func printLoan(l model.LoanSnapshot, view model.LoanView) {
	borrower := cli.FormatIdentity(l.Borrower)
	if view.IsOwner {
		borrower += " (you)"
	}
	started := "not funded"
	if !l.StartTime.IsZero() {
		started = l.StartTime.Local().Format("2006-01-02 15:04")
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("LOAN #%d  %s", l.ID, truncate(l.Purpose, 40))))
	fmt.Println()
	fmt.Print(cli.RenderFields("", [][]string{
		{"Borrower", borrower},
		{"Stage", cli.RenderStage(view.Stage, l.Status)},
		{"Amount", cli.FormatAmount(l.Amount)},
		{"Funded", cli.FormatAmount(l.TotalContributed)},
		{"Progress", cli.RenderFundingBar(view.PercentFunded, 20)},
		{"Still needed", cli.FormatAmount(engine.FundingGap(l))},
		{"Repaid", cli.FormatAmount(l.AmountRepaid)},
		{"Due", cli.FormatAmount(engine.AmountDue(l))},
		{"Interest", cli.FormatInterest(l.InterestRate)},
		{"Duration", cli.FormatDays(view.DurationDays)},
		{"Started", started},
		{"Remaining", cli.FormatDays(int64(view.RemainingDays))},
		{"You may", loanAllowed(view)},
	}))
	fmt.Println()
}
