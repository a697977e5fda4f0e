package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/identity"
	"github.com/theirongolddev/chainfund/internal/model"
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List crowdfunding campaigns",
	Args:  cobra.NoArgs,
	RunE:  runCampaigns,
}

var campaignCmd = &cobra.Command{
	Use:   "campaign <id>",
	Short: "Show one campaign with its donations",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaign,
}

func init() {
	campaignsCmd.Flags().BoolVar(&flagMine, "mine", false, "Only campaigns you own")
	campaignsCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
	campaignCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(campaignsCmd)
	rootCmd.AddCommand(campaignCmd)
}

type campaignRow struct {
	model.CampaignSnapshot
	View model.CampaignView `json:"view"`
}

func runCampaigns(_ *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	progress("Reading campaigns...")
	caller := identity.Resolve(ctx, c.ident)
	campaigns, err := c.mirror.Campaigns(ctx)
	if err != nil {
		return err
	}
	if flagMine {
		if caller == "" {
			return fmt.Errorf("--mine needs an identity; set identity.address or pass --address")
		}
		campaigns = engine.FilterByOwner(campaigns, caller)
	}

	now := time.Now()
	rows := make([]campaignRow, 0, len(campaigns))
	for _, s := range campaigns {
		rows = append(rows, campaignRow{CampaignSnapshot: s, View: engine.DeriveCampaignView(s, caller, now)})
	}
	if flagJSON {
		return writeJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Println()
		fmt.Println(cli.RenderNotice("No campaigns found."))
		fmt.Println()
		return nil
	}

	table := cli.Table{
		Title:    fmt.Sprintf("Campaigns (%d)", len(rows)),
		Headers:  []string{"ID", "Title", "Owner", "Raised", "Target", "Funded", "Time left", "You may"},
		TextCols: 3,
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(r.ID),
			truncate(r.Title, 32),
			cli.FormatIdentity(r.Owner),
			cli.FormatAmountShort(r.AmountCollected),
			cli.FormatAmountShort(r.Target),
			cli.FormatPercent(r.View.PercentFunded),
			cli.RenderDaysLeft(r.View.DaysLeft, r.View.IsEnded),
			campaignAllowed(r.View),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(table))
	if caller == "" {
		fmt.Println(cli.RenderNotice("No identity set: showing what anyone may do."))
	}
	fmt.Println()
	return nil
}

func campaignAllowed(v model.CampaignView) string {
	var out []string
	if v.CanDonate {
		out = append(out, "donate")
	}
	if v.CanClaim {
		out = append(out, "claim")
	}
	if v.CanRefund {
		out = append(out, "refund")
	}
	if v.CanMint {
		out = append(out, "mint")
	}
	return joinOrDash(out)
}

type campaignDetailOut struct {
	campaignRow
	Donations []model.Donation `json:"donations"`
	NFT       model.NFTDetails `json:"nft"`
}

func runCampaign(_ *cobra.Command, args []string) error {
	id, err := parseCampaignID(args[0])
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
	s, err := c.mirror.Campaign(ctx, id)
	if err != nil {
		return err
	}
	donations, err := c.mirror.Donations(ctx, id)
	if err != nil {
		return err
	}
	nft, err := c.mirror.NFT(ctx, id)
	if err != nil {
		return err
	}
	view := engine.DeriveCampaignViewWithNFT(s, nft, caller, time.Now())

	if flagJSON {
		return writeJSON(campaignDetailOut{
			campaignRow: campaignRow{CampaignSnapshot: s, View: view},
			Donations:   donations,
			NFT:         nft,
		})
	}

	printCampaign(s, view, nft)

	if len(donations) > 0 {
		table := cli.Table{
			Title:   fmt.Sprintf("Donations (%d)", len(donations)),
			Headers: []string{"Donor", "Amount"},
		}
		for _, d := range donations {
			table.Rows = append(table.Rows, []string{cli.FormatIdentity(d.Donor), cli.FormatAmount(d.Amount)})
		}
		fmt.Print(cli.RenderTable(table))
	} else {
		fmt.Println(cli.RenderNotice("No donations yet."))
	}
	fmt.Println()
	return nil
}

func printCampaign(s model.CampaignSnapshot, view model.CampaignView, nft model.NFTDetails) {
	owner := cli.FormatIdentity(s.Owner)
	if view.IsOwner {
		owner += " (you)"
	}
	receipt := "not minted"
	if nft.HasNFT {
		receipt = fmt.Sprintf("token #%d", nft.TokenID)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CAMPAIGN #%d  %s", s.ID, truncate(s.Title, 36))))
	fmt.Println()
	if s.Description != "" {
		fmt.Println(cli.RenderNotice(truncate(s.Description, 100)))
		fmt.Println()
	}
	fmt.Print(cli.RenderFields("", [][]string{
		{"Owner", owner},
		{"Raised", cli.FormatAmount(s.AmountCollected)},
		{"Target", cli.FormatAmount(s.Target)},
		{"Progress", cli.RenderFundingBar(view.PercentFunded, 20)},
		{"Deadline", s.Deadline.Local().Format("2006-01-02 15:04")},
		{"Time left", cli.RenderDaysLeft(view.DaysLeft, view.IsEnded)},
		{"Claimed", cli.FormatYesNo(s.Claimed)},
		{"Receipt NFT", receipt},
		{"You may", campaignAllowed(view)},
	}))
}

func parseCampaignID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid campaign id %q", s)
	}
	return id, nil
}

func parseLoanID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid loan id %q", s)
	}
	return id, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func joinOrDash(parts []string) string {
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
