package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/actions"
	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/identity"
	"github.com/theirongolddev/chainfund/internal/ledger"
	"github.com/theirongolddev/chainfund/internal/model"
)

// actionTimeout bounds one send plus the reads that follow it.
const actionTimeout = 5 * time.Minute

var donateCmd = &cobra.Command{
	Use:   "donate <campaign-id> <amount>",
	Short: "Donate to a campaign (amount in ETH)",
	Args:  cobra.ExactArgs(2),
	RunE:  runDonate,
}

var claimCmd = &cobra.Command{
	Use:   "claim <campaign-id>",
	Short: "Claim the funds of your ended, funded campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAction(actionClaim),
}

var refundCmd = &cobra.Command{
	Use:   "refund <campaign-id>",
	Short: "Request a refund from an ended campaign that missed its goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAction(actionRefund),
}

var mintCmd = &cobra.Command{
	Use:   "mint <campaign-id>",
	Short: "Mint the receipt NFT of an ended, funded campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAction(actionMint),
}

const (
	actionDonate = "donate"
	actionClaim  = "claim"
	actionRefund = "refund"
	actionMint   = "mint"
)

func init() {
	for _, c := range []*cobra.Command{donateCmd, claimCmd, refundCmd, mintCmd} {
		c.Flags().BoolVar(&flagForce, "force", false, "Send even when the action looks ineligible")
		rootCmd.AddCommand(c)
	}
}

// campaignGate returns why caller may not take action on s, or nil.
func campaignGate(action string, view model.CampaignView) error {
	switch action {
	case actionDonate:
		if !view.CanDonate {
			return errors.New("campaign has ended; donations are closed")
		}
	case actionClaim:
		if !view.CanClaim {
			return errors.New("only the owner can claim an ended, funded, unclaimed campaign")
		}
	case actionRefund:
		if !view.CanRefund {
			return errors.New("refunds open only once a campaign ends short of its goal")
		}
	case actionMint:
		if !view.CanMint {
			return errors.New("a receipt can be minted once, for an ended funded campaign")
		}
	}
	return nil
}

func runDonate(_ *cobra.Command, args []string) error {
	return campaignAction(actionDonate, args[0], args[1])
}

func runCampaignAction(action string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		return campaignAction(action, args[0], "")
	}
}

func campaignAction(action, idArg, amount string) error {
	id, err := parseCampaignID(idArg)
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

	s, err := c.mirror.Campaign(ctx, id)
	if err != nil {
		return err
	}
	view := engine.DeriveCampaignView(s, caller, time.Now())
	if action == actionMint {
		nft, err := c.mirror.NFT(ctx, id)
		if err != nil {
			return err
		}
		view = engine.DeriveCampaignViewWithNFT(s, nft, caller, time.Now())
	}
	if err := campaignGate(action, view); err != nil && !flagForce {
		return fmt.Errorf("%w (use --force to send anyway)", err)
	}

	progress("Sending %s for campaign #%d...", action, id)
	var res *actions.CampaignResult
	switch action {
	case actionDonate:
		res, err = c.runner.Donate(ctx, id, amount)
	case actionClaim:
		res, err = c.runner.ClaimFunds(ctx, id)
	case actionRefund:
		res, err = c.runner.RequestRefund(ctx, id)
	case actionMint:
		res, err = c.runner.MintReceipt(ctx, id)
	}
	if res == nil {
		return err
	}
	if err := reportReceipt(res.Receipt, err); err != nil {
		return err
	}
	if err == nil {
		printCampaign(res.Campaign, engine.DeriveCampaignViewWithNFT(res.Campaign, res.NFT, caller, time.Now()), res.NFT)
		fmt.Println()
	}
	return nil
}

// reportReceipt prints a settled transaction. A refresh failure after a
// successful send is a warning, not a failure of the command.
func reportReceipt(r *ledger.Receipt, err error) error {
	if err != nil && !errors.Is(err, actions.ErrRefresh) {
		return err
	}
	fmt.Println()
	fmt.Printf("  Confirmed: tx %s", r.TxHash)
	if r.BlockNumber > 0 {
		fmt.Printf(" in block %s", formatNumber(int64(r.BlockNumber)))
	}
	fmt.Println()
	if err != nil {
		fmt.Println(cli.RenderNotice("The ledger could not be re-read; run the list command again for fresh state."))
	}
	return nil
}
