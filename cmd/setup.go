package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/config"
	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	gateway := cfg.Ledger.GatewayURL
	apiKey := cfg.Ledger.APIKey
	crowdfunding := cfg.Ledger.CrowdfundingContract
	microfinance := cfg.Ledger.MicrofinanceContract
	address := cfg.Identity.Address
	themeName := cfg.Appearance.Theme

	themes := make([]huh.Option[string], 0, len(theme.Names()))
	for _, name := range theme.Names() {
		themes = append(themes, huh.NewOption(name, name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ledger gateway URL").
				Placeholder("https://gateway.example.org").
				Value(&gateway).
				Validate(func(s string) error {
					u, err := url.Parse(strings.TrimSpace(s))
					if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
						return errors.New("enter an http(s) URL")
					}
					return nil
				}),
			huh.NewInput().
				Title("Gateway API key").
				Description("Leave empty if the gateway is open").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
		huh.NewGroup(
			huh.NewInput().Title("Crowdfunding contract address").Value(&crowdfunding).Validate(nonEmpty),
			huh.NewInput().Title("Microfinance contract address").Value(&microfinance).Validate(nonEmpty),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your ledger address").
				Description("Needed to donate, claim, fund or repay. Leave empty to browse read-only.").
				Value(&address),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&themeName),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return err
	}

	cfg.Ledger.GatewayURL = strings.TrimSpace(gateway)
	cfg.Ledger.APIKey = strings.TrimSpace(apiKey)
	cfg.Ledger.CrowdfundingContract = strings.TrimSpace(crowdfunding)
	cfg.Ledger.MicrofinanceContract = strings.TrimSpace(microfinance)
	cfg.Identity.Address = strings.TrimSpace(address)
	cfg.Appearance.Theme = themeName

	// Save
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	probeGateway(cfg)
	fmt.Println("  Run `chainfund setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}

// probeGateway reports whether the saved settings reach a ledger.
func probeGateway(cfg config.Config) {
	c, err := newClientFor(cfg, newLogger(cfg))
	if err != nil {
		fmt.Printf("  Gateway check skipped: %v\n", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := c.mirror.LoanCount(ctx)
	if err != nil {
		fmt.Printf("  Gateway check failed: %v\n", err)
		return
	}
	fmt.Printf("  Gateway reachable: %s loans on the ledger\n", formatNumber(n))
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}
