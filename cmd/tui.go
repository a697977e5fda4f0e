package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/config"
	"github.com/theirongolddev/chainfund/internal/tui"
	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Logs would corrupt the alt screen; keep only errors, which are rare.
	quiet := cfg
	quiet.General.LogLevel = "error"
	logger := newLogger(quiet)

	app := tui.NewApp(tui.Options{
		Config:    cfg,
		NeedSetup: !config.Exists() && cfg.Ledger.GatewayURL == "",
		Connect: func(c config.Config) (*tui.Backend, error) {
			cl, err := newClientFor(c, logger)
			if err != nil {
				return nil, err
			}
			return &tui.Backend{Mirror: cl.mirror, Runner: cl.runner, Identity: cl.ident}, nil
		},
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
