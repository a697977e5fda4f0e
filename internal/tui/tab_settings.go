package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/config"
	"github.com/theirongolddev/chainfund/internal/tui/components"
	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

func (a App) updateSettingsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "e", "enter":
		v := &formValues{settings: newSetupValues(a.cfg)}
		return a.openForm(formSettings, v, newSettingsForm(v.settings))
	}
	return a, nil
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	orUnset := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	apiKey := "(not set)"
	if a.cfg.Ledger.APIKey != "" {
		apiKey = maskKey(a.cfg.Ledger.APIKey)
	}

	rows := [][2]string{
		{"Gateway URL", orUnset(a.cfg.Ledger.GatewayURL)},
		{"API key", apiKey},
		{"Crowdfunding", orUnset(a.cfg.Ledger.CrowdfundingContract)},
		{"Microfinance", orUnset(a.cfg.Ledger.MicrofinanceContract)},
		{"Address", orUnset(a.cfg.Identity.Address)},
		{"Theme", a.cfg.Appearance.Theme},
		{"Auto-refresh", fmt.Sprintf("%s, every %s", cli.FormatYesNo(a.autoRefresh), a.refreshInterval)},
		{"Config file", config.ConfigPath()},
	}

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-14s ", r[0])))
		b.WriteString(valueStyle.Render(r[1]))
		b.WriteString("\n")
	}
	if a.loadTime > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-14s ", "Last read")))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%d campaigns, %d loans)",
			a.loadTime.Round(time.Millisecond), len(a.campaigns), len(a.loans))))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("[e] edit settings"))

	return components.ContentCard("Settings", b.String(), cw, true)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}
