package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

// StatusInfo is what the bottom status bar shows.
type StatusInfo struct {
	Identity    string // shortened caller address, "" when not connected
	DataAge     string // e.g. "fetched 3 minutes ago"
	Refreshing  bool
	AutoRefresh bool
	Pending     int // actions awaiting settlement
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	left := " [?]help  [q]uit"
	if info.Identity != "" {
		left += "  " + accent.Render("● "+info.Identity)
	} else {
		left += "  " + warn.Render("○ not connected")
	}

	var right []string
	if info.Pending > 0 {
		right = append(right, warn.Render("sending…"))
	}
	switch {
	case info.Refreshing:
		right = append(right, "refreshing…")
	case info.DataAge != "":
		right = append(right, info.DataAge)
	}
	if info.AutoRefresh {
		right = append(right, "auto")
	}
	r := strings.Join(right, "  ") + " "

	// Pad middle
	padding := width - lipgloss.Width(left) - lipgloss.Width(r)
	if padding < 0 {
		padding = 0
	}

	return style.Render(left + strings.Repeat(" ", padding) + r)
}
