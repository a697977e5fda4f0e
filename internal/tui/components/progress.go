package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

// FundingBar renders a 0-100 funding percentage as a bar with its figure.
func FundingBar(pct float64, width int) string {
	t := theme.Active

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if width < 4 {
		width = 4
	}

	color := t.FundingColor(pct)
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return bar.ViewAs(pct/100) + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%5.1f%%", pct))
}

// StageBadge renders a loan stage label in its stage color.
func StageBadge(label string, color lipgloss.Color) string {
	t := theme.Active
	return lipgloss.NewStyle().
		Foreground(color).
		Background(t.Surface).
		Bold(true).
		Render(label)
}
