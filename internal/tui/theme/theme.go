// Package theme defines color themes for the chainfund TUI dashboard.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/chainfund/internal/model"
)

// Theme holds the colors the dashboard paints with.
type Theme struct {
	Name string

	Background    lipgloss.Color
	Surface       lipgloss.Color // cards and panels
	SurfaceHover  lipgloss.Color // active tab
	SurfaceBright lipgloss.Color // selected list row
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused card, open form

	TextDim     lipgloss.Color // hints, disabled actions
	TextMuted   lipgloss.Color // labels
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color // active loans, links
	AccentBright lipgloss.Color // titles

	// Stage and funding colors.
	Green       lipgloss.Color
	GreenBright lipgloss.Color
	Orange      lipgloss.Color
	Red         lipgloss.Color
	Yellow      lipgloss.Color
	Magenta     lipgloss.Color
	Cyan        lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default 24-bit palette.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    "#100F0F",
	Surface:       "#1C1B1A",
	SurfaceHover:  "#282726",
	SurfaceBright: "#343331",
	Border:        "#403E3C",
	BorderAccent:  "#3AA99F",
	TextDim:       "#575653",
	TextMuted:     "#878580",
	TextPrimary:   "#FFFCF0",
	Accent:        "#3AA99F",
	AccentBright:  "#5BC8BE",
	Green:         "#879A39",
	GreenBright:   "#A3B859",
	Orange:        "#DA702C",
	Red:           "#D14D41",
	Yellow:        "#D0A215",
	Magenta:       "#CE5D97",
	Cyan:          "#24837B",
}

// Terminal sticks to the 16 ANSI colors so it follows the terminal's own scheme.
var Terminal = Theme{
	Name:          "terminal",
	Background:    "0",
	Surface:       "0",
	SurfaceHover:  "8",
	SurfaceBright: "8",
	Border:        "8",
	BorderAccent:  "6",
	TextDim:       "8",
	TextMuted:     "7",
	TextPrimary:   "15",
	Accent:        "6",
	AccentBright:  "14",
	Green:         "2",
	GreenBright:   "10",
	Orange:        "3",
	Red:           "1",
	Yellow:        "3",
	Magenta:       "5",
	Cyan:          "6",
}

// All lists the themes offered in settings.
var All = []Theme{FlexokiDark, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// Names lists the theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// StageColor returns the color used for a loan stage label.
func (t Theme) StageColor(stage model.LoanStage) lipgloss.Color {
	switch stage {
	case model.StagePending:
		return t.Yellow
	case model.StageActive:
		return t.Accent
	case model.StageRepaid:
		return t.Green
	case model.StageDefaulted:
		return t.Red
	default:
		return t.Magenta
	}
}

// FundingColor returns the color for a 0-100 funding percentage.
func (t Theme) FundingColor(pct float64) lipgloss.Color {
	switch {
	case pct >= 100:
		return t.GreenBright
	case pct >= 50:
		return t.Accent
	case pct >= 25:
		return t.Yellow
	default:
		return t.Orange
	}
}
