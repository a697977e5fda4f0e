package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name string
	Key  string // shortcut shown after the name
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Campaigns", Key: "1"},
	{Name: "Loans", Key: "2"},
	{Name: "Settings", Key: "3"},
}

const tabPadding = 1

func tabLabel(tab Tab, active bool) string {
	if active {
		return tab.Name
	}
	return tab.Name + "[" + tab.Key + "]"
}

// TabVisualWidth returns the rendered width of a tab, padding included.
// Mouse hit-testing relies on this matching RenderTabBar.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(tabLabel(tab, active)) + 2*tabPadding
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, tabPadding)

	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, tabPadding)

	sepStyle := lipgloss.NewStyle().
		Foreground(t.Border).
		Background(t.Surface)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tabLabel(tab, true)))
		} else {
			parts = append(parts, inactiveStyle.Render(tabLabel(tab, false)))
		}
	}

	row := strings.Join(parts, sepStyle.Render("│"))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(row)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key string) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
