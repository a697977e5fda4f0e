package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	got := LayoutRow(10, 3)
	if len(got) != 3 || got[0] != 4 || got[1] != 3 || got[2] != 3 {
		t.Fatalf("LayoutRow(10, 3) = %v, want [4 3 3]", got)
	}
	if LayoutRow(10, 0) != nil {
		t.Fatal("LayoutRow(10, 0) should be nil")
	}
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22, false)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22, true)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}

	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Errorf("line %d width = %d, want %d", i, w, want)
		}
		if i >= shortLines && !strings.Contains(line, "\x1b[") {
			t.Errorf("padding line %d has no background styling", i)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Campaigns", Value: "12"},
		{Label: "Raised", Value: "4.5 ETH", Hint: "3 funded"},
		{Label: "Open", Value: "7"},
	}, 90)
	if w := lipgloss.Width(row); w != 90 {
		t.Fatalf("row width = %d, want 90", w)
	}
}

func TestRenderTabBarMatchesVisualWidths(t *testing.T) {
	for active := range Tabs {
		want := 0
		for i, tab := range Tabs {
			want += TabVisualWidth(tab, i == active)
			if i < len(Tabs)-1 {
				want++ // separator
			}
		}
		// Width 0 leaves the row unpadded.
		if got := lipgloss.Width(RenderTabBar(active, 0)); got != want {
			t.Fatalf("active=%d tab bar width = %d, want %d", active, got, want)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if TabIdxByKey("2") != 1 || TabIdxByKey("x") != -1 {
		t.Fatal("TabIdxByKey mismatch")
	}
}

func TestFundingBar(t *testing.T) {
	out := FundingBar(150, 20)
	if !strings.Contains(out, "100.0%") {
		t.Fatalf("FundingBar(150) = %q, want clamped to 100.0%%", out)
	}
	if w := lipgloss.Width(FundingBar(40, 20)); w != 20+1+6 {
		t.Fatalf("FundingBar width = %d, want 27", w)
	}
}
