package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/litescript/torrenthunt/internal/theme"
)

// GetStyles returns current themed styles
func GetStyles() theme.Styles {
	return theme.Current()
}

// HealthBar renders a visual health indicator
func HealthBar(health int, width int) string {
	styles := GetStyles()

	filled := min((health*width)/100, width)

	var style lipgloss.Style
	switch {
	case health >= 70:
		style = styles.HealthGood
	case health >= 40:
		style = styles.HealthMed
	default:
		style = styles.HealthBad
	}

	bar := style.Render(strings.Repeat("█", filled))
	empty := styles.Muted.Render(strings.Repeat("░", width-filled))

	return bar + empty
}

// TruncateString truncates a string to max display cells with ellipsis
func TruncateString(s string, max int) string {
	if runewidth.StringWidth(s) <= max {
		return s
	}
	if max <= 3 {
		return runewidth.Truncate(s, max, "")
	}
	return runewidth.Truncate(s, max, "...")
}

// PadRight pads or cuts a string to exactly width display cells
func PadRight(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, ""), width)
}

// PadLeft pads a string on the left to exactly width display cells
func PadLeft(s string, width int) string {
	return runewidth.FillLeft(runewidth.Truncate(s, width, ""), width)
}

// formatCount formats peer counts with thousands separators
func formatCount(n int) string {
	return humanize.Comma(int64(n))
}
