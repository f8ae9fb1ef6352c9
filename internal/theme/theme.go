// Package theme provides terminal theming with automatic detection.
// It reads colors from Alacritty, Kitty, Foot and Omarchy terminal
// configurations, with TORRENTHUNT_* environment overrides on top.
package theme

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds the color scheme for the TUI
type Palette struct {
	BG       string // background
	FG       string // foreground (primary text)
	Muted    string // secondary info, borders
	Accent   string // health bars, highlights
	AccentBg string // selection background
	Error    string // error/warning colors
}

// DefaultPalette returns the fallback amber-on-dark theme
func DefaultPalette() Palette {
	return Palette{
		BG:       "#0a0a0a",
		FG:       "#d4a017",
		Muted:    "#6b6b4f",
		Accent:   "#8bc34a",
		AccentBg: "#1a1a14",
		Error:    "#ff6b6b",
	}
}

// Styles holds all lipgloss styles derived from a palette
type Styles struct {
	Header        lipgloss.Style
	Title         lipgloss.Style
	StatusBar     lipgloss.Style
	SearchPrompt  lipgloss.Style
	TableHeader   lipgloss.Style
	SortedHeader  lipgloss.Style
	TableRow      lipgloss.Style
	TableSelected lipgloss.Style
	NoMagnet      lipgloss.Style // rows that cannot be opened
	HealthGood    lipgloss.Style
	HealthMed     lipgloss.Style
	HealthBad     lipgloss.Style
	SourceOn      lipgloss.Style
	SourceOff     lipgloss.Style
	SourceCursor  lipgloss.Style
	Muted         lipgloss.Style
	Error         lipgloss.Style
	HelpKey       lipgloss.Style
	HelpDesc      lipgloss.Style
	Panel         lipgloss.Style
}

// NewStyles creates styles from a palette
func NewStyles(p Palette) Styles {
	fg := lipgloss.Color(p.FG)
	muted := lipgloss.Color(p.Muted)

	return Styles{
		Header:       lipgloss.NewStyle().Foreground(fg).Bold(true).Padding(0, 1),
		Title:        lipgloss.NewStyle().Foreground(fg).Bold(true),
		StatusBar:    lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		SearchPrompt: lipgloss.NewStyle().Foreground(muted),

		TableHeader: lipgloss.NewStyle().
			Foreground(muted).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(muted),
		SortedHeader: lipgloss.NewStyle().Foreground(fg).Bold(true),
		TableRow:     lipgloss.NewStyle().Foreground(fg),
		TableSelected: lipgloss.NewStyle().
			Foreground(fg).
			Background(lipgloss.Color(p.AccentBg)).
			Bold(true),
		NoMagnet: lipgloss.NewStyle().Foreground(muted).Italic(true),

		HealthGood: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)),
		HealthMed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb347")),
		HealthBad:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)),

		SourceOn:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)),
		SourceOff:    lipgloss.NewStyle().Foreground(muted),
		SourceCursor: lipgloss.NewStyle().Foreground(fg).Background(lipgloss.Color(p.AccentBg)).Bold(true),

		Muted:    lipgloss.NewStyle().Foreground(muted),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)),
		HelpKey:  lipgloss.NewStyle().Foreground(muted),
		HelpDesc: lipgloss.NewStyle().Foreground(fg),
		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
	}
}

var (
	mu      sync.RWMutex
	palette = DefaultPalette()
	styles  = NewStyles(palette)
)

// Current returns the active styles. Safe to call while a Watcher reloads.
func Current() Styles {
	mu.RLock()
	defer mu.RUnlock()
	return styles
}

// CurrentPalette returns the active palette.
func CurrentPalette() Palette {
	mu.RLock()
	defer mu.RUnlock()
	return palette
}

// Set makes p the active palette.
func Set(p Palette) {
	s := NewStyles(p)
	mu.Lock()
	palette, styles = p, s
	mu.Unlock()
}

// Refresh re-runs detection and activates the result.
func Refresh() Palette {
	p := Detect()
	Set(p)
	return p
}
