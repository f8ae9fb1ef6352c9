package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/torrenthunt/internal/search"
	"github.com/litescript/torrenthunt/internal/version"
)

// column is one results table column. Width 0 takes the remaining space.
type column struct {
	title string
	field search.SortField
	width int
	left  bool
}

var columns = []column{
	{"NAME", search.FieldName, 0, true},
	{"SIZE", search.FieldSize, 10, false},
	{"SEED", search.FieldSeeders, 7, false},
	{"LEECH", search.FieldLeechers, 7, false},
	{"SOURCE", search.FieldSource, 16, true},
	{"UPLOADER", search.FieldUploader, 12, true},
	{"HEALTH", search.FieldNone, 6, false},
}

// View renders the model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// header ~3 lines, status 2, search bar 3
	contentHeight := max(m.height-10, 5)

	if m.focus == focusSources {
		b.WriteString(m.renderSources(contentHeight))
		return b.String()
	}
	b.WriteString(m.renderSearch(contentHeight))
	return b.String()
}

func (m Model) renderHeader() string {
	styles := GetStyles()

	title := styles.Header.Render("torrenthunt")
	meta := styles.Muted.Render(fmt.Sprintf("v%s | %d/%d sources | %s",
		version.Version, len(m.selectedSources()), len(m.sources), m.category.Label()))
	return "\n" + title + " " + meta
}

func (m Model) renderSearch(height int) string {
	styles := GetStyles()
	var b strings.Builder

	b.WriteString(styles.SearchPrompt.Render("Search: ") + m.searchInput.View())
	b.WriteString("\n")
	if m.focus == focusFilter || m.filterInput.Value() != "" {
		b.WriteString(styles.SearchPrompt.Render("Filter: ") + m.filterInput.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.searching:
		b.WriteString(m.spinner.View() + " " + m.statusMsg)
	case m.err != nil:
		b.WriteString(styles.Error.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.view != nil:
		b.WriteString(m.renderResults(height - 2))
	default:
		b.WriteString(styles.Muted.Render("Type a query and press enter, or ctrl+t for trending."))
	}
	return b.String()
}

func (m Model) renderSources(height int) string {
	styles := GetStyles()
	var b strings.Builder

	b.WriteString(styles.Title.Render("Search Sources"))
	b.WriteString("  ")
	b.WriteString(styles.Muted.Render("[space]Toggle  [a]All  [esc]Back"))
	b.WriteString("\n\n")

	if len(m.sources) == 0 {
		b.WriteString(styles.Muted.Render("No sources configured."))
		return b.String()
	}

	nameWidth := max(m.width-20, 24)
	visible := max(height-3, 1)
	start := 0
	if m.srcCursor >= visible {
		start = m.srcCursor - visible + 1
	}
	end := min(start+visible, len(m.sources))

	for i := start; i < end; i++ {
		info := m.sources[i]
		mark, style := "[ ]", styles.SourceOff
		if m.enabled[info.ID] {
			mark, style = "[x]", styles.SourceOn
		}
		line := fmt.Sprintf("%s %s %s", mark, PadRight(info.Label(), nameWidth), string(info.Kind))
		if i == m.srcCursor {
			b.WriteString(styles.SourceCursor.Render("▶ " + line))
		} else {
			b.WriteString(style.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderResults(height int) string {
	styles := GetStyles()

	if len(m.rows) == 0 {
		if m.view.Len() > 0 {
			return styles.Muted.Render("No results match the filter")
		}
		return styles.Muted.Render("No results")
	}

	var b strings.Builder

	// Rows have a 2-cell prefix, columns are separated by one space
	fixed := 2
	for _, c := range columns[1:] {
		fixed += c.width + 1
	}
	nameWidth := max(m.width-fixed-2, 20)

	var headerParts []string
	for _, c := range columns {
		w := c.width
		if w == 0 {
			w = nameWidth
		}
		title := c.title
		if c.field != search.FieldNone && c.field == m.sortField {
			if m.sortDir == search.Asc {
				title += "▲"
			} else {
				title += "▼"
			}
			headerParts = append(headerParts, styles.SortedHeader.Render(align(title, w, c.left)))
			continue
		}
		headerParts = append(headerParts, styles.Muted.Render(align(title, w, c.left)))
	}
	header := "  " + strings.Join(headerParts, " ")
	b.WriteString(styles.TableHeader.Render(header))
	b.WriteString("\n")

	visible := max(height-3, 1)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.rows))

	for i := start; i < end; i++ {
		t := m.rows[i]
		cells := []string{
			PadRight(TruncateString(t.Name, nameWidth), nameWidth),
			PadLeft(t.HumanSize(), columns[1].width),
			PadLeft(formatCount(t.Seeders), columns[2].width),
			PadLeft(formatCount(t.Leechers), columns[3].width),
			PadRight(TruncateString(t.Source.Label(), columns[4].width), columns[4].width),
			PadRight(TruncateString(t.Uploader, columns[5].width), columns[5].width),
		}
		row := strings.Join(cells, " ") + " " + HealthBar(t.Health(), columns[6].width)

		switch {
		case i == m.cursor:
			b.WriteString(styles.TableSelected.Render("▶ " + row))
		case !t.HasMagnet():
			b.WriteString(styles.NoMagnet.Render("  " + row))
		default:
			b.WriteString(styles.TableRow.Render("  " + row))
		}
		b.WriteString("\n")
	}

	if t, ok := m.selected(); ok {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(t))
	}
	return b.String()
}

// renderDetail shows the fields that have no column for the selected row.
func (m Model) renderDetail(t search.Torrent) string {
	styles := GetStyles()

	parts := []string{t.Quality().String() + " quality"}
	if t.Category != "" {
		parts = append(parts, t.Category)
	}
	if t.Date != "" {
		parts = append(parts, t.Date)
	}
	if t.InfoHash != "" {
		parts = append(parts, t.InfoHash)
	}
	if !t.HasMagnet() {
		parts = append(parts, "no magnet link")
	}
	return styles.Muted.Render(TruncateString(strings.Join(parts, " · "), max(m.width-2, 20)))
}

func (m Model) renderStatusBar() string {
	styles := GetStyles()

	var modeStr string
	switch m.focus {
	case focusInput:
		modeStr = styles.SourceOn.Render("INPUT")
	case focusFilter:
		modeStr = styles.SourceOn.Render("FILTER")
	case focusSources:
		modeStr = styles.HealthMed.Render("SOURCES")
	default:
		modeStr = styles.HealthMed.Render("CMD")
	}

	var help string
	switch m.focus {
	case focusInput:
		help = "[enter]Search [ctrl+t]Trending [tab]Sources [esc]CMD"
	case focusFilter:
		help = "[enter]Keep [esc]Clear"
	case focusSources:
		help = "[space]Toggle [a]All [esc]Back"
	default:
		help = "[←→]Sort [s]Reverse [f]Filter [d]Dedupe [c]Category [t]Trending [enter]Open [y]Copy [w]Page [/]Search [q]Quit"
	}

	left := modeStr
	if m.statusMsg != "" && !m.searching {
		status := m.statusMsg
		if m.err != nil {
			status = styles.Error.Render(status)
		}
		left += "  " + status
	}
	if m.dedupe {
		left += "  " + styles.Muted.Render("[dedupe]")
	}

	right := styles.HelpKey.Render(help)
	pad := max(m.width-lipgloss.Width(right)-2, 0)
	return left + "\n" + strings.Repeat(" ", pad) + right
}

func align(s string, width int, left bool) string {
	if left {
		return PadRight(s, width)
	}
	return PadLeft(s, width)
}
