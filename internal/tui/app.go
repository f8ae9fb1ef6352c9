// Package tui implements the terminal user interface using Bubble Tea.
// It submits searches to the aggregation engine, keeps the latest result in
// a search.View and renders it as a sortable, filterable table.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/litescript/torrenthunt/internal/config"
	"github.com/litescript/torrenthunt/internal/search"
	"github.com/litescript/torrenthunt/internal/source"
	"github.com/litescript/torrenthunt/internal/theme"
	"github.com/litescript/torrenthunt/internal/version"
)

// focus is the widget receiving keys
type focus int

const (
	focusInput focus = iota
	focusResults
	focusFilter
	focusSources
)

// Options replaces the model's side effects. Nil fields use the real ones.
type Options struct {
	Open        func(target string) error
	Copy        func(text string) error
	Persist     func(mutate func(*config.Config)) error // changes only what mutate sets
	CheckUpdate func(context.Context) version.UpdateInfo
}

// Model is the main application state
type Model struct {
	cfg    config.Config
	engine *search.Engine
	opts   Options

	// Components
	searchInput textinput.Model
	filterInput textinput.Model
	spinner     spinner.Model

	// Source selection, in registry order
	sources   []source.Info
	enabled   map[source.ID]bool
	srcCursor int

	// Request state
	focus     focus
	category  search.Category
	sortField search.SortField
	sortDir   search.Direction
	dedupe    bool

	// seq numbers every submitted search; a result whose seq is not the
	// latest is dropped.
	seq       uint64
	cancel    context.CancelFunc
	last      *search.Request
	searching bool

	// Results
	view   *search.View
	rows   []search.Torrent
	cursor int

	err       error
	statusMsg string

	// Dimensions
	width  int
	height int
}

// Messages
type searchResultMsg struct {
	seq    uint64
	result search.AggregatedResult
	err    error
}

// ThemeChangedMsg is sent by the theme watcher after the palette changed.
type ThemeChangedMsg struct{}

type updateCheckMsg struct {
	info version.UpdateInfo
}

type actionMsg struct {
	action string
	name   string
	err    error
}

// NewModel creates the initial model
func NewModel(cfg config.Config, engine *search.Engine, opts Options) Model {
	if opts.Open == nil {
		opts.Open = openExternal
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Persist == nil {
		opts.Persist = func(mutate func(*config.Config)) error {
			return config.Update(config.ConfigPath(), mutate)
		}
	}
	if opts.CheckUpdate == nil {
		opts.CheckUpdate = version.CheckForUpdate
	}

	ti := textinput.New()
	ti.Placeholder = "Search torrents..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	fi := textinput.New()
	fi.Placeholder = "Filter results..."
	fi.CharLimit = 128
	fi.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.CurrentPalette().Accent))

	// An empty enabled list means every registered source
	sources := engine.Registry().All()
	wanted := cfg.Search.Enabled()
	enabled := make(map[source.ID]bool, len(sources))
	for _, info := range sources {
		enabled[info.ID] = len(wanted) == 0 || slices.Contains(wanted, info.ID)
	}

	category, err := search.ParseCategory(cfg.Search.DefaultCategory)
	if err != nil {
		category = search.CategoryAll
	}
	field, err := search.ParseSortField(cfg.Sort.Field)
	if err != nil {
		field = search.FieldSeeders
	}
	dir := search.Asc
	if cfg.Sort.Desc {
		dir = search.Desc
	}

	return Model{
		cfg:         cfg,
		engine:      engine,
		opts:        opts,
		searchInput: ti,
		filterInput: fi,
		spinner:     sp,
		sources:     sources,
		enabled:     enabled,
		focus:       focusInput,
		category:    category,
		sortField:   field,
		sortDir:     dir,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		newModel, cmd := m.handleKeyPress(msg)
		if cmd != nil {
			return newModel, cmd
		}
		// Not handled: falls through to the focused text input
		m = newModel.(Model)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.searchInput.Width = max(msg.Width-20, 10)

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case searchResultMsg:
		if msg.seq != m.seq {
			log.Debug().Uint64("seq", msg.seq).Uint64("latest", m.seq).Msg("dropping stale search result")
			return m, nil
		}
		m.searching = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.applyResult(msg.result, msg.err)

	case ThemeChangedMsg:
		m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.CurrentPalette().Accent))

	case updateCheckMsg:
		switch {
		case msg.info.Error != nil:
			m.statusMsg = fmt.Sprintf("Update check failed: %v", msg.info.Error)
		case msg.info.UpdateAvailable:
			m.statusMsg = fmt.Sprintf("Update available: v%s -> v%s (run: %s)",
				msg.info.CurrentVersion, msg.info.LatestVersion, version.InstallCommand())
		default:
			m.statusMsg = fmt.Sprintf("You're on the latest version (v%s)", msg.info.CurrentVersion)
		}

	case actionMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.statusMsg = fmt.Sprintf("%s: %s", msg.action, TruncateString(msg.name, 40))
		}
	}

	switch m.focus {
	case focusInput:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	case focusFilter:
		var cmd tea.Cmd
		before := m.filterInput.Value()
		m.filterInput, cmd = m.filterInput.Update(msg)
		cmds = append(cmds, cmd)
		if m.view != nil && m.filterInput.Value() != before {
			m.view.Filter(m.filterInput.Value())
			m.refreshRows()
		}
	}

	return m, tea.Batch(cmds...)
}

// handled returns a no-op command to signal the key was handled
func handled() tea.Cmd {
	return func() tea.Msg { return nil }
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.focus {
	case focusInput:
		return m.handleInputKey(key)
	case focusFilter:
		return m.handleFilterKey(key)
	case focusSources:
		return m.handleSourcesKey(key)
	}
	return m.handleResultsKey(key)
}

func (m Model) handleInputKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" {
			return m, handled()
		}
		cmd := m.submit(search.Request{Query: query})
		return m, cmd
	case "ctrl+t":
		cmd := m.submit(search.Request{Trending: true})
		return m, cmd
	case "ctrl+u":
		m.searchInput.SetValue("")
		return m, handled()
	case "esc":
		m.setFocus(focusResults)
		return m, handled()
	case "tab":
		m.setFocus(focusSources)
		return m, handled()
	}
	// Everything else goes to the text input
	return m, nil
}

func (m Model) handleFilterKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		m.setFocus(focusResults)
		return m, handled()
	case "esc":
		m.filterInput.SetValue("")
		if m.view != nil {
			m.view.Filter("")
			m.refreshRows()
		}
		m.setFocus(focusResults)
		return m, handled()
	}
	return m, nil
}

func (m Model) handleSourcesKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.srcCursor > 0 {
			m.srcCursor--
		}
	case "down", "j":
		if m.srcCursor < len(m.sources)-1 {
			m.srcCursor++
		}
	case " ", "enter", "x":
		if m.srcCursor < len(m.sources) {
			info := m.sources[m.srcCursor]
			m.enabled[info.ID] = !m.enabled[info.ID]
			if m.enabled[info.ID] {
				m.statusMsg = fmt.Sprintf("Enabled: %s", info.Name)
			} else {
				m.statusMsg = fmt.Sprintf("Disabled: %s", info.Name)
			}
			m.saveSources()
		}
	case "a":
		for _, info := range m.sources {
			m.enabled[info.ID] = true
		}
		m.statusMsg = "Enabled all sources"
		m.saveSources()
	case "esc", "tab", "q":
		m.setFocus(focusResults)
	}
	return m, handled()
}

func (m Model) handleResultsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit

	case "/", "i":
		m.setFocus(focusInput)
	case "f":
		m.setFocus(focusFilter)
	case "tab":
		m.setFocus(focusSources)

	case "ctrl+u":
		m.searchInput.SetValue("")
		m.view, m.rows, m.cursor = nil, nil, 0
		m.statusMsg = ""
		m.setFocus(focusInput)

	case "t":
		cmd := m.submit(search.Request{Trending: true})
		return m, cmd
	case "r":
		if m.last != nil {
			cmd := m.submit(*m.last)
			return m, cmd
		}
	case "c":
		m.category = m.category.Next()
		m.statusMsg = "Category: " + m.category.Label()
		if m.last != nil {
			cmd := m.submit(*m.last)
			return m, cmd
		}

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(len(m.rows)-1, 0)

	case "left", "h":
		m.moveSortColumn(-1)
	case "right", "l":
		m.moveSortColumn(1)
	case "s":
		m.toggleSort(m.sortField)
	case "1", "2", "3", "4", "5", "6":
		m.toggleSort(search.SortFields[int(key[0]-'1')])

	case "d":
		m.dedupe = !m.dedupe
		m.refreshRows()
		if m.dedupe {
			m.statusMsg = fmt.Sprintf("Duplicates hidden (%d shown)", len(m.rows))
		} else {
			m.statusMsg = fmt.Sprintf("Duplicates shown (%d shown)", len(m.rows))
		}

	case "enter", "o":
		return m.openSelected()
	case "y":
		return m.copySelected()
	case "w":
		if t, ok := m.selected(); ok && t.URL != "" {
			return m, m.runAction("Opened page", t.Name, func() error { return m.opts.Open(t.URL) })
		}
		m.statusMsg = "No page link for this result"

	case "u":
		check := m.opts.CheckUpdate
		m.statusMsg = "Checking for updates..."
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return updateCheckMsg{info: check(ctx)}
		}
	}
	return m, handled()
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.searchInput.Blur()
	m.filterInput.Blur()
	switch f {
	case focusInput:
		m.searchInput.Focus()
	case focusFilter:
		m.filterInput.Focus()
	}
}

// submit starts req with the model's sources and category. A search still
// in flight is cancelled and its result will be dropped.
func (m *Model) submit(req search.Request) tea.Cmd {
	req.Sources = m.selectedSources()
	req.Category = m.category
	req.PerSourceLimit = m.cfg.Search.PerSourceLimit
	last := req
	m.last = &last

	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.seq++
	m.searching = true
	m.err = nil
	if req.Trending {
		m.statusMsg = "Loading trending..."
	} else {
		m.statusMsg = fmt.Sprintf("Searching for %q...", req.Query)
	}
	m.setFocus(focusResults)

	return tea.Batch(m.spinner.Tick, doSearch(ctx, m.engine, m.seq, req))
}

func doSearch(ctx context.Context, engine *search.Engine, seq uint64, req search.Request) tea.Cmd {
	return func() tea.Msg {
		result, err := engine.Aggregate(ctx, req)
		return searchResultMsg{seq: seq, result: result, err: err}
	}
}

func (m *Model) applyResult(result search.AggregatedResult, err error) {
	if err != nil && !errors.Is(err, search.ErrAllSourcesFailed) {
		m.err = err
		m.statusMsg = fmt.Sprintf("Search failed: %v", err)
		return
	}

	m.err = nil
	m.view = search.NewView(result)
	m.view.SortBy(m.sortField, m.sortDir)
	m.view.Filter(m.filterInput.Value())
	m.cursor = 0
	m.refreshRows()
	m.statusMsg = summarize(result)
}

// summarize tells "nothing matched" apart from "nothing answered".
func summarize(r search.AggregatedResult) string {
	t := r.Tally
	switch {
	case t.AllFailed():
		return fmt.Sprintf("All %d sources unreachable (%s)", t.Failed(), failureDetail(t))
	case r.Empty() && t.Failed() > 0:
		return fmt.Sprintf("No matches from %d sources; %d failed (%s)", t.Succeeded, t.Failed(), failureDetail(t))
	case r.Empty():
		return "No matches"
	}

	s := fmt.Sprintf("Found %s results from %d/%d sources in %s",
		humanize.Comma(int64(len(r.Items))), t.Succeeded, len(r.Sources), r.Elapsed.Round(10*time.Millisecond))
	if t.Failed() > 0 {
		s += fmt.Sprintf("; %d failed (%s)", t.Failed(), failureDetail(t))
	}
	return s
}

func failureDetail(t search.Tally) string {
	var parts []string
	if t.TimedOut > 0 {
		parts = append(parts, fmt.Sprintf("%d timed out", t.TimedOut))
	}
	if t.Unavailable > 0 {
		parts = append(parts, fmt.Sprintf("%d unavailable", t.Unavailable))
	}
	if t.FormatErrors > 0 {
		parts = append(parts, fmt.Sprintf("%d bad responses", t.FormatErrors))
	}
	return strings.Join(parts, ", ")
}

// refreshRows recomputes the visible rows from the view.
func (m *Model) refreshRows() {
	if m.view == nil {
		m.rows = nil
		m.cursor = 0
		return
	}
	v := m.view
	if m.dedupe {
		v = v.Dedupe()
	}
	m.rows = v.Sorted()
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m *Model) moveSortColumn(delta int) {
	n := len(search.SortFields)
	idx := slices.Index(search.SortFields, m.sortField)
	if idx < 0 {
		idx = 0
		if delta < 0 {
			idx = n - 1
		}
	} else {
		idx = (idx + delta + n) % n
	}
	m.sortField = search.SortFields[idx]
	if m.view != nil {
		m.view.SortBy(m.sortField, m.sortDir)
		m.refreshRows()
	}
	m.saveSortSettings()
}

// toggleSort flips the direction of the current column or selects a new one.
func (m *Model) toggleSort(field search.SortField) {
	v := m.view
	if v == nil {
		// No results yet: track the choice on an empty view
		v = search.NewView(search.AggregatedResult{})
		v.SortBy(m.sortField, m.sortDir)
	}
	v.Toggle(field)
	m.sortField, m.sortDir = v.Field()
	m.refreshRows()
	m.saveSortSettings()
}

func (m Model) selected() (search.Torrent, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return search.Torrent{}, false
	}
	return m.rows[m.cursor], true
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, handled()
	}
	if !t.HasMagnet() {
		m.statusMsg = fmt.Sprintf("No magnet link for %s", TruncateString(t.Name, 40))
		return m, handled()
	}
	open := m.opts.Open
	return m, m.runAction("Opened", t.Name, func() error { return open(t.Magnet) })
}

func (m Model) copySelected() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, handled()
	}
	if !t.HasMagnet() {
		m.statusMsg = fmt.Sprintf("No magnet link for %s", TruncateString(t.Name, 40))
		return m, handled()
	}
	copyFn := m.opts.Copy
	return m, m.runAction("Copied magnet", t.Name, func() error { return copyFn(t.Magnet) })
}

func (m Model) runAction(action, name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{action: action, name: name, err: fn()}
	}
}

func (m Model) selectedSources() []source.ID {
	var ids []source.ID
	for _, info := range m.sources {
		if m.enabled[info.ID] {
			ids = append(ids, info.ID)
		}
	}
	return ids
}

// saveSources persists the enabled source list
func (m *Model) saveSources() {
	var ids []string
	for _, id := range m.selectedSources() {
		ids = append(ids, string(id))
	}
	m.cfg.Search.EnabledSources = ids
	err := m.opts.Persist(func(c *config.Config) {
		c.Search.EnabledSources = ids
	})
	if err != nil {
		log.Warn().Err(err).Msg("saving enabled sources")
	}
}

// saveSortSettings persists the sort column and direction
func (m *Model) saveSortSettings() {
	sort := config.SortConfig{Field: string(m.sortField), Desc: m.sortDir == search.Desc}
	m.cfg.Sort = sort
	if err := m.opts.Persist(func(c *config.Config) { c.Sort = sort }); err != nil {
		log.Warn().Err(err).Msg("saving sort settings")
	}
}
