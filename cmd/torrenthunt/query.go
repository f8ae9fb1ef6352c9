package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/litescript/torrenthunt/internal/search"
	"github.com/litescript/torrenthunt/internal/source"
)

// queryFlags are shared by search and trending.
type queryFlags struct {
	sources  string
	category string
	limit    int
	sort     string
	desc     bool
	json     bool
	dedupe   bool
	filter   string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.sources, "sources", "s", "", "comma-separated source IDs (default: enabled sources from config)")
	fl.StringVarP(&f.category, "category", "c", "", "category: all, video, audio, tv, books, games, software, anime")
	fl.IntVarP(&f.limit, "limit", "n", 0, "maximum results per source (default from config)")
	fl.StringVar(&f.sort, "sort", "", "sort field: name, size, seeders, leechers, source, uploader")
	fl.BoolVar(&f.desc, "desc", false, "sort descending")
	fl.BoolVar(&f.json, "json", false, "print JSON instead of a table")
	fl.BoolVar(&f.dedupe, "dedupe", false, "drop releases already listed by an earlier source")
	fl.StringVar(&f.filter, "filter", "", "fuzzy filter on result names")
}

func RunSearchCommand(a *app) *cobra.Command {
	var f queryFlags

	command := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the selected sources and print the merged results",
		Example: `  torrenthunt search ubuntu 24.04
  torrenthunt search --sources yts,nyaa --category video --sort seeders --desc big buck bunny
  torrenthunt search --json debian | jq '.results[0].magnet'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, search.Request{Query: strings.Join(args, " ")}, f)
		},
	}
	f.register(command)

	return command
}

func RunTrendingCommand(a *app) *cobra.Command {
	var f queryFlags

	command := &cobra.Command{
		Use:   "trending",
		Short: "Show what is popular on the selected sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, search.Request{Trending: true}, f)
		},
	}
	f.register(command)

	return command
}

func (a *app) runQuery(cmd *cobra.Command, req search.Request, f queryFlags) error {
	if err := a.setup(cmd.Context(), true); err != nil {
		return err
	}
	defer a.close()

	req, field, dir, err := a.buildRequest(cmd, req, f)
	if err != nil {
		return err
	}

	result, aggErr := a.engine.Aggregate(cmd.Context(), req)
	if aggErr != nil && !errors.Is(aggErr, search.ErrAllSourcesFailed) {
		return errors.Wrap(aggErr, "search failed")
	}

	view := search.NewView(result)
	if f.dedupe {
		view = view.Dedupe()
	}
	view.Filter(f.filter)
	rows := view.SortBy(field, dir)

	out := cmd.OutOrStdout()
	if f.json {
		err = writeJSON(out, result, rows)
	} else {
		err = writeTable(out, rows, terminalWidth(out))
		fmt.Fprintln(cmd.ErrOrStderr(), summary(result, len(rows)))
	}
	if err != nil {
		return errors.Wrap(err, "could not write results")
	}

	if aggErr != nil {
		return errors.Wrapf(aggErr, "%d of %d sources failed", result.Tally.Failed(), len(result.Sources))
	}
	return nil
}

// buildRequest fills req from the flags, falling back to the config.
func (a *app) buildRequest(cmd *cobra.Command, req search.Request, f queryFlags) (search.Request, search.SortField, search.Direction, error) {
	switch {
	case f.sources != "":
		req.Sources = source.ParseIDs(f.sources)
	case len(a.cfg.Search.Enabled()) > 0:
		req.Sources = a.cfg.Search.Enabled()
	default:
		req.Sources = a.engine.Registry().IDs()
	}

	categoryName := a.cfg.Search.DefaultCategory
	if f.category != "" {
		categoryName = f.category
	}
	category, err := search.ParseCategory(categoryName)
	if err != nil {
		return req, "", search.Asc, errors.Wrap(err, "invalid --category")
	}
	req.Category = category

	req.PerSourceLimit = a.cfg.Search.PerSourceLimit
	if f.limit > 0 {
		req.PerSourceLimit = f.limit
	}
	req.RequireSuccess = true

	fieldName := a.cfg.Sort.Field
	if f.sort != "" {
		fieldName = f.sort
	}
	field, err := search.ParseSortField(fieldName)
	if err != nil {
		return req, "", search.Asc, errors.Wrap(err, "invalid --sort")
	}

	desc := a.cfg.Sort.Desc
	if cmd.Flags().Changed("desc") || f.sort != "" {
		desc = f.desc
	}
	dir := search.Asc
	if desc {
		dir = search.Desc
	}
	return req, field, dir, nil
}

type jsonStatus struct {
	ID        string  `json:"id"`
	OK        bool    `json:"ok"`
	Count     int     `json:"count"`
	Error     string  `json:"error,omitempty"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

type jsonTorrent struct {
	Name      string `json:"name"`
	Size      string `json:"size"`
	SizeBytes int64  `json:"size_bytes"`
	Seeders   int    `json:"seeders"`
	Leechers  int    `json:"leechers"`
	Uploader  string `json:"uploader"`
	Source    string `json:"source"`
	Category  string `json:"category,omitempty"`
	Date      string `json:"date,omitempty"`
	InfoHash  string `json:"info_hash,omitempty"`
	Magnet    string `json:"magnet,omitempty"`
	URL       string `json:"url,omitempty"`
}

type jsonOutput struct {
	Query     string        `json:"query,omitempty"`
	Trending  bool          `json:"trending"`
	Category  string        `json:"category"`
	ElapsedMS float64       `json:"elapsed_ms"`
	Tally     search.Tally  `json:"tally"`
	Sources   []jsonStatus  `json:"sources"`
	Results   []jsonTorrent `json:"results"`
}

func writeJSON(w io.Writer, result search.AggregatedResult, rows []search.Torrent) error {
	out := jsonOutput{
		Query:     result.Query,
		Trending:  result.Trending,
		Category:  string(result.Category),
		ElapsedMS: ms(result.Elapsed),
		Tally:     result.Tally,
		Sources:   make([]jsonStatus, 0, len(result.Statuses)),
		Results:   make([]jsonTorrent, 0, len(rows)),
	}
	for _, s := range result.Statuses {
		st := jsonStatus{ID: string(s.ID), OK: s.OK, Count: s.Count, ElapsedMS: ms(s.Elapsed)}
		if s.Err != nil {
			st.Error = s.Err.Error()
		}
		out.Sources = append(out.Sources, st)
	}
	for _, t := range rows {
		out.Results = append(out.Results, jsonTorrent{
			Name:      t.Name,
			Size:      t.Size,
			SizeBytes: t.SizeBytes(),
			Seeders:   t.Seeders,
			Leechers:  t.Leechers,
			Uploader:  t.Uploader,
			Source:    string(t.Source.ID),
			Category:  t.Category,
			Date:      t.Date,
			InfoHash:  t.InfoHash,
			Magnet:    t.Magnet,
			URL:       t.URL,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// writeTable prints rows as a table. A positive width shortens names so a
// row fits the terminal.
func writeTable(w io.Writer, rows []search.Torrent, width int) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No results")
		return err
	}

	nameWidth := 0
	if width > 0 {
		// Everything but the name column takes roughly this many cells
		nameWidth = max(width-72, 20)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "NAME", "SIZE", "SEED", "LEECH", "SOURCE", "UPLOADER").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			switch col {
			case 0, 2, 3, 4:
				return style.Align(lipgloss.Right)
			}
			return style
		})

	for i, r := range rows {
		name := r.Name
		if nameWidth > 0 {
			name = runewidth.Truncate(name, nameWidth, "...")
		}
		if !r.HasMagnet() {
			name += " (no magnet)"
		}
		t.Row(
			strconv.Itoa(i+1),
			name,
			r.HumanSize(),
			humanize.Comma(int64(r.Seeders)),
			humanize.Comma(int64(r.Leechers)),
			r.Source.Name,
			r.Uploader,
		)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// summary is printed to stderr after a table so stdout stays pipeable.
func summary(result search.AggregatedResult, shown int) string {
	t := result.Tally
	s := fmt.Sprintf("%d results (%d shown) from %d/%d sources in %s",
		len(result.Items), shown, t.Succeeded, len(result.Sources), result.Elapsed.Round(time.Millisecond))

	var failed []string
	for _, st := range result.Statuses {
		if st.Err != nil {
			failed = append(failed, st.Err.Error())
		}
	}
	if len(failed) > 0 {
		s += "\nfailed: " + strings.Join(failed, "; ")
	}
	return s
}

// terminalWidth returns the width of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
