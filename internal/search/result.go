package search

import (
	"errors"
	"time"

	"github.com/litescript/torrenthunt/internal/source"
)

// AggregatedResult is the outcome of one Aggregate call. It is created fresh
// for every call and not modified afterwards.
type AggregatedResult struct {
	Items    []Torrent
	Query    string // empty in trending mode
	Trending bool
	Category Category
	Sources  []source.ID // in iteration order
	Elapsed  time.Duration
	Tally    Tally
	Statuses []SourceStatus // one per entry in Sources
}

// Empty reports whether the aggregation produced no records.
func (r AggregatedResult) Empty() bool {
	return len(r.Items) == 0
}

// Tally counts per-source outcomes.
type Tally struct {
	Succeeded    int `json:"succeeded"`
	TimedOut     int `json:"timed_out"`
	Unavailable  int `json:"unavailable"`
	FormatErrors int `json:"format_errors"`
}

// Failed returns the number of sources that did not succeed.
func (t Tally) Failed() int {
	return t.TimedOut + t.Unavailable + t.FormatErrors
}

// AllFailed reports whether at least one source was queried and none succeeded.
func (t Tally) AllFailed() bool {
	return t.Succeeded == 0 && t.Failed() > 0
}

func (t *Tally) record(err error) {
	switch {
	case err == nil:
		t.Succeeded++
	case errors.Is(err, source.ErrSourceTimeout):
		t.TimedOut++
	case errors.Is(err, source.ErrSourceFormat):
		t.FormatErrors++
	default:
		t.Unavailable++
	}
}

// SourceStatus describes how one source fared.
type SourceStatus struct {
	ID      source.ID
	OK      bool
	Count   int // records kept after truncation and category filtering
	Err     error
	Elapsed time.Duration
}
