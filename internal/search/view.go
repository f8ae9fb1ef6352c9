package search

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SortField names a column a View can be ordered by.
type SortField string

const (
	FieldNone     SortField = ""
	FieldName     SortField = "name"
	FieldSize     SortField = "size"
	FieldSeeders  SortField = "seeders"
	FieldLeechers SortField = "leechers"
	FieldSource   SortField = "source"
	FieldUploader SortField = "uploader"
)

// SortFields lists the sortable fields in column order.
var SortFields = []SortField{FieldName, FieldSize, FieldSeeders, FieldLeechers, FieldSource, FieldUploader}

// ParseSortField resolves a field name. The empty string keeps source order.
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	if f == FieldNone || slices.Contains(SortFields, f) {
		return f, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// Direction is ascending or descending.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// View holds one AggregatedResult and projects it in any order without
// touching the underlying records. Every projection starts from the
// original concatenation order, so equal keys keep that order and repeated
// calls with the same arguments return the same sequence.
//
// A View is not safe for concurrent use.
type View struct {
	result AggregatedResult
	field  SortField
	dir    Direction
	filter string
}

// NewView wraps r, initially in source order.
func NewView(r AggregatedResult) *View {
	return &View{result: r}
}

// Result returns the wrapped aggregation.
func (v *View) Result() AggregatedResult {
	return v.result
}

// Len returns the number of records before filtering.
func (v *View) Len() int {
	return len(v.result.Items)
}

// Field returns the current sort field and direction.
func (v *View) Field() (SortField, Direction) {
	return v.field, v.dir
}

// SortBy makes field/dir the current order and returns the projection.
// Unknown fields leave records in source order.
func (v *View) SortBy(field SortField, dir Direction) []Torrent {
	v.field, v.dir = field, dir
	return v.Sorted()
}

// Toggle selects field: the same field again flips the direction, a new
// field starts ascending.
func (v *View) Toggle(field SortField) []Torrent {
	if field == v.field {
		if v.dir == Asc {
			v.dir = Desc
		} else {
			v.dir = Asc
		}
	} else {
		v.field, v.dir = field, Asc
	}
	return v.Sorted()
}

// Filter keeps only records whose name fuzzily matches text, ignoring case
// and diacritics. An empty text clears the filter.
func (v *View) Filter(text string) []Torrent {
	v.filter = strings.TrimSpace(text)
	return v.Sorted()
}

// FilterText returns the active filter.
func (v *View) FilterText() string {
	return v.filter
}

// Sorted returns a fresh slice in the current order with the filter applied.
func (v *View) Sorted() []Torrent {
	out := make([]Torrent, 0, len(v.result.Items))
	for _, t := range v.result.Items {
		if v.filter == "" || fuzzy.MatchNormalizedFold(v.filter, t.Name) {
			out = append(out, t)
		}
	}

	compare := comparator(v.field)
	if compare == nil {
		return out
	}
	if v.dir == Desc {
		asc := compare
		compare = func(a, b Torrent) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// Dedupe returns a new View without records that repeat an earlier info-hash,
// or an earlier name and size when no hash is known. The first occurrence in
// source order wins; sort and filter settings carry over.
func (v *View) Dedupe() *View {
	seen := make(map[uint64]struct{}, len(v.result.Items))
	items := make([]Torrent, 0, len(v.result.Items))
	for _, t := range v.result.Items {
		key := dedupeKey(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, t)
	}

	deduped := v.result
	deduped.Items = items
	return &View{result: deduped, field: v.field, dir: v.dir, filter: v.filter}
}

func dedupeKey(t Torrent) uint64 {
	if t.InfoHash != "" {
		return xxhash.Sum64String("hash:" + t.InfoHash)
	}
	name := strings.Join(strings.FieldsFunc(strings.ToLower(t.Name), func(r rune) bool {
		return r == ' ' || r == '.' || r == '_' || r == '-'
	}), " ")
	return xxhash.Sum64String("name:" + name + "|" + fmt.Sprint(t.SizeBytes()))
}

func comparator(field SortField) func(a, b Torrent) int {
	switch field {
	case FieldName:
		return func(a, b Torrent) int { return foldCompare(a.Name, b.Name) }
	case FieldUploader:
		return func(a, b Torrent) int { return foldCompare(a.Uploader, b.Uploader) }
	case FieldSource:
		return func(a, b Torrent) int { return foldCompare(a.Source.Name, b.Source.Name) }
	case FieldSeeders:
		return func(a, b Torrent) int { return cmp.Compare(a.Seeders, b.Seeders) }
	case FieldLeechers:
		return func(a, b Torrent) int { return cmp.Compare(a.Leechers, b.Leechers) }
	case FieldSize:
		return func(a, b Torrent) int { return cmp.Compare(a.SizeBytes(), b.SizeBytes()) }
	}
	return nil
}

func foldCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
