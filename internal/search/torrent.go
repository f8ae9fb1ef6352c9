// Package search implements the multi-source aggregation pipeline: it fans a
// query out to the selected sources, normalizes their heterogeneous payloads
// into Torrent records, applies category filtering, and exposes the merged
// result through a sortable, filterable View.
package search

import (
	"github.com/dustin/go-humanize"

	"github.com/litescript/torrenthunt/internal/source"
)

// Torrent is one normalized search result. Values are never modified once
// the Normalizer has produced them.
type Torrent struct {
	Name     string
	Size     string
	Seeders  int
	Leechers int
	Uploader string
	Magnet   string
	URL      string
	Source   source.Info
	Category string // as reported by the source
	Date     string
	InfoHash string
}

// HasMagnet reports whether the record can be opened or copied as a magnet.
func (t Torrent) HasMagnet() bool {
	return t.Magnet != ""
}

// SizeBytes parses Size. Unparseable sizes are 0.
func (t Torrent) SizeBytes() int64 {
	return ParseSize(t.Size)
}

// HumanSize renders the parsed size in binary units, or the source's own
// text when it could not be parsed.
func (t Torrent) HumanSize() string {
	if b := t.SizeBytes(); b > 0 {
		return humanize.IBytes(uint64(b))
	}
	if t.Size == "" {
		return "-"
	}
	return t.Size
}

// Health returns a health score 0-100 based on seeders/leechers ratio
func (t Torrent) Health() int {
	if t.Seeders == 0 {
		return 0
	}
	if t.Leechers == 0 {
		return 100
	}

	ratio := float64(t.Seeders) / float64(t.Seeders+t.Leechers) * 100
	return min(int(ratio), 100)
}

// Quality buckets a torrent by seeder count.
type Quality int

const (
	QualityPoor Quality = iota
	QualityAverage
	QualityGood
	QualityExcellent
)

func (q Quality) String() string {
	switch q {
	case QualityExcellent:
		return "excellent"
	case QualityGood:
		return "good"
	case QualityAverage:
		return "average"
	default:
		return "poor"
	}
}

// Quality returns the seeder bucket of t.
func (t Torrent) Quality() Quality {
	switch {
	case t.Seeders >= 100:
		return QualityExcellent
	case t.Seeders >= 50:
		return QualityGood
	case t.Seeders >= 10:
		return QualityAverage
	default:
		return QualityPoor
	}
}
