package search

import (
	"errors"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/litescript/torrenthunt/internal/source"
)

// Placeholders for fields a source left out.
const (
	UnknownName     = "Unknown"
	UnknownUploader = "Anonymous"
)

const (
	btihPrefix   = "urn:btih:"
	magnetPrefix = "magnet:?"
	maxCount     = math.MaxInt32
)

// Field aliases, first non-empty wins.
var (
	nameKeys     = []string{"name", "title"}
	sizeKeys     = []string{"size", "filesize"}
	seederKeys   = []string{"seeders", "seeds"}
	leecherKeys  = []string{"leechers", "leeches", "peers"}
	uploaderKeys = []string{"uploader", "author", "uploaded_by"}
	magnetKeys   = []string{"magnet", "magnetLink", "magnet_link"}
	urlKeys      = []string{"url", "link", "page"}
	categoryKeys = []string{"category", "cat"}
	dateKeys     = []string{"date", "date_uploaded", "added", "pubDate"}
	hashKeys     = []string{"hash", "info_hash", "infohash"}
)

// Normalizer maps raw source items onto Torrent records.
type Normalizer struct {
	registry *source.Registry
}

// NewNormalizer creates a normalizer resolving source metadata from reg.
func NewNormalizer(reg *source.Registry) *Normalizer {
	return &Normalizer{registry: reg}
}

// Normalize converts raw into a Torrent. It never fails: missing or
// malformed fields fall back to their defaults.
func (n *Normalizer) Normalize(raw source.RawItem, id source.ID) Torrent {
	info, ok := n.registry.Lookup(id)
	if !ok {
		info = source.Info{ID: id, Name: string(id)}
	}

	t := Torrent{
		Name:     firstText(raw, nameKeys...),
		Size:     firstText(raw, sizeKeys...),
		Seeders:  firstCount(raw, seederKeys...),
		Leechers: firstCount(raw, leecherKeys...),
		Uploader: firstText(raw, uploaderKeys...),
		Magnet:   firstText(raw, magnetKeys...),
		URL:      firstText(raw, urlKeys...),
		Source:   info,
		Category: firstText(raw, categoryKeys...),
		Date:     firstText(raw, dateKeys...),
	}

	if !strings.HasPrefix(strings.ToLower(t.Magnet), "magnet:") {
		t.Magnet = ""
	}
	t.InfoHash = magnetHash(t.Magnet)
	if t.InfoHash == "" {
		t.InfoHash = normalizeInfoHash(firstText(raw, hashKeys...))
	}
	if t.Magnet == "" && t.InfoHash != "" {
		t.Magnet = buildMagnet(t.InfoHash, t.Name)
	}

	if t.Name == "" {
		t.Name = UnknownName
	}
	if t.Uploader == "" {
		t.Uploader = UnknownUploader
	}
	return t
}

func firstText(raw source.RawItem, keys ...string) string {
	for _, key := range keys {
		v := raw.Get(gjson.Escape(key))
		switch v.Type {
		case gjson.String, gjson.Number:
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstCount(raw source.RawItem, keys ...string) int {
	for _, key := range keys {
		v := raw.Get(gjson.Escape(key))
		switch v.Type {
		case gjson.Number:
			return clampCount(v.Float())
		case gjson.String:
			if s := strings.TrimSpace(v.String()); s != "" {
				return ParseCount(s)
			}
		}
	}
	return 0
}

// ParseCount coerces a source-reported count. Plain digits may carry ",", "."
// or space thousands separators and a short decimal fraction is truncated;
// anything else has its non-digit noise stripped. A negative value or a
// string without digits is 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	switch {
	case groupedCount.MatchString(s):
		return parseDigits(s)
	case decimalCount.MatchString(s):
		return parseDigits(s[:strings.IndexAny(s, ".,")])
	case strings.HasPrefix(s, "-"):
		return 0
	}
	return parseDigits(s)
}

var (
	groupedCount = regexp.MustCompile(`^\d{1,3}(?:[,. ]\d{3})+$|^\d+$`)
	decimalCount = regexp.MustCompile(`^\d+[.,]\d{1,2}$`)
)

// parseDigits parses the decimal digits of s, ignoring everything else.
func parseDigits(s string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if errors.Is(err, strconv.ErrRange) || n > maxCount {
		return maxCount
	}
	if err != nil {
		return 0
	}
	return int(n)
}

func clampCount(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > maxCount {
		return maxCount
	}
	return int(f)
}

func normalizeInfoHash(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimPrefix(value, btihPrefix)
	if value == "" {
		return ""
	}
	switch len(value) {
	case 40:
		if strings.IndexFunc(value, func(r rune) bool { return !unicode.Is(unicode.ASCII_Hex_Digit, r) }) >= 0 {
			return ""
		}
	case 32:
		// base32 form
		if strings.IndexFunc(value, func(r rune) bool { return !(r >= 'a' && r <= 'z' || r >= '2' && r <= '7') }) >= 0 {
			return ""
		}
	default:
		return ""
	}
	return value
}

func magnetHash(magnet string) string {
	if magnet == "" {
		return ""
	}
	values, _ := url.ParseQuery(strings.TrimPrefix(magnet, magnetPrefix))
	for _, xt := range values["xt"] {
		if hash := normalizeInfoHash(xt); hash != "" {
			return hash
		}
	}
	return ""
}

func buildMagnet(infoHash, name string) string {
	var builder strings.Builder
	builder.WriteString(magnetPrefix)
	builder.WriteString("xt=")
	builder.WriteString(btihPrefix)
	builder.WriteString(infoHash)
	if name = strings.TrimSpace(name); name != "" {
		builder.WriteString("&dn=")
		builder.WriteString(url.QueryEscape(name))
	}
	return builder.String()
}
