package search

import (
	"fmt"
	"strings"
)

// Category is a coarse content class derived from name and category text.
type Category string

const (
	CategoryAll      Category = "all"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryTV       Category = "tv"
	CategoryBooks    Category = "books"
	CategoryGames    Category = "games"
	CategorySoftware Category = "software"
	CategoryAnime    Category = "anime"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAll,
	CategoryVideo,
	CategoryAudio,
	CategoryTV,
	CategoryBooks,
	CategoryGames,
	CategorySoftware,
	CategoryAnime,
}

var categoryLabels = map[Category]string{
	CategoryAll:      "⭐ All",
	CategoryVideo:    "🎬 Video",
	CategoryAudio:    "🎵 Audio",
	CategoryTV:       "📺 TV",
	CategoryBooks:    "📚 Books",
	CategoryGames:    "🎮 Games",
	CategorySoftware: "💻 Software",
	CategoryAnime:    "🎌 Anime",
}

// categoryKeywords is matched as lowercase substrings of "name category".
var categoryKeywords = map[Category][]string{
	CategoryVideo:    {"movie", "film", "video", "cinema", "dvd", "bluray", "blu-ray", "brrip", "webrip", "web-dl", "hdrip", "1080p", "720p", "2160p", "4k", "x264", "x265", "hevc", "mkv", "mp4", "avi"},
	CategoryAudio:    {"music", "audio", "mp3", "flac", "album", "song", "artist", "discography", "lossless", "320kbps", "aac"},
	CategoryTV:       {"tv", "series", "season", "episode", "hdtv", "s01", "s02", "s03", "s04", "s05", "complete series"},
	CategoryBooks:    {"book", "ebook", "pdf", "epub", "mobi", "azw3", "magazine", "novel", "comic"},
	CategoryGames:    {"game", "xbox", "playstation", "ps4", "ps5", "nintendo", "switch", "steam", "gog", "repack", "fitgirl", "codex"},
	CategorySoftware: {"software", "app", "program", "windows", "macos", "linux", "ubuntu", "debian", "fedora", "iso", "x64", "x86", "setup", "portable", "installer"},
	CategoryAnime:    {"anime", "manga", "subbed", "dubbed", "japanese", "horriblesubs", "subsplease", "erai-raws"},
}

// ParseCategory resolves a user-supplied category name. The empty string is
// "all"; "movies" and "music" are accepted as aliases.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "":
		return CategoryAll, nil
	case "movies", "movie":
		return CategoryVideo, nil
	case "music":
		return CategoryAudio, nil
	}
	c := Category(key)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display label with icon.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Next cycles to the following category, wrapping around.
func (c Category) Next() Category {
	for i, cat := range Categories {
		if cat == c {
			return Categories[(i+1)%len(Categories)]
		}
	}
	return CategoryAll
}

// Matches reports whether a record with the given name and source-reported
// category belongs to target. It is a keyword heuristic; it is deterministic
// but makes no claim to accuracy. Unknown targets match nothing.
func Matches(name, rawCategory string, target Category) bool {
	if target == CategoryAll {
		return true
	}
	haystack := strings.ToLower(name + " " + rawCategory)
	for _, keyword := range categoryKeywords[target] {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
