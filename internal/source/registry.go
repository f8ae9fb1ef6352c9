// Package source defines the torrent sources the aggregator can query.
// It holds the static source registry, the Client capability interface
// every source implements, and the built-in client kinds: the JSON search
// API, a generic HTML magnet scraper, and a fixed-data stub.
package source

import (
	"fmt"
	"net/url"
	"strings"
)

// ID identifies a registered source.
type ID string

// Kind selects which Client implementation serves a source.
type Kind string

const (
	KindAPI  Kind = "api"
	KindHTML Kind = "html"
	KindStub Kind = "stub"
)

// DefaultAPIURL is the public torrent-api-py deployment the built-in sources use.
const DefaultAPIURL = "https://torrent-api-py-nx0x.onrender.com"

// Info describes a registered source
type Info struct {
	ID       ID
	Name     string // display name
	Icon     string // short icon/label shown next to the name
	Endpoint string // base endpoint the client talks to
	Kind     Kind

	// Categories reports whether the source accepts a category filter
	// upstream. Client-side category matching runs regardless.
	Categories bool
}

// Label returns the icon and display name joined for table cells.
func (i Info) Label() string {
	if i.Icon == "" {
		return i.Name
	}
	return i.Icon + " " + i.Name
}

// builtin lists the sites served by the search API, in display order.
var builtin = []Info{
	{ID: "piratebay", Name: "The Pirate Bay", Icon: "🏴‍☠️", Categories: true},
	{ID: "1337x", Name: "1337x", Icon: "🔥", Categories: true},
	{ID: "torrentgalaxy", Name: "TorrentGalaxy", Icon: "🌌", Categories: true},
	{ID: "rarbg", Name: "RARBG", Icon: "💎", Categories: true},
	{ID: "nyaa", Name: "Nyaa", Icon: "🎌"},
	{ID: "yts", Name: "YTS", Icon: "🎬"},
	{ID: "eztv", Name: "EZTV", Icon: "📺"},
	{ID: "torlock", Name: "Torlock", Icon: "🔒", Categories: true},
	{ID: "bitsearch", Name: "Bitsearch", Icon: "🔎"},
}

// Custom is a user-configured HTML source
type Custom struct {
	Name string
	URL  string
}

// Registry is the read-only table of known sources. It is built once at
// startup and never mutated, so lookups need no locking.
type Registry struct {
	order []ID
	infos map[ID]Info
}

// NewRegistry builds the registry from the built-in sites (pointed at apiURL)
// followed by any custom HTML sources. Custom sources whose ID collides with
// an existing entry or whose URL is unusable are rejected.
func NewRegistry(apiURL string, custom ...Custom) (*Registry, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	r := &Registry{infos: make(map[ID]Info, len(builtin)+len(custom))}
	for _, info := range builtin {
		info.Endpoint = apiURL
		info.Kind = KindAPI
		r.add(info)
	}

	for _, c := range custom {
		info, err := customInfo(c)
		if err != nil {
			return nil, err
		}
		if _, exists := r.infos[info.ID]; exists {
			return nil, fmt.Errorf("source %q already registered", info.ID)
		}
		r.add(info)
	}
	return r, nil
}

// NewStaticRegistry builds a registry from explicit entries. Tests and the
// offline demo use it to register stub sources.
func NewStaticRegistry(infos ...Info) *Registry {
	r := &Registry{infos: make(map[ID]Info, len(infos))}
	for _, info := range infos {
		if _, exists := r.infos[info.ID]; exists {
			continue
		}
		if info.Name == "" {
			info.Name = string(info.ID)
		}
		r.add(info)
	}
	return r
}

func (r *Registry) add(info Info) {
	r.order = append(r.order, info.ID)
	r.infos[info.ID] = info
}

func customInfo(c Custom) (Info, error) {
	raw := strings.TrimSpace(c.URL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return Info{}, fmt.Errorf("source %q: invalid URL: %w", c.Name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Info{}, fmt.Errorf("source %q: URL must be http or https", c.Name)
	}
	if parsed.Host == "" {
		return Info{}, fmt.Errorf("source %q: URL must have a host", c.Name)
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = parsed.Host
	}
	return Info{
		ID:       ID(strings.ToLower(parsed.Host)),
		Name:     name,
		Icon:     "🌐",
		Endpoint: parsed.Scheme + "://" + parsed.Host,
		Kind:     KindHTML,
	}, nil
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id ID) (Info, bool) {
	info, ok := r.infos[id]
	return info, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.infos[id]
	return ok
}

// IDs returns all registered IDs in registry order.
func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.order...)
}

// All returns every entry in registry order.
func (r *Registry) All() []Info {
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.infos[id])
	}
	return out
}

// Ordered returns the registered IDs from ids, deduplicated and arranged in
// registry order. Unknown IDs are returned separately.
func (r *Registry) Ordered(ids []ID) (known []ID, unknown []ID) {
	want := make(map[ID]bool, len(ids))
	for _, id := range ids {
		if r.Has(id) {
			want[id] = true
		} else {
			unknown = append(unknown, id)
		}
	}
	for _, id := range r.order {
		if want[id] {
			known = append(known, id)
		}
	}
	return known, unknown
}

// ParseIDs splits a comma-separated list of source IDs.
func ParseIDs(s string) []ID {
	var ids []ID
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			ids = append(ids, ID(part))
		}
	}
	return ids
}
