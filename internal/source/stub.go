package source

import (
	"context"
	"fmt"
	"time"
)

// StubClient returns a fixed item list or a fixed error. It backs the
// offline demo and tests; it is never a stand-in for a live site.
type StubClient struct {
	id    ID
	items []RawItem
	err   error
	delay time.Duration
}

// NewStubClient creates a stub that answers every query with items.
func NewStubClient(id ID, items ...RawItem) *StubClient {
	return &StubClient{id: id, items: items}
}

// WithError makes the stub fail every query with err.
func (s *StubClient) WithError(err error) *StubClient {
	s.err = err
	return s
}

// WithDelay makes the stub wait before answering. The wait honours ctx.
func (s *StubClient) WithDelay(d time.Duration) *StubClient {
	s.delay = d
	return s
}

// ID returns the source ID.
func (s *StubClient) ID() ID {
	return s.id
}

// Query returns the configured items, up to q.Limit.
func (s *StubClient) Query(ctx context.Context, q Query) ([]RawItem, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, Classify(s.id, ctx.Err())
		case <-timer.C:
		}
	}
	if s.err != nil {
		return nil, Classify(s.id, s.err)
	}
	return truncate(append([]RawItem(nil), s.items...), q.Limit), nil
}

// DemoClients returns stub clients with canned results for every entry in
// reg. They power the --offline mode so the UI can be tried without network
// access; the data is illustrative only.
func DemoClients(reg *Registry) map[ID]Client {
	clients := make(map[ID]Client)
	for n, info := range reg.All() {
		items := make([]RawItem, 0, len(demoTitles))
		for i, title := range demoTitles {
			items = append(items, RawFromMap(map[string]any{
				"name":     title.name,
				"size":     title.size,
				"seeders":  fmt.Sprintf("%d", (i+1)*(n+3)*7),
				"leechers": fmt.Sprintf("%d", (i+2)*(n+1)),
				"category": title.category,
				"uploader": info.Name + " demo",
				"hash":     fmt.Sprintf("%040x", (n+1)*1000+i),
			}))
		}
		clients[info.ID] = NewStubClient(info.ID, items...)
	}
	return clients
}

var demoTitles = []struct{ name, size, category string }{
	{"Ubuntu 24.04 LTS Desktop amd64 ISO", "5.7 GB", "Applications"},
	{"Debian 12.5 netinst", "628 MB", "Applications"},
	{"Big Buck Bunny 1080p", "885 MB", "Movies"},
	{"Sintel 4K", "1.2 GB", "Video"},
	{"Public Domain Jazz Album FLAC", "412 MB", "Music"},
	{"Project Gutenberg Top 100 EPUB", "96 MB", "Books"},
}
