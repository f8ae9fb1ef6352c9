package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<nav><a href="/">Home</a><a href="/search">Search</a></nav>
<table>
<tr>
  <td><a href="/torrent/1/ubuntu">Ubuntu 24.04 Desktop</a></td>
  <td>5.7 gib</td><td>Seeders: 1,204</td><td>Leechers: 33</td>
  <td><a href="magnet:?xt=urn:btih:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa&dn=Ubuntu+24.04">magnet</a></td>
</tr>
<tr>
  <td><a href="https://other.example/t/2">Debian netinst</a></td>
  <td>628 MB</td><td>Seeds 40</td><td>Peers 2</td>
  <td><a href="magnet:?xt=urn:btih:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb&dn=Debian">magnet</a></td>
</tr>
<tr>
  <td><a href="magnet:?xt=urn:btih:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa&dn=Ubuntu+24.04">duplicate</a></td>
</tr>
</table>
</body></html>`

func newHTMLTestClient(t *testing.T, handler http.HandlerFunc) *HTMLClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	info, err := customInfo(Custom{Name: "test", URL: srv.URL})
	require.NoError(t, err)
	return NewHTMLClient(info, 2*time.Second)
}

func TestHTMLClientQuery(t *testing.T) {
	var hits atomic.Int32
	client := newHTMLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/search" || r.URL.Query().Get("q") != "ubuntu linux" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(searchPage))
	})

	items, err := client.Query(context.Background(), Query{Term: "ubuntu linux", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Ubuntu 24.04", first.Get("name").String())
	assert.Equal(t, "5.7 GiB", first.Get("size").String())
	assert.Equal(t, "1,204", first.Get("seeders").String())
	assert.Equal(t, "33", first.Get("leechers").String())
	assert.Contains(t, first.Get("url").String(), "/torrent/1/ubuntu")

	second := items[1]
	assert.Equal(t, "Debian", second.Get("name").String())
	assert.Equal(t, "https://other.example/t/2", second.Get("url").String())
	assert.Equal(t, "40", second.Get("seeders").String())

	// Earlier candidates 404ed before the query form matched.
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTMLClientLimit(t *testing.T) {
	client := newHTMLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchPage))
	})

	items, err := client.Query(context.Background(), Query{Term: "x", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestHTMLClientTrending(t *testing.T) {
	client := newHTMLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(searchPage))
	})

	items, err := client.Query(context.Background(), Query{Trending: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestHTMLClientAllCandidatesFail(t *testing.T) {
	client := newHTMLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Query(context.Background(), Query{Term: "x"})
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestHTMLClientNoMagnets(t *testing.T) {
	client := newHTMLTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	})

	items, err := client.Query(context.Background(), Query{Term: "x"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestProbe(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<form action="/search"><input name="q"></form>`))
	}))
	defer good.Close()

	endpoint, err := Probe(context.Background(), good.URL+"/some/page")
	require.NoError(t, err)
	assert.Equal(t, good.URL, endpoint)

	bland := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<p>a cooking blog</p>`))
	}))
	defer bland.Close()

	_, err = Probe(context.Background(), bland.URL)
	assert.Error(t, err)
}

func TestMagnetName(t *testing.T) {
	assert.Equal(t, "Some Name", magnetName("magnet:?xt=urn:btih:abc&dn=Some%20Name"))
	assert.Equal(t, "", magnetName("magnet:?xt=urn:btih:abc"))
}

func TestNumberNear(t *testing.T) {
	assert.Equal(t, "12", numberNear("Size 1.2 GB seeders 12 leechers 3", "seed"))
	assert.Equal(t, "", numberNear("no counts here", "seed"))
	assert.Equal(t, "3", numberNear("peers: 3", "leech", "peer"))
}
