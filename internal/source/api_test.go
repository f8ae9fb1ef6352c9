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

func newTestAPIClient(t *testing.T, id ID, handler http.HandlerFunc, opts APIOptions) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	reg, err := NewRegistry(srv.URL)
	require.NoError(t, err)
	info, ok := reg.Lookup(id)
	require.True(t, ok)

	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	return NewAPIClient(info, opts)
}

func TestAPIClientSearch(t *testing.T) {
	var gotPath, gotKey string
	var gotQuery map[string][]string

	client := newTestAPIClient(t, "piratebay", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"name":"Ubuntu","seeders":"10"},{"title":"Debian"},"junk"]}`))
	}, APIOptions{APIKey: "secret"})

	items, err := client.Query(context.Background(), Query{Term: " ubuntu ", Category: "software", Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Ubuntu", items[0].Get("name").String())
	assert.Equal(t, "Debian", items[1].Get("title").String())

	assert.Equal(t, "/api/v1/search", gotPath)
	assert.Equal(t, "ubuntu", gotQuery["query"][0])
	assert.Equal(t, "piratebay", gotQuery["site"][0])
	assert.Equal(t, "5", gotQuery["limit"][0])
	assert.Equal(t, "software", gotQuery["category"][0])
	assert.Equal(t, "secret", gotKey)
}

func TestAPIClientTrendingWithoutCategorySupport(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	client := newTestAPIClient(t, "yts", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"results":[{"name":"Film"}]}`))
	}, APIOptions{})

	items, err := client.Query(context.Background(), Query{Trending: true, Category: "video", Limit: 3})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "/api/v1/trending", gotPath)
	assert.NotContains(t, gotQuery, "category")
	assert.NotContains(t, gotQuery, "query")
}

func TestAPIClientFailures(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		kind error
	}{
		{name: "success false", code: 200, body: `{"success":false,"error":"site down"}`, kind: ErrSourceUnavailable},
		{name: "error string", code: 200, body: `{"error":"rate limited"}`, kind: ErrSourceUnavailable},
		{name: "error flag", code: 200, body: `{"error":true,"message":"nope"}`, kind: ErrSourceUnavailable},
		{name: "invalid json", code: 200, body: `<html>oops</html>`, kind: ErrSourceFormat},
		{name: "scalar json", code: 200, body: `"hello"`, kind: ErrSourceFormat},
		{name: "not found", code: 404, body: `{}`, kind: ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestAPIClient(t, "1337x", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}, APIOptions{})

			items, err := client.Query(context.Background(), Query{Term: "abc"})
			assert.ErrorIs(t, err, tt.kind)
			assert.Nil(t, items)
		})
	}
}

func TestAPIClientEmptyPayload(t *testing.T) {
	client := newTestAPIClient(t, "eztv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":0}`))
	}, APIOptions{})

	items, err := client.Query(context.Background(), Query{Term: "abc"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAPIClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestAPIClient(t, "nyaa", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"third time lucky"}]`))
	}, APIOptions{Retries: 2})

	items, err := client.Query(context.Background(), Query{Term: "abc"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(3), hits.Load())
}

func TestAPIClientDoesNotRetryFormatErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestAPIClient(t, "nyaa", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{broken`))
	}, APIOptions{Retries: 3})

	_, err := client.Query(context.Background(), Query{Term: "abc"})
	assert.ErrorIs(t, err, ErrSourceFormat)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAPIClientHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	client := newTestAPIClient(t, "torlock", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, APIOptions{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Query(ctx, Query{Term: "abc"})
	assert.ErrorIs(t, err, ErrSourceTimeout)
}
