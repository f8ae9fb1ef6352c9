package source

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	syntaxErr := json.Unmarshal([]byte("{nope"), &map[string]any{})
	require.Error(t, syntaxErr)

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{name: "deadline", err: context.DeadlineExceeded, kind: ErrSourceTimeout},
		{name: "wrapped deadline", err: errors.Join(errors.New("get"), context.DeadlineExceeded), kind: ErrSourceTimeout},
		{name: "json syntax", err: syntaxErr, kind: ErrSourceFormat},
		{name: "bare sentinel", err: ErrSourceFormat, kind: ErrSourceFormat},
		{name: "anything else", err: errors.New("connection refused"), kind: ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("x", tt.err)
			assert.ErrorIs(t, got, tt.kind)

			var se *Error
			require.ErrorAs(t, got, &se)
			assert.Equal(t, ID("x"), se.Source)
		})
	}

	assert.NoError(t, Classify("x", nil))
}

func TestClassifyKeepsExisting(t *testing.T) {
	orig := Malformed("a", errors.New("bad"))
	assert.Same(t, orig, Classify("b", orig))
	assert.NotErrorIs(t, orig, ErrSourceTimeout)
	assert.Contains(t, orig.Error(), "a: source returned an unparseable response: bad")
}

func TestRawFromMap(t *testing.T) {
	item := RawFromMap(map[string]any{"name": "Foo", "seeders": 12})
	assert.Equal(t, "Foo", item.Get("name").String())
	assert.Equal(t, int64(12), item.Get("seeders").Int())

	bad := RawFromMap(map[string]any{"fn": func() {}})
	assert.False(t, bad.Exists())
}

func TestStubClient(t *testing.T) {
	items := []RawItem{ParseRaw(`{"name":"a"}`), ParseRaw(`{"name":"b"}`), ParseRaw(`{"name":"c"}`)}

	got, err := NewStubClient("s", items...).Query(context.Background(), Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = NewStubClient("s").WithError(errors.New("boom")).Query(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = NewStubClient("s", items...).WithDelay(time.Minute).Query(ctx, Query{})
	assert.ErrorIs(t, err, ErrSourceTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDemoClients(t *testing.T) {
	reg := NewStaticRegistry(Info{ID: "one", Kind: KindStub}, Info{ID: "two", Kind: KindStub})
	clients := DemoClients(reg)
	require.Len(t, clients, 2)

	items, err := clients["two"].Query(context.Background(), Query{Term: "anything"})
	require.NoError(t, err)
	require.Len(t, items, len(demoTitles))
	assert.Len(t, items[0].Get("hash").String(), 40)
}

func TestNewClients(t *testing.T) {
	reg, err := NewRegistry("", Custom{URL: "https://site.example"})
	require.NoError(t, err)

	clients := NewClients(reg, ClientOptions{Timeout: time.Second})
	require.Len(t, clients, len(builtin)+1)
	assert.IsType(t, &APIClient{}, clients["nyaa"])
	assert.IsType(t, &HTMLClient{}, clients["site.example"])
	for id, c := range clients {
		assert.Equal(t, id, c.ID())
	}
}
