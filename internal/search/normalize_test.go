package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/torrenthunt/internal/source"
)

const testHash = "0123456789abcdef0123456789abcdef01234567"

func TestNormalize(t *testing.T) {
	reg := source.NewStaticRegistry(source.Info{ID: "tpb", Name: "The Pirate Bay", Icon: "🏴‍☠️"})
	n := NewNormalizer(reg)

	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, got Torrent)
	}{
		{
			name: "full record",
			raw: `{"name":"Ubuntu 24.04","size":"5.7 GB","seeders":"1,234","leechers":12,"uploader":"canonical",
				"magnet":"magnet:?xt=urn:btih:` + testHash + `&dn=Ubuntu","url":"https://x/1","category":"Apps","date":"2024-04-25"}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, "Ubuntu 24.04", got.Name)
				assert.Equal(t, "5.7 GB", got.Size)
				assert.Equal(t, 1234, got.Seeders)
				assert.Equal(t, 12, got.Leechers)
				assert.Equal(t, "canonical", got.Uploader)
				assert.Equal(t, "https://x/1", got.URL)
				assert.Equal(t, "Apps", got.Category)
				assert.Equal(t, "2024-04-25", got.Date)
				assert.Equal(t, testHash, got.InfoHash)
				assert.True(t, got.HasMagnet())
				assert.Equal(t, "The Pirate Bay", got.Source.Name)
			},
		},
		{
			name: "alternate keys",
			raw:  `{"title":"Film","filesize":"700 MB","seeds":5,"peers":"3","author":"bob","magnetLink":"magnet:?xt=urn:btih:abc","link":"https://x/2","cat":"Movies","date_uploaded":"yesterday"}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, "Film", got.Name)
				assert.Equal(t, "700 MB", got.Size)
				assert.Equal(t, 5, got.Seeders)
				assert.Equal(t, 3, got.Leechers)
				assert.Equal(t, "bob", got.Uploader)
				assert.Equal(t, "magnet:?xt=urn:btih:abc", got.Magnet)
				assert.Empty(t, got.InfoHash, "abc is not a valid info-hash")
				assert.Equal(t, "https://x/2", got.URL)
				assert.Equal(t, "Movies", got.Category)
				assert.Equal(t, "yesterday", got.Date)
			},
		},
		{
			name: "defaults for missing fields",
			raw:  `{}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, UnknownName, got.Name)
				assert.Equal(t, UnknownUploader, got.Uploader)
				assert.Empty(t, got.Size)
				assert.Zero(t, got.Seeders)
				assert.Zero(t, got.Leechers)
				assert.Empty(t, got.Magnet)
				assert.False(t, got.HasMagnet())
				assert.Empty(t, got.URL)
			},
		},
		{
			name: "blank strings count as missing",
			raw:  `{"name":"  ","title":"Fallback","uploader":""}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, "Fallback", got.Name)
				assert.Equal(t, UnknownUploader, got.Uploader)
			},
		},
		{
			name: "malformed counts",
			raw:  `{"name":"x","seeders":"n/a","leechers":-7}`,
			check: func(t *testing.T, got Torrent) {
				assert.Zero(t, got.Seeders)
				assert.Zero(t, got.Leechers)
			},
		},
		{
			name: "wrong value types",
			raw:  `{"name":{"nested":true},"seeders":true,"leechers":[1,2],"size":null}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, UnknownName, got.Name)
				assert.Zero(t, got.Seeders)
				assert.Zero(t, got.Leechers)
				assert.Empty(t, got.Size)
			},
		},
		{
			name: "numeric name",
			raw:  `{"name":1984,"seeders":12.9}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, "1984", got.Name)
				assert.Equal(t, 12, got.Seeders)
			},
		},
		{
			name: "magnet built from hash",
			raw:  `{"name":"Big Buck Bunny","info_hash":"` + "0123456789ABCDEF0123456789ABCDEF01234567" + `"}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, testHash, got.InfoHash)
				assert.Equal(t, "magnet:?xt=urn:btih:"+testHash+"&dn=Big+Buck+Bunny", got.Magnet)
			},
		},
		{
			name: "non-numeric counts are zero",
			raw:  `{"name":"x","seeders":"Inf","leechers":"NaN"}`,
			check: func(t *testing.T, got Torrent) {
				assert.Equal(t, 0, got.Seeders)
				assert.Equal(t, 0, got.Leechers)
			},
		},
		{
			name: "non-magnet link is dropped",
			raw:  `{"name":"x","magnet":"https://example.com/download/1"}`,
			check: func(t *testing.T, got Torrent) {
				assert.Empty(t, got.Magnet)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(source.ParseRaw(tt.raw), "tpb")
			assert.GreaterOrEqual(t, got.Seeders, 0)
			assert.GreaterOrEqual(t, got.Leechers, 0)
			tt.check(t, got)
		})
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	n := NewNormalizer(source.NewStaticRegistry())

	for _, raw := range []source.RawItem{
		{},
		source.ParseRaw(`not json`),
		source.ParseRaw(`[1,2,3]`),
		source.ParseRaw(`"string"`),
		source.ParseRaw(`{"name":`),
	} {
		require.NotPanics(t, func() {
			got := n.Normalize(raw, "ghost")
			assert.NotEmpty(t, got.Name)
			assert.GreaterOrEqual(t, got.Seeders, 0)
			assert.GreaterOrEqual(t, got.Leechers, 0)
			assert.Equal(t, source.ID("ghost"), got.Source.ID)
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"42", 42},
		{"1,234", 1234},
		{"1.234.567", 1234567},
		{" 17 seeders", 17},
		{"12.0", 12},
		{"-3", 0},
		{"n/a", 0},
		{"", 0},
		{"99999999999999999999", maxCount},
		{"1 234", 1234},
		{"1.234", 1234},
		{"12,5", 12},
		{"Inf", 0},
		{"+Inf", 0},
		{"Infinity", 0},
		{"NaN", 0},
		{"1e9", 19},
		{"0x10", 10},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCount(tt.in))
		})
	}
}

func TestTorrentHealthAndQuality(t *testing.T) {
	assert.Equal(t, 0, Torrent{Seeders: 0, Leechers: 5}.Health())
	assert.Equal(t, 100, Torrent{Seeders: 3}.Health())
	assert.Equal(t, 75, Torrent{Seeders: 30, Leechers: 10}.Health())

	assert.Equal(t, QualityExcellent, Torrent{Seeders: 100}.Quality())
	assert.Equal(t, QualityGood, Torrent{Seeders: 50}.Quality())
	assert.Equal(t, QualityAverage, Torrent{Seeders: 10}.Quality())
	assert.Equal(t, QualityPoor, Torrent{Seeders: 9}.Quality())
	assert.Equal(t, "good", QualityGood.String())
}
