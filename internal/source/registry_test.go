package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry("https://api.example.com/", Custom{Name: "Mirror", URL: "mirror.example.org/some/path"})
	require.NoError(t, err)

	ids := reg.IDs()
	require.Len(t, ids, len(builtin)+1)
	assert.Equal(t, ID("piratebay"), ids[0])
	assert.Equal(t, ID("mirror.example.org"), ids[len(ids)-1])

	pb, ok := reg.Lookup("piratebay")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com", pb.Endpoint)
	assert.Equal(t, KindAPI, pb.Kind)
	assert.True(t, pb.Categories)

	mirror, ok := reg.Lookup("mirror.example.org")
	require.True(t, ok)
	assert.Equal(t, KindHTML, mirror.Kind)
	assert.Equal(t, "https://mirror.example.org", mirror.Endpoint)
	assert.Equal(t, "🌐 Mirror", mirror.Label())
}

func TestNewRegistryDefaultsAPIURL(t *testing.T) {
	reg, err := NewRegistry("  ")
	require.NoError(t, err)
	info, ok := reg.Lookup("yts")
	require.True(t, ok)
	assert.Equal(t, DefaultAPIURL, info.Endpoint)
	assert.False(t, info.Categories)
}

func TestNewRegistryRejectsBadCustom(t *testing.T) {
	tests := []struct {
		name   string
		custom []Custom
	}{
		{name: "unsupported scheme", custom: []Custom{{Name: "ftp", URL: "ftp://files.example.com"}}},
		{name: "duplicate host", custom: []Custom{{URL: "https://a.example.com"}, {URL: "http://A.example.com/x"}}},
		{name: "no host", custom: []Custom{{Name: "empty", URL: "https://"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry("", tt.custom...)
			assert.Error(t, err)
		})
	}
}

func TestRegistryOrdered(t *testing.T) {
	reg := NewStaticRegistry(Info{ID: "a"}, Info{ID: "b"}, Info{ID: "c"}, Info{ID: "a", Name: "dup"})

	assert.Equal(t, []ID{"a", "b", "c"}, reg.IDs())
	info, _ := reg.Lookup("a")
	assert.Equal(t, "a", info.Name)

	known, unknown := reg.Ordered([]ID{"c", "zzz", "a", "c"})
	assert.Equal(t, []ID{"a", "c"}, known)
	assert.Equal(t, []ID{"zzz"}, unknown)
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []ID{"piratebay", "1337x", "yts"}, ParseIDs(" PirateBay, 1337x,,yts "))
	assert.Nil(t, ParseIDs(""))
}
