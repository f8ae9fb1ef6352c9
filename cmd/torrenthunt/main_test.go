package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/torrenthunt/internal/config"
)

// run executes the root command offline against a config in a temp dir.
func run(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()

	logger, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func tempConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.toml")
}

type searchOutput struct {
	Query   string `json:"query"`
	Sources []struct {
		ID string `json:"id"`
		OK bool   `json:"ok"`
	} `json:"sources"`
	Results []struct {
		Name   string `json:"name"`
		Source string `json:"source"`
		Magnet string `json:"magnet"`
	} `json:"results"`
}

func TestSearchJSON(t *testing.T) {
	stdout, _, err := run(t, tempConfig(t), "--offline", "search", "--json", "--sources", "yts", "linux", "iso")
	require.NoError(t, err)

	var out searchOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "linux iso", out.Query)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "yts", out.Sources[0].ID)
	assert.True(t, out.Sources[0].OK)
	require.Len(t, out.Results, 6)
	for _, r := range out.Results {
		assert.Equal(t, "yts", r.Source)
		assert.NotEmpty(t, r.Magnet)
	}
}

func TestSearchSortByName(t *testing.T) {
	stdout, _, err := run(t, tempConfig(t), "--offline", "search", "--json", "--sources", "yts", "--sort", "name", "demo")
	require.NoError(t, err)

	var out searchOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "Big Buck Bunny 1080p", out.Results[0].Name)
}

func TestSearchTable(t *testing.T) {
	stdout, stderr, err := run(t, tempConfig(t), "--offline", "search", "--sources", "yts,nyaa", "ubuntu")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Ubuntu 24.04")
	assert.Contains(t, stdout, "SEED")
	assert.Contains(t, stderr, "from 2/2 sources")
}

func TestSearchCategoryFilter(t *testing.T) {
	stdout, _, err := run(t, tempConfig(t), "--offline", "search", "--json", "--sources", "yts", "--category", "books", "gutenberg")
	require.NoError(t, err)

	var out searchOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Project Gutenberg Top 100 EPUB", out.Results[0].Name)
}

func TestSearchInvalidCategory(t *testing.T) {
	_, _, err := run(t, tempConfig(t), "--offline", "search", "--category", "nope", "ubuntu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --category")
}

func TestSearchRequiresQuery(t *testing.T) {
	_, _, err := run(t, tempConfig(t), "--offline", "search")
	require.Error(t, err)
}

func TestTrending(t *testing.T) {
	stdout, _, err := run(t, tempConfig(t), "--offline", "trending", "--json", "--sources", "eztv", "--limit", "3")
	require.NoError(t, err)

	var out searchOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Len(t, out.Results, 3)
}

func TestSourcesList(t *testing.T) {
	path := tempConfig(t)
	cfg := config.Default()
	cfg.Search.EnabledSources = []string{"yts"}
	require.NoError(t, config.SaveTo(path, cfg))

	stdout, _, err := run(t, path, "sources")
	require.NoError(t, err)
	assert.Contains(t, stdout, "yts")
	assert.Contains(t, stdout, "piratebay")
	assert.Contains(t, stdout, "ENABLED")
}

func TestProbeAdd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="magnet:?xt=urn:btih:abc">dl</a></body></html>`))
	}))
	defer srv.Close()

	t.Setenv(config.EnvAPIKey, "s3cret-from-env")

	path := tempConfig(t)
	stdout, _, err := run(t, path, "probe", "--add", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "looks like a torrent site")
	assert.Contains(t, stdout, "added")

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, srv.URL, cfg.Sources[0].URL)
	assert.True(t, cfg.Sources[0].Enabled)

	// Environment and flag overrides stay out of the file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret-from-env")
	assert.Empty(t, cfg.Search.APIKey)
	assert.Equal(t, "info", cfg.Log.Level)

	// A second add is a no-op
	stdout, _, err = run(t, path, "probe", "--add", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "already configured")
}

func TestProbeRejectsPlainSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>cooking recipes</p></body></html>`))
	}))
	defer srv.Close()

	_, _, err := run(t, tempConfig(t), "probe", srv.URL)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, tempConfig(t), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "torrenthunt v")
}
