// Package config handles application configuration via TOML files.
// Configuration is stored at ~/.config/torrenthunt/config.toml and includes
// search API settings, custom torrent sources, the default sort order and
// logging.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/litescript/torrenthunt/internal/search"
	"github.com/litescript/torrenthunt/internal/source"
)

// Environment variables that override the file.
const (
	EnvAPIURL   = "TORRENTHUNT_API_URL"
	EnvAPIKey   = "TORRENTHUNT_API_KEY"
	EnvLogLevel = "TORRENTHUNT_LOG_LEVEL"
)

// Config holds application configuration
type Config struct {
	Search  SearchConfig   `toml:"search"`
	Sources []SourceConfig `toml:"sources"`
	Sort    SortConfig     `toml:"sort"`
	Log     LogConfig      `toml:"log"`
}

// SearchConfig holds settings for the aggregation engine and the search API
type SearchConfig struct {
	APIURL string `toml:"api_url"`
	APIKey string `toml:"api_key"`

	// TimeoutSeconds bounds every single source call.
	TimeoutSeconds int `toml:"timeout_seconds"`

	PerSourceLimit int     `toml:"per_source_limit"`
	MaxConcurrent  int     `toml:"max_concurrent"` // 0 = all sources at once
	Retries        int     `toml:"retries"`
	RatePerSecond  float64 `toml:"rate_per_second"` // per source, 0 = unlimited

	// EnabledSources preselects sources in the TUI and is the default for
	// the CLI. Empty means every registered source.
	EnabledSources  []string `toml:"enabled_sources"`
	DefaultCategory string   `toml:"default_category"`
}

// SourceConfig holds a custom torrent source
type SourceConfig struct {
	Name    string `toml:"name"`
	URL     string `toml:"url"`
	Enabled bool   `toml:"enabled"`
}

// SortConfig holds the initial result order
type SortConfig struct {
	Field string `toml:"field"`
	Desc  bool   `toml:"desc"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `toml:"level"`
	Path       string `toml:"path"` // empty = default path next to the config
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Search: SearchConfig{
			APIURL:          source.DefaultAPIURL,
			TimeoutSeconds:  20,
			PerSourceLimit:  search.DefaultPerSourceLimit,
			MaxConcurrent:   0,
			Retries:         1,
			RatePerSecond:   1,
			DefaultCategory: string(search.CategoryAll),
		},
		Sort: SortConfig{
			Field: string(search.FieldSeeders),
			Desc:  true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		// Sources: nil - custom HTML sources are opt-in
	}
}

// Dir returns the configuration directory
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "torrenthunt")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultLogPath returns where logs go when LogConfig.Path is empty.
func DefaultLogPath() string {
	return filepath.Join(Dir(), "torrenthunt.log")
}

// LoadFrom reads the config file at path. A missing file yields the
// defaults. Environment overrides are not applied; see WithEnv.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file, use defaults
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// WithEnv returns a copy of c with the environment overrides applied. The
// copy is for running only and is never written back.
func (c Config) WithEnv(getenv func(string) string) Config {
	c.ApplyEnv(getenv)
	return c
}

// Update re-reads the file at path, applies mutate and writes the result
// back. Only what mutate changes reaches the file, so environment and flag
// overrides held by the running config stay out of it.
func Update(path string, mutate func(*Config)) error {
	cfg, err := LoadFrom(path)
	if err != nil {
		return err
	}
	mutate(&cfg)
	return SaveTo(path, cfg)
}

// SaveTo writes config to path, creating its directory. The file may hold an
// API key, so it is readable by the owner only.
func SaveTo(path string, cfg Config) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ApplyEnv overrides file values with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		c.Search.APIURL = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIKey)); v != "" {
		c.Search.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// Validate clamps numeric settings into range and reports settings that
// cannot be repaired.
func (c *Config) Validate() error {
	s := &c.Search
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = 20
	}
	s.TimeoutSeconds = min(s.TimeoutSeconds, 120)
	if s.PerSourceLimit <= 0 {
		s.PerSourceLimit = search.DefaultPerSourceLimit
	}
	s.PerSourceLimit = min(s.PerSourceLimit, 100)
	s.MaxConcurrent = max(s.MaxConcurrent, 0)
	s.Retries = min(max(s.Retries, 0), 5)
	s.RatePerSecond = max(s.RatePerSecond, 0)
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	c.Log.MaxBackups = max(c.Log.MaxBackups, 0)

	var errs []error
	if _, err := search.ParseCategory(s.DefaultCategory); err != nil {
		errs = append(errs, fmt.Errorf("search.default_category: %w", err))
	}
	if _, err := search.ParseSortField(c.Sort.Field); err != nil {
		errs = append(errs, fmt.Errorf("sort.field: %w", err))
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	for i, src := range c.Sources {
		if strings.TrimSpace(src.URL) == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: url is required", i))
		}
	}
	return errors.Join(errs...)
}

// Timeout returns the per-call bound.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Enabled returns EnabledSources as source IDs.
func (s SearchConfig) Enabled() []source.ID {
	return source.ParseIDs(strings.Join(s.EnabledSources, ","))
}

// CustomSources returns the enabled custom sources.
func (c Config) CustomSources() []source.Custom {
	var out []source.Custom
	for _, src := range c.Sources {
		if src.Enabled {
			out = append(out, source.Custom{Name: src.Name, URL: src.URL})
		}
	}
	return out
}

// LogPath returns the configured log file or the default one.
func (l LogConfig) LogPath() string {
	if l.Path != "" {
		return l.Path
	}
	return DefaultLogPath()
}
