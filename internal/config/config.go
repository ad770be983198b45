package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".folio.yml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: FOLIO_TRACKER__BACKEND=sqlite sets tracker.backend.
const EnvPrefix = "FOLIO_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FOLIO_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: FOLIO_PORT -> port, FOLIO_DISCOGS__USERNAME -> discogs.username.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// A sections list replaces the defaults wholesale rather than merging
	// into them element by element.
	if k.Exists("sections") {
		var sections []Section
		if err := k.Unmarshal("sections", &sections); err != nil {
			return nil, fmt.Errorf("unmarshalling sections: %w", err)
		}
		cfg.Sections = sections
	}
	for i := range cfg.Sections {
		cfg.Sections[i].applyDefaults()
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validPaging is the set of recognized paging values.
var validPaging = map[Paging]bool{
	PagingPages:   true,
	PagingBatches: true,
}

// validBackends is the set of recognized tracker backends.
var validBackends = map[TrackerBackend]bool{
	TrackerCookie: true,
	TrackerSQLite: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.SiteDir == "" {
		return fmt.Errorf("site_dir is required")
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if len(c.Sections) == 0 {
		return fmt.Errorf("at least one section is required")
	}

	seen := make(map[string]bool, len(c.Sections))
	for i, s := range c.Sections {
		if s.Name == "" {
			return fmt.Errorf("sections[%d]: name is required", i)
		}
		if strings.ContainsAny(s.Name, "/?#") || s.Name == "api" || s.Name == "ws" || s.Name == "theme" {
			return fmt.Errorf("sections[%d]: invalid name %q", i, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("sections[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		if s.Paging != "" && !validPaging[s.Paging] {
			return fmt.Errorf("sections[%d]: invalid paging %q: must be pages or batches", i, s.Paging)
		}
		if s.PageSize < 0 || s.BatchSize < 0 {
			return fmt.Errorf("sections[%d]: page_size and batch_size must be non-negative", i)
		}
	}

	if c.DefaultTheme != "" && len(c.Themes) > 0 && !c.HasTheme(c.DefaultTheme) {
		return fmt.Errorf("default_theme %q is not listed in themes", c.DefaultTheme)
	}

	if c.Tracker.Backend != "" && !validBackends[c.Tracker.Backend] {
		return fmt.Errorf("invalid tracker.backend %q: must be cookie or sqlite", c.Tracker.Backend)
	}
	if c.Tracker.Backend == TrackerSQLite && c.DatabasePath == "" {
		return fmt.Errorf("database_path is required for the sqlite tracker")
	}
	if c.Tracker.MaxAgeDays < 0 || c.Tracker.NoticeSeconds < 0 {
		return fmt.Errorf("tracker durations must be non-negative")
	}

	if c.Discogs.PerPage < 0 || c.Discogs.RequestsPerMinute < 0 {
		return fmt.Errorf("discogs limits must be non-negative")
	}

	return nil
}

// Section returns the section with the given name.
func (c *Config) Section(name string) (*Section, bool) {
	for i := range c.Sections {
		if c.Sections[i].Name == name {
			return &c.Sections[i], true
		}
	}
	return nil, false
}

// HasTheme reports whether name is a configured theme.
func (c *Config) HasTheme(name string) bool {
	for _, t := range c.Themes {
		if t == name {
			return true
		}
	}
	return false
}

// SitePath resolves a path relative to site_dir.
func (c *Config) SitePath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.SiteDir, filepath.FromSlash(rel))
}

// MaxAge returns how long the last-read marker is kept.
func (t TrackerConfig) MaxAge() time.Duration {
	return time.Duration(t.MaxAgeDays) * 24 * time.Hour
}

// NoticeDuration returns how long the unread notice stays up.
func (t TrackerConfig) NoticeDuration() time.Duration {
	return time.Duration(t.NoticeSeconds) * time.Second
}
