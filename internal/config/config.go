package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/abelbrown/medwatch/internal/fetch"
	"github.com/abelbrown/medwatch/internal/model"
	"github.com/abelbrown/medwatch/internal/pubmed"
)

// DefaultRefresh is the cron spec for scheduled runs.
const DefaultRefresh = "@every 12h"

// Config is the persistent application configuration
type Config struct {
	// Categories shown, in order
	Categories []model.Category `json:"categories"`

	Fetch  FetchConfig  `json:"fetch"`
	PubMed PubMedConfig `json:"pubmed"`

	// Refresh is a cron spec ("@every 12h", "0 */6 * * *"). Empty disables
	// scheduled refreshes.
	Refresh string `json:"refresh"`

	UI UIConfig `json:"ui"`

	// LogLevel is the lowest level written to the event log: debug, info,
	// warn or error. Lower events still reach the TUI debug panel.
	LogLevel string `json:"log_level"`

	// Paths; empty means the default under ~/.medwatch
	EventsFile string `json:"events_file,omitempty"`
	DBFile     string `json:"db_file,omitempty"`
}

// FetchConfig holds proxy fetcher settings
type FetchConfig struct {
	Proxies       []string `json:"proxies"`      // tried in order: corsproxy, allorigins, direct
	TimeoutSec    int      `json:"timeout_sec"`  // per attempt, 0 disables
	RatePerSec    float64  `json:"rate_per_sec"` // per proxy, 0 = unlimited
	Burst         int      `json:"burst"`
	MaxConcurrent int      `json:"max_concurrent"` // parallel fetches within a category
}

// PubMedConfig holds literature fallback settings
type PubMedConfig struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	ShowFeatured bool `json:"show_featured"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Categories: model.DefaultCategories(),
		Fetch: FetchConfig{
			Proxies:       []string{"corsproxy", "allorigins"},
			TimeoutSec:    30,
			RatePerSec:    4,
			Burst:         4,
			MaxConcurrent: 8,
		},
		PubMed: PubMedConfig{
			Enabled: true,
			BaseURL: pubmed.DefaultBaseURL,
		},
		Refresh:  DefaultRefresh,
		LogLevel: "info",
		UI: UIConfig{
			ShowFeatured: true,
		},
	}
}

// Dir returns the application data directory
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".medwatch")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// EventsPath returns the JSONL event log path
func (c *Config) EventsPath() string {
	if c.EventsFile != "" {
		return c.EventsFile
	}
	return filepath.Join(Dir(), "events.jsonl")
}

// DBPath returns the run history database path
func (c *Config) DBPath() string {
	if c.DBFile != "" {
		return c.DBFile
	}
	return filepath.Join(Dir(), "medwatch.db")
}

// Load reads config from the default path, or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path. A missing file yields defaults.
// Environment overrides apply in both cases.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(cfg.Categories) == 0 {
		cfg.Categories = model.DefaultCategories()
	}
	if err := cfg.AutoPopulateFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AutoPopulateFromEnv applies MEDWATCH_* overrides
func (c *Config) AutoPopulateFromEnv() error {
	if v := os.Getenv("MEDWATCH_PROXIES"); v != "" {
		c.Fetch.Proxies = splitList(v)
	}
	if v := os.Getenv("MEDWATCH_REFRESH"); v != "" {
		if v == "off" {
			v = ""
		}
		c.Refresh = v
	}
	if v := os.Getenv("MEDWATCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			secs, serr := strconv.Atoi(v)
			if serr != nil {
				return fmt.Errorf("MEDWATCH_TIMEOUT: %w", err)
			}
			d = time.Duration(secs) * time.Second
		}
		c.Fetch.TimeoutSec = int(d / time.Second)
	}
	if v := os.Getenv("MEDWATCH_PUBMED_URL"); v != "" {
		if v == "off" {
			c.PubMed.Enabled = false
		} else {
			c.PubMed.BaseURL = v
		}
	}
	if v := os.Getenv("MEDWATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks the settings that would otherwise fail at run time
func (c *Config) Validate() error {
	if _, err := c.ProxyChain(); err != nil {
		return err
	}
	if c.Refresh != "" {
		if _, err := c.Schedule(); err != nil {
			return err
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Key == "" {
			return errors.New("category with empty key")
		}
		if seen[cat.Key] {
			return fmt.Errorf("duplicate category %q", cat.Key)
		}
		seen[cat.Key] = true
	}
	return nil
}

// ProxyChain resolves the configured proxy names
func (c *Config) ProxyChain() ([]fetch.Proxy, error) {
	return fetch.ProxiesByName(c.Fetch.Proxies)
}

// Schedule parses the refresh spec
func (c *Config) Schedule() (cron.Schedule, error) {
	s, err := cron.ParseStandard(c.Refresh)
	if err != nil {
		return nil, fmt.Errorf("refresh %q: %w", c.Refresh, err)
	}
	return s, nil
}

// Timeout returns the per-attempt HTTP timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSec) * time.Second
}

// Rate returns the per-proxy limit
func (c *Config) Rate() rate.Limit {
	if c.Fetch.RatePerSec <= 0 {
		return rate.Inf
	}
	return rate.Limit(c.Fetch.RatePerSec)
}

// Category returns the configured category with key
func (c *Config) Category(key string) (model.Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return model.Category{}, false
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
