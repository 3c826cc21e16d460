package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.Categories) != 4 {
		t.Errorf("categories = %d, want 4", len(cfg.Categories))
	}
	if cfg.Refresh != DefaultRefresh {
		t.Errorf("refresh = %q", cfg.Refresh)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	chain, err := cfg.ProxyChain()
	if err != nil || len(chain) != 2 || chain[0].Name != "corsproxy" || chain[1].Name != "allorigins" {
		t.Errorf("proxy chain = %v, %v", chain, err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if _, ok := cfg.Category("oncology"); !ok {
		t.Error("default categories missing")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Categories = cfg.Categories[:1]
	cfg.Fetch.Proxies = []string{"direct"}
	cfg.Refresh = "0 */6 * * *"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if len(got.Categories) != 1 || got.Categories[0].Key != cfg.Categories[0].Key {
		t.Errorf("categories = %+v", got.Categories)
	}
	if len(got.Categories[0].Sources) != len(cfg.Categories[0].Sources) {
		t.Error("sources lost in round trip")
	}
	if got.Fetch.Proxies[0] != "direct" || got.Refresh != "0 */6 * * *" {
		t.Errorf("fetch/refresh = %+v / %q", got.Fetch, got.Refresh)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestAutoPopulateFromEnv(t *testing.T) {
	t.Setenv("MEDWATCH_PROXIES", "allorigins, direct")
	t.Setenv("MEDWATCH_REFRESH", "@every 1h")
	t.Setenv("MEDWATCH_TIMEOUT", "5s")
	t.Setenv("MEDWATCH_PUBMED_URL", "http://localhost:9999/eutils")
	t.Setenv("MEDWATCH_LOG_LEVEL", "WARN")

	cfg := DefaultConfig()
	if err := cfg.AutoPopulateFromEnv(); err != nil {
		t.Fatalf("AutoPopulateFromEnv: %v", err)
	}
	if len(cfg.Fetch.Proxies) != 2 || cfg.Fetch.Proxies[0] != "allorigins" || cfg.Fetch.Proxies[1] != "direct" {
		t.Errorf("proxies = %v", cfg.Fetch.Proxies)
	}
	if cfg.Refresh != "@every 1h" {
		t.Errorf("refresh = %q", cfg.Refresh)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if cfg.PubMed.BaseURL != "http://localhost:9999/eutils" {
		t.Errorf("pubmed url = %q", cfg.PubMed.BaseURL)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestAutoPopulateFromEnvSwitches(t *testing.T) {
	t.Setenv("MEDWATCH_REFRESH", "off")
	t.Setenv("MEDWATCH_PUBMED_URL", "off")
	t.Setenv("MEDWATCH_TIMEOUT", "12")

	cfg := DefaultConfig()
	if err := cfg.AutoPopulateFromEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Refresh != "" || cfg.PubMed.Enabled {
		t.Errorf("refresh = %q, pubmed enabled = %v", cfg.Refresh, cfg.PubMed.Enabled)
	}
	if cfg.Timeout() != 12*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}

	t.Setenv("MEDWATCH_TIMEOUT", "soon")
	if err := cfg.AutoPopulateFromEnv(); err == nil {
		t.Error("expected error for bad timeout")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown proxy", func(c *Config) { c.Fetch.Proxies = []string{"tor"} }},
		{"empty proxies", func(c *Config) { c.Fetch.Proxies = nil }},
		{"bad refresh", func(c *Config) { c.Refresh = "every now and then" }},
		{"duplicate category", func(c *Config) { c.Categories = append(c.Categories, c.Categories[0]) }},
		{"empty key", func(c *Config) { c.Categories[0].Key = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Refresh = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty refresh should be valid: %v", err)
	}
}

func TestRate(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Rate() != rate.Limit(4) {
		t.Errorf("rate = %v", cfg.Rate())
	}
	cfg.Fetch.RatePerSec = 0
	if cfg.Rate() != rate.Inf {
		t.Errorf("rate = %v, want Inf", cfg.Rate())
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	if filepath.Base(cfg.EventsPath()) != "events.jsonl" || filepath.Base(cfg.DBPath()) != "medwatch.db" {
		t.Errorf("paths = %s, %s", cfg.EventsPath(), cfg.DBPath())
	}
	cfg.DBFile = "/tmp/x.db"
	if cfg.DBPath() != "/tmp/x.db" {
		t.Errorf("db path override ignored")
	}
}
