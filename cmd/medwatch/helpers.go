package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/abelbrown/medwatch/internal/config"
	"github.com/abelbrown/medwatch/internal/fetch"
	"github.com/abelbrown/medwatch/internal/news"
	"github.com/abelbrown/medwatch/internal/otel"
	"github.com/abelbrown/medwatch/internal/pubmed"
	"github.com/abelbrown/medwatch/internal/store"
)

// loadConfig loads ~/.medwatch/config.json (or defaults) or fatals.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return cfg
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}
}

// openDB opens the run history store or fatals.
func openDB(cfg *config.Config) *store.Store {
	path := cfg.DBPath()
	ensureDir(path)
	st, err := store.Open(path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return st
}

// openEventLog starts a Logger appending to the events file. The returned
// close func flushes the logger and closes the file.
func openEventLog(cfg *config.Config) (*otel.Logger, func()) {
	path := cfg.EventsPath()
	ensureDir(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "medwatch: event log disabled: %v\n", err)
		l := otel.NewNullLogger()
		return l, l.Close
	}
	l := otel.NewLogger(f)
	l.SetMinLevel(otel.Level(cfg.LogLevel))
	return l, func() {
		l.Close()
		f.Close()
	}
}

// buildAggregator wires the fetcher, the PubMed fallback and the categories.
func buildAggregator(cfg *config.Config, logger *otel.Logger) *news.Aggregator {
	chain, err := cfg.ProxyChain()
	if err != nil {
		log.Fatalf("invalid proxy chain: %v", err)
	}
	f := fetch.NewFetcher(fetch.Options{
		Proxies: chain,
		Timeout: cfg.Timeout(),
		Rate:    cfg.Rate(),
		Burst:   cfg.Fetch.Burst,
		Logger:  logger,
	})
	logger.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Comp:  "fetch",
		Msg:   "proxy chain: " + strings.Join(f.Proxies(), " > "),
		Count: len(cfg.Categories),
	})

	var searcher news.Searcher
	if cfg.PubMed.Enabled {
		searcher = pubmed.NewClient(f, cfg.PubMed.BaseURL, logger)
	}

	return news.New(f, searcher, cfg.Categories, news.Options{
		MaxConcurrent: cfg.Fetch.MaxConcurrent,
		Logger:        logger,
	})
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
