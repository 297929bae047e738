package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/sideline/internal/api"
	"github.com/abelbrown/sideline/internal/config"
	"github.com/abelbrown/sideline/internal/feed"
	"github.com/abelbrown/sideline/internal/store"
)

// historyRetention is how long watch history is kept.
const historyRetention = 90 * 24 * time.Hour

// dataDir returns ~/.sideline/, creating it if needed.
func dataDir() string {
	dir := config.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		fatal("failed to create data directory: %v", err)
	}
	return dir
}

// eventLogPath returns the path to sideline.events.jsonl.
func eventLogPath() string {
	return filepath.Join(dataDir(), "sideline.events.jsonl")
}

// loadConfig loads and validates the config or exits.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}
	return cfg
}

func newClient(cfg *config.Config) *api.Client {
	return api.New(api.Options{
		BaseURL:           cfg.APIBaseURL,
		Token:             cfg.Token,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

// openHistory opens the watch history and drops entries past retention.
func openHistory() *store.Store {
	dataDir()
	st, err := store.Open(config.HistoryPath())
	if err != nil {
		fatal("failed to open history: %v", err)
	}
	if _, err := st.PruneBefore(time.Now().Add(-historyRetention)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to prune history: %v\n", err)
	}
	return st
}

// feedOptions maps config onto session options.
func feedOptions(cfg *config.Config) feed.Options {
	return feed.Options{
		Country:          cfg.Country,
		Lat:              cfg.Lat,
		Lng:              cfg.Lng,
		ExcludeMediaURLs: cfg.ExcludeMediaURLs,
		PageSize:         cfg.PageSize,
		Sort:             cfg.Sort,
		HighlightsLimit:  cfg.HighlightsLimit,
		AppBaseURL:       cfg.AppBaseURL,
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
