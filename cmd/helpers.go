package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/db"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/unread"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `folio init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	if !verbose && cfg.LogLevel != "" {
		logging.Init(os.Stderr, cfg.LogLevel)
	}
	return cfg, nil
}

// openDatabase opens the tracker database under the site directory and drops
// expired entries.
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	path := cfg.SitePath(cfg.DatabasePath)
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if n, err := unread.Purge(ctx, database, time.Now()); err != nil {
		logging.Warn("purging expired entries", "err", err)
	} else if n > 0 {
		logging.Debug("purged expired entries", "count", n)
	}
	return database, nil
}
