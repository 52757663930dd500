package cli

import (
	"log/slog"
	"os"

	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/crypto"
	"github.com/daybookhq/daybook/internal/journal"
	"github.com/daybookhq/daybook/internal/store"
)

// setupLogging configures the default slog logger.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// resolveConfig loads the runtime configuration. Config trouble is a
// warning, never fatal: a broken file leaves defaults plus environment
// overrides in place. The --db flag beats everything else.
func resolveConfig(opts *RootOptions) *config.Config {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		slog.Warn("config problem, continuing with defaults", "error", err)
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}
	if err := cfg.CheckSecure(); err != nil {
		slog.Warn("insecure configuration", "error", err)
	}
	return cfg
}

// openStore opens the SQLite store and brings its schema up to date.
// A database that cannot be opened is the one fatal startup condition.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newJournal builds the journal service over an open store.
func newJournal(cfg *config.Config, st *store.Store) *journal.Service {
	return journal.NewService(st, crypto.NewCodec(cfg.MasterPassphrase))
}
