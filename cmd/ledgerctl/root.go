package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/speki-go/ledgerstore/config"
	"github.com/speki-go/ledgerstore/internal/noteitem"
	"github.com/speki-go/ledgerstore/itemstore"
	"github.com/speki-go/ledgerstore/ledger"
)

var (
	rootDir    string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate on a ledgerstore root",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "ledger root directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to ledgerstore.toml (optional)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig resolves the effective configuration for this invocation:
// --config file (if given) layered under LEDGERSTORE_* environment
// overrides, falling back to --root for the ledger location when no
// config file sets ledger_root.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.LedgerRoot == config.Default().LedgerRoot {
		cfg.LedgerRoot = rootDir
	}
	return cfg, nil
}

// openNoteStore opens the bundled noteitem demo collection against the
// resolved ledger root.
func openNoteStore(cfg config.Config) (*itemstore.Store[string, noteitem.Action, noteitem.Note], error) {
	l, err := ledger.Open(cfg.LedgerRoot,
		ledger.WithRetryMaxElapsed(time.Duration(cfg.RetryMaxElapsed)),
		ledger.WithLockTimeout(time.Duration(cfg.LockTimeout)))
	if err != nil {
		return nil, err
	}
	return itemstore.NewStore[string, noteitem.Action, noteitem.Note](
		l,
		"note",
		func() noteitem.Note { return noteitem.Note{} },
		func(k string) string { return k },
		func(s string) (string, error) { return s, nil },
		cfg.CacheSize,
	)
}
