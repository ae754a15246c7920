package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speki-go/ledgerstore/telemetry"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print commit count, live item count, load warnings, and OTel counters gathered during this run",
	RunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InstallLocalMeterProvider()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openNoteStore(cfg)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "commits: %d\n", store.Ledger().Len())
		fmt.Fprintf(cmd.OutOrStdout(), "live items: %d\n", len(store.LoadIDs()))
		for _, w := range store.Ledger().Warnings() {
			fmt.Fprintln(cmd.OutOrStdout(), "warning:", w)
		}

		counters, err := telemetry.CollectLocalMetrics(context.Background())
		if err != nil {
			return err
		}
		for _, name := range []string{
			"ledgerstore.ledger.retry_count",
			"ledgerstore.ledger.lock_wait_ms",
			"ledgerstore.itemstore.commits_total",
			"ledgerstore.itemstore.fold_duration_ms",
			"ledgerstore.cache.hit_total",
			"ledgerstore.cache.miss_total",
			"ledgerstore.index.rebuild_total",
		} {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %.0f\n", name, counters[name])
		}
		return nil
	},
}
