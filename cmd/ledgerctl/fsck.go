package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speki-go/ledgerstore/fsck"
)

var fsckRepair bool

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Scan a ledger root for orphaned, empty, or corrupt entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		report, err := fsck.Scan(context.Background(), cfg.LedgerRoot)
		if err != nil {
			return err
		}
		if report.Clean() {
			fmt.Fprintln(cmd.OutOrStdout(), "clean")
			return nil
		}
		for _, issue := range report.Issues {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", issue.Kind, issue.Path, issue.Detail)
		}
		if fsckRepair {
			removed, err := fsck.Repair(report)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entr(y/ies)\n", len(removed))
		}
		return nil
	},
}

func init() {
	fsckCmd.Flags().BoolVar(&fsckRepair, "repair", false, "remove unambiguous orphan files and empty groups")
}
