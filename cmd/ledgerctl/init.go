package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speki-go/ledgerstore/ledger"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create (or verify) a ledger root",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := ledger.Open(cfg.LedgerRoot)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ledger ready at %s (%d commits)\n", l.Root(), l.Len())
		return nil
	},
}
