package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speki-go/ledgerstore/internal/noteitem"
	"github.com/speki-go/ledgerstore/item"
)

var (
	queryKey       string
	queryTag       string
	queryDeps      bool
	queryType      string
	queryReverse   bool
	queryRecursive bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Look up a note, its references and dependents, or notes by tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openNoteStore(cfg)
		if err != nil {
			return err
		}

		if queryTag != "" {
			for _, k := range store.GetPropertyCache(noteitem.PropTag, queryTag) {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		}

		if queryKey == "" {
			for _, k := range store.LoadIDs() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		}

		si, err := store.Load(context.Background(), queryKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %q\n", si.Key(), si.Value().Text())

		var ty *item.RefType
		if queryType != "" {
			rt := item.RefType(queryType)
			ty = &rt
		} else {
			rt := noteitem.RefCites
			ty = &rt
		}

		reverse := queryDeps || queryReverse
		arrow := "  ->"
		if reverse {
			arrow = "  <-"
		}

		var keys []string
		switch {
		case queryRecursive && reverse:
			keys = store.AllDependents(si.Key(), ty)
		case queryRecursive:
			keys = store.TransitiveReferences(si.Key(), ty)
		case reverse:
			keys = si.Dependents(ty)
		default:
			keys = si.References(ty)
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), arrow, k)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryKey, "key", "", "note key to look up")
	queryCmd.Flags().StringVar(&queryTag, "tag", "", "list notes bound to this tag")
	queryCmd.Flags().BoolVar(&queryDeps, "dependents", false, "show dependents instead of outgoing references (alias for --reverse)")
	queryCmd.Flags().StringVar(&queryType, "type", "", "restrict to a single reference type (default: cites)")
	queryCmd.Flags().BoolVar(&queryReverse, "reverse", false, "walk incoming references (dependents) instead of outgoing ones")
	queryCmd.Flags().BoolVar(&queryRecursive, "recursive", false, "walk the full transitive closure instead of one hop")
}
