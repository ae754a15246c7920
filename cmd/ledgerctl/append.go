package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speki-go/ledgerstore/internal/noteitem"
	"github.com/speki-go/ledgerstore/staging"
)

var (
	appendKey  string
	appendText string
	appendRefs []string
	appendTags []string
)

var appendCmd = &cobra.Command{
	Use:   "append",
	Short: "Create or extend a note as one atomic commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if appendKey == "" {
			return fmt.Errorf("--key is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openNoteStore(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		st := staging.New(store)

		if _, err := st.Enqueue(ctx, appendKey, noteitem.Action{
			Kind: noteitem.ActionCreate, Ref: appendKey, Text: appendText,
		}); err != nil {
			return err
		}
		for _, ref := range appendRefs {
			if _, err := st.Enqueue(ctx, appendKey, noteitem.Action{Kind: noteitem.ActionAddRef, Ref: ref}); err != nil {
				return err
			}
		}
		for _, tag := range appendTags {
			if _, err := st.Enqueue(ctx, appendKey, noteitem.Action{Kind: noteitem.ActionAddTag, Tag: tag}); err != nil {
				return err
			}
		}

		if err := st.Commit(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "committed note %q\n", appendKey)
		return nil
	},
}

func init() {
	appendCmd.Flags().StringVar(&appendKey, "key", "", "note key (required)")
	appendCmd.Flags().StringVar(&appendText, "text", "", "note text")
	appendCmd.Flags().StringSliceVar(&appendRefs, "ref", nil, "outgoing reference to another note key (repeatable)")
	appendCmd.Flags().StringSliceVar(&appendTags, "tag", nil, "tag to attach (repeatable)")
}
