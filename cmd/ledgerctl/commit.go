package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/speki-go/ledgerstore/internal/noteitem"
	"github.com/speki-go/ledgerstore/staging"
)

var commitBatchPath string

// batchLine is one line of the --batch JSONL file: a key plus an Action
// payload, staged in file order and flushed as a single group commit.
type batchLine struct {
	Key    string          `json:"key"`
	Action noteitem.Action `json:"action"`
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Stage and atomically commit a batch of note actions from a JSONL file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if commitBatchPath == "" {
			return fmt.Errorf("--batch is required")
		}
		f, err := os.Open(commitBatchPath) //nolint:gosec // operator-provided CLI path
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

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

		sc := bufio.NewScanner(f)
		n := 0
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			var bl batchLine
			if err := json.Unmarshal(line, &bl); err != nil {
				return fmt.Errorf("commit: decode line %d: %w", n+1, err)
			}
			if _, err := st.Enqueue(ctx, bl.Key, bl.Action); err != nil {
				return fmt.Errorf("commit: line %d: %w", n+1, err)
			}
			n++
		}
		if err := sc.Err(); err != nil {
			return err
		}

		if err := st.Commit(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "committed %d action(s) as one group\n", n)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitBatchPath, "batch", "", "JSONL file of {\"key\":...,\"action\":{...}} lines (required)")
}
