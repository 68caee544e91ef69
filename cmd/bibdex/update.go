package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibdex/internal/bib"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-fetch metadata for every reference in the index",
	Long: `Update walks the index tables row by row, re-queries the metadata
sources with each row's stored title and authors, and rewrites the managed
columns and the reference pages. User-added columns and page notes are
left alone. Failing rows are reported and skipped.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().String("table", "", "update a single table (default: all tables)")
	updateCmd.Flags().Duration("delay", 0, "pause between row lookups (default from settings)")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	set, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("delay") {
		set.Fetch.UpdateDelay, _ = cmd.Flags().GetDuration("delay")
	}
	tableName, _ := cmd.Flags().GetString("table")

	result, err := bib.UpdateAll(cmd.Context(), newSources(set), set, tableName, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	if result.AllFailed() {
		return fmt.Errorf("all %d row(s) failed to update", result.Failed)
	}
	return nil
}
