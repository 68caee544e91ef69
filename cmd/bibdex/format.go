package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibdex/internal/bib"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Normalize the index tables in place",
	Long: `Format reparses the index and rewrites it with aligned, consistently
padded table columns. Prose outside the tables is preserved byte for byte.`,
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	set, err := loadSettings()
	if err != nil {
		return err
	}
	if err := bib.Format(set); err != nil {
		return err
	}
	fmt.Printf("Formatted %s.\n", set.IndexPath)
	return nil
}
