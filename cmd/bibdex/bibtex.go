package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibdex/internal/atomicfile"
	"github.com/pdiddy/bibdex/internal/bib"
	"github.com/pdiddy/bibdex/internal/index"
)

var bibtexCmd = &cobra.Command{
	Use:   "bibtex",
	Short: "Generate a BibTeX file from the index",
	Long: `Bibtex renders every referenced page as a BibTeX entry, grouped per
index table under a banner comment, and writes the result to the
configured bibliography path.`,
	RunE: runBibtex,
}

func init() {
	bibtexCmd.Flags().String("table", "", "render a single table (default: all tables)")
	bibtexCmd.Flags().String("output", "", "output path (default from settings)")

	rootCmd.AddCommand(bibtexCmd)
}

func runBibtex(cmd *cobra.Command, args []string) error {
	set, err := loadSettings()
	if err != nil {
		return err
	}
	doc, err := index.Load(set.IndexPath, set)
	if err != nil {
		return err
	}
	tableName, _ := cmd.Flags().GetString("table")

	out, err := bib.BuildBib(doc, set, tableName, os.Stderr)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = set.BibtexPath
	}
	if err := atomicfile.WriteFile(output, out, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s.\n", output)
	return nil
}
