package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibdex/internal/atomicfile"
	"github.com/pdiddy/bibdex/internal/bib"
	"github.com/pdiddy/bibdex/internal/cite"
	"github.com/pdiddy/bibdex/internal/index"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the references as CSL items",
	Long: `Export renders every referenced page as a CSL (Citation Style Language)
item and writes the collection as YAML or JSON, for pandoc and other CSL
consumers. Without --output the items go to stdout; warnings go to stderr.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("table", "", "export a single table (default: all tables)")
	exportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	exportCmd.Flags().String("output", "", "output path (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	set, err := loadSettings()
	if err != nil {
		return err
	}
	doc, err := index.Load(set.IndexPath, set)
	if err != nil {
		return err
	}
	tableName, _ := cmd.Flags().GetString("table")

	items, err := bib.CollectCSL(doc, set, tableName, os.Stderr)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return cite.FormatCSL(items, format, os.Stdout)
	}

	var b bytes.Buffer
	if err := cite.FormatCSL(items, format, &b); err != nil {
		return err
	}
	if err := atomicfile.WriteFile(output, b.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %d item(s) to %s.\n", len(items), output)
	return nil
}
