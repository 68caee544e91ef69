package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibdex/internal/bib"
)

var addCmd = &cobra.Command{
	Use:   "add <query>...",
	Short: "Search the metadata sources and add a reference",
	Long: `Add queries the enabled metadata sources (DBLP, Google Scholar, arXiv)
with a free-text query, reconciles the candidates into a single reference,
writes its page under references/, and appends a row to the index table.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().String("table", "", "index table to append to (default: first table)")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	set, err := loadSettings()
	if err != nil {
		return err
	}
	tableName, _ := cmd.Flags().GetString("table")
	query := strings.Join(args, " ")

	return bib.Add(cmd.Context(), newSources(set), set, query, tableName, os.Stdout, os.Stderr)
}
