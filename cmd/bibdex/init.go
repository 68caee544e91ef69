package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibdex/internal/atomicfile"
	"github.com/pdiddy/bibdex/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a bibdex repository in the current directory",
	Long: `Init writes the .bibdex/ configuration directory with default settings,
a starter index.md holding an empty references table, and the references/
page directory. It refuses to run inside an existing repository.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configDir); err == nil {
		return fmt.Errorf("%s already exists, refusing to reinitialize", configDir)
	}

	set := types.DefaultSettings()

	if err := os.MkdirAll(secretsDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(set.ReferencesDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(settingsFile, append(data, '\n'), 0o644); err != nil {
		return err
	}

	// An index already present (say, a hand-written one) is kept as is.
	if _, err := os.Stat(set.IndexPath); os.IsNotExist(err) {
		if err := atomicfile.WriteFile(set.IndexPath, starterIndex(set), 0o644); err != nil {
			return err
		}
	}

	fmt.Println("Initialized bibdex repository.")
	return nil
}

// starterIndex renders an index with a single empty references table.
func starterIndex(set types.Settings) []byte {
	headers := make([]string, len(set.Columns))
	dashes := make([]string, len(set.Columns))
	for i, col := range set.Columns {
		headers[i] = set.HeaderFor(col)
		dashes[i] = "---"
	}

	var b strings.Builder
	b.WriteString("# Bibliography\n\n## References\n\n")
	fmt.Fprintf(&b, "| %s |\n", strings.Join(headers, " | "))
	fmt.Fprintf(&b, "| %s |\n", strings.Join(dashes, " | "))
	return []byte(b.String())
}
