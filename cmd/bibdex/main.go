// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibdex CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibdex/internal/fetch"
	"github.com/pdiddy/bibdex/internal/secrets"
	"github.com/pdiddy/bibdex/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	configDir    = ".bibdex"
	settingsFile = ".bibdex/settings.json"
	secretsDir   = ".bibdex/secrets"

	// scholarCookieSecret names the secrets file holding a Google Scholar
	// session cookie, sent verbatim with Scholar requests.
	scholarCookieSecret = "scholar-cookie"
)

// loadedSecrets holds values loaded from .bibdex/secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the bibdex CLI.
var rootCmd = &cobra.Command{
	Use:   "bibdex",
	Short: "Markdown bibliography manager for research notes",
	Long: `bibdex keeps an annotated bibliography as plain markdown: an index file
with one table row per paper, and a page per reference under references/.

Metadata comes from DBLP, Google Scholar, and arXiv. Subcommands add new
references, refresh stored metadata, normalize the index tables, and render
the collection as BibTeX or CSL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "settings file (default: ./.bibdex/settings.json)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(settingsFile)
		viper.SetConfigType("json")
	}

	viper.SetEnvPrefix("BIBDEX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadSettings returns the repository settings, layered over the defaults.
// It fails when the working directory is not a bibdex repository.
func loadSettings() (types.Settings, error) {
	set := types.DefaultSettings()
	if err := viper.ReadInConfig(); err != nil {
		return set, fmt.Errorf("not a bibdex repository (run 'bibdex init'): %w", err)
	}
	if err := viper.Unmarshal(&set); err != nil {
		return set, fmt.Errorf("parsing settings: %w", err)
	}
	return set, nil
}

// newSources builds the enabled metadata sources from the repository
// settings and any loaded secrets.
func newSources(set types.Settings) []fetch.Source {
	client := &http.Client{Timeout: set.Fetch.Timeout}
	return fetch.EnabledSources(client, set.Fetch, loadedSecrets[scholarCookieSecret])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
