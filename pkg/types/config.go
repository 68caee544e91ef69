// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FetchConfig holds settings for the metadata source fetchers.
type FetchConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibdex/0.1").
	UserAgent string `json:"user_agent" mapstructure:"user_agent"`

	// MaxCandidates is the number of results requested per source (default 3).
	MaxCandidates int `json:"max_candidates" mapstructure:"max_candidates"`

	// MinSimilarity is the token-overlap score below which a candidate is
	// discarded during reconciliation (default 0.5).
	MinSimilarity float64 `json:"min_similarity" mapstructure:"min_similarity"`

	// EnableScholar controls whether the Google Scholar source is queried.
	EnableScholar bool `json:"enable_scholar" mapstructure:"enable_scholar"`

	// EnableDBLP controls whether the DBLP source is queried.
	EnableDBLP bool `json:"enable_dblp" mapstructure:"enable_dblp"`

	// EnableArxiv controls whether the arXiv source is queried.
	EnableArxiv bool `json:"enable_arxiv" mapstructure:"enable_arxiv"`

	// ScholarRate is the minimum interval between Google Scholar requests
	// (default 2s). Scholar has no API and blocks aggressive scrapers.
	ScholarRate time.Duration `json:"scholar_rate" mapstructure:"scholar_rate"`

	// UpdateDelay is the pause between consecutive row updates (default 1s).
	UpdateDelay time.Duration `json:"update_delay" mapstructure:"update_delay"`
}

// Settings is the repository configuration loaded from
// .bibdex/settings.json. Unknown keys in the file are ignored.
type Settings struct {
	// Columns is the managed column order for index tables.
	Columns []string `json:"columns" mapstructure:"columns"`

	// Headers maps column names to their display header text.
	Headers map[string]string `json:"headers" mapstructure:"headers"`

	// IndexPath is the markdown index file, relative to the repository root.
	IndexPath string `json:"index_path" mapstructure:"index_path"`

	// ReferencesDir is the directory holding per-reference pages.
	ReferencesDir string `json:"references_dir" mapstructure:"references_dir"`

	// BibtexPath is the default output path for the bibtex command.
	BibtexPath string `json:"bibtex_path" mapstructure:"bibtex_path"`

	// Fetch configures the metadata sources.
	Fetch FetchConfig `json:"fetch" mapstructure:"fetch"`
}

// HeaderFor returns the display header for a column name, falling back to
// the column name itself when no mapping is configured.
func (s Settings) HeaderFor(column string) string {
	if h, ok := s.Headers[column]; ok {
		return h
	}
	return column
}

// DefaultSettings returns the configuration written by init.
func DefaultSettings() Settings {
	return Settings{
		Columns: []string{
			ColTitle, ColAuthors, ColVenue, ColYear, ColCitations, ColURL, ColReference,
		},
		Headers: map[string]string{
			ColTitle:     "Title",
			ColAuthors:   "Authors",
			ColVenue:     "Venue",
			ColYear:      "Year",
			ColCitations: "Citations",
			ColURL:       "URL",
			ColReference: "Reference",
		},
		IndexPath:     "index.md",
		ReferencesDir: "references",
		BibtexPath:    "ref.bib",
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "bibdex/0.1",
			MaxCandidates: 3,
			MinSimilarity: 0.5,
			EnableScholar: true,
			EnableDBLP:    true,
			EnableArxiv:   true,
			ScholarRate:   2 * time.Second,
			UpdateDelay:   1 * time.Second,
		},
	}
}
