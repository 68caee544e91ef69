package cite

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibdex/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style
// Language) format. The field names and structure follow the
// CSL-JSON/CSL-YAML schema so that output is consumable by Pandoc and
// reference managers.
type CSLItem struct {
	ID             string    `yaml:"id" json:"id"`
	Type           string    `yaml:"type" json:"type"`
	Title          string    `yaml:"title" json:"title"`
	ContainerTitle string    `yaml:"container-title,omitempty" json:"container-title,omitempty"`
	Author         []CSLName `yaml:"author,omitempty" json:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty" json:"issued,omitempty"`
	URL            string    `yaml:"URL,omitempty" json:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty" json:"family,omitempty"`
	Given   string `yaml:"given,omitempty" json:"given,omitempty"`
	Literal string `yaml:"literal,omitempty" json:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts" json:"date-parts"`
}

// ToCSL converts a reference to a CSL item keyed by its citation key.
func ToCSL(key string, ref types.Reference) CSLItem {
	item := CSLItem{
		ID:             key,
		Type:           cslType(ref.Venue),
		Title:          ref.Title,
		ContainerTitle: ref.Venue,
		Abstract:       ref.Summary,
		URL:            ref.URL,
	}

	for _, a := range ref.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if ref.Year != 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{ref.Year}}}
	}

	return item
}

// cslType mirrors the venue heuristic used for BibTeX entry types.
func cslType(venue string) string {
	switch {
	case venue == "":
		return "document"
	case journalKeyword.MatchString(venue):
		return "article-journal"
	default:
		return "paper-conference"
	}
}

// FormatCSL writes items to w in the requested encoding, "yaml" or
// "json". An empty format means YAML.
func FormatCSL(items []CSLItem, format string, w io.Writer) error {
	switch format {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(items)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	default:
		return fmt.Errorf("unknown export format %q (want yaml or json)", format)
	}
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
