// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bib

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/bibdex/internal/cite"
	"github.com/pdiddy/bibdex/internal/index"
	"github.com/pdiddy/bibdex/pkg/types"
)

// BuildBib renders the .bib file contents for the selected tables. Each
// table contributes a banner comment followed by one entry per row,
// regenerated from the row's reference page. Rows whose page is missing
// or unreadable are warned about on w and skipped.
func BuildBib(doc *index.Document, set types.Settings, tableName string, w io.Writer) ([]byte, error) {
	tables, err := doc.SelectTables(tableName)
	if err != nil {
		return nil, err
	}

	banner := strings.Repeat("%", 40)
	var b strings.Builder
	for _, t := range tables {
		if !t.HasColumn(types.ColReference) {
			continue
		}
		fmt.Fprintf(&b, "%s\n%% %s\n%s\n\n", banner, t.Heading, banner)
		for _, row := range t.Rows {
			key, ref, err := loadRowReference(set, t, row)
			if err != nil {
				fmt.Fprintf(w, "warning: skipping entry: %v\n", err)
				continue
			}
			b.WriteString(cite.GenerateBibTeX(key, ref))
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}
