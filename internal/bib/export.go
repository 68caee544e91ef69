// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bib

import (
	"fmt"
	"io"

	"github.com/pdiddy/bibdex/internal/cite"
	"github.com/pdiddy/bibdex/internal/index"
	"github.com/pdiddy/bibdex/pkg/types"
)

// CollectCSL gathers CSL items for the selected tables' references, in
// table and row order. Rows whose page cannot be read are warned about
// on w and skipped.
func CollectCSL(doc *index.Document, set types.Settings, tableName string, w io.Writer) ([]cite.CSLItem, error) {
	tables, err := doc.SelectTables(tableName)
	if err != nil {
		return nil, err
	}

	var items []cite.CSLItem
	for _, t := range tables {
		if !t.HasColumn(types.ColReference) {
			continue
		}
		for _, row := range t.Rows {
			key, ref, err := loadRowReference(set, t, row)
			if err != nil {
				fmt.Fprintf(w, "warning: skipping entry: %v\n", err)
				continue
			}
			items = append(items, cite.ToCSL(key, ref))
		}
	}
	return items, nil
}
