// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bib

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/bibdex/internal/atomicfile"
	"github.com/pdiddy/bibdex/internal/fetch"
	"github.com/pdiddy/bibdex/internal/index"
	"github.com/pdiddy/bibdex/internal/page"
	"github.com/pdiddy/bibdex/internal/reconcile"
	"github.com/pdiddy/bibdex/pkg/types"
)

// Add searches the metadata sources for query, reconciles the candidates
// into one reference, writes its page, and appends a row to the chosen
// index table. tableName empty means the first table. The table is
// validated before any network traffic so a bad target fails fast.
// Source warnings go to errw, the confirmation line to out.
func Add(ctx context.Context, sources []fetch.Source, set types.Settings, query, tableName string, out, errw io.Writer) error {
	doc, err := index.Load(set.IndexPath, set)
	if err != nil {
		return err
	}
	table, err := doc.FindTable(tableName)
	if err != nil {
		return err
	}
	if err := table.RequireColumns(set.Columns); err != nil {
		return err
	}

	found, err := fetch.Search(ctx, query, sources, set.Fetch, errw)
	if err != nil {
		return err
	}
	ref, err := reconcile.Reconcile(query, found.Candidates, set.Fetch.MinSimilarity)
	if err != nil {
		return fmt.Errorf("%q: %w", query, err)
	}

	key, err := resolveNewKey(doc, set, ref)
	if err != nil {
		return err
	}

	pageFile := pagePath(set, key)
	if err := atomicfile.WriteFile(pageFile, page.Render(ref, key), 0o644); err != nil {
		return fmt.Errorf("writing page: %w", err)
	}

	table.AppendRow(table.CellsFor(ref, index.ReferenceCell(key, pageLink(set, key))))
	if err := atomicfile.WriteFile(set.IndexPath, doc.Render(), 0o644); err != nil {
		// Roll the page back so a retry does not land on a suffixed key.
		os.Remove(pageFile)
		return fmt.Errorf("writing index: %w", err)
	}

	fmt.Fprintf(out, "Added %q as %s.\n", ref.Title, key)
	return nil
}
