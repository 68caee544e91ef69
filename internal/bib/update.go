package bib

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/bibdex/internal/atomicfile"
	"github.com/pdiddy/bibdex/internal/fetch"
	"github.com/pdiddy/bibdex/internal/index"
	"github.com/pdiddy/bibdex/internal/page"
	"github.com/pdiddy/bibdex/internal/reconcile"
	"github.com/pdiddy/bibdex/pkg/types"
)

// RunResult tallies an update run.
type RunResult struct {
	Updated int
	Failed  int
}

// Total returns the number of rows processed.
func (r RunResult) Total() int {
	return r.Updated + r.Failed
}

// HasFailures reports whether any row failed.
func (r RunResult) HasFailures() bool {
	return r.Failed > 0
}

// AllFailed reports whether no row succeeded. Only then does the run
// count as an error; partial failures are warnings.
func (r RunResult) AllFailed() bool {
	return r.Updated == 0 && r.Failed > 0
}

// UpdateAll re-fetches metadata for every row of the selected tables,
// overwriting the managed cells and each row's page while leaving
// user-added columns and prose alone. Rows are processed sequentially
// with the configured delay between lookups. A failing row is warned
// about on errw and skipped; the index is written once at the end and
// the summary goes to out.
func UpdateAll(ctx context.Context, sources []fetch.Source, set types.Settings, tableName string, out, errw io.Writer) (RunResult, error) {
	doc, err := index.Load(set.IndexPath, set)
	if err != nil {
		return RunResult{}, err
	}
	tables, err := doc.SelectTables(tableName)
	if err != nil {
		return RunResult{}, err
	}

	var result RunResult
	first := true
	for _, t := range tables {
		if err := t.RequireColumns(set.Columns); err != nil {
			if tableName != "" {
				return result, err
			}
			// Auxiliary tables without the managed columns are not
			// update targets.
			continue
		}
		for _, row := range t.Rows {
			if !first && set.Fetch.UpdateDelay > 0 {
				time.Sleep(set.Fetch.UpdateDelay)
			}
			first = false

			if err := updateRow(ctx, sources, set, t, row, errw); err != nil {
				fmt.Fprintf(errw, "warning: %v\n", err)
				result.Failed++
				continue
			}
			result.Updated++
		}
	}

	if err := atomicfile.WriteFile(set.IndexPath, doc.Render(), 0o644); err != nil {
		return result, fmt.Errorf("writing index: %w", err)
	}

	fmt.Fprintf(out, "\nUpdate summary: %d updated, %d failed (total: %d)\n",
		result.Updated, result.Failed, result.Total())
	return result, nil
}

// updateRow re-resolves one row. The search query is rebuilt from the
// stored title and author surnames. The page is rewritten before the
// in-memory cells change, so a failed row is left fully untouched.
func updateRow(ctx context.Context, sources []fetch.Source, set types.Settings, t *index.Table, row *index.Row, w io.Writer) error {
	stored := t.RowReference(row)
	if stored.Title == "" {
		return fmt.Errorf("table %q: row has no title", t.Heading)
	}

	query := stored.Title
	if surnames := strings.Join(stored.AuthorSurnames(), " "); surnames != "" {
		query += " " + surnames
	}

	out, err := fetch.Search(ctx, query, sources, set.Fetch, w)
	if err != nil {
		return fmt.Errorf("%q: %w", stored.Title, err)
	}
	ref, err := reconcile.Reconcile(query, out.Candidates, set.Fetch.MinSimilarity)
	if err != nil {
		return fmt.Errorf("no metadata found for %q, skipping: %w", stored.Title, err)
	}

	if err := updateRowPage(set, t, row, ref); err != nil {
		return err
	}
	t.UpdateManagedCells(row, ref)
	return nil
}

// updateRowPage rewrites the page behind the row's reference link. A
// missing page file is recreated; a row without a link keeps only its
// table cells.
func updateRowPage(set types.Settings, t *index.Table, row *index.Row, ref types.Reference) error {
	key, file := index.ParseReferenceCell(t.Cell(row, types.ColReference))
	if key == "" {
		return nil
	}
	if file == "" {
		file = pagePath(set, key)
	}
	file = filepath.FromSlash(file)

	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return atomicfile.WriteFile(file, page.Render(ref, key), 0o644)
	}
	if err != nil {
		return fmt.Errorf("reading page for %s: %w", key, err)
	}
	return atomicfile.WriteFile(file, page.Update(data, ref, key), 0o644)
}
