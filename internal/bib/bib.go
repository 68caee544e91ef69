// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bib ties the pieces together: it runs the fetch/reconcile
// pipeline against the index file and the reference pages, and builds
// the derived BibTeX and CSL outputs.
package bib

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/bibdex/internal/atomicfile"
	"github.com/pdiddy/bibdex/internal/cite"
	"github.com/pdiddy/bibdex/internal/index"
	"github.com/pdiddy/bibdex/internal/page"
	"github.com/pdiddy/bibdex/pkg/types"
)

// pagePath is where a reference page lives on disk.
func pagePath(set types.Settings, key string) string {
	return filepath.Join(set.ReferencesDir, key+".md")
}

// pageLink is the same location as written into markdown links, always
// with forward slashes.
func pageLink(set types.Settings, key string) string {
	return path.Join(filepath.ToSlash(set.ReferencesDir), key+".md")
}

// resolveNewKey derives a free citation key for ref. The taken set is
// the index rows in table and row order plus the existing page files, so
// collision suffixes come out the same for a given repository state.
func resolveNewKey(doc *index.Document, set types.Settings, ref types.Reference) (string, error) {
	taken := make(map[string]bool)
	for _, k := range doc.ReferenceKeys() {
		taken[k] = true
	}
	if entries, err := os.ReadDir(set.ReferencesDir); err == nil {
		for _, e := range entries {
			if name := e.Name(); strings.HasSuffix(name, ".md") {
				taken[strings.TrimSuffix(name, ".md")] = true
			}
		}
	}
	return cite.ResolveKey(cite.DeriveKey(ref), taken)
}

// loadRowReference reads the reference page behind a row's link and
// parses its metadata.
func loadRowReference(set types.Settings, t *index.Table, row *index.Row) (string, types.Reference, error) {
	key, file := index.ParseReferenceCell(t.Cell(row, types.ColReference))
	if key == "" {
		return "", types.Reference{}, fmt.Errorf("table %q: row has no reference link", t.Heading)
	}
	if file == "" {
		file = pagePath(set, key)
	}
	data, err := os.ReadFile(filepath.FromSlash(file))
	if err != nil {
		return key, types.Reference{}, fmt.Errorf("reading page for %s: %w", key, err)
	}
	ref, err := page.Parse(data)
	if err != nil {
		return key, types.Reference{}, fmt.Errorf("page for %s: %w", key, err)
	}
	return key, ref, nil
}

// Format rewrites the index in place, re-flowing table padding. Cell
// contents are untouched, so a second run is a no-op.
func Format(set types.Settings) error {
	doc, err := index.Load(set.IndexPath, set)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(set.IndexPath, doc.Render(), 0o644)
}
