// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package page renders and rewrites the per-reference markdown files.
// A page carries the full metadata for one reference plus a BibTeX
// block ready for copy-paste; users are free to add their own notes
// anywhere in the file.
package page

import (
	"fmt"
	"strings"

	"github.com/pdiddy/bibdex/internal/cite"
	"github.com/pdiddy/bibdex/internal/index"
	"github.com/pdiddy/bibdex/pkg/types"
)

// field is one managed metadata line, identified by its bold prefix.
type field struct {
	prefix string
	value  func(types.Reference) string
	set    func(*types.Reference, string)
}

var fields = []field{
	{
		prefix: "**Authors**:",
		value:  func(r types.Reference) string { return strings.Join(r.Authors, ", ") },
		set: func(r *types.Reference, v string) {
			for _, a := range strings.Split(v, ",") {
				if a = strings.TrimSpace(a); a != "" {
					r.Authors = append(r.Authors, a)
				}
			}
		},
	},
	{
		prefix: "**Venue**:",
		value:  func(r types.Reference) string { return r.Venue },
		set:    func(r *types.Reference, v string) { r.Venue = v },
	},
	{
		prefix: "**Year**:",
		value:  func(r types.Reference) string { return index.YearCell(r.Year) },
		set:    func(r *types.Reference, v string) { r.Year = index.ParseYearCell(v) },
	},
	{
		prefix: "**Citations**:",
		value:  func(r types.Reference) string { return index.CitationCell(r.CitationCount, r.Title) },
		set:    func(r *types.Reference, v string) { r.CitationCount = index.ParseCitationCell(v) },
	},
	{
		prefix: "**URL**:",
		value:  func(r types.Reference) string { return index.URLCell(r.URL) },
		set:    func(r *types.Reference, v string) { r.URL = index.ParseURLCell(v) },
	},
	{
		prefix: "**Summary**:",
		value:  func(r types.Reference) string { return r.Summary },
		set:    func(r *types.Reference, v string) { r.Summary = v },
	},
}

// Render produces a complete page for a reference under its citation key.
func Render(ref types.Reference, key string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ref.Title)
	for _, f := range fields {
		b.WriteString(fieldLine(f, ref))
		b.WriteByte('\n')
	}
	b.WriteString("\n```bibtex\n")
	b.WriteString(cite.GenerateBibTeX(key, ref))
	b.WriteString("```\n")
	return []byte(b.String())
}

// Parse reads the managed metadata back out of a page. The title heading
// is required; every other field is optional. The BibTeX block is
// ignored, entries are regenerated from the parsed metadata.
func Parse(data []byte) (types.Reference, error) {
	ref := types.Reference{CitationCount: -1}
	seenTitle := false
	seen := make([]bool, len(fields))

	inFence := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimRight(line, " \t")
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if !seenTitle && strings.HasPrefix(trimmed, "# ") {
			ref.Title = strings.TrimSpace(trimmed[2:])
			seenTitle = true
			continue
		}
		for i, f := range fields {
			if !seen[i] && strings.HasPrefix(trimmed, f.prefix) {
				f.set(&ref, strings.TrimSpace(trimmed[len(f.prefix):]))
				seen[i] = true
				break
			}
		}
	}

	if !seenTitle {
		return types.Reference{}, fmt.Errorf("page has no title heading")
	}
	return ref, nil
}

// Update rewrites the managed parts of an existing page: the first title
// heading, the first occurrence of each managed line, and the first
// BibTeX block. Lines the user added stay untouched, and managed lines
// the user removed are not re-inserted.
func Update(data []byte, ref types.Reference, key string) []byte {
	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))

	seenTitle := false
	seen := make([]bool, len(fields))
	replacedFence := false

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimRight(lines[i], " \t")

		if strings.HasPrefix(trimmed, "```") {
			end := closingFence(lines, i+1)
			if end < 0 {
				out = append(out, lines[i:]...)
				break
			}
			if !replacedFence && strings.HasPrefix(trimmed, "```bibtex") {
				out = append(out, lines[i])
				entry := strings.TrimSuffix(cite.GenerateBibTeX(key, ref), "\n")
				out = append(out, strings.Split(entry, "\n")...)
				out = append(out, lines[end])
				replacedFence = true
			} else {
				out = append(out, lines[i:end+1]...)
			}
			i = end
			continue
		}

		if !seenTitle && strings.HasPrefix(trimmed, "# ") {
			out = append(out, "# "+ref.Title)
			seenTitle = true
			continue
		}

		replaced := false
		for j, f := range fields {
			if !seen[j] && strings.HasPrefix(trimmed, f.prefix) {
				out = append(out, fieldLine(f, ref))
				seen[j] = true
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, lines[i])
		}
	}

	return []byte(strings.Join(out, "\n"))
}

func fieldLine(f field, ref types.Reference) string {
	if v := f.value(ref); v != "" {
		return f.prefix + " " + v
	}
	return f.prefix
}

func closingFence(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == "```" {
			return i
		}
	}
	return -1
}
