// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index reads and writes the markdown index file. The file is a
// sequence of raw lines in which pipe tables are parsed into typed
// blocks; everything outside a table passes through rewrites untouched.
package index

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/bibdex/pkg/types"
)

// ErrMalformedTable reports a pipe table the manager refuses to touch:
// a missing separator row, mismatched column counts, or a selected
// table lacking the configured columns.
var ErrMalformedTable = errors.New("malformed table")

// Document is a parsed index file.
type Document struct {
	lines  []string
	Tables []*Table
}

// Table is one pipe table, keyed by the text of the nearest preceding
// markdown heading.
type Table struct {
	Heading string
	Columns []Column
	Rows    []*Row

	// Line range [start, end) the table occupied in the source.
	start, end int
}

// Column pairs the header text as written with the managed column key it
// matched, empty for user-added columns.
type Column struct {
	Header string
	Key    string
}

// Row holds one data row's cell values, unescaped and trimmed, in column
// order.
type Row struct {
	Cells []string
}

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)

// Load reads and parses the index file.
func Load(path string, set types.Settings) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	doc, err := Parse(data, set)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses index file contents. Tables are recognized by a pipe row
// directly followed by a separator row; their columns are matched against
// the configured headers case-insensitively.
func Parse(data []byte, set types.Settings) (*Document, error) {
	lines := strings.Split(string(data), "\n")
	doc := &Document{lines: lines}
	keyFor := headerKeys(set)

	heading := ""
	for i := 0; i < len(lines); i++ {
		if m := headingPattern.FindStringSubmatch(lines[i]); m != nil {
			heading = m[2]
			continue
		}
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
			continue
		}
		if i+1 >= len(lines) || !isSeparatorRow(lines[i+1]) {
			return nil, fmt.Errorf("%w: line %d: pipe row without a separator row", ErrMalformedTable, i+1)
		}

		headerCells := splitCells(lines[i])
		sepCells := splitCells(lines[i+1])
		if len(sepCells) != len(headerCells) {
			return nil, fmt.Errorf("%w: line %d: header has %d columns, separator has %d",
				ErrMalformedTable, i+1, len(headerCells), len(sepCells))
		}

		t := &Table{Heading: heading, start: i}
		for _, h := range headerCells {
			t.Columns = append(t.Columns, Column{Header: h, Key: keyFor[strings.ToLower(h)]})
		}

		j := i + 2
		for ; j < len(lines); j++ {
			if !strings.HasPrefix(strings.TrimSpace(lines[j]), "|") {
				break
			}
			cells := splitCells(lines[j])
			if len(cells) > len(t.Columns) {
				return nil, fmt.Errorf("%w: line %d: row has %d cells, table has %d columns",
					ErrMalformedTable, j+1, len(cells), len(t.Columns))
			}
			for len(cells) < len(t.Columns) {
				cells = append(cells, "")
			}
			t.Rows = append(t.Rows, &Row{Cells: cells})
		}
		t.end = j
		doc.Tables = append(doc.Tables, t)
		i = j - 1
	}

	return doc, nil
}

// Render reassembles the file: prose lines verbatim, tables re-rendered
// with refreshed column widths.
func (d *Document) Render() []byte {
	var out []string
	next := 0
	for i := 0; i < len(d.lines); i++ {
		if next < len(d.Tables) && i == d.Tables[next].start {
			out = append(out, d.Tables[next].render()...)
			i = d.Tables[next].end - 1
			next++
			continue
		}
		out = append(out, d.lines[i])
	}
	return []byte(strings.Join(out, "\n"))
}

// FindTable returns the table under the given heading, matched
// case-insensitively. An empty name selects the first table.
func (d *Document) FindTable(name string) (*Table, error) {
	if len(d.Tables) == 0 {
		return nil, fmt.Errorf("index has no tables")
	}
	if name == "" {
		return d.Tables[0], nil
	}
	var headings []string
	for _, t := range d.Tables {
		if strings.EqualFold(t.Heading, name) {
			return t, nil
		}
		if t.Heading != "" {
			headings = append(headings, t.Heading)
		}
	}
	return nil, fmt.Errorf("no table %q in index (have: %s)", name, strings.Join(headings, ", "))
}

// SelectTables returns the single named table, or every table when name
// is empty.
func (d *Document) SelectTables(name string) ([]*Table, error) {
	if name == "" {
		if len(d.Tables) == 0 {
			return nil, fmt.Errorf("index has no tables")
		}
		return d.Tables, nil
	}
	t, err := d.FindTable(name)
	if err != nil {
		return nil, err
	}
	return []*Table{t}, nil
}

// ReferenceKeys returns every citation key present in the document, in
// table and row order.
func (d *Document) ReferenceKeys() []string {
	var keys []string
	for _, t := range d.Tables {
		if !t.HasColumn(types.ColReference) {
			continue
		}
		for _, r := range t.Rows {
			if key, _ := ParseReferenceCell(t.Cell(r, types.ColReference)); key != "" {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// HasColumn reports whether the table carries a managed column.
func (t *Table) HasColumn(key string) bool {
	for _, c := range t.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

// RequireColumns fails with ErrMalformedTable when any of the given
// managed columns is absent.
func (t *Table) RequireColumns(keys []string) error {
	var missing []string
	for _, k := range keys {
		if !t.HasColumn(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: table %q is missing columns: %s",
			ErrMalformedTable, t.Heading, strings.Join(missing, ", "))
	}
	return nil
}

// Cell returns the row's value under a managed column key, or "" when
// the table has no such column.
func (t *Table) Cell(r *Row, key string) string {
	for j, c := range t.Columns {
		if c.Key == key {
			return r.Cells[j]
		}
	}
	return ""
}

// SetCell overwrites the row's value under a managed column key.
func (t *Table) SetCell(r *Row, key, value string) {
	for j, c := range t.Columns {
		if c.Key == key {
			r.Cells[j] = value
			return
		}
	}
}

// AppendRow adds a data row. cells must be in column order, one per
// column.
func (t *Table) AppendRow(cells []string) *Row {
	r := &Row{Cells: cells}
	t.Rows = append(t.Rows, r)
	return r
}

// CellsFor builds a full row for the reference in this table's column
// order. refCell fills the reference column; extra columns get empty
// cells.
func (t *Table) CellsFor(ref types.Reference, refCell string) []string {
	cells := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		switch c.Key {
		case "":
		case types.ColReference:
			cells[j] = refCell
		default:
			cells[j] = managedCell(c.Key, ref)
		}
	}
	return cells
}

// UpdateManagedCells overwrites the row's metadata cells from the
// reference. The reference link and user-added columns are untouched.
func (t *Table) UpdateManagedCells(r *Row, ref types.Reference) {
	for j, c := range t.Columns {
		switch c.Key {
		case "", types.ColReference:
		default:
			r.Cells[j] = managedCell(c.Key, ref)
		}
	}
}

// RowReference rebuilds the reference fields stored in a row's managed
// cells. Fields without a column come back zero-valued; a missing
// citation count is -1.
func (t *Table) RowReference(r *Row) types.Reference {
	ref := types.Reference{CitationCount: -1}
	for j, c := range t.Columns {
		cell := r.Cells[j]
		switch c.Key {
		case types.ColTitle:
			ref.Title = StripLink(cell)
		case types.ColAuthors:
			for _, a := range strings.Split(cell, ",") {
				if a = strings.TrimSpace(a); a != "" {
					ref.Authors = append(ref.Authors, a)
				}
			}
		case types.ColVenue:
			ref.Venue = cell
		case types.ColYear:
			ref.Year = ParseYearCell(cell)
		case types.ColCitations:
			ref.CitationCount = ParseCitationCell(cell)
		case types.ColURL:
			ref.URL = ParseURLCell(cell)
		}
	}
	return ref
}

func managedCell(key string, ref types.Reference) string {
	switch key {
	case types.ColTitle:
		return ref.Title
	case types.ColAuthors:
		return ref.ConciseAuthors()
	case types.ColVenue:
		return ref.Venue
	case types.ColYear:
		return YearCell(ref.Year)
	case types.ColCitations:
		return CitationCell(ref.CitationCount, ref.Title)
	case types.ColURL:
		return URLCell(ref.URL)
	}
	return ""
}

// headerKeys maps lowercased display headers (and bare column keys) back
// to managed column keys.
func headerKeys(set types.Settings) map[string]string {
	m := make(map[string]string, 2*len(set.Columns))
	for _, col := range set.Columns {
		m[strings.ToLower(set.HeaderFor(col))] = col
		m[strings.ToLower(col)] = col
	}
	return m
}

// isSeparatorRow matches the dashes row under a table header, allowing
// alignment colons.
func isSeparatorRow(line string) bool {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "|") || !strings.Contains(s, "-") {
		return false
	}
	for _, r := range s {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// splitCells splits a pipe-table line into trimmed cell values,
// honoring the \| escape.
func splitCells(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")

	var cells []string
	var cur strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == '|':
			cur.WriteRune('|')
			i++
		case runes[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(runes[i])
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}

func escapeCell(cell string) string {
	return strings.ReplaceAll(cell, "|", `\|`)
}

func (t *Table) render() []string {
	widths := make([]int, len(t.Columns))
	for j, c := range t.Columns {
		widths[j] = utf8.RuneCountInString(escapeCell(c.Header))
	}
	for _, r := range t.Rows {
		for j, cell := range r.Cells {
			if n := utf8.RuneCountInString(escapeCell(cell)); n > widths[j] {
				widths[j] = n
			}
		}
	}
	for j := range widths {
		if widths[j] < 1 {
			widths[j] = 1
		}
	}

	lines := make([]string, 0, len(t.Rows)+2)
	cells := make([]string, len(t.Columns))

	for j, c := range t.Columns {
		cells[j] = pad(escapeCell(c.Header), widths[j])
	}
	lines = append(lines, "| "+strings.Join(cells, " | ")+" |")

	for j := range t.Columns {
		cells[j] = strings.Repeat("-", widths[j])
	}
	lines = append(lines, "| "+strings.Join(cells, " | ")+" |")

	for _, r := range t.Rows {
		for j, cell := range r.Cells {
			cells[j] = pad(escapeCell(cell), widths[j])
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}
	return lines
}

func pad(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// --- cell codecs ---

var linkPattern = regexp.MustCompile(`^\[([^\]]*)\]\(([^)]*)\)$`)

// LinkParts breaks a "[text](target)" cell into its parts.
func LinkParts(cell string) (text, target string, ok bool) {
	m := linkPattern.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// StripLink returns a link cell's text, or the cell itself when it is
// not a link.
func StripLink(cell string) string {
	if text, _, ok := LinkParts(cell); ok {
		return text
	}
	return cell
}

// CitationCell renders a citation count as a link to the matching
// Scholar search. Unknown counts (negative) render empty.
func CitationCell(count int, title string) string {
	if count < 0 {
		return ""
	}
	return fmt.Sprintf("[%d](https://scholar.google.com/scholar?q=%s)", count, url.QueryEscape(title))
}

// ParseCitationCell reads the count back out of a citation cell. Empty
// or non-numeric cells mean unknown.
func ParseCitationCell(cell string) int {
	s := StripLink(cell)
	if s == "" {
		return -1
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return -1
}

// URLCell renders a URL as a fixed-text link so wide addresses do not
// blow out the column. Empty URLs render empty.
func URLCell(u string) string {
	if u == "" {
		return ""
	}
	return fmt.Sprintf("[link](%s)", u)
}

// ParseURLCell returns the link target, or the cell itself for bare
// URLs.
func ParseURLCell(cell string) string {
	if _, target, ok := LinkParts(cell); ok {
		return target
	}
	return cell
}

// ReferenceCell links a citation key to its page file.
func ReferenceCell(key, path string) string {
	return fmt.Sprintf("[%s](%s)", key, path)
}

// ParseReferenceCell returns the citation key and page path from a
// reference cell. A bare key without a link yields an empty path.
func ParseReferenceCell(cell string) (key, path string) {
	if text, target, ok := LinkParts(cell); ok {
		return text, target
	}
	return strings.TrimSpace(cell), ""
}

// YearCell renders a year, zero meaning unknown.
func YearCell(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

// ParseYearCell reads a year back, empty or malformed cells yielding
// zero.
func ParseYearCell(cell string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil {
		return 0
	}
	return n
}
