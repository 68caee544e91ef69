// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pdiddy/bibdex/pkg/types"
)

const sampleIndex = `# Bibliography

Prose above the tables must survive every rewrite.

## References

| Title | Authors | Venue | Year | Citations | URL | Reference |
| --- | --- | --- | --- | --- | --- | --- |
| Attention is all you need | A Vaswani, N Shazeer | NeurIPS | 2017 | [90000](https://scholar.google.com/scholar?q=Attention+is+all+you+need) | [link](https://arxiv.org/abs/1706.03762) | [vaswani2017attention](references/vaswani2017attention.md) |

## Reading List

| Title | Notes | Reference |
| --- | --- | --- |
| BERT | must read | [devlin2018bert](references/devlin2018bert.md) |
`

func testSettings() types.Settings {
	return types.DefaultSettings()
}

// --- Parsing ---

func TestParseTables(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Tables) != 2 {
		t.Fatalf("len(Tables) = %d, want 2", len(doc.Tables))
	}

	refs := doc.Tables[0]
	if refs.Heading != "References" {
		t.Errorf("Heading = %q, want References", refs.Heading)
	}
	if len(refs.Columns) != 7 {
		t.Fatalf("len(Columns) = %d, want 7", len(refs.Columns))
	}
	if refs.Columns[0].Key != types.ColTitle {
		t.Errorf("Columns[0].Key = %q, want %q", refs.Columns[0].Key, types.ColTitle)
	}
	if refs.Columns[1].Key != types.ColAuthors {
		t.Errorf("Columns[1].Key = %q, want %q", refs.Columns[1].Key, types.ColAuthors)
	}
	if len(refs.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1", len(refs.Rows))
	}
	if got := refs.Cell(refs.Rows[0], types.ColTitle); got != "Attention is all you need" {
		t.Errorf("title cell = %q", got)
	}

	reading := doc.Tables[1]
	if reading.Heading != "Reading List" {
		t.Errorf("Heading = %q, want Reading List", reading.Heading)
	}
	// "Notes" is not a configured header: preserved as an extra column.
	if reading.Columns[1].Key != "" {
		t.Errorf("Notes column Key = %q, want empty", reading.Columns[1].Key)
	}
	if reading.Columns[1].Header != "Notes" {
		t.Errorf("Notes column Header = %q", reading.Columns[1].Header)
	}
}

func TestParseHeaderMatchingIsCaseInsensitive(t *testing.T) {
	data := "| TITLE | reference |\n| --- | --- |\n| X | [k](p.md) |\n"
	doc, err := Parse([]byte(data), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tab := doc.Tables[0]
	if tab.Columns[0].Key != types.ColTitle {
		t.Errorf("Columns[0].Key = %q, want %q", tab.Columns[0].Key, types.ColTitle)
	}
	if tab.Columns[1].Key != types.ColReference {
		t.Errorf("Columns[1].Key = %q, want %q", tab.Columns[1].Key, types.ColReference)
	}
}

func TestParseShortRowsPadded(t *testing.T) {
	data := "| Title | Year |\n| --- | --- |\n| Only title |\n"
	doc, err := Parse([]byte(data), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	row := doc.Tables[0].Rows[0]
	if !reflect.DeepEqual(row.Cells, []string{"Only title", ""}) {
		t.Errorf("Cells = %v", row.Cells)
	}
}

func TestParseMalformedTables(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"pipe row without separator", "| Title |\nnot a separator\n"},
		{"pipe row at EOF", "some text\n| Title |"},
		{"separator column mismatch", "| Title | Year |\n| --- |\n"},
		{"row with too many cells", "| Title |\n| --- |\n| a | b |\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), testSettings())
			if !errors.Is(err, ErrMalformedTable) {
				t.Errorf("err = %v, want ErrMalformedTable", err)
			}
		})
	}
}

func TestParseEscapedPipes(t *testing.T) {
	data := "| Title |\n| --- |\n| Pipes \\| in \\| titles |\n"
	doc, err := Parse([]byte(data), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := doc.Tables[0].Rows[0].Cells[0]
	if got != "Pipes | in | titles" {
		t.Errorf("cell = %q", got)
	}
}

// --- Rendering ---

func TestRenderRoundTripIsIdempotent(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	once := doc.Render()

	doc2, err := Parse(once, testSettings())
	if err != nil {
		t.Fatalf("Parse(rendered): %v", err)
	}
	twice := doc2.Render()

	if !bytes.Equal(once, twice) {
		t.Errorf("second render differs from first:\n--- once ---\n%s\n--- twice ---\n%s", once, twice)
	}
}

func TestRenderPreservesProse(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := string(doc.Render())
	for _, want := range []string{
		"# Bibliography",
		"Prose above the tables must survive every rewrite.",
		"## References",
		"## Reading List",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
}

func TestRenderNormalizesRaggedWidths(t *testing.T) {
	ragged := "| Title |  Year |\n| --- | --- |\n|An unpadded title|2017|\n| X    | 1999     |\n"
	doc, err := Parse([]byte(ragged), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := string(doc.Render())

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("len(lines) = %d, want 4:\n%s", len(lines), out)
	}
	width := utf8.RuneCountInString(lines[0])
	for i, line := range lines {
		if utf8.RuneCountInString(line) != width {
			t.Errorf("line %d not aligned: %q", i, line)
		}
	}
	if lines[2] != "| An unpadded title | 2017 |" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestRenderWidthsCountRunes(t *testing.T) {
	data := "| Title | Year |\n| --- | --- |\n| Caffè | 2020 |\n| Cafes | 2021 |\n"
	doc, err := Parse([]byte(data), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(doc.Render()), "\n"), "\n")
	// Both titles are five runes wide, so all lines align on rune count.
	width := utf8.RuneCountInString(lines[0])
	for i, line := range lines {
		if utf8.RuneCountInString(line) != width {
			t.Errorf("line %d not aligned on rune count: %q", i, line)
		}
	}
}

func TestRenderEscapesPipes(t *testing.T) {
	doc, err := Parse([]byte("| Title |\n| --- |\n| a |\n"), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tab := doc.Tables[0]
	tab.SetCell(tab.Rows[0], types.ColTitle, "x | y")
	out := string(doc.Render())
	if !strings.Contains(out, `x \| y`) {
		t.Errorf("rendered output should escape the pipe:\n%s", out)
	}

	doc2, err := Parse(doc.Render(), testSettings())
	if err != nil {
		t.Fatalf("Parse(rendered): %v", err)
	}
	if got := doc2.Tables[0].Cell(doc2.Tables[0].Rows[0], types.ColTitle); got != "x | y" {
		t.Errorf("round-tripped cell = %q, want %q", got, "x | y")
	}
}

func TestAppendRowAndRender(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tab := doc.Tables[0]

	ref := types.Reference{
		Title:         "Deep residual learning for image recognition",
		Authors:       []string{"Kaiming He", "Xiangyu Zhang"},
		Venue:         "CVPR",
		Year:          2016,
		CitationCount: 120000,
		URL:           "https://arxiv.org/abs/1512.03385",
	}
	refCell := ReferenceCell("he2016deep", "references/he2016deep.md")
	tab.AppendRow(tab.CellsFor(ref, refCell))

	out := string(doc.Render())
	if !strings.Contains(out, "Deep residual learning for image recognition") {
		t.Error("appended row missing from output")
	}
	if !strings.Contains(out, "K He, X Zhang") {
		t.Errorf("authors cell should be concise:\n%s", out)
	}
	if !strings.Contains(out, "[he2016deep](references/he2016deep.md)") {
		t.Error("reference cell missing from output")
	}

	doc2, err := Parse([]byte(out), testSettings())
	if err != nil {
		t.Fatalf("Parse(rendered): %v", err)
	}
	if len(doc2.Tables[0].Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2", len(doc2.Tables[0].Rows))
	}
	// The other table is untouched.
	if len(doc2.Tables[1].Rows) != 1 {
		t.Errorf("reading list rows = %d, want 1", len(doc2.Tables[1].Rows))
	}
}

// --- Table selection ---

func TestFindTable(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tab, err := doc.FindTable("reading list")
	if err != nil {
		t.Fatalf("FindTable: %v", err)
	}
	if tab.Heading != "Reading List" {
		t.Errorf("Heading = %q", tab.Heading)
	}

	first, err := doc.FindTable("")
	if err != nil {
		t.Fatalf("FindTable(\"\"): %v", err)
	}
	if first.Heading != "References" {
		t.Errorf("first table = %q, want References", first.Heading)
	}

	if _, err := doc.FindTable("No Such Table"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestSelectTables(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	all, err := doc.SelectTables("")
	if err != nil {
		t.Fatalf("SelectTables: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	one, err := doc.SelectTables("References")
	if err != nil {
		t.Fatalf("SelectTables: %v", err)
	}
	if len(one) != 1 || one[0].Heading != "References" {
		t.Errorf("SelectTables(References) = %v", one)
	}
}

func TestRequireColumns(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	set := testSettings()

	if err := doc.Tables[0].RequireColumns(set.Columns); err != nil {
		t.Errorf("references table should satisfy the configured columns: %v", err)
	}
	err = doc.Tables[1].RequireColumns(set.Columns)
	if !errors.Is(err, ErrMalformedTable) {
		t.Errorf("err = %v, want ErrMalformedTable for the reading list", err)
	}
}

// --- Row access ---

func TestReferenceKeys(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := doc.ReferenceKeys()
	want := []string{"vaswani2017attention", "devlin2018bert"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReferenceKeys() = %v, want %v", got, want)
	}
}

func TestRowReference(t *testing.T) {
	doc, err := Parse([]byte(sampleIndex), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tab := doc.Tables[0]
	ref := tab.RowReference(tab.Rows[0])

	if ref.Title != "Attention is all you need" {
		t.Errorf("Title = %q", ref.Title)
	}
	if !reflect.DeepEqual(ref.Authors, []string{"A Vaswani", "N Shazeer"}) {
		t.Errorf("Authors = %v", ref.Authors)
	}
	if ref.Venue != "NeurIPS" || ref.Year != 2017 {
		t.Errorf("Venue/Year = %q/%d", ref.Venue, ref.Year)
	}
	if ref.CitationCount != 90000 {
		t.Errorf("CitationCount = %d", ref.CitationCount)
	}
	if ref.URL != "https://arxiv.org/abs/1706.03762" {
		t.Errorf("URL = %q", ref.URL)
	}
}

func TestUpdateManagedCellsPreservesExtras(t *testing.T) {
	data := "| Title | Notes | Year | Reference |\n| --- | --- | --- | --- |\n| Old title | my notes | 1999 | [k](p.md) |\n"
	doc, err := Parse([]byte(data), testSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tab := doc.Tables[0]
	row := tab.Rows[0]

	tab.UpdateManagedCells(row, types.Reference{Title: "New title", Year: 2020, CitationCount: -1})

	if got := tab.Cell(row, types.ColTitle); got != "New title" {
		t.Errorf("title = %q", got)
	}
	if got := tab.Cell(row, types.ColYear); got != "2020" {
		t.Errorf("year = %q", got)
	}
	if row.Cells[1] != "my notes" {
		t.Errorf("extra cell = %q, must be preserved", row.Cells[1])
	}
	if row.Cells[3] != "[k](p.md)" {
		t.Errorf("reference cell = %q, must be preserved", row.Cells[3])
	}
}

// --- Loading ---

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.md")
	if err := os.WriteFile(path, []byte(sampleIndex), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path, testSettings())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Tables) != 2 {
		t.Errorf("len(Tables) = %d, want 2", len(doc.Tables))
	}

	if _, err := Load(filepath.Join(dir, "missing.md"), testSettings()); err == nil {
		t.Error("expected error for missing file")
	}
}

// --- Cell codecs ---

func TestCitationCell(t *testing.T) {
	got := CitationCell(90000, "Attention is all you need")
	want := "[90000](https://scholar.google.com/scholar?q=Attention+is+all+you+need)"
	if got != want {
		t.Errorf("CitationCell() = %q, want %q", got, want)
	}
	if got := CitationCell(-1, "anything"); got != "" {
		t.Errorf("CitationCell(-1) = %q, want empty", got)
	}
	if got := CitationCell(0, "t"); got == "" {
		t.Error("CitationCell(0) should render: zero is a real count")
	}
}

func TestParseCitationCell(t *testing.T) {
	tests := []struct {
		cell string
		want int
	}{
		{"[90000](https://scholar.google.com/scholar?q=x)", 90000},
		{"123", 123},
		{"0", 0},
		{"", -1},
		{"n/a", -1},
	}
	for _, tt := range tests {
		if got := ParseCitationCell(tt.cell); got != tt.want {
			t.Errorf("ParseCitationCell(%q) = %d, want %d", tt.cell, got, tt.want)
		}
	}
}

func TestURLCellRoundTrip(t *testing.T) {
	if got := URLCell("https://example.org/x"); got != "[link](https://example.org/x)" {
		t.Errorf("URLCell() = %q", got)
	}
	if got := URLCell(""); got != "" {
		t.Errorf("URLCell(\"\") = %q", got)
	}
	if got := ParseURLCell("[link](https://example.org/x)"); got != "https://example.org/x" {
		t.Errorf("ParseURLCell() = %q", got)
	}
	if got := ParseURLCell("https://bare.example.org"); got != "https://bare.example.org" {
		t.Errorf("ParseURLCell(bare) = %q", got)
	}
}

func TestReferenceCellRoundTrip(t *testing.T) {
	cell := ReferenceCell("vaswani2017attention", "references/vaswani2017attention.md")
	key, path := ParseReferenceCell(cell)
	if key != "vaswani2017attention" || path != "references/vaswani2017attention.md" {
		t.Errorf("ParseReferenceCell() = %q, %q", key, path)
	}

	key, path = ParseReferenceCell("barekey")
	if key != "barekey" || path != "" {
		t.Errorf("ParseReferenceCell(bare) = %q, %q", key, path)
	}
}

func TestStripLink(t *testing.T) {
	if got := StripLink("[text](target)"); got != "text" {
		t.Errorf("StripLink() = %q", got)
	}
	if got := StripLink("plain"); got != "plain" {
		t.Errorf("StripLink(plain) = %q", got)
	}
}
