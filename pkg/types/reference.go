// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for bibdex: the canonical
// reference record, source candidates, and configuration.
package types

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Source names used in Candidate.Source. The reconciler keys its
// field-preference rules on these.
const (
	SourceScholar = "scholar"
	SourceDBLP    = "dblp"
	SourceArxiv   = "arxiv"
)

// Managed column names. The table manager owns cells in these columns;
// everything else in a row belongs to the user.
const (
	ColTitle     = "title"
	ColAuthors   = "authors_concise"
	ColVenue     = "venue"
	ColYear      = "year"
	ColCitations = "citation_count"
	ColURL       = "url"
	ColReference = "reference"
)

// Reference is the canonical metadata record for one paper, independent of
// which sources contributed its fields.
type Reference struct {
	// Title is the paper title. Always non-empty for a valid record.
	Title string `json:"title"`

	// Authors lists full author names in publication order.
	Authors []string `json:"authors"`

	// Venue is the publication venue (conference or journal), when known.
	Venue string `json:"venue,omitempty"`

	// Year is the 4-digit publication year, or 0 when unknown.
	Year int `json:"year,omitempty"`

	// CitationCount is the citation count, or -1 when unknown. Zero is a
	// valid count and distinct from unknown.
	CitationCount int `json:"citation_count"`

	// URL is a publisher or arXiv link, when known.
	URL string `json:"url,omitempty"`

	// Summary is the abstract text, when known.
	Summary string `json:"summary,omitempty"`
}

// Candidate is a raw metadata record returned by one external source before
// reconciliation.
type Candidate struct {
	Reference

	// Source identifies the producing source (scholar, dblp, arxiv).
	Source string `json:"source"`

	// Rank is the source's own result ordering, 0 = best.
	Rank int `json:"rank"`
}

// Surname returns the last whitespace-separated token of a full name.
func Surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// FirstAuthorSurname returns the surname of the first author, or "" when the
// reference has no authors.
func (r Reference) FirstAuthorSurname() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return Surname(r.Authors[0])
}

// AuthorSurnames returns the surname of every author, in order.
func (r Reference) AuthorSurnames() []string {
	surnames := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		if s := Surname(a); s != "" {
			surnames = append(surnames, s)
		}
	}
	return surnames
}

// ConciseAuthors renders the author list in compact table form: initials
// plus surname per author ("A Vaswani"), with four or more authors collapsed
// to the first author, a "+N" count, and the last author.
func (r Reference) ConciseAuthors() string {
	concise := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		concise = append(concise, conciseName(a))
	}
	if len(concise) > 3 {
		concise = []string{concise[0], "+" + strconv.Itoa(len(concise)-2), concise[len(concise)-1]}
	}
	return strings.Join(concise, ", ")
}

// conciseName compacts "Ashish Vaswani" to "A Vaswani". Single-token names
// pass through unchanged.
func conciseName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) == 1 {
		return fields[0]
	}
	var b strings.Builder
	for _, f := range fields[:len(fields)-1] {
		first, _ := utf8.DecodeRuneInString(f)
		b.WriteString(strings.ToUpper(string(first)))
	}
	b.WriteString(" ")
	b.WriteString(fields[len(fields)-1])
	return b.String()
}

// PopulatedFields counts the metadata fields carrying a value. The
// reconciler uses this to break score ties.
func (r Reference) PopulatedFields() int {
	n := 0
	if r.Title != "" {
		n++
	}
	if len(r.Authors) > 0 {
		n++
	}
	if r.Venue != "" {
		n++
	}
	if r.Year != 0 {
		n++
	}
	if r.CitationCount >= 0 {
		n++
	}
	if r.URL != "" {
		n++
	}
	if r.Summary != "" {
		n++
	}
	return n
}
