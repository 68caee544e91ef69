// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/bibdex/pkg/types"
)

// journalKeyword marks venues published as journals rather than
// conference proceedings.
var journalKeyword = regexp.MustCompile(`(?i)\b(journal|transactions|letters|magazine)\b`)

// bibtexEscaper escapes characters significant to BibTeX in a single
// pass, so a backslash introduced for one character is not escaped again.
var bibtexEscaper = strings.NewReplacer(
	`\`, `\\`,
	"{", `\{`,
	"}", `\}`,
	"%", `\%`,
	"&", `\&`,
)

// GenerateBibTeX renders one BibTeX entry for the reference. The entry
// type follows the venue: journal-keyword venues become @article,
// anything else @inproceedings, and a missing venue falls back to @misc.
// Empty fields are omitted.
func GenerateBibTeX(key string, ref types.Reference) string {
	entryType := "inproceedings"
	venueField := "booktitle"
	switch {
	case ref.Venue == "":
		entryType = "misc"
		venueField = ""
	case journalKeyword.MatchString(ref.Venue):
		entryType = "article"
		venueField = "journal"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)
	if ref.Title != "" {
		fmt.Fprintf(&b, "  title = {%s},\n", bibtexEscaper.Replace(ref.Title))
	}
	if len(ref.Authors) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", bibtexEscaper.Replace(strings.Join(ref.Authors, " and ")))
	}
	if venueField != "" {
		fmt.Fprintf(&b, "  %s = {%s},\n", venueField, bibtexEscaper.Replace(ref.Venue))
	}
	if ref.Year != 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", ref.Year)
	}
	if ref.URL != "" {
		fmt.Fprintf(&b, "  url = {%s},\n", bibtexEscaper.Replace(ref.URL))
	}
	b.WriteString("}\n")
	return b.String()
}
