// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile selects and merges metadata candidates into one
// canonical reference record.
package reconcile

import (
	"errors"
	"sort"
	"strings"

	"github.com/gosimple/slug"

	"github.com/pdiddy/bibdex/pkg/types"
)

// ErrNoMatch reports that no candidate scored above the similarity
// threshold. Callers surface this instead of writing a placeholder entry.
var ErrNoMatch = errors.New("no matching reference found")

const defaultMinSimilarity = 0.5

// Normalize lowercases s, folds diacritics to ASCII, strips punctuation,
// and collapses whitespace. Two titles that normalize equal are treated
// as the same title.
func Normalize(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", " ")
}

// Reconcile picks the best candidate for the query and merges fields from
// other candidates describing the same paper. Precedence for merged
// fields: DBLP supplies venue and year, Scholar supplies citation count
// and URL, arXiv fills summary and URL when still empty. Candidates for a
// different paper never contribute. minSimilarity at or below zero falls
// back to the default threshold.
func Reconcile(query string, candidates []types.Candidate, minSimilarity float64) (types.Reference, error) {
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}

	queryTokens := strings.Fields(Normalize(query))
	if len(queryTokens) == 0 {
		return types.Reference{}, ErrNoMatch
	}

	type scored struct {
		cand  types.Candidate
		score float64
	}
	var survivors []scored
	for _, c := range candidates {
		if s := score(queryTokens, c); s >= minSimilarity {
			survivors = append(survivors, scored{cand: c, score: s})
		}
	}
	if len(survivors) == 0 {
		return types.Reference{}, ErrNoMatch
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if pa, pb := a.cand.PopulatedFields(), b.cand.PopulatedFields(); pa != pb {
			return pa > pb
		}
		return a.cand.Source == types.SourceDBLP && b.cand.Source != types.SourceDBLP
	})

	best := survivors[0].cand
	ref := best.Reference

	// First same-paper candidate per source, in ranked order.
	var fromDBLP, fromScholar, fromArxiv *types.Reference
	var same []types.Reference
	for i := range survivors {
		c := survivors[i].cand
		if !samePaper(best.Reference, c.Reference) {
			continue
		}
		same = append(same, c.Reference)
		switch c.Source {
		case types.SourceDBLP:
			if fromDBLP == nil {
				fromDBLP = &survivors[i].cand.Reference
			}
		case types.SourceScholar:
			if fromScholar == nil {
				fromScholar = &survivors[i].cand.Reference
			}
		case types.SourceArxiv:
			if fromArxiv == nil {
				fromArxiv = &survivors[i].cand.Reference
			}
		}
	}

	if fromDBLP != nil {
		if fromDBLP.Venue != "" {
			ref.Venue = fromDBLP.Venue
		}
		if fromDBLP.Year != 0 {
			ref.Year = fromDBLP.Year
		}
	}
	if fromScholar != nil {
		if fromScholar.CitationCount >= 0 {
			ref.CitationCount = fromScholar.CitationCount
		}
		if fromScholar.URL != "" {
			ref.URL = fromScholar.URL
		}
	}
	if fromArxiv != nil {
		if ref.Summary == "" && fromArxiv.Summary != "" {
			ref.Summary = fromArxiv.Summary
		}
		if ref.URL == "" && fromArxiv.URL != "" {
			ref.URL = fromArxiv.URL
		}
	}
	for _, r := range same {
		fillEmpty(&ref, r)
	}

	return ref, nil
}

// score is the fraction of query tokens found among the candidate's
// normalized title and author-surname tokens.
func score(queryTokens []string, c types.Candidate) float64 {
	have := make(map[string]bool)
	for _, tok := range strings.Fields(Normalize(c.Title)) {
		have[tok] = true
	}
	for _, surname := range c.AuthorSurnames() {
		for _, tok := range strings.Fields(Normalize(surname)) {
			have[tok] = true
		}
	}

	matched := 0
	for _, tok := range queryTokens {
		if have[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// samePaper reports whether two records describe the same logical paper:
// equal normalized titles and at least one shared author surname. A record
// with no authors matches on title alone.
func samePaper(a, b types.Reference) bool {
	if Normalize(a.Title) != Normalize(b.Title) {
		return false
	}
	if len(a.Authors) == 0 || len(b.Authors) == 0 {
		return true
	}
	surnames := make(map[string]bool)
	for _, s := range b.AuthorSurnames() {
		surnames[Normalize(s)] = true
	}
	for _, s := range a.AuthorSurnames() {
		if surnames[Normalize(s)] {
			return true
		}
	}
	return false
}

// fillEmpty copies fields from src into dst where dst still has no value.
func fillEmpty(dst *types.Reference, src types.Reference) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Venue == "" {
		dst.Venue = src.Venue
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.CitationCount < 0 && src.CitationCount >= 0 {
		dst.CitationCount = src.CitationCount
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.Summary == "" {
		dst.Summary = src.Summary
	}
}
