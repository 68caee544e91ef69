// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/bibdex/internal/httputil"
	"github.com/pdiddy/bibdex/pkg/types"
)

// arxivAPIBase is the arXiv Atom query endpoint. Declared as a var so
// tests can substitute an httptest server.
var arxivAPIBase = "http://export.arxiv.org/api/query"

// ArxivSource queries the arXiv Atom API. arXiv contributes abstracts and
// preprint links for fields it covers; venue and citation data come from
// the other sources.
type ArxivSource struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *ArxivSource) Name() string { return types.SourceArxiv }

// Search queries the arXiv API sorted by relevance.
func (s *ArxivSource) Search(ctx context.Context, query string, cfg types.FetchConfig) ([]types.Candidate, error) {
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 3
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, buildArxivQuery(query), maxCandidates)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading arXiv response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var candidates []types.Candidate
	for i, entry := range feed.Entries {
		if i >= maxCandidates {
			break
		}

		var authors []string
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}

		var year int
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			year = t.Year()
		}

		id := extractArxivID(entry.ID)

		candidates = append(candidates, types.Candidate{
			Reference: types.Reference{
				Title:         collapseSpaces(entry.Title),
				Authors:       authors,
				Year:          year,
				CitationCount: -1,
				URL:           "https://arxiv.org/abs/" + id,
				Summary:       collapseSpaces(entry.Summary),
			},
			Source: types.SourceArxiv,
			Rank:   i,
		})
	}

	return candidates, nil
}

// buildArxivQuery turns free text into the API's fielded query form,
// requiring every term: "all:attention+AND+all:transformers".
func buildArxivQuery(query string) string {
	terms := strings.Fields(query)
	fielded := make([]string, len(terms))
	for i, term := range terms {
		fielded[i] = "all:" + url.QueryEscape(term)
	}
	return strings.Join(fielded, "+AND+")
}

// arXiv Atom feed format.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

var arxivVersion = regexp.MustCompile(`v\d+$`)

// extractArxivID pulls the bare identifier out of an entry URL such as
// "http://arxiv.org/abs/1706.03762v5".
func extractArxivID(entryURL string) string {
	id := entryURL
	if idx := strings.LastIndex(id, "/abs/"); idx >= 0 {
		id = id[idx+len("/abs/"):]
	}
	return arxivVersion.ReplaceAllString(id, "")
}
