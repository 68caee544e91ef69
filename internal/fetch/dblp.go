// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/bibdex/internal/httputil"
	"github.com/pdiddy/bibdex/pkg/types"
)

// dblpAPIBase is the DBLP publication search endpoint. Declared as a var
// so tests can substitute an httptest server.
var dblpAPIBase = "https://dblp.org/search/publ/api"

// DBLPSource queries the DBLP computer science bibliography. DBLP has the
// most reliable author lists and venue names but covers only computer
// science and carries no abstracts or citation counts.
type DBLPSource struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *DBLPSource) Name() string { return types.SourceDBLP }

// Search queries the DBLP publication API.
func (s *DBLPSource) Search(ctx context.Context, query string, cfg types.FetchConfig) ([]types.Candidate, error) {
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 3
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"h":      {strconv.Itoa(maxCandidates)},
	}
	reqURL := dblpAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("DBLP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DBLP returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading DBLP response: %w", err)
	}

	var parsed dblpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing DBLP response: %w", err)
	}

	var candidates []types.Candidate
	for i, hit := range parsed.Result.Hits.Hit {
		if i >= maxCandidates {
			break
		}
		info := hit.Info

		var authors []string
		for _, a := range info.Authors.Author {
			if name := cleanDBLPAuthor(a.Text); name != "" {
				authors = append(authors, name)
			}
		}

		year, _ := strconv.Atoi(info.Year)

		candidates = append(candidates, types.Candidate{
			Reference: types.Reference{
				Title:         cleanDBLPTitle(info.Title),
				Authors:       authors,
				Venue:         string(info.Venue),
				Year:          year,
				CitationCount: -1,
				URL:           info.EE,
			},
			Source: types.SourceDBLP,
			Rank:   i,
		})
	}

	return candidates, nil
}

// DBLP wire format. Fields that hold one object for single values and an
// array for multiples get dedicated types with custom unmarshalling.
type dblpResponse struct {
	Result struct {
		Hits struct {
			Hit []dblpHit `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

type dblpHit struct {
	Info dblpInfo `json:"info"`
}

type dblpInfo struct {
	Title   string      `json:"title"`
	Authors dblpAuthors `json:"authors"`
	Venue   dblpVenue   `json:"venue"`
	Year    string      `json:"year"`
	EE      string      `json:"ee"`
}

type dblpAuthor struct {
	Text string `json:"text"`
}

// dblpAuthors accepts both {"author": {...}} and {"author": [{...}, ...]}.
type dblpAuthors struct {
	Author []dblpAuthor
}

func (a *dblpAuthors) UnmarshalJSON(data []byte) error {
	var multi struct {
		Author []dblpAuthor `json:"author"`
	}
	if err := json.Unmarshal(data, &multi); err == nil {
		a.Author = multi.Author
		return nil
	}
	var single struct {
		Author dblpAuthor `json:"author"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	a.Author = []dblpAuthor{single.Author}
	return nil
}

// dblpVenue accepts both a plain string and an array of strings, keeping
// the first entry.
type dblpVenue string

func (v *dblpVenue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = dblpVenue(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	if len(list) > 0 {
		*v = dblpVenue(list[0])
	}
	return nil
}

// dblpHomonym matches the four-digit disambiguation suffix DBLP appends to
// homonymous author names, as in "Wei Wang 0001".
var dblpHomonym = regexp.MustCompile(`\s+\d{4}$`)

func cleanDBLPAuthor(name string) string {
	return dblpHomonym.ReplaceAllString(strings.TrimSpace(name), "")
}

// cleanDBLPTitle collapses whitespace and drops the trailing period DBLP
// adds to every title.
func cleanDBLPTitle(title string) string {
	title = collapseSpaces(title)
	return strings.TrimSuffix(title, ".")
}
