// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pdiddy/bibdex/internal/httputil"
	"github.com/pdiddy/bibdex/pkg/types"
)

// scholarSearchBase is the Google Scholar results page. Declared as a var
// so tests can substitute an httptest server.
var scholarSearchBase = "https://scholar.google.com/scholar"

// ScholarSource scrapes the public Google Scholar results page. Scholar has
// no API; it is the only source carrying citation counts, at the price of
// approximate venue and author data and aggressive rate-blocking.
type ScholarSource struct {
	Client *http.Client

	// Cookie is an optional session cookie header value. A cookie from a
	// browser session substantially reduces CAPTCHA responses.
	Cookie string

	// Limiter paces requests. Nil disables pacing.
	Limiter *rate.Limiter
}

// NewScholarSource returns a ScholarSource pacing requests to at most one
// per interval. A zero interval disables pacing.
func NewScholarSource(client *http.Client, cookie string, interval time.Duration) *ScholarSource {
	s := &ScholarSource{Client: client, Cookie: cookie}
	if interval > 0 {
		s.Limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return s
}

// Name returns the source identifier.
func (s *ScholarSource) Name() string { return types.SourceScholar }

// Search scrapes the first results page for the query.
func (s *ScholarSource) Search(ctx context.Context, query string, cfg types.FetchConfig) ([]types.Candidate, error) {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 3
	}

	params := url.Values{
		"q":  {query},
		"hl": {"en"},
	}
	reqURL := scholarSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if s.Cookie != "" {
		req.Header.Set("Cookie", s.Cookie)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Scholar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Scholar returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing Scholar response: %w", err)
	}

	if doc.Find("#gs_captcha_ccl").Length() > 0 {
		return nil, fmt.Errorf("Scholar served a CAPTCHA (rate-blocked)")
	}

	var candidates []types.Candidate
	doc.Find(".gs_ri").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(candidates) >= maxCandidates {
			return false
		}

		title, href := scholarTitle(sel)
		if title == "" {
			return true
		}

		authors, venue, year := parseScholarByline(sel.Find(".gs_a").First().Text())

		candidates = append(candidates, types.Candidate{
			Reference: types.Reference{
				Title:         title,
				Authors:       authors,
				Venue:         venue,
				Year:          year,
				CitationCount: scholarCitations(sel),
				URL:           href,
			},
			Source: types.SourceScholar,
			Rank:   len(candidates),
		})
		return true
	})

	return candidates, nil
}

// scholarTitle extracts the result title and target link. Citation-only
// results have no anchor; their title is the heading text minus the
// bracketed type markers.
func scholarTitle(sel *goquery.Selection) (title, href string) {
	heading := sel.Find("h3.gs_rt").First()
	if a := heading.Find("a").First(); a.Length() > 0 {
		return collapseSpaces(a.Text()), a.AttrOr("href", "")
	}
	stripped := heading.Clone()
	stripped.Find("span").Remove()
	return collapseSpaces(stripped.Text()), ""
}

// scholarCitations extracts the count from the "Cited by N" footer link,
// or -1 when the result has none.
func scholarCitations(sel *goquery.Selection) int {
	count := -1
	sel.Find(".gs_fl a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if !strings.HasPrefix(text, "Cited by ") {
			return true
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(text, "Cited by ")); err == nil {
			count = n
		}
		return false
	})
	return count
}

var bylineYear = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

// parseScholarByline splits the ".gs_a" line, which Scholar renders as
// "A Vaswani, N Shazeer - Advances in neural information processing
// systems, 2017 - proceedings.neurips.cc". The third segment (publisher
// domain) is discarded.
func parseScholarByline(byline string) (authors []string, venue string, year int) {
	byline = strings.ReplaceAll(byline, "\u00a0", " ")
	parts := strings.Split(byline, " - ")

	for _, a := range strings.Split(parts[0], ",") {
		a = strings.TrimSuffix(strings.TrimSpace(a), "…")
		a = strings.TrimSuffix(a, "...")
		if a != "" {
			authors = append(authors, a)
		}
	}

	if len(parts) < 2 {
		return authors, "", 0
	}

	venuePart := strings.TrimSpace(parts[1])
	if m := bylineYear.FindString(venuePart); m != "" {
		year, _ = strconv.Atoi(m)
		venuePart = strings.Replace(venuePart, m, "", 1)
	}
	venue = strings.Trim(collapseSpaces(venuePart), " ,")

	return authors, venue, year
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
