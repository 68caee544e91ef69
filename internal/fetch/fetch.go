// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch queries external metadata sources and collects candidate
// records for reconciliation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/bibdex/pkg/types"
)

// ErrSourceUnavailable reports that every enabled source failed. A single
// failing source is a warning, not an error.
var ErrSourceUnavailable = errors.New("all metadata sources unavailable")

// Source queries a single external metadata provider. Each provider
// (Google Scholar, DBLP, arXiv) implements this interface.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.FetchConfig) ([]types.Candidate, error)
}

// Output holds the merged candidates and per-source failure messages.
type Output struct {
	Candidates   []types.Candidate
	SourceErrors []string
}

// Search fans the query out to all sources concurrently and merges their
// candidates. A failing source becomes a warning on w and an entry in
// SourceErrors; candidates from the healthy sources still flow through.
// The merged list is sorted by (source, rank) so downstream scoring does
// not depend on completion order.
func Search(ctx context.Context, query string, sources []Source, cfg types.FetchConfig, w io.Writer) (Output, error) {
	if strings.TrimSpace(query) == "" {
		return Output{}, fmt.Errorf("query is empty")
	}
	if len(sources) == 0 {
		return Output{}, fmt.Errorf("no metadata sources enabled")
	}

	type sourceResult struct {
		candidates []types.Candidate
		err        error
		name       string
	}

	ch := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup

	for _, s := range sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			candidates, err := s.Search(ctx, query, cfg)
			ch <- sourceResult{candidates: candidates, err: err, name: s.Name()}
		}(s)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var out Output
	for sr := range ch {
		if sr.err != nil {
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %v", sr.name, sr.err))
			fmt.Fprintf(w, "warning: source %s failed: %v\n", sr.name, sr.err)
			continue
		}
		out.Candidates = append(out.Candidates, sr.candidates...)
	}

	if len(out.SourceErrors) == len(sources) {
		return out, fmt.Errorf("%w: %s", ErrSourceUnavailable, strings.Join(out.SourceErrors, "; "))
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		if out.Candidates[i].Source != out.Candidates[j].Source {
			return out.Candidates[i].Source < out.Candidates[j].Source
		}
		return out.Candidates[i].Rank < out.Candidates[j].Rank
	})

	return out, nil
}

// EnabledSources builds the source list from configuration. cookie is an
// optional Cookie header value for Google Scholar requests.
func EnabledSources(client *http.Client, cfg types.FetchConfig, cookie string) []Source {
	var sources []Source
	if cfg.EnableScholar {
		sources = append(sources, NewScholarSource(client, cookie, cfg.ScholarRate))
	}
	if cfg.EnableDBLP {
		sources = append(sources, &DBLPSource{Client: client})
	}
	if cfg.EnableArxiv {
		sources = append(sources, &ArxivSource{Client: client})
	}
	return sources
}
