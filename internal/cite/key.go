// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cite derives citation keys and renders references as BibTeX
// entries and CSL items.
package cite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/pdiddy/bibdex/pkg/types"
)

// ErrKeySpaceExhausted reports that a derived key and all 26 suffixed
// variants are already taken.
var ErrKeySpaceExhausted = errors.New("citation key suffixes exhausted")

// articles are skipped when picking the first meaningful title word.
var articles = map[string]bool{"a": true, "an": true, "the": true}

// DeriveKey builds the citation key for a reference: first author's
// surname, four-digit year, first meaningful title word, lowercased and
// stripped to letters and digits. Missing authors become "anon"; a
// missing year contributes nothing. The key doubles as the reference
// page filename stem.
func DeriveKey(ref types.Reference) string {
	surname := cleanComponent(ref.FirstAuthorSurname())
	if surname == "" {
		surname = "anon"
	}

	var year string
	if ref.Year != 0 {
		year = fmt.Sprintf("%04d", ref.Year)
	}

	return surname + year + firstTitleWord(ref.Title)
}

// ResolveKey returns key unchanged when free, otherwise the first free
// variant among key+"a" through key+"z". Callers build taken in a fixed
// order (index rows, then page files) so the chosen suffix is stable for
// a given repository state.
func ResolveKey(key string, taken map[string]bool) (string, error) {
	if !taken[key] {
		return key, nil
	}
	for c := 'a'; c <= 'z'; c++ {
		suffixed := key + string(c)
		if !taken[suffixed] {
			return suffixed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrKeySpaceExhausted, key)
}

// firstTitleWord returns the first word of the title that survives
// cleaning and is not an article.
func firstTitleWord(title string) string {
	for _, word := range strings.Fields(title) {
		w := cleanComponent(word)
		if w == "" || articles[w] {
			continue
		}
		return w
	}
	return ""
}

// cleanComponent lowercases, folds diacritics to ASCII, and drops
// everything except letters and digits.
func cleanComponent(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "")
}
