package normalize

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SynonymSource resolves case-folded raw identifiers to canonical
// forms. Keys with no known synonym are absent from the result map.
// Implemented by the lexicon and by the regulatory store.
type SynonymSource interface {
	LookupSynonyms(ctx context.Context, keys []string) (map[string]string, error)
}

// Cache memoizes resolved identifiers across calls within one run.
// Keys are case-folded identifiers, values are canonical forms. The
// cache is owned by the invocation (one per ingestion run or
// evaluation session) and is not shared across concurrent runs.
type Cache = lru.Cache[string, string]

// DefaultCacheSize bounds a run's resolution cache. Annex exports top
// out at a few thousand rows, so this effectively never evicts.
const DefaultCacheSize = 4096

// NewCache creates a resolution cache of the given size.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return lru.New[string, string](size)
}

// Batch resolves a batch of raw identifier strings to canonical forms.
// The result maps every distinct trimmed input spelling to its
// canonical form; lookups are deduplicated on the case-folded string.
//
// Already-cached identifiers are served from the cache; the remainder
// goes to the synonym source in a single batched lookup keyed by the
// case-folded string. Identifiers with no synonym match canonicalize to
// themselves (the trimmed original). A source failure does not abort
// the batch: a warning is returned and all unresolved identifiers are
// treated as self-canonical.
func Batch(ctx context.Context, raws []string, cache *Cache, src SynonymSource) (map[string]string, []string) {
	var warnings []string

	// Trim, fold and deduplicate, remembering every spelling seen for
	// each folded key so the result covers all of them.
	spellings := make(map[string][]string, len(raws))
	var order []string
	for _, raw := range raws {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		folded := strings.ToLower(trimmed)
		if _, ok := spellings[folded]; !ok {
			order = append(order, folded)
		}
		spellings[folded] = append(spellings[folded], trimmed)
	}

	canonicalOf := make(map[string]string, len(order))
	var missing []string
	for _, folded := range order {
		if canonical, ok := cache.Get(folded); ok {
			canonicalOf[folded] = canonical
		} else {
			missing = append(missing, folded)
		}
	}

	if len(missing) > 0 {
		resolved, err := src.LookupSynonyms(ctx, missing)
		if err != nil {
			warnings = append(warnings,
				fmt.Sprintf("synonym lookup failed, using identifiers as-is: %v", err))
			resolved = nil
		}
		for _, folded := range missing {
			canonical, ok := resolved[folded]
			if !ok {
				// No synonym: the first-seen trimmed spelling is canonical.
				canonical = spellings[folded][0]
			}
			canonicalOf[folded] = canonical
			cache.Add(folded, canonical)
		}
	}

	result := make(map[string]string, len(raws))
	for folded, trimmeds := range spellings {
		for _, t := range trimmeds {
			result[t] = canonicalOf[folded]
		}
	}
	return result, warnings
}
