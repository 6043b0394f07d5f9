package lexicon

import (
	"context"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon stores ingredient vocabulary mappings: trade names, INN
// labels and INCI spellings resolved to one canonical identifier.
//
// Design principles:
// - Bidirectional: can normalize to canonical OR expand canonical to all variants
// - Case-insensitive: lookups are keyed by the case-folded variant
// - Curated: built from the regulatory knowledge base plus manual additions
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	// Example: "Hydroquinone" -> ["hydroquinone", "quinol", "benzene-1,4-diol"]
	synonyms map[string][]string

	// folded variant -> canonical
	// Example: "quinol" -> "Hydroquinone"
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		synonyms:     make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads synonym mappings from a YAML file.
//
// Expected format:
//   synonyms:
//     - canonical: Hydroquinone
//       variants: [quinol, benzene-1,4-diol]
//     - canonical: Salicylic Acid
//       variants: [2-hydroxybenzoic acid, BHA]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Synonyms []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"synonyms"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Synonyms {
		lex.AddSynonymGroup(entry.Canonical, entry.Variants)
	}

	return lex, nil
}

// AddSynonymGroup adds a synonym group with a canonical form and its
// variants. The canonical form maps to itself; if the group already
// exists, old reverse index entries are cleaned up first.
func (l *Lexicon) AddSynonymGroup(canonical string, variants []string) {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return
	}

	// Clean up old reverse index entries if this canonical already exists
	if oldVariants, exists := l.synonyms[canonical]; exists {
		for _, oldV := range oldVariants {
			delete(l.reverseIndex, oldV)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)

	folded := fold(canonical)
	normalized = append(normalized, folded)
	seen[folded] = true

	for _, v := range variants {
		fv := fold(v)
		if fv == "" || seen[fv] {
			continue
		}
		normalized = append(normalized, fv)
		seen[fv] = true
	}

	l.synonyms[canonical] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Canonical resolves a single variant to its canonical form.
func (l *Lexicon) Canonical(variant string) (string, bool) {
	c, ok := l.reverseIndex[fold(variant)]
	return c, ok
}

// Variants returns all known variants for a canonical form.
func (l *Lexicon) Variants(canonical string) []string {
	return l.synonyms[strings.TrimSpace(canonical)]
}

// Len returns the number of synonym groups.
func (l *Lexicon) Len() int {
	return len(l.synonyms)
}

// LookupSynonyms resolves a batch of case-folded keys, implementing the
// normalize.SynonymSource contract. Keys with no mapping are absent
// from the result.
func (l *Lexicon) LookupSynonyms(ctx context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, k := range keys {
		if canonical, ok := l.reverseIndex[fold(k)]; ok {
			result[fold(k)] = canonical
		}
	}
	return result, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
