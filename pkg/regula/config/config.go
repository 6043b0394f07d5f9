package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/formulab/regula/pkg/regula/eval"
	"github.com/formulab/regula/pkg/regula/ingest"
	"github.com/formulab/regula/pkg/regula/store"
)

// MappingProfile holds explicit column-name overrides for a known CSV
// export shape, so operators can pin columns instead of relying on
// heuristic detection.
type MappingProfile struct {
	Columns ingest.Overrides `yaml:"columns"`
}

// LoadMappingProfile loads column overrides from a YAML file.
func LoadMappingProfile(path string) (*MappingProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profile MappingProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// Formula is a formulation as exported by the formula builder: display
// names, optional declared INCI, and percentages.
type Formula struct {
	Name        string              `yaml:"name"`
	ProductType string              `yaml:"product_type"` // leave-on or rinse-off
	Ingredients []FormulaIngredient `yaml:"ingredients"`
}

// FormulaIngredient is one line of a formula file.
type FormulaIngredient struct {
	Name    string  `yaml:"name"`
	INCI    string  `yaml:"inci"`
	Percent float64 `yaml:"percent"`
}

// LoadFormula loads a formula from a YAML file.
func LoadFormula(path string) (*Formula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f Formula
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// KnowledgeBase annotates canonical identifiers with a category label
// and product-type-specific maximum usage, feeding the aggregate
// threshold evaluator.
type KnowledgeBase struct {
	byCanonical map[string]KnowledgeEntry
}

// KnowledgeEntry is one ingredient annotation.
type KnowledgeEntry struct {
	Canonical   string   `yaml:"canonical"`
	Category    string   `yaml:"category"`
	LeaveOnMax  *float64 `yaml:"leave_on_max"`
	RinseOffMax *float64 `yaml:"rinse_off_max"`
}

// LoadKnowledgeBase loads ingredient annotations from a YAML file.
//
// Expected format:
//   ingredients:
//     - canonical: Linalool
//       category: fragrance-allergen
//       leave_on_max: 0.5
//       rinse_off_max: 1.0
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Ingredients []KnowledgeEntry `yaml:"ingredients"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	return NewKnowledgeBase(raw.Ingredients), nil
}

// NewKnowledgeBase builds a knowledge base from entries, indexed by
// case-folded canonical identifier.
func NewKnowledgeBase(entries []KnowledgeEntry) *KnowledgeBase {
	kb := &KnowledgeBase{byCanonical: make(map[string]KnowledgeEntry, len(entries))}
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Canonical))
		if key == "" {
			continue
		}
		kb.byCanonical[key] = e
	}
	return kb
}

// Len returns the number of annotated ingredients.
func (kb *KnowledgeBase) Len() int {
	return len(kb.byCanonical)
}

// Annotate attaches category and max-usage data to resolved
// ingredients. Unknown ingredients keep an empty category and nil cap,
// which the aggregate evaluator treats as "no check".
func (kb *KnowledgeBase) Annotate(ingredients []eval.ResolvedIngredient, productType store.Applicability) []eval.CategorizedIngredient {
	out := make([]eval.CategorizedIngredient, len(ingredients))
	for i, ing := range ingredients {
		out[i] = eval.CategorizedIngredient{ResolvedIngredient: ing}

		entry, ok := kb.byCanonical[strings.ToLower(strings.TrimSpace(ing.Canonical))]
		if !ok {
			continue
		}
		out[i].Category = entry.Category
		switch productType {
		case store.ApplyRinseOff:
			out[i].MaxUsage = entry.RinseOffMax
		default:
			out[i].MaxUsage = entry.LeaveOnMax
		}
	}
	return out
}
