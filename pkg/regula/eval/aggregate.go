package eval

import "sort"

// CategorizedIngredient is a resolved ingredient annotated with its
// category label and, where known, the product-type-specific maximum
// usage from the ingredient knowledge base.
type CategorizedIngredient struct {
	ResolvedIngredient
	Category string
	MaxUsage *float64 // nil when no cap is known for this ingredient
}

// GroupWarning is an aggregate, category-level usage warning
// independent of individual regulatory entries.
type GroupWarning struct {
	Category string
	TotalPct float64 // summed percentage across the category
	Limit    float64 // strictest known per-item cap in the category
}

// EvaluateGroups sums declared percentages per category and warns when
// a category total strictly exceeds the minimum of the known per-item
// caps within it. A category where no ingredient carries a known cap
// has an undefined limit and produces no warning. Output is ordered by
// category for deterministic results.
func EvaluateGroups(ingredients []CategorizedIngredient) []GroupWarning {
	type group struct {
		total    float64
		limit    float64
		hasLimit bool
	}
	groups := make(map[string]*group)

	for _, ing := range ingredients {
		if ing.Category == "" {
			continue
		}
		g := groups[ing.Category]
		if g == nil {
			g = &group{}
			groups[ing.Category] = g
		}
		g.total += ing.Percent
		if ing.MaxUsage != nil && (!g.hasLimit || *ing.MaxUsage < g.limit) {
			g.limit = *ing.MaxUsage
			g.hasLimit = true
		}
	}

	var warnings []GroupWarning
	for category, g := range groups {
		if !g.hasLimit || g.total <= g.limit {
			continue
		}
		warnings = append(warnings, GroupWarning{
			Category: category,
			TotalPct: g.total,
			Limit:    g.limit,
		})
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Category < warnings[j].Category
	})
	return warnings
}
