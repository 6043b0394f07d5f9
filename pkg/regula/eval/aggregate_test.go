package eval

import "testing"

func TestEvaluateGroupsSumExceedsStrictestCap(t *testing.T) {
	ings := []CategorizedIngredient{
		{ResolvedIngredient: ResolvedIngredient{Name: "Linalool", Percent: 0.4}, Category: "fragrance-allergen", MaxUsage: pct(0.5)},
		{ResolvedIngredient: ResolvedIngredient{Name: "Limonene", Percent: 0.3}, Category: "fragrance-allergen", MaxUsage: pct(0.8)},
	}

	warnings := EvaluateGroups(ings)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	w := warnings[0]
	if w.Category != "fragrance-allergen" {
		t.Errorf("category: got %q", w.Category)
	}
	if w.TotalPct != 0.7 {
		t.Errorf("total: got %v", w.TotalPct)
	}
	if w.Limit != 0.5 {
		t.Errorf("limit should be the strictest per-item cap, got %v", w.Limit)
	}
}

func TestEvaluateGroupsEqualityIsCompliant(t *testing.T) {
	ings := []CategorizedIngredient{
		{ResolvedIngredient: ResolvedIngredient{Name: "Linalool", Percent: 0.25}, Category: "fragrance-allergen", MaxUsage: pct(0.5)},
		{ResolvedIngredient: ResolvedIngredient{Name: "Limonene", Percent: 0.25}, Category: "fragrance-allergen"},
	}

	if warnings := EvaluateGroups(ings); len(warnings) != 0 {
		t.Errorf("sum equal to the limit must not warn, got %v", warnings)
	}
}

func TestEvaluateGroupsNoKnownCapNoWarning(t *testing.T) {
	ings := []CategorizedIngredient{
		{ResolvedIngredient: ResolvedIngredient{Name: "Parfum", Percent: 90}, Category: "fragrance"},
		{ResolvedIngredient: ResolvedIngredient{Name: "Aroma", Percent: 10}, Category: "fragrance"},
	}

	if warnings := EvaluateGroups(ings); len(warnings) != 0 {
		t.Errorf("undefined limit means no check, got %v", warnings)
	}
}

func TestEvaluateGroupsIgnoresUncategorized(t *testing.T) {
	ings := []CategorizedIngredient{
		{ResolvedIngredient: ResolvedIngredient{Name: "Water", Percent: 80}, MaxUsage: pct(1)},
	}

	if warnings := EvaluateGroups(ings); len(warnings) != 0 {
		t.Errorf("ingredients without a category join no group, got %v", warnings)
	}
}

func TestEvaluateGroupsOrderedOutput(t *testing.T) {
	ings := []CategorizedIngredient{
		{ResolvedIngredient: ResolvedIngredient{Name: "b", Percent: 2}, Category: "preservative", MaxUsage: pct(1)},
		{ResolvedIngredient: ResolvedIngredient{Name: "a", Percent: 2}, Category: "colorant", MaxUsage: pct(1)},
	}

	warnings := EvaluateGroups(ings)
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
	if warnings[0].Category != "colorant" || warnings[1].Category != "preservative" {
		t.Errorf("warnings must be ordered by category: %v", warnings)
	}
}
