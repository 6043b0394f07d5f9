package regula

import (
	"context"
	"testing"

	"github.com/formulab/regula/pkg/regula/config"
	"github.com/formulab/regula/pkg/regula/ingest"
	"github.com/formulab/regula/pkg/regula/store"
	"github.com/formulab/regula/pkg/regula/store/memstore"
)

func pct(v float64) *float64 { return &v }

func TestEngineIngestThenEvaluate(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := st.UpsertSynonym(ctx, "quinol", "Hydroquinone"); err != nil {
		t.Fatal(err)
	}

	engine := New(Options{Store: st})

	prohibited := "Identified ingredients\nHydroquinone\n"
	report, err := engine.Ingest(ctx, prohibited, ingest.Options{Tier: store.TierProhibited})
	if err != nil || !report.Success() {
		t.Fatalf("ingest annex ii: err=%v report=%+v", err, report)
	}

	restricted := "Identified ingredients,Maximum concentration\nResorcinol,2\n"
	report, err = engine.Ingest(ctx, restricted, ingest.Options{Tier: store.TierRestrictedA})
	if err != nil || !report.Success() {
		t.Fatalf("ingest annex iii: err=%v report=%+v", err, report)
	}

	formula := []FormulaIngredient{
		{Name: "Quinol", Percent: 0.1},          // synonym of a prohibited substance
		{Name: "Resorcinol", Percent: 3},        // over the 2% cap
		{Name: "Water", INCI: "Aqua", Percent: 90}, // no regulatory data
	}

	result, err := engine.EvaluateFormula(ctx, formula, store.ApplyLeaveOn)
	if err != nil {
		t.Fatalf("EvaluateFormula: %v", err)
	}

	if len(result.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %+v", result.Findings)
	}
	tiers := map[store.Tier]bool{}
	for _, f := range result.Findings {
		tiers[f.Tier] = true
	}
	if !tiers[store.TierProhibited] || !tiers[store.TierRestrictedA] {
		t.Errorf("expected one prohibited and one restricted finding: %+v", result.Findings)
	}

	// Identical inputs, identical output
	again, err := engine.EvaluateFormula(ctx, formula, store.ApplyLeaveOn)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Findings) != len(result.Findings) {
		t.Error("evaluation must be deterministic")
	}
}

func TestEngineEvaluateGroupWarnings(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	kb := config.NewKnowledgeBase([]config.KnowledgeEntry{
		{Canonical: "Linalool", Category: "fragrance-allergen", LeaveOnMax: pct(0.5), RinseOffMax: pct(1)},
		{Canonical: "Limonene", Category: "fragrance-allergen", LeaveOnMax: pct(0.8)},
	})
	engine := New(Options{Store: st, Knowledge: kb})

	formula := []FormulaIngredient{
		{Name: "Linalool", Percent: 0.4},
		{Name: "Limonene", Percent: 0.3},
	}

	result, err := engine.EvaluateFormula(ctx, formula, store.ApplyLeaveOn)
	if err != nil {
		t.Fatalf("EvaluateFormula: %v", err)
	}
	if len(result.Findings) != 0 {
		t.Errorf("no regulatory entries, no findings: %+v", result.Findings)
	}
	if len(result.GroupWarnings) != 1 {
		t.Fatalf("expected 1 group warning, got %+v", result.GroupWarnings)
	}
	w := result.GroupWarnings[0]
	if w.Category != "fragrance-allergen" || w.Limit != 0.5 {
		t.Errorf("unexpected warning: %+v", w)
	}

	// Rinse-off uses the rinse-off caps; Limonene has none there, the
	// group limit comes from Linalool alone and 0.7 < 1.0.
	result, err = engine.EvaluateFormula(ctx, formula, store.ApplyRinseOff)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.GroupWarnings) != 0 {
		t.Errorf("rinse-off totals are within limits: %+v", result.GroupWarnings)
	}
}

func TestEngineRejectsBadProductType(t *testing.T) {
	engine := New(Options{Store: memstore.New()})

	_, err := engine.EvaluateFormula(context.Background(), nil, store.ApplyBoth)
	if err == nil {
		t.Error("product type must be leave-on or rinse-off")
	}
}

func TestEngineEmptyCanonicalExcludedSilently(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	engine := New(Options{Store: st})

	result, err := engine.EvaluateFormula(ctx, []FormulaIngredient{
		{Name: "", INCI: "", Percent: 10},
	}, store.ApplyLeaveOn)
	if err != nil {
		t.Fatalf("EvaluateFormula: %v", err)
	}
	if len(result.Findings) != 0 {
		t.Errorf("unresolvable ingredient yields zero findings: %+v", result.Findings)
	}
}
