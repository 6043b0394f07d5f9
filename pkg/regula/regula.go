// Package regula ingests regulatory reference data from CSV exports
// and evaluates formulations against it.
package regula

import (
	"context"
	"fmt"
	"strings"

	"github.com/formulab/regula/pkg/regula/config"
	"github.com/formulab/regula/pkg/regula/eval"
	"github.com/formulab/regula/pkg/regula/ingest"
	"github.com/formulab/regula/pkg/regula/internalerr"
	"github.com/formulab/regula/pkg/regula/normalize"
	"github.com/formulab/regula/pkg/regula/store"
)

// Engine is the main compliance facade, wiring the regulatory store,
// the synonym source and the ingredient knowledge base.
type Engine struct {
	store     store.Store
	synonyms  normalize.SynonymSource
	knowledge *config.KnowledgeBase
	cacheSize int
}

// Options configures an Engine instance.
type Options struct {
	Store     store.Store
	Synonyms  normalize.SynonymSource // defaults to the store's synonym table
	Knowledge *config.KnowledgeBase   // optional, enables group warnings
	CacheSize int                     // identifier cache size per run
}

// New creates an Engine with the given dependencies.
func New(opts Options) *Engine {
	synonyms := opts.Synonyms
	if synonyms == nil {
		synonyms = opts.Store
	}
	return &Engine{
		store:     opts.Store,
		synonyms:  synonyms,
		knowledge: opts.Knowledge,
		cacheSize: opts.CacheSize,
	}
}

// Close cleanly shuts down the engine.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Ingest runs one ingestion over raw CSV text.
func (e *Engine) Ingest(ctx context.Context, raw string, opts ingest.Options) (*ingest.Report, error) {
	if opts.CacheSize == 0 {
		opts.CacheSize = e.cacheSize
	}
	return ingest.NewPipeline(e.store, e.synonyms).Run(ctx, raw, opts)
}

// FormulaIngredient is one formula line as supplied by the formula
// builder: a display name, an optional declared INCI, and the declared
// percentage. The INCI, when present, is the identifier to resolve.
type FormulaIngredient struct {
	Name    string
	INCI    string
	Percent float64
}

// Evaluation is the result of evaluating one formula: the resolved
// ingredient list, per-entry findings and aggregate group warnings.
// Identical inputs always produce identical results.
type Evaluation struct {
	Ingredients   []eval.CategorizedIngredient
	Findings      []eval.Finding
	GroupWarnings []eval.GroupWarning
}

// EvaluateFormula canonicalizes the formula's identifiers, fetches the
// regulatory entries reachable by them in one batched lookup, and runs
// both evaluators. The product type must be leave-on or rinse-off.
func (e *Engine) EvaluateFormula(ctx context.Context, ingredients []FormulaIngredient, productType store.Applicability) (*Evaluation, error) {
	if productType != store.ApplyLeaveOn && productType != store.ApplyRinseOff {
		return nil, fmt.Errorf("%w: product type must be %q or %q, got %q",
			internalerr.ErrInvalidInput, store.ApplyLeaveOn, store.ApplyRinseOff, productType)
	}

	raws := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		raws = append(raws, identifierOf(ing))
	}

	cache, err := normalize.NewCache(e.cacheSize)
	if err != nil {
		return nil, err
	}
	canonical, _ := normalize.Batch(ctx, raws, cache, e.synonyms)

	resolved := make([]eval.ResolvedIngredient, len(ingredients))
	canonicals := make([]string, 0, len(ingredients))
	for i, ing := range ingredients {
		c := canonical[strings.TrimSpace(identifierOf(ing))]
		resolved[i] = eval.ResolvedIngredient{
			Name:      ing.Name,
			Canonical: c,
			Percent:   ing.Percent,
		}
		if c != "" {
			canonicals = append(canonicals, c)
		}
	}

	entries, err := e.store.EntriesByCanonical(ctx, canonicals)
	if err != nil {
		return nil, fmt.Errorf("fetch regulatory entries: %w", err)
	}

	result := &Evaluation{
		Findings: eval.Evaluate(resolved, productType, entries),
	}
	if e.knowledge != nil {
		result.Ingredients = e.knowledge.Annotate(resolved, productType)
		result.GroupWarnings = eval.EvaluateGroups(result.Ingredients)
	} else {
		for _, r := range resolved {
			result.Ingredients = append(result.Ingredients, eval.CategorizedIngredient{ResolvedIngredient: r})
		}
	}
	return result, nil
}

func identifierOf(ing FormulaIngredient) string {
	if strings.TrimSpace(ing.INCI) != "" {
		return ing.INCI
	}
	return ing.Name
}
