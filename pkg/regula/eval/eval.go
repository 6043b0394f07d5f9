// Package eval computes compliance findings for a resolved formula
// against stored regulatory entries. Both evaluators are pure,
// stateless functions: identical inputs always produce identical
// outputs, and they are safe to call concurrently.
package eval

import (
	"fmt"
	"strings"

	"github.com/formulab/regula/pkg/regula/store"
)

// ResolvedIngredient is a formula ingredient after identifier
// canonicalization. Canonical is the synonym-resolved form, or the
// trimmed original when no synonym exists.
type ResolvedIngredient struct {
	Name      string
	Canonical string
	Percent   float64 // declared percentage, 0-100
}

// Finding is one triggered compliance issue: an ingredient against one
// regulatory entry. Findings are value objects, recomputed on every
// evaluation, never persisted.
type Finding struct {
	EntryID    string
	Ingredient ResolvedIngredient
	Tier       store.Tier
	Cap        *float64 // nil for prohibited-tier findings
	Actual     float64
	Reason     string
}

// Evaluate checks every ingredient against every regulatory entry
// reachable by its case-folded canonical identifier.
//
// Per entry: applicability must cover the formula's product type;
// a prohibited-tier entry triggers unconditionally; a numeric-cap
// tier triggers only when a cap is present and the declared percentage
// strictly exceeds it (equality is compliant). Entries are evaluated
// independently, one finding per triggering entry. An ingredient with
// an empty canonical identifier yields no findings: that is "no
// matching regulatory data", not "known compliant".
func Evaluate(ingredients []ResolvedIngredient, productType store.Applicability, entries map[string][]store.RegulatoryEntry) []Finding {
	var findings []Finding

	for _, ing := range ingredients {
		key := strings.ToLower(strings.TrimSpace(ing.Canonical))
		if key == "" {
			continue
		}
		for _, e := range entries[key] {
			if !e.Applicability.AppliesTo(productType) {
				continue
			}
			if f, ok := evaluateEntry(ing, e); ok {
				findings = append(findings, f)
			}
		}
	}

	return findings
}

func evaluateEntry(ing ResolvedIngredient, e store.RegulatoryEntry) (Finding, bool) {
	if e.Tier == store.TierProhibited {
		return Finding{
			EntryID:    e.ID,
			Ingredient: ing,
			Tier:       e.Tier,
			Actual:     ing.Percent,
			Reason:     prohibitedReason(ing, e),
		}, true
	}

	// Numeric-cap tier: no cap, no finding; at or under cap, compliant.
	if e.MaxPct == nil || ing.Percent <= *e.MaxPct {
		return Finding{}, false
	}

	return Finding{
		EntryID:    e.ID,
		Ingredient: ing,
		Tier:       e.Tier,
		Cap:        e.MaxPct,
		Actual:     ing.Percent,
		Reason:     capReason(ing, e),
	}, true
}

func prohibitedReason(ing ResolvedIngredient, e store.RegulatoryEntry) string {
	return fmt.Sprintf("%s is listed as %s: not permitted at any concentration", ing.Name, e.Tier)
}

func capReason(ing ResolvedIngredient, e store.RegulatoryEntry) string {
	reason := fmt.Sprintf("%s is listed as %s: declared %.2f%% exceeds the %.2f%% maximum",
		ing.Name, e.Tier, ing.Percent, *e.MaxPct)
	if e.Conditions != "" {
		reason += "; " + e.Conditions
	}
	return reason
}
