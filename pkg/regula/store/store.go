package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/formulab/regula/pkg/regula/internalerr"
)

// Tier is the regulatory restriction category of an entry.
// The source data calls these Annex II (prohibited), Annex III and
// Annex VI; here they are a closed enum.
type Tier string

const (
	TierProhibited  Tier = "prohibited"
	TierRestrictedA Tier = "restricted-a"
	TierRestrictedB Tier = "restricted-b"
)

// ParseTier maps a raw tier label to a Tier value.
// Accepts both the enum spelling and the annex numbering used by the
// regulatory exports ("II", "III", "VI", "annex-ii", ...).
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prohibited", "ii", "annex-ii", "annex ii":
		return TierProhibited, nil
	case "restricted-a", "iii", "annex-iii", "annex iii":
		return TierRestrictedA, nil
	case "restricted-b", "vi", "annex-vi", "annex vi":
		return TierRestrictedB, nil
	}
	return "", fmt.Errorf("%w: unknown restriction tier %q", internalerr.ErrInvalidInput, s)
}

// Numeric reports whether the tier carries a numeric concentration cap.
// The prohibited tier is an absolute ban and never has one.
func (t Tier) Numeric() bool {
	return t == TierRestrictedA || t == TierRestrictedB
}

// Applicability says which product types an entry applies to.
type Applicability string

const (
	ApplyLeaveOn  Applicability = "leave-on"
	ApplyRinseOff Applicability = "rinse-off"
	ApplyBoth     Applicability = "both"
)

// ParseApplicability maps free source text to a variant.
// The mapping is exhaustive: anything that does not clearly say
// rinse-off or leave-on defaults to the permissive "both" variant.
func ParseApplicability(s string) Applicability {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "rinse"):
		return ApplyRinseOff
	case strings.Contains(l, "leave"):
		return ApplyLeaveOn
	default:
		return ApplyBoth
	}
}

// AppliesTo reports whether an entry with this applicability covers the
// given product type.
func (a Applicability) AppliesTo(productType Applicability) bool {
	return a == ApplyBoth || a == productType
}

// RegulatoryEntry is one row of ingested reference data, immutable once
// persisted. Created only by the ingestion pipeline.
type RegulatoryEntry struct {
	ID            string
	Canonical     string // synonym-resolved, trimmed identifier
	Tier          Tier
	Applicability Applicability
	MaxPct        *float64 // nil: tier forbids entirely, or no numeric cap
	Conditions    string
	RefURL        string
	Source        string
	ActiveFrom    *time.Time
	ActiveTo      *time.Time
}

// Validate checks the structural invariants of an entry.
func (e RegulatoryEntry) Validate() error {
	if strings.TrimSpace(e.Canonical) == "" {
		return fmt.Errorf("%w: empty canonical identifier", internalerr.ErrInvalidInput)
	}
	switch e.Tier {
	case TierProhibited, TierRestrictedA, TierRestrictedB:
	default:
		return fmt.Errorf("%w: unknown tier %q", internalerr.ErrInvalidInput, e.Tier)
	}
	if e.Tier == TierProhibited && e.MaxPct != nil {
		return fmt.Errorf("%w: prohibited entry carries a numeric cap", internalerr.ErrInvalidInput)
	}
	return nil
}

// DupKey is the idempotency key: (canonical, tier, applicability, cap).
// A nil cap is normalized to the "none" sentinel; real caps are printed
// with four decimals so a zero cap can never collide with the sentinel.
func (e RegulatoryEntry) DupKey() string {
	cap := "none"
	if e.MaxPct != nil {
		cap = fmt.Sprintf("%.4f", *e.MaxPct)
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(e.Canonical)),
		string(e.Tier),
		string(e.Applicability),
		cap,
	}, "|")
}

// Store is the persistence contract for regulatory reference data.
// Implementations must support batched IN-list lookups by canonical
// identifier; the duplicate-key check is best-effort, not transactional.
type Store interface {
	Close() error

	// InsertEntries persists a batch of entries. Partial batches are the
	// caller's concern; a failed call fails the whole batch.
	InsertEntries(ctx context.Context, entries []RegulatoryEntry) error

	// EntriesByCanonical returns all entries reachable by each of the
	// given identifiers, keyed by the case-folded identifier.
	EntriesByCanonical(ctx context.Context, canonicals []string) (map[string][]RegulatoryEntry, error)

	// ExistingDupKeys reports which of the given duplicate keys are
	// already present in storage.
	ExistingDupKeys(ctx context.Context, keys []string) (map[string]struct{}, error)

	// LookupSynonyms resolves case-folded raw identifiers to canonical
	// forms from the synonym table. Missing keys are absent from the map.
	LookupSynonyms(ctx context.Context, keys []string) (map[string]string, error)

	// UpsertSynonym adds or replaces a variant → canonical mapping.
	UpsertSynonym(ctx context.Context, variant, canonical string) error
}
