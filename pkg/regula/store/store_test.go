package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/formulab/regula/pkg/regula/internalerr"
)

func pct(v float64) *float64 { return &v }

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"prohibited":   TierProhibited,
		"Annex II":     TierProhibited,
		"iii":          TierRestrictedA,
		"restricted-b": TierRestrictedB,
		"ANNEX VI":     TierRestrictedB,
	}
	for in, want := range cases {
		got, err := ParseTier(in)
		if err != nil || got != want {
			t.Errorf("ParseTier(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseTier("annex ix"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("unknown tier should error, got %v", err)
	}
}

func TestParseApplicabilityDefaultsToBoth(t *testing.T) {
	cases := map[string]Applicability{
		"Rinse-off products":    ApplyRinseOff,
		"Leave-on":              ApplyLeaveOn,
		"All products":          ApplyBoth,
		"":                      ApplyBoth,
		"some unmatched phrase": ApplyBoth,
	}
	for in, want := range cases {
		if got := ParseApplicability(in); got != want {
			t.Errorf("ParseApplicability(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAppliesTo(t *testing.T) {
	if !ApplyBoth.AppliesTo(ApplyLeaveOn) || !ApplyBoth.AppliesTo(ApplyRinseOff) {
		t.Error("both applies everywhere")
	}
	if ApplyLeaveOn.AppliesTo(ApplyRinseOff) {
		t.Error("leave-on-only must not apply to rinse-off")
	}
	if !ApplyRinseOff.AppliesTo(ApplyRinseOff) {
		t.Error("matching product type applies")
	}
}

func TestValidateProhibitedCapInvariant(t *testing.T) {
	e := RegulatoryEntry{Canonical: "Hydroquinone", Tier: TierProhibited, MaxPct: pct(1)}
	if err := e.Validate(); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("prohibited entry with a cap must be invalid, got %v", err)
	}

	e.MaxPct = nil
	if err := e.Validate(); err != nil {
		t.Errorf("valid entry rejected: %v", err)
	}

	e.Canonical = "   "
	if err := e.Validate(); err == nil {
		t.Error("empty canonical must be invalid")
	}
}

func TestDupKeyNormalization(t *testing.T) {
	a := RegulatoryEntry{Canonical: " Resorcinol ", Tier: TierRestrictedA, Applicability: ApplyBoth, MaxPct: pct(2)}
	b := RegulatoryEntry{Canonical: "RESORCINOL", Tier: TierRestrictedA, Applicability: ApplyBoth, MaxPct: pct(2)}
	if a.DupKey() != b.DupKey() {
		t.Errorf("case and whitespace must not affect the key: %q vs %q", a.DupKey(), b.DupKey())
	}

	c := b
	c.MaxPct = nil
	if !strings.HasSuffix(c.DupKey(), "|none") {
		t.Errorf("nil cap should use the sentinel: %q", c.DupKey())
	}
	d := b
	d.MaxPct = pct(0)
	if d.DupKey() == c.DupKey() {
		t.Error("a zero cap must not collide with the nil sentinel")
	}
}
