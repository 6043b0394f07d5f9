package ingest

import (
	"fmt"
	"strings"

	"github.com/formulab/regula/pkg/regula/internalerr"
)

// ColumnMap binds logical roles to actual header names. An empty field
// means the role was not found; only the identifier (primary or
// fallback) is required for ingestion to proceed.
type ColumnMap struct {
	Identifier         string
	IdentifierFallback string
	Applicability      string
	MaxPercentage      string
	Conditions         string
	ActiveFrom         string
	ActiveTo           string
}

// Overrides are explicit column-name assignments that take precedence
// over heuristic detection. Empty fields fall back to detection.
type Overrides struct {
	Identifier         string `yaml:"identifier"`
	IdentifierFallback string `yaml:"identifier_fallback"`
	Applicability      string `yaml:"applicability"`
	MaxPercentage      string `yaml:"max_percentage"`
	Conditions         string `yaml:"conditions"`
	ActiveFrom         string `yaml:"active_from"`
	ActiveTo           string `yaml:"active_to"`
}

// Placeholder is the token regulatory exports use for "no value" in
// identifier cells. Only this exact string (after trimming) is treated
// as empty.
const Placeholder = "-"

// DetectColumns infers which headers hold which roles by keyword
// matching on the lower-cased header names, then applies overrides.
// An override naming a header that is not present is a configuration
// error. A result with neither identifier column is an error: the
// identifier is the single hard precondition for ingestion.
func DetectColumns(headers []string, ov Overrides) (ColumnMap, error) {
	cm := ColumnMap{}
	claimed := make(map[string]bool, len(headers))

	assign := func(target *string, match func(string) bool) {
		for _, h := range headers {
			if claimed[h] {
				continue
			}
			if match(strings.ToLower(h)) {
				*target = h
				claimed[h] = true
				return
			}
		}
	}

	assign(&cm.Identifier, func(h string) bool {
		return strings.Contains(h, "identified") &&
			(strings.Contains(h, "ingredient") || strings.Contains(h, "substance"))
	})
	assign(&cm.IdentifierFallback, func(h string) bool {
		return (strings.Contains(h, "chemical") && strings.Contains(h, "name")) ||
			strings.Contains(h, "inn")
	})
	assign(&cm.Applicability, func(h string) bool {
		return strings.Contains(h, "product type") || strings.Contains(h, "applicab") ||
			strings.Contains(h, "rinse") || strings.Contains(h, "leave")
	})
	assign(&cm.MaxPercentage, func(h string) bool {
		return strings.Contains(h, "maximum") || strings.Contains(h, "concentration") ||
			strings.Contains(h, "limit")
	})
	assign(&cm.Conditions, func(h string) bool {
		return strings.Contains(h, "condition") || strings.Contains(h, "wording")
	})
	assign(&cm.ActiveFrom, func(h string) bool {
		return strings.Contains(h, "valid from") || strings.Contains(h, "active from") ||
			strings.Contains(h, "start date")
	})
	assign(&cm.ActiveTo, func(h string) bool {
		return strings.Contains(h, "valid to") || strings.Contains(h, "active to") ||
			strings.Contains(h, "end date")
	})

	if err := applyOverrides(&cm, headers, ov); err != nil {
		return cm, err
	}

	if cm.Identifier == "" && cm.IdentifierFallback == "" {
		return cm, fmt.Errorf("%w: headers %v contain neither an identifier nor a fallback identifier column",
			internalerr.ErrNoIdentifierColumn, headers)
	}
	return cm, nil
}

func applyOverrides(cm *ColumnMap, headers []string, ov Overrides) error {
	set := func(target *string, name, role string) error {
		if name == "" {
			return nil
		}
		for _, h := range headers {
			if h == name {
				*target = name
				return nil
			}
		}
		return fmt.Errorf("%w: %s override %q does not match any header",
			internalerr.ErrInvalidConfig, role, name)
	}

	if err := set(&cm.Identifier, ov.Identifier, "identifier"); err != nil {
		return err
	}
	if err := set(&cm.IdentifierFallback, ov.IdentifierFallback, "identifier_fallback"); err != nil {
		return err
	}
	if err := set(&cm.Applicability, ov.Applicability, "applicability"); err != nil {
		return err
	}
	if err := set(&cm.MaxPercentage, ov.MaxPercentage, "max_percentage"); err != nil {
		return err
	}
	if err := set(&cm.Conditions, ov.Conditions, "conditions"); err != nil {
		return err
	}
	if err := set(&cm.ActiveFrom, ov.ActiveFrom, "active_from"); err != nil {
		return err
	}
	return set(&cm.ActiveTo, ov.ActiveTo, "active_to")
}

// ExtractIdentifier reads a row's identifier with fallback precedence:
// the primary column wins unless it is empty, whitespace-only or the
// placeholder token; then the fallback column applies under the same
// rule. Returns the trimmed identifier, or "" when neither column has
// a usable value.
func ExtractIdentifier(row map[string]string, cm ColumnMap) string {
	if v := usableValue(row, cm.Identifier); v != "" {
		return v
	}
	return usableValue(row, cm.IdentifierFallback)
}

func usableValue(row map[string]string, column string) string {
	if column == "" {
		return ""
	}
	v := strings.TrimSpace(row[column])
	if v == Placeholder {
		return ""
	}
	return v
}
