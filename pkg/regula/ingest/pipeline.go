package ingest

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/formulab/regula/pkg/regula/internalerr"
	"github.com/formulab/regula/pkg/regula/normalize"
	"github.com/formulab/regula/pkg/regula/store"
)

// Insertion batch size for the persist stage.
const batchSize = 100

// Number of would-be entries echoed back by a dry run.
const previewCap = 10

// Defaults for optional invocation parameters.
const (
	DefaultSource = "regulatory import"
	DefaultRefURL = "https://ec.europa.eu/growth/tools-databases/cosing/"
)

// Options are the invocation parameters of one ingestion run.
type Options struct {
	Tier         store.Tier // required
	Source       string     // defaults to DefaultSource
	RefURL       string     // defaults to DefaultRefURL
	DryRun       bool       // run every stage except Persist
	SkipDupCheck bool       // skip the duplicate-check stage entirely
	Overrides    Overrides
	CacheSize    int // identifier cache size, 0 for default
}

// Report is the structured result of one ingestion run. It is built
// incrementally during the run and returned, never persisted.
type Report struct {
	TotalRows   int
	Skipped     int
	Inserted    int
	Duplicates  int
	Failed      int
	WouldInsert int // dry runs only
	Preview     []string
	Warnings    []string
	Errors      []string
	DryRun      bool
}

// Success reports whether the run completed without errors. Skips and
// duplicates are not failures.
func (r *Report) Success() bool {
	return len(r.Errors) == 0
}

func (r *Report) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Pipeline ingests regulatory reference CSVs: tokenize, detect
// columns, canonicalize identifiers, map rows to entries, drop
// duplicates, persist in batches. One Run call is sequential and owns
// its own identifier cache; independent runs may proceed concurrently
// against the same store.
type Pipeline struct {
	store    store.Store
	synonyms normalize.SynonymSource
	entropy  *ulid.MonotonicEntropy
}

// NewPipeline creates an ingestion pipeline over the given store and
// synonym source.
func NewPipeline(st store.Store, synonyms normalize.SynonymSource) *Pipeline {
	return &Pipeline{
		store:    st,
		synonyms: synonyms,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Run executes one ingestion over raw CSV text. Fatal configuration
// problems (invalid tier, unparseable source, no identifier column)
// return an error alongside a report describing what happened; row
// defects and storage degradation are recorded in the report instead.
func (p *Pipeline) Run(ctx context.Context, raw string, opts Options) (*Report, error) {
	report := &Report{DryRun: opts.DryRun}

	if err := validateTier(opts.Tier); err != nil {
		report.errorf("%v", err)
		return report, err
	}
	if opts.Source == "" {
		opts.Source = DefaultSource
	}
	if opts.RefURL == "" {
		opts.RefURL = DefaultRefURL
	}

	// Parse
	tab, err := NewTokenizer().Parse(raw)
	if err != nil {
		report.errorf("parse: %v", err)
		return report, err
	}
	report.TotalRows = len(tab.Rows)
	report.Warnings = append(report.Warnings, tab.LineErrors...)
	if len(tab.Rows) == 0 {
		err := fmt.Errorf("parse: %w", internalerr.ErrEmptySource)
		report.errorf("%v", err)
		return report, err
	}

	// DetectColumns
	cols, err := DetectColumns(tab.Headers, opts.Overrides)
	if err != nil {
		report.errorf("detect columns: %v", err)
		return report, err
	}

	// ExtractAndNormalizeIdentifiers
	identifiers := make([]string, 0, len(tab.Rows))
	rowIDs := make([]string, len(tab.Rows))
	for i, row := range tab.Rows {
		id := ExtractIdentifier(row, cols)
		rowIDs[i] = id
		if id == "" {
			report.Skipped++
			report.warnf("row %d: no identifier, skipped", i+1)
			continue
		}
		identifiers = append(identifiers, id)
	}

	cache, err := normalize.NewCache(opts.CacheSize)
	if err != nil {
		report.errorf("normalize: %v", err)
		return report, err
	}
	canonical, warnings := normalize.Batch(ctx, identifiers, cache, p.synonyms)
	report.Warnings = append(report.Warnings, warnings...)

	// MapRows
	var entries []store.RegulatoryEntry
	for i, row := range tab.Rows {
		if rowIDs[i] == "" {
			continue
		}
		entry, err := p.mapRow(row, cols, canonical[rowIDs[i]], opts)
		if err != nil {
			report.Skipped++
			report.warnf("row %d: %v, skipped", i+1, err)
			continue
		}
		entries = append(entries, entry)
	}

	// CheckDuplicates
	entries = p.checkDuplicates(ctx, entries, opts, report)

	// Persist
	if opts.DryRun {
		report.WouldInsert = len(entries)
		for i, e := range entries {
			if i == previewCap {
				break
			}
			report.Preview = append(report.Preview, fmt.Sprintf("%s [%s/%s]", e.Canonical, e.Tier, e.Applicability))
		}
		return report, nil
	}

	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]
		if err := p.store.InsertEntries(ctx, batch); err != nil {
			report.Failed += len(batch)
			report.errorf("persist batch %d (%d rows): %v", start/batchSize+1, len(batch), err)
			continue
		}
		report.Inserted += len(batch)
	}

	return report, nil
}

// checkDuplicates drops entries whose idempotency key already exists in
// storage. A failing check degrades to a warning and the run proceeds
// without deduplication; when the caller asked to skip the check, no
// lookup is attempted and no warning is emitted.
func (p *Pipeline) checkDuplicates(ctx context.Context, entries []store.RegulatoryEntry, opts Options, report *Report) []store.RegulatoryEntry {
	if opts.SkipDupCheck || len(entries) == 0 {
		return entries
	}

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.DupKey()
	}

	existing, err := p.store.ExistingDupKeys(ctx, keys)
	if err != nil {
		report.warnf("duplicate check failed, proceeding without deduplication: %v", err)
		return entries
	}

	kept := entries[:0]
	for _, e := range entries {
		if _, dup := existing[e.DupKey()]; dup {
			report.Duplicates++
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// mapRow builds a RegulatoryEntry from one parsed row. Roles without a
// detected column stay at their zero value; a non-numeric cap cell is a
// structural defect that skips the row.
func (p *Pipeline) mapRow(row map[string]string, cols ColumnMap, canonical string, opts Options) (store.RegulatoryEntry, error) {
	entry := store.RegulatoryEntry{
		ID:            ulid.MustNew(ulid.Now(), p.entropy).String(),
		Canonical:     canonical,
		Tier:          opts.Tier,
		Applicability: store.ApplyBoth,
		RefURL:        opts.RefURL,
		Source:        opts.Source,
	}

	if cols.Applicability != "" {
		entry.Applicability = store.ParseApplicability(row[cols.Applicability])
	}
	if cols.Conditions != "" {
		entry.Conditions = strings.TrimSpace(row[cols.Conditions])
	}

	// The prohibited tier forbids entirely; it never carries a cap.
	if opts.Tier.Numeric() && cols.MaxPercentage != "" {
		cap, err := parsePercentage(row[cols.MaxPercentage])
		if err != nil {
			return entry, err
		}
		entry.MaxPct = cap
	}

	entry.ActiveFrom = parseRowDate(row, cols.ActiveFrom)
	entry.ActiveTo = parseRowDate(row, cols.ActiveTo)

	if err := entry.Validate(); err != nil {
		return entry, err
	}
	return entry, nil
}

// parsePercentage reads a cap cell: empty or placeholder means no
// numeric cap, otherwise the cell must contain a number, with an
// optional percent sign and decimal comma tolerated.
func parsePercentage(cell string) (*float64, error) {
	v := strings.TrimSpace(cell)
	if v == "" || v == Placeholder {
		return nil, nil
	}
	v = strings.TrimSpace(strings.TrimSuffix(v, "%"))
	v = strings.ReplaceAll(v, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable maximum percentage %q", cell)
	}
	return &f, nil
}

// parseRowDate reads an active-window cell; unparseable or absent
// dates degrade to nil rather than failing the row.
func parseRowDate(row map[string]string, column string) *time.Time {
	if column == "" {
		return nil
	}
	v := strings.TrimSpace(row[column])
	if v == "" || v == Placeholder {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func validateTier(t store.Tier) error {
	switch t {
	case store.TierProhibited, store.TierRestrictedA, store.TierRestrictedB:
		return nil
	case "":
		return fmt.Errorf("%w: restriction tier is required", internalerr.ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown restriction tier %q", internalerr.ErrInvalidConfig, t)
	}
}
