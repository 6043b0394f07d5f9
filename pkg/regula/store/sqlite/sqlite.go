package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/formulab/regula/pkg/regula/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and initializes
// the regulatory schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS regulatory_entries (
	id TEXT PRIMARY KEY,
	canonical TEXT NOT NULL,
	canonical_folded TEXT NOT NULL,
	tier TEXT NOT NULL,
	applicability TEXT NOT NULL,
	max_pct REAL,
	conditions TEXT,
	ref_url TEXT,
	source TEXT,
	active_from TEXT,
	active_to TEXT,
	dup_key TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_canonical_folded
	ON regulatory_entries(canonical_folded);

CREATE INDEX IF NOT EXISTS idx_entries_dup_key
	ON regulatory_entries(dup_key);

CREATE TABLE IF NOT EXISTS synonyms (
	variant TEXT PRIMARY KEY,
	canonical TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// InsertEntries persists a batch of entries in one transaction.
func (s *sqliteStore) InsertEntries(ctx context.Context, entries []store.RegulatoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO regulatory_entries
	(id, canonical, canonical_folded, tier, applicability, max_pct,
	 conditions, ref_url, source, active_from, active_to, dup_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(
			ctx,
			e.ID,
			e.Canonical,
			strings.ToLower(strings.TrimSpace(e.Canonical)),
			string(e.Tier),
			string(e.Applicability),
			nullFloat(e.MaxPct),
			e.Conditions,
			e.RefURL,
			e.Source,
			nullDate(e.ActiveFrom),
			nullDate(e.ActiveTo),
			e.DupKey(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// EntriesByCanonical retrieves all entries for the given identifiers,
// keyed by the case-folded identifier.
func (s *sqliteStore) EntriesByCanonical(ctx context.Context, canonicals []string) (map[string][]store.RegulatoryEntry, error) {
	unique := uniqueFolded(canonicals)
	if len(unique) == 0 {
		return map[string][]store.RegulatoryEntry{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]interface{}, 0, len(unique))
	for _, c := range unique {
		args = append(args, c)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, canonical, canonical_folded, tier, applicability, max_pct,
       conditions, ref_url, source, active_from, active_to
FROM regulatory_entries
WHERE canonical_folded IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]store.RegulatoryEntry, len(unique))
	for rows.Next() {
		var (
			e          store.RegulatoryEntry
			folded     string
			maxPct     sql.NullFloat64
			activeFrom sql.NullString
			activeTo   sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.Canonical, &folded, &e.Tier, &e.Applicability,
			&maxPct, &e.Conditions, &e.RefURL, &e.Source,
			&activeFrom, &activeTo,
		); err != nil {
			return nil, err
		}
		if maxPct.Valid {
			v := maxPct.Float64
			e.MaxPct = &v
		}
		e.ActiveFrom = parseDate(activeFrom)
		e.ActiveTo = parseDate(activeTo)
		result[folded] = append(result[folded], e)
	}
	return result, rows.Err()
}

// ExistingDupKeys reports which duplicate keys are already stored.
func (s *sqliteStore) ExistingDupKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	unique := uniqueStrings(keys)
	if len(unique) == 0 {
		return map[string]struct{}{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]interface{}, 0, len(unique))
	for _, k := range unique {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT dup_key FROM regulatory_entries WHERE dup_key IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		existing[k] = struct{}{}
	}
	return existing, rows.Err()
}

// LookupSynonyms resolves case-folded variants to canonical forms.
func (s *sqliteStore) LookupSynonyms(ctx context.Context, keys []string) (map[string]string, error) {
	unique := uniqueFolded(keys)
	if len(unique) == 0 {
		return map[string]string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]interface{}, 0, len(unique))
	for _, k := range unique {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT variant, canonical FROM synonyms WHERE variant IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var variant, canonical string
		if err := rows.Scan(&variant, &canonical); err != nil {
			return nil, err
		}
		result[variant] = canonical
	}
	return result, rows.Err()
}

// UpsertSynonym adds or replaces a variant → canonical mapping.
// Variants are stored case-folded so lookups can use folded keys.
func (s *sqliteStore) UpsertSynonym(ctx context.Context, variant, canonical string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO synonyms (variant, canonical) VALUES (?, ?)
ON CONFLICT(variant) DO UPDATE SET canonical=excluded.canonical`,
		strings.ToLower(strings.TrimSpace(variant)),
		strings.TrimSpace(canonical))
	return err
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}

func parseDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s.String)
	if err != nil {
		return nil
	}
	return &t
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func uniqueFolded(in []string) []string {
	folded := make([]string, 0, len(in))
	for _, s := range in {
		folded = append(folded, strings.ToLower(strings.TrimSpace(s)))
	}
	return uniqueStrings(folded)
}
