package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/formulab/regula/pkg/regula/store"
)

// Store is an in-memory implementation of store.Store for tests.
// The error fields inject failures into specific operations so the
// pipeline's degradation branches can be exercised.
type Store struct {
	mu       sync.RWMutex
	entries  []store.RegulatoryEntry
	synonyms map[string]string

	DupCheckErr error // returned by ExistingDupKeys when set
	InsertErr   error // returned by InsertEntries when set
	SynonymErr  error // returned by LookupSynonyms when set

	// FailInsertFrom makes InsertErr apply only from the Nth
	// InsertEntries call (1-based); 0 means every call fails.
	FailInsertFrom int
	insertCalls    int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{synonyms: make(map[string]string)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// InsertEntries appends a batch of entries.
func (s *Store) InsertEntries(ctx context.Context, entries []store.RegulatoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertCalls++
	if s.InsertErr != nil && s.insertCalls >= s.FailInsertFrom {
		return s.InsertErr
	}
	s.entries = append(s.entries, entries...)
	return nil
}

// EntriesByCanonical returns entries keyed by case-folded identifier.
func (s *Store) EntriesByCanonical(ctx context.Context, canonicals []string) (map[string][]store.RegulatoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(canonicals))
	for _, c := range canonicals {
		wanted[fold(c)] = struct{}{}
	}

	result := make(map[string][]store.RegulatoryEntry)
	for _, e := range s.entries {
		key := fold(e.Canonical)
		if _, ok := wanted[key]; ok {
			result[key] = append(result[key], e)
		}
	}
	return result, nil
}

// ExistingDupKeys reports which duplicate keys are already stored.
func (s *Store) ExistingDupKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	if s.DupCheckErr != nil {
		return nil, s.DupCheckErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := make(map[string]struct{}, len(s.entries))
	for _, e := range s.entries {
		stored[e.DupKey()] = struct{}{}
	}

	existing := make(map[string]struct{})
	for _, k := range keys {
		if _, ok := stored[k]; ok {
			existing[k] = struct{}{}
		}
	}
	return existing, nil
}

// LookupSynonyms resolves case-folded variants to canonical forms.
func (s *Store) LookupSynonyms(ctx context.Context, keys []string) (map[string]string, error) {
	if s.SynonymErr != nil {
		return nil, s.SynonymErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string)
	for _, k := range keys {
		if canonical, ok := s.synonyms[fold(k)]; ok {
			result[fold(k)] = canonical
		}
	}
	return result, nil
}

// UpsertSynonym adds or replaces a variant → canonical mapping.
func (s *Store) UpsertSynonym(ctx context.Context, variant, canonical string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synonyms[fold(variant)] = strings.TrimSpace(canonical)
	return nil
}

// Entries returns a copy of all stored entries, for assertions.
func (s *Store) Entries() []store.RegulatoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.RegulatoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
