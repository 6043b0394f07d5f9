package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeSource counts lookups and serves a fixed synonym table.
type fakeSource struct {
	table map[string]string
	calls int
	keys  [][]string
	err   error
}

func (f *fakeSource) LookupSynonyms(ctx context.Context, keys []string) (map[string]string, error) {
	f.calls++
	f.keys = append(f.keys, keys)
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]string)
	for _, k := range keys {
		if c, ok := f.table[k]; ok {
			result[k] = c
		}
	}
	return result, nil
}

func newCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(0)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return cache
}

func TestBatchResolvesSynonyms(t *testing.T) {
	src := &fakeSource{table: map[string]string{"quinol": "Hydroquinone"}}
	cache := newCache(t)

	result, warnings := Batch(context.Background(), []string{" Quinol ", "Resorcinol"}, cache, src)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if result["Quinol"] != "Hydroquinone" {
		t.Errorf("synonym not resolved: %v", result)
	}
	if result["Resorcinol"] != "Resorcinol" {
		t.Errorf("unmatched identifier should be self-canonical: %v", result)
	}
}

func TestBatchDeduplicatesAndFoldsLookupKeys(t *testing.T) {
	src := &fakeSource{table: map[string]string{}}
	cache := newCache(t)

	Batch(context.Background(), []string{"Linalool", "LINALOOL", " linalool"}, cache, src)

	if src.calls != 1 {
		t.Fatalf("expected one batched lookup, got %d", src.calls)
	}
	if len(src.keys[0]) != 1 || src.keys[0][0] != "linalool" {
		t.Errorf("lookup keys should be deduplicated and case-folded: %v", src.keys[0])
	}
}

func TestBatchCoversEverySpelling(t *testing.T) {
	src := &fakeSource{table: map[string]string{"linalool": "Linalool"}}
	cache := newCache(t)

	result, _ := Batch(context.Background(), []string{"Linalool", "LINALOOL"}, cache, src)
	if result["Linalool"] != "Linalool" || result["LINALOOL"] != "Linalool" {
		t.Errorf("every distinct spelling should map: %v", result)
	}
}

func TestBatchUsesCacheAcrossCalls(t *testing.T) {
	src := &fakeSource{table: map[string]string{"quinol": "Hydroquinone"}}
	cache := newCache(t)
	ctx := context.Background()

	Batch(ctx, []string{"Quinol"}, cache, src)
	result, _ := Batch(ctx, []string{"quinol"}, cache, src)

	if src.calls != 1 {
		t.Errorf("second call should be served from cache, got %d lookups", src.calls)
	}
	if result["quinol"] != "Hydroquinone" {
		t.Errorf("cached resolution lost: %v", result)
	}
}

func TestBatchLookupFailureDegrades(t *testing.T) {
	src := &fakeSource{err: errors.New("synonym table offline")}
	cache := newCache(t)

	result, warnings := Batch(context.Background(), []string{"Quinol"}, cache, src)

	if len(warnings) != 1 || !strings.Contains(warnings[0], "synonym table offline") {
		t.Fatalf("expected a degradation warning, got %v", warnings)
	}
	if result["Quinol"] != "Quinol" {
		t.Errorf("unresolved identifier should be self-canonical: %v", result)
	}
}

func TestBatchSkipsEmptyInput(t *testing.T) {
	src := &fakeSource{}
	cache := newCache(t)

	result, warnings := Batch(context.Background(), []string{"", "   "}, cache, src)
	if len(result) != 0 || len(warnings) != 0 || src.calls != 0 {
		t.Errorf("empty identifiers should be ignored: result=%v warnings=%v calls=%d",
			result, warnings, src.calls)
	}
}
