package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
)

func TestNewStoreSupportsMemory(t *testing.T) {
	store, err := NewStore(context.Background(), Options{Type: "memory"})
	if err != nil {
		t.Fatalf("NewStore memory: %v", err)
	}
	defer store.Close()

	n := domain.Notice{Title: "a", Link: "https://x.test/a"}
	if outcome, err := store.Persist(context.Background(), n); err != nil || outcome != Inserted {
		t.Fatalf("first persist = %v, %v", outcome, err)
	}
	if outcome, err := store.Persist(context.Background(), n); err != nil || outcome != Duplicate {
		t.Fatalf("second persist = %v, %v", outcome, err)
	}
	if mem := store.(*MemoryStore); mem.Len() != 1 {
		t.Fatalf("expected 1 stored notice, got %d", mem.Len())
	}
}

func TestNewStoreOpensBolt(t *testing.T) {
	store, err := NewStore(context.Background(), Options{Type: " BBOLT ", BBoltPath: filepath.Join(t.TempDir(), "n.db")})
	if err != nil {
		t.Fatalf("NewStore bbolt: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewStoreRejectsUnknownOrIncomplete(t *testing.T) {
	if _, err := NewStore(context.Background(), Options{Type: "mysql"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore(context.Background(), Options{Type: "bbolt"}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}

func TestOutcomeString(t *testing.T) {
	if Inserted.String() != "inserted" || Duplicate.String() != "duplicate" || Outcome(0).String() != "unknown" {
		t.Fatalf("unexpected outcome strings")
	}
}
