package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "score.json")

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if total, err := store.Add(context.Background(), 11.25); err != nil || total != 11.25 {
		t.Fatalf("add: total=%v err=%v", total, err)
	}
	if total, err := store.Add(context.Background(), 3); err != nil || total != 14.25 {
		t.Fatalf("add: total=%v err=%v", total, err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	// reload
	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	total, err := reloaded.Total(context.Background())
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 14.25 {
		t.Fatalf("expected total 14.25, got %v", total)
	}
	if reloaded.Checks() != 2 {
		t.Fatalf("expected 2 checks, got %d", reloaded.Checks())
	}
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStoreRejectsNegativeDelta(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "score.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(context.Background(), -2); err == nil {
		t.Fatal("expected error")
	}
	if total, _ := store.Total(context.Background()); total != 0 {
		t.Fatalf("total changed to %v", total)
	}
}
