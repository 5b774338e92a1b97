package survey

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogFile(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalogFile(t, testCatalog())

	questions, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(questions) != CatalogSize {
		t.Fatalf("loaded %d questions, want %d", len(questions), CatalogSize)
	}
	if questions[0].Number != 1 || questions[29].Number != 30 {
		t.Errorf("catalog order lost: first=%d last=%d", questions[0].Number, questions[29].Number)
	}
}

func TestLoadCatalogRejectsWrongSize(t *testing.T) {
	path := writeCatalogFile(t, testCatalog()[:10])
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected error for a 10-item catalog")
	}
}

func TestLoadCatalogRejectsBadNumbering(t *testing.T) {
	catalog := testCatalog()
	catalog[4].Number = 99
	path := writeCatalogFile(t, catalog)
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected error for out-of-order numbering")
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
