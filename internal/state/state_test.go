package state

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "history.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.List()) != 0 {
		t.Error("expected empty history")
	}
}

func TestAddPersistsAndOrders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history.yaml")
	h, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := h.Add(Entry{ID: "1", Operation: OpConvert, Source: "a.txt", Table: "A", At: first}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := h.Add(Entry{ID: "2", Operation: OpCompare, Source: "b.txt", Artifacts: []string{"B.csv"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	list := reloaded.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].ID != "2" || list[1].ID != "1" {
		t.Errorf("expected newest first, got %s, %s", list[0].ID, list[1].ID)
	}
	if !list[1].At.Equal(first) {
		t.Errorf("timestamp not preserved: %v", list[1].At)
	}
	if list[0].At.IsZero() {
		t.Error("expected Add to stamp the time")
	}
}

func TestAddBounded(t *testing.T) {
	h := New()
	for i := 0; i < MaxEntries+5; i++ {
		if err := h.Add(Entry{Source: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if len(h.List()) != MaxEntries {
		t.Errorf("expected %d entries, got %d", MaxEntries, len(h.List()))
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.yaml")
	h, _ := Load(path)
	_ = h.Add(Entry{ID: "1"})
	if err := h.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	reloaded, _ := Load(path)
	if len(reloaded.List()) != 0 {
		t.Error("expected cleared history on disk")
	}
}
