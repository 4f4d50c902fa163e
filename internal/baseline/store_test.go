package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jackhale98/tessera/internal/errs"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "baselines"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStore_AddAndLoad(t *testing.T) {
	s := newStore(t)
	b := capture(t, sampleProject(), Initial)

	if err := s.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	loaded, err := s.Load(b.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "plan" || len(loaded.Tasks) != 2 {
		t.Errorf("loaded baseline mismatch: %+v", loaded)
	}
	if !loaded.EndDate.Equal(b.EndDate) {
		t.Errorf("end date mismatch: %v vs %v", loaded.EndDate, b.EndDate)
	}
	if err := loaded.Rename("other"); !errs.Is(err, errs.Validation) {
		t.Errorf("loaded baselines must be immutable, got %v", err)
	}

	if err := s.Save(b); !errs.Is(err, errs.Validation) {
		t.Errorf("expected overwrite to be refused, got %v", err)
	}
	if _, err := s.Load("missing"); !errs.Is(err, errs.NotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStore_AddArchivesPriorCurrent(t *testing.T) {
	s := newStore(t)
	first := capture(t, sampleProject(), Working)
	second := capture(t, sampleProject(), Approved)
	second.CreatedAt = first.CreatedAt.Add(1)

	if err := s.Add(first); err != nil {
		t.Fatalf("Add first: %v", err)
	}
	if err := s.Add(second); err != nil {
		t.Fatalf("Add second: %v", err)
	}

	cur, err := s.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.ID != second.ID {
		t.Errorf("expected %s current, got %s", second.ID, cur.ID)
	}

	old, _ := s.Load(first.ID)
	if old.IsCurrent || old.Type != Archived {
		t.Errorf("expected prior baseline archived, got current=%v type=%s", old.IsCurrent, old.Type)
	}

	headers, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(headers) != 2 || headers[0].ID != first.ID {
		t.Fatalf("expected two headers oldest first, got %+v", headers)
	}
	current := 0
	for _, h := range headers {
		if h.IsCurrent {
			current++
		}
	}
	if current != 1 {
		t.Errorf("expected exactly one current baseline, got %d", current)
	}
	if headers[1].TotalCost != second.TotalCost {
		t.Errorf("header cost mismatch: %v", headers[1].TotalCost)
	}
}

func TestStore_SetCurrentAndArchive(t *testing.T) {
	s := newStore(t)
	a := capture(t, sampleProject(), Working)
	b := capture(t, sampleProject(), Working)
	for _, bl := range []*Baseline{a, b} {
		if err := s.Add(bl); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if err := s.SetCurrent(a.ID); err != nil {
		t.Fatalf("SetCurrent: %v", err)
	}
	cur, _ := s.Current()
	if cur.ID != a.ID || cur.Type != Approved {
		t.Errorf("expected %s restored as approved, got %s (%s)", a.ID, cur.ID, cur.Type)
	}
	other, _ := s.Load(b.ID)
	if other.IsCurrent {
		t.Error("expected previous current to be cleared")
	}

	if err := s.Archive(a.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := s.Current(); !errs.Is(err, errs.NotFound) {
		t.Errorf("expected no current baseline, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := newStore(t)
	initial := capture(t, sampleProject(), Initial)
	working := capture(t, sampleProject(), Working)
	for _, bl := range []*Baseline{initial, working} {
		if err := s.Add(bl); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if err := s.Delete(working.ID); !errs.Is(err, errs.Validation) {
		t.Errorf("expected current baseline to be kept, got %v", err)
	}
	if err := s.SetCurrent(working.ID); err != nil {
		t.Fatalf("SetCurrent: %v", err)
	}
	if err := s.Archive(working.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if err := s.Delete(working.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, working.ID+".json")); !os.IsNotExist(err) {
		t.Error("expected baseline file to be removed")
	}

	// initial baselines stay even when archived
	if err := s.Delete(initial.ID); !errs.Is(err, errs.Validation) {
		t.Errorf("expected initial baseline to be kept, got %v", err)
	}
}

func TestStore_Metrics(t *testing.T) {
	s := newStore(t)
	b := capture(t, sampleProject(), Working)
	if err := s.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	m, err := s.Metrics(b.ID)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.Tasks != 2 || m.Milestones != 1 || m.Resources != 1 {
		t.Errorf("unexpected counts: %+v", m)
	}
	if m.Cost != 800 || m.Effort != 16 || m.AverageResourceHours != 16 {
		t.Errorf("unexpected totals: %+v", m)
	}
}
