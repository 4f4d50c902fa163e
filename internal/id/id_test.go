package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew_IsUUID(t *testing.T) {
	a := New()
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected uuid, got %q: %v", a, err)
	}
	if b := New(); a == b {
		t.Errorf("expected distinct ids, got %q twice", a)
	}
}

func TestOrNew(t *testing.T) {
	if got := OrNew("task-1"); got != "task-1" {
		t.Errorf("expected task-1 kept, got %q", got)
	}
	if got := OrNew("  "); !Valid(got) || got == "  " {
		t.Errorf("expected minted id, got %q", got)
	}
}
