package errs

import (
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(NotFound, "workflow.AddDependency", "task %s", "x")
	wrapped := fmt.Errorf("add dep: %w", base)

	if !Is(wrapped, NotFound) {
		t.Errorf("expected NotFound through wrapping, got %q", KindOf(wrapped))
	}
	if Is(wrapped, Validation) {
		t.Error("did not expect Validation")
	}
	if Is(nil, NotFound) {
		t.Error("nil error must not match any kind")
	}
}

func TestCycleCarried(t *testing.T) {
	err := fmt.Errorf("build: %w", NewCycle("graph.Build", []string{"a", "b", "a"}))
	if !Is(err, CircularDependency) {
		t.Fatalf("expected CircularDependency, got %q", KindOf(err))
	}
	got := Cycle(err)
	if len(got) != 3 || got[0] != "a" || got[2] != "a" {
		t.Errorf("unexpected cycle %v", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if k := KindOf(fmt.Errorf("boom")); k != "" {
		t.Errorf("expected empty kind, got %q", k)
	}
}
