package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jackhale98/tessera/internal/config"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/workflow"
)

func TestReadSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.csv")
	data := "value,operator\n10.01,a\n 9.98,b\n\nn/a,c\n10.00\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := readSamples(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{10.01, 9.98, 10.00}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := readSamples(""); !errs.Is(err, errs.Configuration) {
		t.Errorf("expected configuration error for missing path, got %v", err)
	}
}

func TestParseConstraint(t *testing.T) {
	c, err := parseConstraint("build", "snet=2024-03-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Type != workflow.StartNoEarlierThan || c.TaskID != "build" {
		t.Errorf("unexpected constraint %+v", c)
	}
	if got := c.Date.Format("2006-01-02"); got != "2024-03-04" {
		t.Errorf("date = %s", got)
	}

	if _, err := parseConstraint("build", "SNET"); !errs.Is(err, errs.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := parseConstraint("build", "SNET=March"); !errs.Is(err, errs.Validation) {
		t.Errorf("expected validation error for bad date, got %v", err)
	}
}

func TestInitLogger(t *testing.T) {
	for _, lc := range []config.LogConfig{
		{Level: "debug", Format: "console"},
		{Level: "warn", Format: "json"},
		{Level: "", Format: ""},
	} {
		l, err := initLogger(lc)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", lc, err)
		}
		if l == nil {
			t.Fatalf("%+v: nil logger", lc)
		}
	}
}
