package claude

import (
	"strings"
	"testing"
)

func TestStripFences_Clean(t *testing.T) {
	input := "The project is on track."
	got := stripFences(input)
	if got != input {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestStripFences_WithTag(t *testing.T) {
	input := "```markdown\nBehind by three days.\n```"
	got := stripFences(input)
	if got != "Behind by three days." {
		t.Errorf("expected bare text, got %q", got)
	}
}

func TestStripFences_WithWhitespace(t *testing.T) {
	input := "  \n```\nCPI 0.92\n```\n  "
	got := stripFences(input)
	if got != "CPI 0.92" {
		t.Errorf("expected bare text, got %q", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	for kind, want := range map[ReportKind]string{
		VarianceReport: "baseline comparison",
		EarnedValue:    "TCPI",
		StackupReport:  "tolerance stackup",
	} {
		got, err := systemPrompt(kind)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if !strings.Contains(got, want) {
			t.Errorf("%s prompt should mention %q", kind, want)
		}
	}
	if _, err := systemPrompt("weather"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestBuildMessage_WrapsReport(t *testing.T) {
	msg := buildMessage(EarnedValue, "\nSPI 0.80\nCPI 1.10\n")
	if !strings.Contains(msg, "## ev report") {
		t.Error("message should name the report kind")
	}
	if !strings.Contains(msg, "```\nSPI 0.80\nCPI 1.10\n```") {
		t.Errorf("report should be fenced and trimmed, got %q", msg)
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewClient("", ""); err == nil {
		t.Error("expected error without an API key")
	}
	c, err := NewClient("sk-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(c.model) != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
}
