package claude

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// ReportKind selects the narration prompt.
type ReportKind string

const (
	VarianceReport ReportKind = "variance"
	EarnedValue    ReportKind = "ev"
	StackupReport  ReportKind = "stackup"
)

// Client wraps the Anthropic SDK for Claude API calls.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a Claude client. apiKey defaults to ANTHROPIC_API_KEY env.
// model defaults to DefaultModel.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	inner := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	m := anthropic.Model(DefaultModel)
	if model != "" {
		m = anthropic.Model(model)
	}

	return &Client{inner: inner, model: m}, nil
}

const varianceSystem = `You are a project controls analyst. You will receive a baseline comparison
report: per-task schedule, cost and scope variances, milestone slips and an overall health flag.

Write a short narrative for a steering meeting:
- Lead with the overall health and the end-date movement.
- Name the few tasks or milestones that drive the variance, with their numbers.
- Separate schedule from cost effects.
- Close with one or two concrete follow-ups.

Use plain prose, no more than three short paragraphs. Do not invent tasks or figures.
`

const earnedValueSystem = `You are a project controls analyst. You will receive an earned value report
(PV, EV, AC, SV, CV, SPI, CPI, EAC, ETC, VAC, TCPI) for one status date.

Explain in plain language whether the project is ahead or behind schedule and over or under
budget, what the forecast at completion implies, and whether the TCPI is realistic.
Keep it to two short paragraphs. Quote the key indices. Do not invent figures.
`

const stackupSystem = `You are a mechanical design engineer reviewing a tolerance stackup.
You will receive worst case, RSS and Monte Carlo results, and possibly capability indices
and a sensitivity ranking.

Summarise whether the design meets its limits, which contributors dominate the variation,
and what tolerance changes would help most. Keep it short and quantitative.
Do not invent features or figures.
`

func systemPrompt(kind ReportKind) (string, error) {
	switch kind {
	case VarianceReport:
		return varianceSystem, nil
	case EarnedValue:
		return earnedValueSystem, nil
	case StackupReport:
		return stackupSystem, nil
	}
	return "", fmt.Errorf("unknown report kind %q", kind)
}

// buildMessage wraps the plain-text report for the user turn.
func buildMessage(kind ReportKind, report string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s report\n\n", kind)
	b.WriteString("```\n")
	b.WriteString(strings.TrimSpace(report))
	b.WriteString("\n```\n")
	return b.String()
}

// Narrate asks Claude for a prose summary of a rendered report.
func (c *Client) Narrate(ctx context.Context, kind ReportKind, report string) (string, error) {
	system, err := systemPrompt(kind)
	if err != nil {
		return "", err
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(2048),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildMessage(kind, report))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return stripFences(text), nil
}

// stripFences removes markdown code fences that Claude sometimes adds.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
