package render

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkoosis/tapfo/pkg/pattern"
)

const maxLLMDetailLines = 3

var upper = cases.Upper(language.Und)

// LLM renders patterns as terse plain text optimized for AI consumption.
// Zero ANSI codes, one SCOPE line per stream, truncated details.
type LLM struct{}

// NewLLM creates an LLM renderer.
func NewLLM() *LLM {
	return &LLM{}
}

// Render formats all patterns for LLM consumption.
func (l *LLM) Render(patterns []pattern.Pattern) string {
	var sb strings.Builder
	for _, p := range patterns {
		switch v := p.(type) {
		case *pattern.Summary:
			l.renderSummary(&sb, v)
		case *pattern.TestTable:
			l.renderTable(&sb, v)
		case *pattern.Leaderboard:
			l.renderLeaderboard(&sb, v)
		case *pattern.Error:
			l.renderError(&sb, v)
		}
	}
	return sb.String()
}

func (l *LLM) renderSummary(sb *strings.Builder, s *pattern.Summary) {
	if s.Kind == pattern.SummaryKindTotal {
		sb.WriteString(s.Label + "\n")
		for _, m := range s.Metrics {
			sb.WriteString("  " + m.Label + ": " + m.Value + "\n")
		}
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("SCOPE: " + s.Label + "\n")
	for _, m := range s.Metrics {
		if m.Kind == "error" || m.Kind == "warning" {
			sb.WriteString("  " + m.Label + ": " + m.Value + "\n")
		}
	}
}

func (l *LLM) renderTable(sb *strings.Builder, t *pattern.TestTable) {
	sb.WriteString("\n" + t.Label + "\n")
	for _, item := range t.Results {
		dur := ""
		if item.Duration != "" {
			dur = " (" + item.Duration + ")"
		}
		sb.WriteString(fmt.Sprintf("  %s %s%s\n", upper.String(item.Status), item.Name, dur))

		if item.Details == "" || item.Status == "pass" {
			continue
		}
		lines := strings.Split(item.Details, "\n")
		n := min(len(lines), maxLLMDetailLines)
		for _, line := range lines[:n] {
			sb.WriteString("    " + line + "\n")
		}
		if len(lines) > maxLLMDetailLines {
			sb.WriteString(fmt.Sprintf("    ... (%d more lines)\n", len(lines)-maxLLMDetailLines))
		}
	}
}

func (l *LLM) renderLeaderboard(sb *strings.Builder, lb *pattern.Leaderboard) {
	if len(lb.Items) == 0 {
		return
	}
	sb.WriteString("\n" + lb.Label + "\n")
	for _, item := range lb.Items {
		sb.WriteString(fmt.Sprintf("  %d. %s %s\n", item.Rank, item.Name, item.Metric))
	}
}

func (l *LLM) renderError(sb *strings.Builder, e *pattern.Error) {
	loc := e.Source
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Source, e.Line)
	}
	sb.WriteString(fmt.Sprintf("\nERR %s %s: %s\n", loc, e.Kind, e.Message))
	if e.Text != "" {
		sb.WriteString("  > " + e.Text + "\n")
	}
}
