// Package mapper converts parsed TAP documents into visualization patterns.
package mapper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dkoosis/tapfo/pkg/pattern"
	"github.com/dkoosis/tapfo/pkg/tap"
)

const (
	statusFail = "fail"
	statusPass = "pass"
	statusSkip = "skip"
	statusTodo = "todo"
	statusBail = "bail"

	kindSuccess = "success"
	kindError   = "error"
	kindWarning = "warning"
	kindInfo    = "info"

	maxDetailLines = 5
	slowestCount   = 5
)

// Source is one parsed TAP stream and the error that stopped it, if any.
type Source struct {
	Name string // file name or "stdin"
	Doc  *tap.Document
	Err  error
}

// Failed reports whether the source has test failures, a bail-out, a plan
// mismatch or a parse error.
func (s Source) Failed() bool {
	if s.Err != nil {
		return true
	}
	return !sourceStats(s).OK()
}

// FromSources maps several streams. A single source maps exactly like
// FromTAP; more sources are preceded by an aggregate summary.
func FromSources(sources []Source) []pattern.Pattern {
	if len(sources) == 1 {
		return FromTAP(sources[0])
	}

	var patterns []pattern.Pattern
	items := make([]pattern.SummaryItem, 0, len(sources))
	failed := 0
	for _, src := range sources {
		kind := kindSuccess
		if src.Failed() {
			kind = kindError
			failed++
		}
		items = append(items, pattern.SummaryItem{
			Label: src.Name,
			Value: scopeLabel(sourceStats(src), src.Err),
			Kind:  kind,
		})
		patterns = append(patterns, FromTAP(src)...)
	}

	label := fmt.Sprintf("TOTAL: %d streams — all pass", len(sources))
	if failed > 0 {
		label = fmt.Sprintf("TOTAL: %d streams — %d fail, %d pass", len(sources), failed, len(sources)-failed)
	}
	total := &pattern.Summary{Label: label, Kind: pattern.SummaryKindTotal, Metrics: items}
	return append([]pattern.Pattern{total}, patterns...)
}

// FromTAP converts one document into patterns.
// Returns: Summary, then bail-outs, failures, TODO/skip results, passing
// results, the slowest tests when diagnostics report durations, and an
// Error pattern when parsing stopped early.
func FromTAP(src Source) []pattern.Pattern {
	doc := src.Doc
	if doc == nil {
		doc = tap.NewDocument()
	}
	stats := tap.ComputeStats(doc)

	patterns := []pattern.Pattern{tapSummary(src, stats)}

	if t := bailOutTable(src.Name, doc); t != nil {
		patterns = append(patterns, t)
	}

	var failed, flagged, passed []pattern.TestTableItem
	for _, tr := range doc.TestResults() {
		item := testItem(tr)
		switch item.Status {
		case statusFail:
			failed = append(failed, item)
		case statusSkip, statusTodo:
			flagged = append(flagged, item)
		default:
			item.Details = ""
			passed = append(passed, item)
		}
	}

	if len(failed) > 0 {
		patterns = append(patterns, &pattern.TestTable{
			Label:   fmt.Sprintf("FAIL %s (%d/%d failed)", src.Name, len(failed), stats.TotalTests),
			Source:  src.Name,
			Results: failed,
		})
	}
	if len(flagged) > 0 {
		patterns = append(patterns, &pattern.TestTable{
			Label:   fmt.Sprintf("Skipped and TODO (%d)", len(flagged)),
			Source:  src.Name,
			Results: flagged,
		})
	}
	if len(passed) > 0 {
		patterns = append(patterns, &pattern.TestTable{
			Label:   fmt.Sprintf("Passing Tests (%d)", len(passed)),
			Source:  src.Name,
			Results: passed,
		})
	}
	if lb := slowest(doc); lb != nil {
		patterns = append(patterns, lb)
	}
	if src.Err != nil {
		patterns = append(patterns, errorPattern(src))
	}
	return patterns
}

func tapSummary(src Source, s tap.Stats) *pattern.Summary {
	var metrics []pattern.SummaryItem

	if s.BailedOut {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Bail out", Value: orDefault(s.BailOut, "(no reason)"), Kind: kindError,
		})
	}
	if s.Failed > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Failed", Value: fmt.Sprintf("%d/%d tests", s.Failed, s.TotalTests), Kind: kindError,
		})
	}
	if s.Passed > 0 {
		kind := kindSuccess
		if s.Failed > 0 {
			kind = kindInfo
		}
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Passed", Value: fmt.Sprintf("%d/%d tests", s.Passed, s.TotalTests), Kind: kind,
		})
	}
	if s.Skipped > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Skipped", Value: fmt.Sprintf("%d", s.Skipped), Kind: kindWarning,
		})
	}
	if s.Todo > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "TODO", Value: fmt.Sprintf("%d", s.Todo), Kind: kindWarning,
		})
	}
	if s.PlanMismatch() {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Plan", Value: fmt.Sprintf("%d planned, %d run", s.Planned, s.TotalTests), Kind: kindError,
		})
	}
	if len(s.Missing) > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Missing", Value: joinInts(s.Missing, 10), Kind: kindError,
		})
	}
	if s.SkipAll {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Plan", Value: "all tests skipped", Kind: kindWarning,
		})
	}

	return &pattern.Summary{
		Label:   src.Name + ": " + scopeLabel(s, src.Err),
		Kind:    pattern.SummaryKindTAP,
		Source:  src.Name,
		Metrics: metrics,
	}
}

// scopeLabel renders the one-line verdict for a stream.
func scopeLabel(s tap.Stats, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("ERROR %s after %d tests", errorKindName(err), s.TotalTests)
	case s.BailedOut:
		return fmt.Sprintf("BAIL OUT after %d tests", s.TotalTests)
	case s.Failed > 0:
		return fmt.Sprintf("FAIL %d/%d tests", s.Failed, s.TotalTests)
	case s.PlanMismatch():
		return fmt.Sprintf("FAIL %d/%d planned tests ran", s.TotalTests, s.Planned)
	case s.SkipAll:
		return "SKIP all tests"
	default:
		return fmt.Sprintf("PASS %d tests", s.TotalTests)
	}
}

func sourceStats(src Source) tap.Stats {
	if src.Doc == nil {
		return tap.Stats{}
	}
	return tap.ComputeStats(src.Doc)
}

func bailOutTable(source string, doc *tap.Document) *pattern.TestTable {
	bails := doc.BailOuts()
	if len(bails) == 0 {
		return nil
	}
	items := make([]pattern.TestTableItem, 0, len(bails))
	for _, b := range bails {
		items = append(items, pattern.TestTableItem{
			Name:    "Bail out! " + b.Reason,
			Status:  statusBail,
			Details: diagnosticDetails(b.Diagnostic()),
		})
	}
	return &pattern.TestTable{Label: "BAIL OUT " + source, Source: source, Results: items}
}

func testItem(tr *tap.TestResult) pattern.TestTableItem {
	item := pattern.TestTableItem{
		Name:   testName(tr),
		Status: statusPass,
	}
	switch {
	case tr.HasDirective(tap.DirectiveSkip):
		item.Status = statusSkip
		item.Details = tr.Directive.Reason
	case tr.HasDirective(tap.DirectiveTodo):
		item.Status = statusTodo
		item.Details = tr.Directive.Reason
	case !tr.Passed():
		item.Status = statusFail
		item.Details = diagnosticDetails(tr.Diagnostic())
	}
	if d, ok := diagnosticDuration(tr.Diagnostic()); ok {
		item.Duration = formatDuration(d)
	}
	return item
}

func testName(tr *tap.TestResult) string {
	if tr.Description == "" {
		return fmt.Sprintf("#%d", tr.Number)
	}
	return fmt.Sprintf("#%d %s", tr.Number, tr.Description)
}

// diagnosticDetails flattens a diagnostic into a few display lines,
// putting a top-level "message" first.
func diagnosticDetails(d tap.Diagnostic) string {
	if len(d) == 0 {
		return ""
	}
	var lines []string
	for _, doc := range d {
		if m, ok := doc.(map[string]any); ok {
			if msg, ok := m["message"].(string); ok && msg != "" {
				lines = append(lines, strings.Split(strings.TrimRight(msg, "\n"), "\n")...)
				rest := make(map[string]any, len(m))
				for k, v := range m {
					if k != "message" {
						rest[k] = v
					}
				}
				doc = rest
				if len(rest) == 0 {
					continue
				}
			}
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			lines = append(lines, fmt.Sprint(doc))
			continue
		}
		lines = append(lines, strings.Split(strings.TrimRight(string(out), "\n"), "\n")...)
	}
	return truncateLines(lines, maxDetailLines)
}

// diagnosticDuration reads "duration_ms" from the first mapping document.
func diagnosticDuration(d tap.Diagnostic) (time.Duration, bool) {
	for _, doc := range d {
		m, ok := doc.(map[string]any)
		if !ok {
			continue
		}
		switch v := m["duration_ms"].(type) {
		case int:
			return time.Duration(v) * time.Millisecond, true
		case uint64:
			return time.Duration(v) * time.Millisecond, true
		case float64:
			return time.Duration(v * float64(time.Millisecond)), true
		}
	}
	return 0, false
}

func slowest(doc *tap.Document) *pattern.Leaderboard {
	var items []pattern.LeaderboardItem
	for _, tr := range doc.TestResults() {
		if d, ok := diagnosticDuration(tr.Diagnostic()); ok {
			items = append(items, pattern.LeaderboardItem{
				Name:   testName(tr),
				Metric: formatDuration(d),
				Value:  d.Seconds(),
			})
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Value > items[j].Value })
	total := len(items)
	if len(items) > slowestCount {
		items = items[:slowestCount]
	}
	for i := range items {
		items[i].Rank = i + 1
	}
	return &pattern.Leaderboard{
		Label:      "Slowest Tests",
		MetricName: "Duration",
		Items:      items,
		TotalCount: total,
		ShowRank:   true,
	}
}

func errorPattern(src Source) *pattern.Error {
	e := &pattern.Error{Source: src.Name, Kind: errorKindName(src.Err), Message: src.Err.Error()}
	var pe *tap.ParseError
	if errors.As(src.Err, &pe) {
		e.Line = pe.LineNumber
		e.Text = pe.Line
		e.Message = pe.Kind.Error()
		if pe.Err != nil {
			e.Message += ": " + pe.Err.Error()
		}
	}
	return e
}

func errorKindName(err error) string {
	var pe *tap.ParseError
	if errors.As(err, &pe) {
		return pe.Kind.Name()
	}
	return "ReadError"
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func truncateLines(lines []string, max int) string {
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	result := strings.Join(lines[:max], "\n")
	return result + fmt.Sprintf("\n... (%d more lines)", len(lines)-max)
}

func joinInts(ns []int, max int) string {
	parts := make([]string, 0, min(len(ns), max))
	for i, n := range ns {
		if i == max {
			parts = append(parts, fmt.Sprintf("… +%d", len(ns)-max))
			break
		}
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
