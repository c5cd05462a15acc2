package stream

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dkoosis/tapfo/pkg/tap"
)

// LineKind identifies the type of output line for styling.
type LineKind int

const (
	KindPass LineKind = iota
	KindFail
	KindSkip
	KindTodo
	KindBailOut
	KindPlan
	KindComment
	KindOutput
	KindSeparator
)

// StyleFunc formats a line with colors/symbols.
// If nil, no styling is applied.
type StyleFunc func(kind LineKind, text string) string

const maxDiagnosticLines = 8

// streamer is the state machine for live TAP display. It sees elements only
// once they are settled, so a failing test arrives with its diagnostic.
type streamer struct {
	tw    *termWriter
	style StyleFunc
	start time.Time

	planned   int
	passed    int
	failed    int
	skipped   int
	todo      int
	lastTest  string
	bailedOut bool
}

func newStreamer(tw *termWriter, style StyleFunc) *streamer {
	return &streamer{tw: tw, style: style, start: time.Now()}
}

// styleLine applies the style function if set, otherwise returns text unchanged.
func (s *streamer) styleLine(kind LineKind, text string) string {
	if s.style != nil {
		return s.style(kind, text)
	}
	return text
}

func (s *streamer) print(kind LineKind, text string) {
	s.tw.EraseFooter()
	s.tw.PrintLine(s.styleLine(kind, text))
}

// handleElement renders one settled element.
func (s *streamer) handleElement(e tap.Element) {
	switch v := e.(type) {
	case *tap.Plan:
		s.handlePlan(v)
	case *tap.TestResult:
		s.handleTest(v)
	case *tap.BailOut:
		s.bailedOut = true
		line := "  ⊘ Bail out!"
		if v.Reason != "" {
			line += " " + v.Reason
		}
		s.print(KindBailOut, line)
		s.printDiagnostic(v.Diagnostic())
	case *tap.Comment:
		s.print(KindComment, "  # "+v.Text)
	case *tap.Text:
		s.print(KindOutput, "    "+v.Value)
	case *tap.Header, *tap.Footer:
		// nothing to show
	}

	s.redrawFooter()
}

func (s *streamer) handlePlan(p *tap.Plan) {
	s.planned = p.Count()
	line := fmt.Sprintf("  %d..%d", p.InitialTestNumber, p.LastTestNumber)
	if p.IsSkip() {
		line += " skip"
		if p.Skip.Reason != "" {
			line += ": " + p.Skip.Reason
		}
	}
	s.print(KindPlan, line)
}

func (s *streamer) handleTest(tr *tap.TestResult) {
	name := fmt.Sprintf("%3d %s", tr.Number, tr.Description)
	s.lastTest = name

	switch {
	case tr.HasDirective(tap.DirectiveSkip):
		s.skipped++
		s.print(KindSkip, directiveLine("○", name, tr.Directive))
	case tr.HasDirective(tap.DirectiveTodo):
		s.todo++
		s.print(KindTodo, directiveLine("…", name, tr.Directive))
	case tr.Passed():
		s.passed++
		s.print(KindPass, "  · "+name)
	default:
		s.failed++
		s.print(KindFail, "  ✗ "+name)
		s.printDiagnostic(tr.Diagnostic())
	}
}

func directiveLine(icon, name string, d *tap.Directive) string {
	line := "  " + icon + " " + name + "  # " + d.Kind.String()
	if d.Reason != "" {
		line += " " + d.Reason
	}
	return line
}

// printDiagnostic writes an indented excerpt of a diagnostic below its element.
func (s *streamer) printDiagnostic(d tap.Diagnostic) {
	if len(d) == 0 {
		return
	}
	var lines []string
	for _, doc := range d {
		out, err := yaml.Marshal(doc)
		if err != nil {
			lines = append(lines, fmt.Sprint(doc))
			continue
		}
		lines = append(lines, strings.Split(strings.TrimRight(string(out), "\n"), "\n")...)
	}
	extra := 0
	if len(lines) > maxDiagnosticLines {
		extra = len(lines) - maxDiagnosticLines
		lines = lines[:maxDiagnosticLines]
	}
	for _, l := range lines {
		s.tw.PrintLine(s.styleLine(KindOutput, "      "+l))
	}
	if extra > 0 {
		s.tw.PrintLine(s.styleLine(KindOutput, fmt.Sprintf("      ... (%d more lines)", extra)))
	}
}

func (s *streamer) total() int {
	return s.passed + s.failed + s.skipped + s.todo
}

// redrawFooter rebuilds the progress footer.
func (s *streamer) redrawFooter() {
	if s.total() == 0 {
		return
	}
	progress := fmt.Sprintf("%d", s.total())
	if s.planned > 0 {
		progress = fmt.Sprintf("%d/%d", s.total(), s.planned)
	}
	lines := []string{
		"  ─── running ──────────────────────────────",
		fmt.Sprintf("  [%s] %d ok, %d not ok  %5.1fs", progress, s.passed, s.failed, time.Since(s.start).Seconds()),
	}
	if s.lastTest != "" {
		lines = append(lines, "  last:"+s.lastTest)
	}
	s.tw.DrawFooter(lines)
}

func (s *streamer) hasFailed() bool {
	return s.failed > 0 || s.bailedOut || (s.planned > 0 && s.total() != s.planned)
}

// finish erases the footer and prints the final summary line.
func (s *streamer) finish(err error) {
	s.tw.EraseFooter()

	sep := "  ─────────────────────────────────────────────"
	s.tw.PrintLine(s.styleLine(KindSeparator, sep))

	elapsed := time.Since(s.start).Seconds()
	switch {
	case err != nil:
		s.tw.PrintLine(s.styleLine(KindFail, fmt.Sprintf("  ERROR (%.1fs) %v", elapsed, err)))
	case s.hasFailed():
		summary := fmt.Sprintf("  FAIL (%.1fs) %d/%d tests failed", elapsed, s.failed, s.total())
		if s.planned > 0 && s.total() != s.planned {
			summary += fmt.Sprintf(", %d planned", s.planned)
		}
		if s.bailedOut {
			summary += ", bailed out"
		}
		s.tw.PrintLine(s.styleLine(KindFail, summary))
	default:
		s.tw.PrintLine(s.styleLine(KindPass, fmt.Sprintf("  PASS (%.1fs) %d tests", elapsed, s.total())))
	}
}

// Run reads a TAP stream from r and renders it live to out.
// Returns exit code: 0=all pass, 1=failures, 2=error, 130=interrupted.
func Run(ctx context.Context, r io.Reader, out io.Writer, width, height int, style StyleFunc, opts ...tap.Option) int {
	tw := newTermWriter(out, width, height)
	s := newStreamer(tw, style)

	_, err := tap.Stream(ctx, r, s.handleElement, opts...)
	s.finish(err)
	if err != nil {
		if ctx.Err() != nil {
			return 130
		}
		return 2
	}
	if s.hasFailed() {
		return 1
	}
	return 0
}
