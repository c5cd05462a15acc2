package tap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consumeAll(t *testing.T, p *Parser, lines ...string) error {
	t.Helper()
	for _, l := range lines {
		if err := p.Consume(l); err != nil {
			return err
		}
	}
	return p.Finish()
}

func kinds(doc *Document) []Kind {
	out := make([]Kind, 0, doc.Len())
	for _, e := range doc.Elements() {
		out = append(out, e.Kind())
	}
	return out
}

func TestParser_MinimalStream(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p, "TAP version 13", "1..2", "ok 1 - first", "not ok 2 - second"))

	doc := p.Document()
	assert.Equal(t, []Kind{KindHeader, KindPlan, KindTestResult, KindTestResult}, kinds(doc))
	assert.Equal(t, 13, doc.Header().Version)
	assert.Equal(t, 1, doc.Plan().InitialTestNumber)
	assert.Equal(t, 2, doc.Plan().LastTestNumber)

	results := doc.TestResults()
	require.Len(t, results, 2)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 1, results[0].Number)
	assert.Equal(t, "first", results[0].Description)
	assert.Equal(t, StatusNotOK, results[1].Status)
	assert.Equal(t, 2, results[1].Number)
	assert.Equal(t, "second", results[1].Description)
	for _, e := range doc.Elements() {
		assert.Nil(t, e.(Diagnosable).Diagnostic())
	}
}

func TestParser_CommentBeforeHeader(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Consume("# note"))
	assert.Equal(t, -1, p.BaseIndentation())
	assert.Nil(t, p.current)

	require.NoError(t, consumeAll(t, p, "TAP version 13", "ok 1"))
	assert.Equal(t, []Kind{KindComment, KindHeader, KindTestResult}, kinds(p.Document()))
	assert.Equal(t, "note", p.Document().Comments()[0].Text)
}

func TestParser_BlankLinesIgnored(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p, "", "TAP version 13", "   ", "ok 1", "\t"))
	assert.Equal(t, 2, p.Document().Len())
}

func TestParser_BailOutDoesNotStopParsing(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p, "TAP version 13", "ok 1", "Bail out! disk full", "ok 2", "not ok 3"))

	doc := p.Document()
	assert.Equal(t, []Kind{KindHeader, KindTestResult, KindBailOut, KindTestResult, KindTestResult}, kinds(doc))
	assert.Equal(t, "disk full", doc.BailOuts()[0].Reason)
}

func TestParser_DiagnosticAttachesToTestResult(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p,
		"TAP version 13",
		"1..1",
		"not ok 1 - fail",
		"  ---",
		"  severity: fail",
		"  ...",
	))

	tr := p.Document().TestResults()[0]
	assert.Equal(t, Diagnostic{map[string]any{"severity": "fail"}}, tr.Diagnostic())
}

func TestParser_DiagnosticFlushedByNextElement(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p,
		"TAP version 13",
		"not ok 1 - fail",
		"  ---",
		"  message: boom",
		"  ...",
	))
	require.NoError(t, p.Consume("ok 2"))

	results := p.Document().TestResults()
	assert.Equal(t, Diagnostic{map[string]any{"message": "boom"}}, results[0].Diagnostic())
	assert.Nil(t, results[1].Diagnostic())
}

func TestParser_DecoderReceivesVerbatimTextWithoutMarkers(t *testing.T) {
	var got []string
	dec := DecoderFunc(func(text string) (Diagnostic, error) {
		got = append(got, text)
		return Diagnostic{text}, nil
	})
	p := NewParser(WithDecoder(dec))
	require.NoError(t, consumeAll(t, p,
		"TAP version 13",
		"not ok 1",
		"  ---",
		"  message: boom",
		"",
		"    at: line 3",
		"  ...",
		"ok 2",
	))
	assert.Equal(t, []string{"  message: boom\n    at: line 3\n"}, got)
}

func TestParser_ConsecutiveBlocksMergeIntoOneMapping(t *testing.T) {
	lines := []string{
		"TAP version 13",
		"not ok 1",
		"  ---",
		"  message: a",
		"  got: 1",
		"  ...",
		"  ---",
		"  message: b",
		"  ...",
		"ok 2",
	}
	for name, dec := range map[string]DiagnosticDecoder{"yaml.v3": YAMLDecoder{}, "goccy": GoccyDecoder{}} {
		t.Run(name, func(t *testing.T) {
			p := NewParser(WithDecoder(dec))
			require.NoError(t, consumeAll(t, p, lines...))

			diag := p.Document().TestResults()[0].Diagnostic()
			require.Len(t, diag, 1, "markers are dropped, so both blocks form one document")
			m, ok := diag[0].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "b", m["message"])
			assert.Contains(t, m, "got")
		})
	}
}

func TestParser_IndentedSecondHeaderIsDiagnosticText(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p, "TAP version 13", "ok 1", "  TAP version 13", "ok 2"))

	doc := p.Document()
	assert.Equal(t, []Kind{KindHeader, KindTestResult, KindTestResult}, kinds(doc))
	assert.Equal(t, Diagnostic{"TAP version 13"}, doc.TestResults()[0].Diagnostic())
}

func TestParser_CommentInsideDiagnosticBlockStaysComment(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p,
		"TAP version 13",
		"not ok 1",
		"  ---",
		"  a: 1",
		"# interleaved",
		"  b: 2",
		"  ...",
		"ok 2",
	))

	doc := p.Document()
	assert.Equal(t, []Kind{KindHeader, KindTestResult, KindComment, KindTestResult}, kinds(doc))
	assert.Equal(t, Diagnostic{map[string]any{"a": 1, "b": 2}}, doc.TestResults()[0].Diagnostic())
}

func TestParser_DiagnosticOnTextAndHeader(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p,
		"TAP version 13",
		"  producer: prove",
		"some free text",
		"  note: attached",
	))

	doc := p.Document()
	assert.Equal(t, Diagnostic{map[string]any{"producer": "prove"}}, doc.Header().Diagnostic())
	text, ok := doc.Elements()[1].(*Text)
	require.True(t, ok)
	assert.Equal(t, "some free text", text.Value)
	assert.Equal(t, Diagnostic{map[string]any{"note": "attached"}}, text.Diagnostic())
}

func TestParser_IndentedHeaderSetsBase(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p,
		"  TAP version 13",
		"  1..1",
		"  not ok 1 - nested",
		"    ---",
		"    got: 2",
		"    ...",
	))
	assert.Equal(t, 2, p.BaseIndentation())
	assert.Equal(t, Diagnostic{map[string]any{"got": 2}}, p.Document().TestResults()[0].Diagnostic())
}

func TestParser_InvalidIndentation(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Consume("  TAP version 13"))

	err := p.Consume("ok 1 - under-indented")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidIndentation)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "ok 1 - under-indented", pe.Line)
	assert.Equal(t, 2, pe.LineNumber)
	assert.Equal(t, 1, p.Document().Len(), "document keeps its last consistent state")
}

func TestParser_MissingHeader(t *testing.T) {
	for _, line := range []string{"1..2", "ok 1", "Bail out!", "TAP done", "free text"} {
		t.Run(line, func(t *testing.T) {
			err := NewParser().Consume(line)
			assert.ErrorIs(t, err, ErrMissingHeader)
		})
	}
}

func TestParser_DuplicateHeader(t *testing.T) {
	p := NewParser()
	err := consumeAll(t, p, "TAP version 13", "ok 1", "TAP version 13")
	assert.ErrorIs(t, err, ErrDuplicateHeader)

	err = consumeAll(t, NewParser(), "TAP version 13", "TAP version 13")
	assert.ErrorIs(t, err, ErrDuplicateHeader)
}

func TestParser_HeaderOutOfOrderInLenientMode(t *testing.T) {
	p := NewParser(WithLenientHeader())
	require.NoError(t, p.Consume("ok 1 - before header"))
	assert.Equal(t, 0, p.BaseIndentation())

	err := p.Consume("TAP version 13")
	assert.ErrorIs(t, err, ErrHeaderOutOfOrder)
}

func TestParser_LenientModeWithoutHeader(t *testing.T) {
	p := NewParser(WithLenientHeader())
	require.NoError(t, consumeAll(t, p, "1..1", "not ok 1", "  ---", "  a: b", "  ..."))
	assert.Nil(t, p.Document().Header())
	assert.Equal(t, Diagnostic{map[string]any{"a": "b"}}, p.Document().TestResults()[0].Diagnostic())
}

func TestParser_DuplicatePlan(t *testing.T) {
	err := consumeAll(t, NewParser(), "TAP version 13", "1..2", "ok 1", "ok 2", "1..2")
	assert.ErrorIs(t, err, ErrDuplicatePlan)
}

func TestParser_PlanPositions(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		wantErr error
	}{
		{"leading", []string{"TAP version 13", "1..2", "ok 1", "ok 2"}, nil},
		{"trailing", []string{"TAP version 13", "ok 1", "ok 2", "1..2"}, nil},
		{"trailing after bail-out", []string{"TAP version 13", "ok 1", "Bail out!", "1..2"}, nil},
		{"interleaved result", []string{"TAP version 13", "ok 1", "1..2", "ok 2"}, ErrPlanOrderViolation},
		{"interleaved bail-out", []string{"TAP version 13", "ok 1", "1..2", "Bail out! late"}, ErrPlanOrderViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := consumeAll(t, NewParser(), tt.lines...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParser_PlanFields(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p, "TAP version 13", "1..0 # Skipped: no database"))

	plan := p.Document().Plan()
	require.NotNil(t, plan)
	assert.True(t, plan.IsSkip())
	assert.Equal(t, "no database", plan.Skip.Reason)
	assert.Equal(t, 0, plan.Count())

	p = NewParser()
	require.NoError(t, consumeAll(t, p, "TAP version 13", "1..3 # Plan's comment."))
	plan = p.Document().Plan()
	assert.False(t, plan.IsSkip())
	assert.Equal(t, "Plan's comment.", plan.Comment)
	assert.Equal(t, 3, plan.Count())
}

func TestParser_TestResultDirectivesAndNumbering(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p,
		"TAP version 13",
		"ok - unnumbered",
		"ok 2 # SKIP no network",
		"not ok 3 - flaky # TODO fix later",
		"ok",
		"ok 7 - explicit # just a comment",
	))

	results := p.Document().TestResults()
	require.Len(t, results, 5)

	assert.Equal(t, 1, results[0].Number)
	assert.Equal(t, "unnumbered", results[0].Description)

	require.NotNil(t, results[1].Directive)
	assert.Equal(t, DirectiveSkip, results[1].Directive.Kind)
	assert.Equal(t, "no network", results[1].Directive.Reason)

	assert.True(t, results[2].HasDirective(DirectiveTodo))
	assert.Equal(t, "fix later", results[2].Directive.Reason)
	assert.Equal(t, "flaky", results[2].Description)

	assert.Equal(t, 4, results[3].Number)
	assert.Empty(t, results[3].Description)

	assert.Equal(t, 7, results[4].Number)
	assert.Nil(t, results[4].Directive)
	assert.Equal(t, "just a comment", results[4].Comment)
}

func TestParser_Footer(t *testing.T) {
	p := NewParser()
	require.NoError(t, consumeAll(t, p, "TAP version 13", "ok 1", "TAP done # end", "  elapsed: 3"))

	f := p.Document().Footer()
	require.NotNil(t, f)
	assert.Equal(t, "done", f.Text)
	assert.Equal(t, "end", f.Comment)
	assert.Equal(t, Diagnostic{map[string]any{"elapsed": 3}}, f.Diagnostic())
}

func TestParser_DiagnosticParseError(t *testing.T) {
	p := NewParser()
	err := consumeAll(t, p, "TAP version 13", "not ok 1", "  ---", "  key: [unclosed", "  ...", "ok 2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiagnosticParse)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "  key: [unclosed\n", pe.Diagnostic)
	assert.NotNil(t, errors.Unwrap(err))
	assert.Equal(t, "ok 2", pe.Line)

	// The buffer is cleared, so the stream can continue.
	require.NoError(t, p.Finish())
	require.NoError(t, p.Consume("ok 2"))
	assert.Len(t, p.Document().TestResults(), 2)
}

func TestParser_DiagnosticParseErrorAtFinish(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Consume("TAP version 13"))
	require.NoError(t, p.Consume("not ok 1"))
	require.NoError(t, p.Consume("  anything: here"))

	dec := DecoderFunc(func(string) (Diagnostic, error) { return nil, errors.New("boom") })
	p.decoder = dec
	err := p.Finish()
	assert.ErrorIs(t, err, ErrDiagnosticParse)
	assert.NoError(t, p.Finish(), "second Finish has nothing to flush")
}

// Every public path that sets the base indentation also produces a target,
// so the orphan case is reached by setting the base directly.
func TestParser_OrphanDiagnostic(t *testing.T) {
	p := NewParser()
	p.baseIndent = 0
	require.NoError(t, p.Consume("  stray: value"))

	err := p.Finish()
	assert.ErrorIs(t, err, ErrOrphanDiagnostic)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "  stray: value\n", pe.Diagnostic)
}

func TestParser_Deterministic(t *testing.T) {
	lines := []string{
		"# preamble",
		"TAP version 13",
		"1..3",
		"ok 1 - a",
		"not ok 2 - b",
		"  ---",
		"  message: nope",
		"  data: [1, 2]",
		"  ...",
		"ok 3 - c # SKIP later",
		"Bail out! enough",
	}
	first, second := NewParser(), NewParser()
	require.NoError(t, consumeAll(t, first, lines...))
	require.NoError(t, consumeAll(t, second, lines...))
	assert.Equal(t, first.Document(), second.Document())
}

func TestParser_GoccyDecoder(t *testing.T) {
	p := NewParser(WithDecoder(GoccyDecoder{}))
	require.NoError(t, consumeAll(t, p, "TAP version 13", "not ok 1", "  ---", "  severity: fail", "  ..."))

	diag := p.Document().TestResults()[0].Diagnostic()
	require.Len(t, diag, 1)
	m, ok := diag[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fail", m["severity"])
}
