package tap

import "strings"

// Parser consumes a TAP 13 stream one line at a time.
//
// Indentation is measured against the header line: lines indented deeper
// than the header belong to a YAML diagnostic block, which is decoded and
// attached to the preceding element when the next line at header depth
// arrives (or when Finish is called). Lines indented less than the header
// are rejected.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	doc     *Document
	decoder DiagnosticDecoder
	lenient bool
	maxLine int // scanner limit for ParseStream and Stream

	baseIndent    int // -1 until the header is seen
	currentIndent int
	pending       strings.Builder
	current       Diagnosable
	currentIdx    int
	lastLine      string
	lineNo        int

	headerSeen   bool
	structural   bool // a non-comment element has been produced
	testCount    int
	runCount     int // test results plus bail-outs
	trailingPlan bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithDecoder replaces the YAML decoder used for diagnostic blocks.
func WithDecoder(d DiagnosticDecoder) Option {
	return func(p *Parser) {
		if d != nil {
			p.decoder = d
		}
	}
}

// WithLenientHeader accepts streams whose header is missing. The first
// structural line then fixes the base indentation, and a header arriving
// after structural content is reported as ErrHeaderOutOfOrder.
func WithLenientHeader() Option {
	return func(p *Parser) { p.lenient = true }
}

// WithMaxLineLength sets the longest line ParseStream and Stream accept.
func WithMaxLineLength(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxLine = n
		}
	}
}

// NewParser returns a parser with an empty document.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		doc:           NewDocument(),
		decoder:       YAMLDecoder{},
		maxLine:       DefaultMaxLineLength,
		baseIndent:    -1,
		currentIndent: -1,
		currentIdx:    -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Document returns the document built so far. After an error it holds the
// elements produced before the failing line.
func (p *Parser) Document() *Document { return p.doc }

// LastLine returns the most recent non-comment, non-blank line.
func (p *Parser) LastLine() string { return p.lastLine }

// BaseIndentation returns the header's indentation width, or -1 before the header.
func (p *Parser) BaseIndentation() int { return p.baseIndent }

// Consume processes one line of the stream, without its line terminator.
func (p *Parser) Consume(line string) error {
	p.lineNo++

	m := classify(line)
	switch m.kind {
	case lineBlank:
		return nil
	case lineComment:
		p.doc.append(&Comment{Text: m.field(0)})
		return nil
	}

	p.lastLine = line

	if p.baseIndent >= 0 {
		width := indentation(line)
		p.currentIndent = width
		if width > p.baseIndent {
			if !isMarker(line) {
				p.pending.WriteString(line)
				p.pending.WriteByte('\n')
			}
			return nil
		}
		if width < p.baseIndent {
			return p.fail(ErrInvalidIndentation)
		}
	}

	if err := p.flush(); err != nil {
		return err
	}

	if m.kind == lineHeader {
		return p.header(line, m)
	}

	if !p.headerSeen {
		if !p.lenient {
			return p.fail(ErrMissingHeader)
		}
		if p.baseIndent < 0 {
			p.baseIndent = indentation(line)
			p.currentIndent = p.baseIndent
		}
	}

	switch m.kind {
	case linePlan:
		return p.plan(m)
	case lineTestResult:
		return p.testResult(m)
	case lineBailOut:
		return p.bailOut(m)
	case lineFooter:
		p.produce(&Footer{Text: m.field(0), Comment: m.field(1)})
	default:
		p.produce(&Text{Value: line})
	}
	return nil
}

// Finish flushes a diagnostic block still open at end of stream. It may be
// called more than once.
func (p *Parser) Finish() error {
	return p.flush()
}

func (p *Parser) header(line string, m match) error {
	if p.headerSeen {
		return p.fail(ErrDuplicateHeader)
	}
	if p.structural {
		return p.fail(ErrHeaderOutOfOrder)
	}
	p.baseIndent = indentation(line)
	p.currentIndent = p.baseIndent
	p.headerSeen = true
	p.produce(&Header{Version: atoi(m.field(0)), Comment: m.field(1)})
	return nil
}

func (p *Parser) plan(m match) error {
	if p.doc.plan != nil {
		return p.fail(ErrDuplicatePlan)
	}
	plan := &Plan{
		InitialTestNumber: atoi(m.field(0)),
		LastTestNumber:    atoi(m.field(1)),
		Comment:           m.field(4),
	}
	if m.field(2) != "" {
		plan.Skip = &SkipPlan{Reason: m.field(3)}
	}
	// A plan after results must close the run.
	p.trailingPlan = p.runCount > 0
	p.produce(plan)
	return nil
}

func (p *Parser) testResult(m match) error {
	if p.trailingPlan {
		return p.fail(ErrPlanOrderViolation)
	}
	p.testCount++
	tr := &TestResult{
		Status:      StatusOK,
		Number:      p.testCount,
		Description: m.field(2),
		Comment:     m.field(5),
	}
	if m.field(0) == "not ok" {
		tr.Status = StatusNotOK
	}
	if m.field(1) != "" {
		tr.Number = atoi(m.field(1))
	}
	if d := m.field(3); d != "" {
		kind := DirectiveTodo
		if strings.EqualFold(d, "skip") {
			kind = DirectiveSkip
		}
		tr.Directive = &Directive{Kind: kind, Reason: m.field(4)}
	}
	p.runCount++
	p.produce(tr)
	return nil
}

func (p *Parser) bailOut(m match) error {
	if p.trailingPlan {
		return p.fail(ErrPlanOrderViolation)
	}
	p.runCount++
	p.produce(&BailOut{Reason: m.field(0), Comment: m.field(1)})
	return nil
}

// produce appends e and makes it the diagnostic target.
func (p *Parser) produce(e Diagnosable) {
	p.doc.append(e)
	p.structural = true
	p.current = e
	p.currentIdx = p.doc.Len() - 1
}

// flush decodes the buffered diagnostic block and attaches it to the
// current element. The buffer is cleared whether or not decoding succeeds.
func (p *Parser) flush() error {
	if p.pending.Len() == 0 {
		return nil
	}
	text := p.pending.String()
	p.pending.Reset()

	if p.current == nil {
		return &ParseError{
			Kind:       ErrOrphanDiagnostic,
			LineNumber: p.lineNo,
			Line:       p.lastLine,
			Diagnostic: text,
		}
	}
	diag, err := p.decoder.Decode(text)
	if err != nil {
		return &ParseError{
			Kind:       ErrDiagnosticParse,
			LineNumber: p.lineNo,
			Line:       p.lastLine,
			Diagnostic: text,
			Err:        err,
		}
	}
	p.current.SetDiagnostic(diag)
	return nil
}

func (p *Parser) fail(kind ErrorKind) error {
	return &ParseError{Kind: kind, LineNumber: p.lineNo, Line: p.lastLine}
}

// settled returns how many leading elements can no longer change. The
// current element and anything after it may still receive a diagnostic.
func (p *Parser) settled() int {
	if p.current == nil {
		return p.doc.Len()
	}
	return p.currentIdx
}
