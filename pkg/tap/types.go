// Package tap parses Test Anything Protocol version 13 streams into an
// ordered document of typed elements.
package tap

import "math"

// Kind identifies an element variant.
type Kind int

const (
	KindHeader Kind = iota + 1
	KindPlan
	KindTestResult
	KindBailOut
	KindFooter
	KindComment
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindPlan:
		return "plan"
	case KindTestResult:
		return "test-result"
	case KindBailOut:
		return "bail-out"
	case KindFooter:
		return "footer"
	case KindComment:
		return "comment"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Element is one entry of a Document. The set of implementations is closed:
// *Header, *Plan, *TestResult, *BailOut, *Footer, *Comment and *Text.
type Element interface {
	Kind() Kind
	element()
}

// Diagnostic holds the YAML documents decoded from an indented block.
type Diagnostic []any

// Diagnosable is implemented by every element that can own a diagnostic.
// The parser calls SetDiagnostic at most once per element.
type Diagnosable interface {
	Element
	Diagnostic() Diagnostic
	SetDiagnostic(d Diagnostic)
}

type diagnosed struct {
	diagnostic Diagnostic
}

// Diagnostic returns the attached diagnostic, or nil.
func (d *diagnosed) Diagnostic() Diagnostic { return d.diagnostic }

// SetDiagnostic attaches a diagnostic.
func (d *diagnosed) SetDiagnostic(diag Diagnostic) { d.diagnostic = diag }

// Header is the "TAP version N" line.
type Header struct {
	diagnosed
	Version int
	Comment string
}

// Plan is the "I..L" line.
type Plan struct {
	diagnosed
	InitialTestNumber int
	LastTestNumber    int
	Skip              *SkipPlan // non-nil when the whole range is skipped
	Comment           string
}

// SkipPlan marks a plan whose tests are all skipped.
type SkipPlan struct {
	Reason string
}

// Count returns the number of tests the plan announces, clamped to
// math.MaxInt for ranges that would overflow.
func (p *Plan) Count() int {
	if p.LastTestNumber < p.InitialTestNumber {
		return 0
	}
	span := p.LastTestNumber - p.InitialTestNumber
	if span == math.MaxInt {
		return math.MaxInt
	}
	return span + 1
}

// IsSkip reports whether the plan skips the whole range.
func (p *Plan) IsSkip() bool { return p.Skip != nil }

// Status is the outcome of a test line.
type Status int

const (
	StatusOK Status = iota + 1
	StatusNotOK
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "not ok"
}

// DirectiveKind is the annotation on a test result.
type DirectiveKind int

const (
	DirectiveSkip DirectiveKind = iota + 1
	DirectiveTodo
)

func (d DirectiveKind) String() string {
	if d == DirectiveSkip {
		return "SKIP"
	}
	return "TODO"
}

// Directive is a "# SKIP reason" or "# TODO reason" annotation.
type Directive struct {
	Kind   DirectiveKind
	Reason string
}

// TestResult is an "ok" or "not ok" line.
type TestResult struct {
	diagnosed
	Status      Status
	Number      int
	Description string
	Directive   *Directive
	Comment     string
}

// Passed reports whether the test line starts with "ok".
func (t *TestResult) Passed() bool { return t.Status == StatusOK }

// HasDirective reports whether the result carries a directive of kind k.
func (t *TestResult) HasDirective(k DirectiveKind) bool {
	return t.Directive != nil && t.Directive.Kind == k
}

// BailOut is a "Bail out!" line.
type BailOut struct {
	diagnosed
	Reason  string
	Comment string
}

// Footer is a trailing "TAP ..." line.
type Footer struct {
	diagnosed
	Text    string
	Comment string
}

// Comment is a "# ..." line.
type Comment struct {
	Text string
}

// Text is any line that matches no other shape.
type Text struct {
	diagnosed
	Value string
}

func (*Header) Kind() Kind     { return KindHeader }
func (*Plan) Kind() Kind       { return KindPlan }
func (*TestResult) Kind() Kind { return KindTestResult }
func (*BailOut) Kind() Kind    { return KindBailOut }
func (*Footer) Kind() Kind     { return KindFooter }
func (*Comment) Kind() Kind    { return KindComment }
func (*Text) Kind() Kind       { return KindText }

func (*Header) element()     {}
func (*Plan) element()       {}
func (*TestResult) element() {}
func (*BailOut) element()    {}
func (*Footer) element()     {}
func (*Comment) element()    {}
func (*Text) element()       {}
