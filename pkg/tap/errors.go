package tap

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a parse failure. Each kind is itself an error so
// callers can test with errors.Is(err, tap.ErrDuplicatePlan).
type ErrorKind int

const (
	ErrInvalidIndentation ErrorKind = iota + 1
	ErrMissingHeader
	ErrDuplicateHeader
	ErrHeaderOutOfOrder
	ErrDuplicatePlan
	ErrPlanOrderViolation
	ErrOrphanDiagnostic
	ErrDiagnosticParse
)

func (k ErrorKind) Error() string {
	switch k {
	case ErrInvalidIndentation:
		return "invalid indentation"
	case ErrMissingHeader:
		return "missing TAP version header"
	case ErrDuplicateHeader:
		return "duplicate TAP version header"
	case ErrHeaderOutOfOrder:
		return "TAP version header must be the first line"
	case ErrDuplicatePlan:
		return "duplicate plan"
	case ErrPlanOrderViolation:
		return "plan must come before or after all test results"
	case ErrOrphanDiagnostic:
		return "diagnostic without a preceding element"
	case ErrDiagnosticParse:
		return "malformed YAML diagnostic"
	default:
		return "unknown parse error"
	}
}

// Name returns the identifier used in reports, e.g. "DuplicatePlan".
func (k ErrorKind) Name() string {
	switch k {
	case ErrInvalidIndentation:
		return "InvalidIndentation"
	case ErrMissingHeader:
		return "MissingHeader"
	case ErrDuplicateHeader:
		return "DuplicateHeader"
	case ErrHeaderOutOfOrder:
		return "HeaderOutOfOrder"
	case ErrDuplicatePlan:
		return "DuplicatePlan"
	case ErrPlanOrderViolation:
		return "PlanOrderViolation"
	case ErrOrphanDiagnostic:
		return "OrphanDiagnostic"
	case ErrDiagnosticParse:
		return "DiagnosticParseError"
	default:
		return "Unknown"
	}
}

// ParseError reports a failure at a specific line of the stream.
type ParseError struct {
	Kind       ErrorKind
	LineNumber int    // 1-based; 0 when raised by Finish with no line
	Line       string // offending raw line
	Diagnostic string // buffered diagnostic text, for diagnostic failures
	Err        error  // underlying cause, if any
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.LineNumber > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.LineNumber)
	}
	sb.WriteString(e.Kind.Error())
	if e.Line != "" {
		fmt.Fprintf(&sb, ": %q", e.Line)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// Is matches the error's kind.
func (e *ParseError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}
