package tap

import (
	"errors"
	"strings"
	"testing"
)

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Kind: ErrDuplicatePlan, LineNumber: 7, Line: "1..3"}
	got := err.Error()
	if !strings.HasPrefix(got, "line 7: duplicate plan") {
		t.Errorf("Error() = %q, want prefix %q", got, "line 7: duplicate plan")
	}
	if !strings.Contains(got, `"1..3"`) {
		t.Errorf("Error() = %q, want the offending line quoted", got)
	}
}

func TestParseError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("yaml: line 1: did not find expected node content")
	err := error(&ParseError{Kind: ErrDiagnosticParse, Err: cause})

	if !errors.Is(err, ErrDiagnosticParse) {
		t.Error("errors.Is(err, ErrDiagnosticParse) = false")
	}
	if errors.Is(err, ErrOrphanDiagnostic) {
		t.Error("errors.Is matched the wrong kind")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want the cause reachable")
	}
}

func TestErrorKind_Names(t *testing.T) {
	kinds := []ErrorKind{
		ErrInvalidIndentation, ErrMissingHeader, ErrDuplicateHeader, ErrHeaderOutOfOrder,
		ErrDuplicatePlan, ErrPlanOrderViolation, ErrOrphanDiagnostic, ErrDiagnosticParse,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		name := k.Name()
		if name == "Unknown" || seen[name] {
			t.Errorf("kind %d has name %q", k, name)
		}
		seen[name] = true
	}
}
