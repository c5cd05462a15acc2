package tap

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"", lineBlank},
		{"   \t ", lineBlank},
		{"# note", lineComment},
		{"    # indented note", lineComment},
		{"TAP version 13", lineHeader},
		{"  TAP version 13 # produced by prove", lineHeader},
		{"1..4", linePlan},
		{"1..0 # Skipped: no database", linePlan},
		{"ok 1 - first", lineTestResult},
		{"not ok 2 - second # TODO later", lineTestResult},
		{"ok", lineTestResult},
		{"okay then", lineText},
		{"Bail out! disk full", lineBailOut},
		{"TAP done", lineFooter},
		{"TAPestry", lineText},
		{"1..x", lineText},
		{"random output", lineText},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := classify(tt.line).kind; got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestClassify_TestResultFields(t *testing.T) {
	m := classify("not ok 4 - parses input # SKIP no network # flaky")
	if m.kind != lineTestResult {
		t.Fatalf("kind = %v, want test-result", m.kind)
	}
	want := []string{"not ok", "4", "parses input", "SKIP", "no network", "flaky"}
	for i, w := range want {
		if got := m.field(i); got != w {
			t.Errorf("field %d = %q, want %q", i, got, w)
		}
	}
}

func TestClassify_PlanFields(t *testing.T) {
	m := classify("1..3 # Plan's comment.")
	if m.kind != linePlan {
		t.Fatalf("kind = %v, want plan", m.kind)
	}
	if m.field(0) != "1" || m.field(1) != "3" {
		t.Errorf("range = %q..%q, want 1..3", m.field(0), m.field(1))
	}
	if m.field(2) != "" {
		t.Errorf("unexpected skip marker %q", m.field(2))
	}
	if m.field(4) != "Plan's comment." {
		t.Errorf("comment = %q", m.field(4))
	}
}

func TestClassify_OverflowingNumberIsText(t *testing.T) {
	if got := classify("1..99999999999999999999999").kind; got != lineText {
		t.Errorf("kind = %v, want text", got)
	}
}

func TestIndentation(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"ok 1", 0},
		{"  ---", 2},
		{"\t\tkey: value", 2},
		{" \t mixed", 3},
	}
	for _, tt := range tests {
		if got := indentation(tt.line); got != tt.want {
			t.Errorf("indentation(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestIsMarker(t *testing.T) {
	for _, line := range []string{"---", "  ---", "  ...  "} {
		if !isMarker(line) {
			t.Errorf("isMarker(%q) = false, want true", line)
		}
	}
	for _, line := range []string{"--- # doc", "  message: ...", "----"} {
		if isMarker(line) {
			t.Errorf("isMarker(%q) = true, want false", line)
		}
	}
}
