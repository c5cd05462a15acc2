// Package detect sniffs the head of an input to decide whether it is TAP.
package detect

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Format represents a recognized input format.
type Format int

const (
	Unknown     Format = iota
	TAP13              // stream opening with a "TAP version N" header
	TAPNoHeader        // TAP-shaped lines without a header (pre-13 producers)
	GoTestJSON         // go test -json NDJSON stream, not TAP
)

func (f Format) String() string {
	switch f {
	case TAP13:
		return "TAP13"
	case TAPNoHeader:
		return "TAP (no header)"
	case GoTestJSON:
		return "go test -json"
	default:
		return "unknown"
	}
}

// maxSniffLines bounds how far past leading comments and blanks Sniff looks.
const maxSniffLines = 64

// Sniff examines the first lines of input to determine format.
// Comments and blank lines before the first meaningful line are skipped.
func Sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return Unknown
	}
	if trimmed[0] == '{' {
		if isGoTestJSON(trimmed) {
			return GoTestJSON
		}
		return Unknown
	}

	for i, line := range strings.Split(string(data), "\n") {
		if i == maxSniffLines {
			break
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case isHeader(line):
			return TAP13
		case isPlan(line), strings.HasPrefix(line, "ok"), strings.HasPrefix(line, "not ok"),
			strings.HasPrefix(line, "Bail out!"):
			return TAPNoHeader
		default:
			return Unknown
		}
	}
	return Unknown
}

func isHeader(line string) bool {
	rest, ok := strings.CutPrefix(line, "TAP")
	if !ok {
		return false
	}
	rest = strings.TrimSpace(rest)
	rest, ok = strings.CutPrefix(rest, "version")
	return ok && strings.TrimSpace(rest) != ""
}

func isPlan(line string) bool {
	first, last, ok := strings.Cut(line, "..")
	if !ok || first == "" {
		return false
	}
	for _, r := range first {
		if r < '0' || r > '9' {
			return false
		}
	}
	return last != "" && last[0] >= '0' && last[0] <= '9'
}

func isGoTestJSON(data []byte) bool {
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))

	var event struct {
		Action  string `json:"Action"`
		Package string `json:"Package"`
	}
	if err := json.Unmarshal(firstLine, &event); err != nil {
		return false
	}

	validActions := map[string]bool{
		"start": true, "run": true, "pause": true, "cont": true,
		"pass": true, "bench": true, "fail": true, "output": true, "skip": true,
	}
	return validActions[event.Action]
}
