package tap

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

type lineKind int

const (
	lineText lineKind = iota
	lineBlank
	lineComment
	lineHeader
	linePlan
	lineTestResult
	lineBailOut
	lineFooter
)

func (k lineKind) String() string {
	switch k {
	case lineBlank:
		return "blank"
	case lineComment:
		return "comment"
	case lineHeader:
		return "header"
	case linePlan:
		return "plan"
	case lineTestResult:
		return "test-result"
	case lineBailOut:
		return "bail-out"
	case lineFooter:
		return "footer"
	default:
		return "text"
	}
}

var (
	commentRegexp    = regexp.MustCompile(`^\s*#\s*(.*?)\s*$`)
	headerRegexp     = regexp.MustCompile(`^\s*TAP\s*version\s*(\d+)\s*(?:#\s*(.*?))?\s*$`)
	planRegexp       = regexp.MustCompile(`^\s*(\d+)\.\.(\d+)\s*(?:#\s*((?i:skip))\w*:?\s*([^#]*?)\s*)?(?:#\s*(.*?))?\s*$`)
	testResultRegexp = regexp.MustCompile(`^\s*(ok|not ok)\b\s*(\d*)\s*(?:-\s*)?([^#]*?)\s*(?:#\s*((?i:skip|todo))\w*:?\s*([^#]*?)\s*)?(?:#\s*(.*?))?\s*$`)
	bailOutRegexp    = regexp.MustCompile(`^\s*Bail out!\s*([^#]*?)\s*(?:#\s*(.*?))?\s*$`)
	footerRegexp     = regexp.MustCompile(`^\s*TAP\b\s*([^#]*?)\s*(?:#\s*(.*?))?\s*$`)
)

// match is a classified line with its captured fields.
type match struct {
	kind   lineKind
	fields []string // submatches without the full match
}

func (m match) field(i int) string {
	if i < len(m.fields) {
		return m.fields[i]
	}
	return ""
}

// classify returns the first shape, in precedence order, that line matches.
// Lines matching none of them classify as lineText.
func classify(line string) match {
	if strings.TrimSpace(line) == "" {
		return match{kind: lineBlank}
	}
	if m := commentRegexp.FindStringSubmatch(line); m != nil {
		return match{kind: lineComment, fields: m[1:]}
	}
	if m := headerRegexp.FindStringSubmatch(line); m != nil && isNumber(m[1]) {
		return match{kind: lineHeader, fields: m[1:]}
	}
	if m := planRegexp.FindStringSubmatch(line); m != nil && isNumber(m[1]) && isNumber(m[2]) {
		return match{kind: linePlan, fields: m[1:]}
	}
	if m := testResultRegexp.FindStringSubmatch(line); m != nil && (m[2] == "" || isNumber(m[2])) {
		return match{kind: lineTestResult, fields: m[1:]}
	}
	if m := bailOutRegexp.FindStringSubmatch(line); m != nil {
		return match{kind: lineBailOut, fields: m[1:]}
	}
	if m := footerRegexp.FindStringSubmatch(line); m != nil {
		return match{kind: lineFooter, fields: m[1:]}
	}
	return match{kind: lineText}
}

// indentation returns the number of leading whitespace characters in line.
func indentation(line string) int {
	n := 0
	for _, r := range line {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}

// isMarker reports whether line is a YAML document start or end marker.
func isMarker(line string) bool {
	t := strings.TrimSpace(line)
	return t == "---" || t == "..."
}

// isNumber reports whether s is a non-negative decimal that fits in an int.
func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
