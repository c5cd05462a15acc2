package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/tapfo/pkg/pattern"
)

func samplePatterns() []pattern.Pattern {
	return []pattern.Pattern{
		&pattern.Summary{
			Label:  "suite.tap: FAIL 1/3 tests",
			Kind:   pattern.SummaryKindTAP,
			Source: "suite.tap",
			Metrics: []pattern.SummaryItem{
				{Label: "Failed", Value: "1/3 tests", Kind: "error"},
				{Label: "Passed", Value: "1/3 tests", Kind: "info"},
				{Label: "Skipped", Value: "1", Kind: "warning"},
			},
		},
		&pattern.TestTable{
			Label:  "FAIL suite.tap (1/3 failed)",
			Source: "suite.tap",
			Results: []pattern.TestTableItem{
				{Name: "#2 parses input", Status: "fail", Duration: "12ms", Details: "expected 1\ngot 2"},
			},
		},
		&pattern.TestTable{
			Label:  "Skipped and TODO (1)",
			Source: "suite.tap",
			Results: []pattern.TestTableItem{
				{Name: "#3 network", Status: "skip", Details: "offline"},
			},
		},
		&pattern.Error{Source: "suite.tap", Kind: "DuplicatePlan", Line: 9, Text: "1..3", Message: "duplicate plan"},
	}
}

func TestTerminal_Render(t *testing.T) {
	out := NewTerminal(MonoTheme(), 80).Render(samplePatterns())

	assert.Contains(t, out, "suite.tap: FAIL 1/3 tests")
	assert.Contains(t, out, "x Failed: 1/3 tests")
	assert.Contains(t, out, "x #2 parses input")
	assert.Contains(t, out, "12ms")
	assert.Contains(t, out, "    expected 1")
	assert.Contains(t, out, "~ #3 network")
	assert.Contains(t, out, "DuplicatePlan at suite.tap:9")
	assert.Contains(t, out, "> 1..3")
}

func TestTerminal_TruncatesWideNames(t *testing.T) {
	long := strings.Repeat("名", 80)
	out := NewTerminal(MonoTheme(), 40).Render([]pattern.Pattern{
		&pattern.TestTable{Label: "T", Results: []pattern.TestTableItem{{Name: long, Status: "pass"}}},
	})
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, long)
}

func TestTerminal_Leaderboard(t *testing.T) {
	out := NewTerminal(MonoTheme(), 80).Render([]pattern.Pattern{
		&pattern.Leaderboard{
			Label:      "Slowest Tests",
			TotalCount: 7,
			ShowRank:   true,
			Items: []pattern.LeaderboardItem{
				{Name: "#4 slow", Metric: "2.5s", Rank: 1},
				{Name: "#1 quick", Metric: "3ms", Rank: 2},
			},
		},
	})
	assert.Contains(t, out, "Slowest Tests (top 2 of 7)")
	assert.Contains(t, out, " 1. #4 slow")
}

func TestLLM_Render(t *testing.T) {
	out := NewLLM().Render(samplePatterns())

	assert.True(t, strings.HasPrefix(out, "SCOPE: suite.tap: FAIL 1/3 tests\n"), out)
	assert.Contains(t, out, "  Failed: 1/3 tests")
	assert.NotContains(t, out, "Passed:")
	assert.Contains(t, out, "  FAIL #2 parses input (12ms)")
	assert.Contains(t, out, "    got 2")
	assert.Contains(t, out, "  SKIP #3 network")
	assert.Contains(t, out, "ERR suite.tap:9 DuplicatePlan: duplicate plan")
	assert.NotContains(t, out, "\x1b[")
}

func TestLLM_TruncatesDetails(t *testing.T) {
	out := NewLLM().Render([]pattern.Pattern{
		&pattern.TestTable{Label: "T", Results: []pattern.TestTableItem{
			{Name: "#1", Status: "fail", Details: "a\nb\nc\nd\ne"},
		}},
	})
	assert.Contains(t, out, "    c\n    ... (2 more lines)")
	assert.NotContains(t, out, "    d\n")
}

func TestLLM_TotalSummaryFirst(t *testing.T) {
	out := NewLLM().Render([]pattern.Pattern{
		&pattern.Summary{Label: "TOTAL: 2 streams — all pass", Kind: pattern.SummaryKindTotal, Metrics: []pattern.SummaryItem{
			{Label: "a.tap", Value: "PASS 1 tests", Kind: "success"},
		}},
		&pattern.Summary{Label: "a.tap: PASS 1 tests", Kind: pattern.SummaryKindTAP},
	})
	assert.Equal(t, "TOTAL: 2 streams — all pass\n  a.tap: PASS 1 tests\n\nSCOPE: a.tap: PASS 1 tests\n", out)
}

func TestJSON_Render(t *testing.T) {
	out := NewJSON().Render(samplePatterns())

	var decoded struct {
		Version  string `json:"version"`
		Patterns []struct {
			Type string `json:"type"`
		} `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, jsonVersion, decoded.Version)
	require.Len(t, decoded.Patterns, 4)
	assert.Equal(t, "summary", decoded.Patterns[0].Type)
	assert.Equal(t, "error", decoded.Patterns[3].Type)
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat("llm", DefaultTheme(), 80)
	require.NoError(t, err)
	assert.IsType(t, &LLM{}, r)

	_, err = ForFormat("xml", DefaultTheme(), 80)
	assert.Error(t, err)
}

func TestThemeByName(t *testing.T) {
	for _, name := range ThemeNames {
		assert.Equal(t, name, ThemeByName(name).Name)
	}
	assert.Equal(t, "default", ThemeByName("nope").Name)
}
