package pattern

// TestTable represents test results with status and details.
type TestTable struct {
	Label   string
	Source  string // file name or "stdin"
	Results []TestTableItem
}

// TestTableItem is a single test result.
type TestTableItem struct {
	Name     string // "#2 parses input"
	Status   string // "pass", "fail", "skip", "todo", "bail"
	Duration string // formatted duration, when the diagnostic reports one
	Details  string // directive reason or diagnostic excerpt
}

func (t *TestTable) Type() PatternType { return PatternTypeTestTable }
