package pattern

// SummaryKind identifies the source of a summary for dispatch.
type SummaryKind string

const (
	SummaryKindTAP   SummaryKind = "tap"   // one TAP stream
	SummaryKindTotal SummaryKind = "total" // aggregate over several streams
)

// Summary represents high-level metrics and counts.
type Summary struct {
	Label   string
	Kind    SummaryKind // dispatch key for renderers
	Source  string      // file name or "stdin"
	Metrics []SummaryItem
}

// SummaryItem is a single metric in a summary.
type SummaryItem struct {
	Label string // e.g., "Failed", "Skipped", "Planned"
	Value string // formatted value
	Kind  string // "success", "error", "warning" or "info"; drives coloring
}

func (s *Summary) Type() PatternType { return PatternTypeSummary }
