package tap

// maxMissingScan caps the plan size for which missing numbers are listed.
const maxMissingScan = 1 << 16

// Stats holds aggregate counts for one document.
type Stats struct {
	Planned     int // tests announced by the plan; 0 without a plan
	TotalTests  int
	Passed      int // ok without a directive
	Failed      int // not ok without a TODO directive
	Skipped     int
	Todo        int
	Diagnostics int // elements carrying a diagnostic
	BailedOut   bool
	BailOut     string // reason of the first bail-out
	SkipAll     bool   // the plan skips every test
	Missing     []int  // planned numbers with no result
}

// PlanMismatch reports whether the number of results differs from the plan.
func (s Stats) PlanMismatch() bool {
	return s.Planned > 0 && !s.SkipAll && s.TotalTests != s.Planned
}

// OK reports whether the run is clean: no failures, no bail-out and no
// plan mismatch.
func (s Stats) OK() bool {
	return s.Failed == 0 && !s.BailedOut && !s.PlanMismatch()
}

// ComputeStats aggregates statistics from a document.
func ComputeStats(doc *Document) Stats {
	var s Stats
	seen := make(map[int]bool)
	for _, e := range doc.Elements() {
		if d, ok := e.(Diagnosable); ok && d.Diagnostic() != nil {
			s.Diagnostics++
		}
		switch v := e.(type) {
		case *TestResult:
			s.TotalTests++
			seen[v.Number] = true
			switch {
			case v.HasDirective(DirectiveSkip):
				s.Skipped++
			case v.HasDirective(DirectiveTodo):
				s.Todo++
			case v.Passed():
				s.Passed++
			default:
				s.Failed++
			}
		case *BailOut:
			if !s.BailedOut {
				s.BailedOut = true
				s.BailOut = v.Reason
			}
		}
	}
	if plan := doc.Plan(); plan != nil {
		s.SkipAll = plan.IsSkip()
		s.Planned = plan.Count()
		if !s.SkipAll && s.Planned > 0 && s.Planned <= maxMissingScan {
			for i := range s.Planned {
				if n := plan.InitialTestNumber + i; !seen[n] {
					s.Missing = append(s.Missing, n)
				}
			}
		}
	}
	return s
}
