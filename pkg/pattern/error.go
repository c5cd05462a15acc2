package pattern

// Error reports a stream that could not be parsed completely.
// Patterns mapped from the partial document precede it.
type Error struct {
	Source  string
	Kind    string // e.g., "DuplicatePlan"
	Line    int
	Text    string // offending line
	Message string
}

func (e *Error) Type() PatternType { return PatternTypeError }
