// Package render provides output renderers for tapfo's visualization patterns.
package render

import (
	"fmt"

	"github.com/dkoosis/tapfo/pkg/pattern"
)

// Renderer converts patterns to formatted output.
type Renderer interface {
	Render(patterns []pattern.Pattern) string
}

// ForFormat returns the renderer for an output format name.
// Terminal rendering uses theme and width; the others ignore them.
func ForFormat(format string, theme Theme, width int) (Renderer, error) {
	switch format {
	case "terminal", "":
		return NewTerminal(theme, width), nil
	case "llm":
		return NewLLM(), nil
	case "json":
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want terminal, llm or json)", format)
	}
}
