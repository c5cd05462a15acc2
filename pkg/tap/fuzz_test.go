package tap

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"TAP version 13\n1..2\nok 1 - a\nnot ok 2 - b # TODO later\n",
		"TAP version 13\nnot ok 1\n  ---\n  message: boom\n  ...\n",
		"  TAP version 13\n  ok 1\n ok 2\n",
		"TAP version 13\n1..1\n1..1\n",
		"# before\nTAP version 13\nBail out! gone\nTAP done\n",
		"ok 1\n",
		"TAP version 13\nok 1\n  ---\n  [unclosed\n",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		doc, err := ParseString(input, WithMaxLineLength(4096))
		if doc == nil {
			t.Fatal("nil document")
		}
		var pe *ParseError
		if err != nil && errors.As(err, &pe) {
			if pe.Kind == 0 {
				t.Fatalf("parse error without kind: %v", err)
			}
			if !errors.Is(err, pe.Kind) {
				t.Fatalf("errors.Is(err, %v) = false", pe.Kind)
			}
		}

		streamed, streamErr := Stream(context.Background(), strings.NewReader(input), nil, WithMaxLineLength(4096))
		if streamed.Len() != doc.Len() {
			t.Fatalf("Stream produced %d elements, ParseString %d", streamed.Len(), doc.Len())
		}
		if (err == nil) != (streamErr == nil) {
			t.Fatalf("error mismatch: ParseString %v, Stream %v", err, streamErr)
		}
	})
}
