package tap

import (
	"errors"
	"fmt"
	"io"
	"strings"

	goccy "github.com/goccy/go-yaml"
	"gopkg.in/yaml.v3"
)

// DiagnosticDecoder loads every YAML document contained in text.
type DiagnosticDecoder interface {
	Decode(text string) (Diagnostic, error)
}

// DecoderFunc adapts a function to DiagnosticDecoder.
type DecoderFunc func(text string) (Diagnostic, error)

// Decode calls f(text).
func (f DecoderFunc) Decode(text string) (Diagnostic, error) { return f(text) }

// YAMLDecoder decodes diagnostics with gopkg.in/yaml.v3. It is the default.
//
// A mapping key repeated at the same level keeps its last value. This
// happens when several ---/... blocks follow one element: the markers are
// dropped and the blocks decode as one mapping.
type YAMLDecoder struct{}

// Decode implements DiagnosticDecoder.
func (YAMLDecoder) Decode(text string) (Diagnostic, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var docs Diagnostic
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		dropDuplicateKeys(&node)
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		docs = append(docs, v)
	}
}

// dropDuplicateKeys removes every earlier occurrence of a repeated scalar
// mapping key, keeping the order of the surviving pairs.
func dropDuplicateKeys(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		last := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			if k := n.Content[i]; k.Kind == yaml.ScalarNode {
				last[k.Value] = i
			}
		}
		if len(last)*2 < len(n.Content) {
			kept := make([]*yaml.Node, 0, len(n.Content))
			for i := 0; i+1 < len(n.Content); i += 2 {
				k := n.Content[i]
				if k.Kind == yaml.ScalarNode && last[k.Value] != i {
					continue
				}
				kept = append(kept, k, n.Content[i+1])
			}
			n.Content = kept
		}
	}
	for _, c := range n.Content {
		dropDuplicateKeys(c)
	}
}

// GoccyDecoder decodes diagnostics with github.com/goccy/go-yaml. Repeated
// mapping keys keep their last value, as with YAMLDecoder.
type GoccyDecoder struct{}

// Decode implements DiagnosticDecoder.
func (GoccyDecoder) Decode(text string) (Diagnostic, error) {
	dec := goccy.NewDecoder(strings.NewReader(text), goccy.AllowDuplicateMapKey())
	var docs Diagnostic
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, v)
	}
}

// DecoderByName returns the decoder for an engine name: "yaml.v3" (or "")
// and "goccy" are recognized.
func DecoderByName(name string) (DiagnosticDecoder, error) {
	switch name {
	case "", "yaml.v3", "yaml":
		return YAMLDecoder{}, nil
	case "goccy", "go-yaml":
		return GoccyDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown YAML engine %q (expected yaml.v3 or goccy)", name)
	}
}
