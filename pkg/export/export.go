// Package export writes a parsed TAP document as a flat list of records in
// JSON, YAML or MessagePack.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/tapfo/pkg/tap"
)

// Formats lists the encodings Write accepts.
var Formats = []string{"json", "yaml", "msgpack"}

// Record is the encoding-neutral form of one element. Only the fields that
// apply to the element's kind are set.
type Record struct {
	Kind        string `json:"kind" yaml:"kind" msgpack:"kind"`
	Version     int    `json:"version,omitempty" yaml:"version,omitempty" msgpack:"version,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty" msgpack:"status,omitempty"`
	Number      int    `json:"number,omitempty" yaml:"number,omitempty" msgpack:"number,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" msgpack:"description,omitempty"`
	Directive   string `json:"directive,omitempty" yaml:"directive,omitempty" msgpack:"directive,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty" msgpack:"reason,omitempty"`
	First       int    `json:"first,omitempty" yaml:"first,omitempty" msgpack:"first,omitempty"`
	Last        int    `json:"last,omitempty" yaml:"last,omitempty" msgpack:"last,omitempty"`
	Skip        bool   `json:"skip,omitempty" yaml:"skip,omitempty" msgpack:"skip,omitempty"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty" msgpack:"text,omitempty"`
	Comment     string `json:"comment,omitempty" yaml:"comment,omitempty" msgpack:"comment,omitempty"`
	Diagnostic  []any  `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty" msgpack:"diagnostic,omitempty"`
}

// Stream groups the records of one named source.
type Stream struct {
	Source  string   `json:"source" yaml:"source" msgpack:"source"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
	Records []Record `json:"records" yaml:"records" msgpack:"records"`
}

// NewStream builds the export form of one parsed source. A nil doc yields no
// records.
func NewStream(source string, doc *tap.Document, err error) Stream {
	st := Stream{Source: source, Records: []Record{}}
	if doc != nil {
		st.Records = Records(doc)
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// Records flattens doc into records in document order.
func Records(doc *tap.Document) []Record {
	out := make([]Record, 0, doc.Len())
	for _, e := range doc.Elements() {
		out = append(out, record(e))
	}
	return out
}

func record(e tap.Element) Record {
	r := Record{Kind: e.Kind().String()}
	switch v := e.(type) {
	case *tap.Header:
		r.Version = v.Version
		r.Comment = v.Comment
	case *tap.Plan:
		r.First = v.InitialTestNumber
		r.Last = v.LastTestNumber
		r.Comment = v.Comment
		if v.IsSkip() {
			r.Skip = true
			r.Reason = v.Skip.Reason
		}
	case *tap.TestResult:
		r.Status = v.Status.String()
		r.Number = v.Number
		r.Description = v.Description
		r.Comment = v.Comment
		if v.Directive != nil {
			r.Directive = v.Directive.Kind.String()
			r.Reason = v.Directive.Reason
		}
	case *tap.BailOut:
		r.Reason = v.Reason
		r.Comment = v.Comment
	case *tap.Footer:
		r.Text = v.Text
		r.Comment = v.Comment
	case *tap.Comment:
		r.Text = v.Text
	case *tap.Text:
		r.Text = v.Value
	}
	if d, ok := e.(tap.Diagnosable); ok && len(d.Diagnostic()) > 0 {
		r.Diagnostic = normalize(d.Diagnostic())
	}
	return r
}

// normalize turns YAML mappings with non-string keys into string-keyed maps
// so every encoder accepts them.
func normalize(d tap.Diagnostic) []any {
	out := make([]any, len(d))
	for i, v := range d {
		out[i] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalizeValue(val)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalizeValue(val)
		}
		return s
	default:
		return v
	}
}

// Write encodes streams to w in the named format.
func Write(w io.Writer, format string, streams []Stream) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(streams)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(streams); err != nil {
			return err
		}
		return enc.Close()
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		return enc.Encode(streams)
	default:
		return fmt.Errorf("unknown export format %q (want json, yaml or msgpack)", format)
	}
}
