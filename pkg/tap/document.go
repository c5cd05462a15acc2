package tap

// Document is the ordered result of parsing a TAP stream.
// Elements appear in stream order and are never removed.
type Document struct {
	elements []Element
	header   *Header
	plan     *Plan
	footer   *Footer
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Elements returns the elements in stream order. The slice must not be modified.
func (d *Document) Elements() []Element { return d.elements }

// Len returns the number of elements.
func (d *Document) Len() int { return len(d.elements) }

// Header returns the version header, or nil if none was parsed.
func (d *Document) Header() *Header { return d.header }

// Plan returns the plan, or nil if none was parsed.
func (d *Document) Plan() *Plan { return d.plan }

// Footer returns the last footer, or nil if none was parsed.
func (d *Document) Footer() *Footer { return d.footer }

// TestResults returns the test results in stream order.
func (d *Document) TestResults() []*TestResult {
	var out []*TestResult
	for _, e := range d.elements {
		if tr, ok := e.(*TestResult); ok {
			out = append(out, tr)
		}
	}
	return out
}

// BailOuts returns the bail-out notices in stream order.
func (d *Document) BailOuts() []*BailOut {
	var out []*BailOut
	for _, e := range d.elements {
		if b, ok := e.(*BailOut); ok {
			out = append(out, b)
		}
	}
	return out
}

// Comments returns the comments in stream order.
func (d *Document) Comments() []*Comment {
	var out []*Comment
	for _, e := range d.elements {
		if c, ok := e.(*Comment); ok {
			out = append(out, c)
		}
	}
	return out
}

func (d *Document) append(e Element) {
	switch v := e.(type) {
	case *Header:
		d.header = v
	case *Plan:
		d.plan = v
	case *Footer:
		d.footer = v
	}
	d.elements = append(d.elements, e)
}
