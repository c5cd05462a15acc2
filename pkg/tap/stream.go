package tap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxLineLength bounds a single TAP line read by ParseStream and Stream.
const DefaultMaxLineLength = 1024 * 1024

// ElementFunc receives elements once they can no longer change.
type ElementFunc func(Element)

// ParseStream reads a TAP stream from r line by line and returns the document.
// On a parse error the partial document is returned together with the error.
func ParseStream(r io.Reader, opts ...Option) (*Document, error) {
	p := NewParser(opts...)
	scanner := newScanner(r, p.maxLine)
	for scanner.Scan() {
		if err := p.Consume(trimCR(scanner.Text())); err != nil {
			return p.Document(), err
		}
	}
	if err := scanner.Err(); err != nil {
		return p.Document(), fmt.Errorf("scanning TAP stream: %w", err)
	}
	return p.Document(), p.Finish()
}

// ParseBytes is a convenience for parsing from a byte slice.
func ParseBytes(data []byte, opts ...Option) (*Document, error) {
	return ParseStream(bytes.NewReader(data), opts...)
}

// ParseString is a convenience for parsing from a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return ParseStream(strings.NewReader(s), opts...)
}

// scanResult carries a scanned line or terminal error from the scanner goroutine.
type scanResult struct {
	line string
	err  error
}

// Stream parses TAP from r and calls fn for each element, in stream order,
// as soon as it is settled: an element is held back while an indented
// diagnostic block may still attach to it. Stops on EOF, on the first parse
// error, or when ctx is cancelled. The returned document holds every element
// produced so far. A nil fn only parses.
//
// Cancellation: the scanner runs in a background goroutine. On context cancel,
// Stream closes r (if it implements io.Closer) to unblock the scanner. If r
// does not implement io.Closer, the caller must close the underlying reader
// externally to prevent a goroutine leak.
func Stream(ctx context.Context, r io.Reader, fn ElementFunc, opts ...Option) (*Document, error) {
	if fn == nil {
		fn = func(Element) {}
	}
	p := NewParser(opts...)
	scanner := newScanner(r, p.maxLine)

	// Releases the scanner goroutine when parsing stops before EOF.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan scanResult)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanResult{line: scanner.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- scanResult{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	emitted := 0
	emit := func(upto int) {
		elems := p.Document().Elements()
		for ; emitted < upto; emitted++ {
			fn(elems[emitted])
		}
	}

	for {
		select {
		case <-ctx.Done():
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			return p.Document(), ctx.Err()
		case res, ok := <-lines:
			if !ok {
				err := p.Finish()
				emit(p.Document().Len())
				return p.Document(), err
			}
			if res.err != nil {
				return p.Document(), fmt.Errorf("scanning TAP stream: %w", res.err)
			}
			if err := p.Consume(trimCR(res.line)); err != nil {
				emit(p.settled())
				return p.Document(), err
			}
			emit(p.settled())
		}
	}
}

func newScanner(r io.Reader, maxLine int) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// The scanner's limit is the larger of maxLine and the initial capacity.
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	return scanner
}

func trimCR(s string) string {
	return strings.TrimSuffix(s, "\r")
}
