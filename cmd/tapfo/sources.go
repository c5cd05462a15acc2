package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/tapfo/internal/config"
	"github.com/dkoosis/tapfo/internal/detect"
	"github.com/dkoosis/tapfo/pkg/mapper"
	"github.com/dkoosis/tapfo/pkg/tap"
)

const (
	stdinName = "stdin"
	sniffSize = 8 * 1024
)

// inputNames maps command arguments to source names; no arguments and "-"
// both mean stdin.
func inputNames(args []string) []string {
	if len(args) == 0 {
		return []string{stdinName}
	}
	names := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			arg = stdinName
		}
		names = append(names, arg)
	}
	return names
}

func parserOptions(cfg *config.Resolved) ([]tap.Option, error) {
	dec, err := tap.DecoderByName(cfg.YAMLEngine)
	if err != nil {
		return nil, err
	}
	opts := []tap.Option{tap.WithDecoder(dec), tap.WithMaxLineLength(cfg.MaxLineLength)}
	if cfg.Lenient {
		opts = append(opts, tap.WithLenientHeader())
	}
	return opts, nil
}

// loadSources parses every named input, cfg.Jobs at a time, with one parser
// per input. Parse errors are kept on the source; only failures to open an
// input or unusable input abort the whole load.
func (a *app) loadSources(ctx context.Context, names []string, cfg *config.Resolved) ([]mapper.Source, error) {
	opts, err := parserOptions(cfg)
	if err != nil {
		return nil, &exitError{code: 2, err: err}
	}
	if stdinCount(names) > 1 {
		return nil, usageErrorf("stdin given more than once")
	}
	if stdinCount(names) == 1 && isTerminalReader(a.stdin) {
		return nil, usageErrorf("no input: pass TAP files or pipe a TAP stream on stdin")
	}

	sources := make([]mapper.Source, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for i, name := range names {
		g.Go(func() error {
			r, closeFn, err := a.open(name)
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			defer closeFn()
			// Stream only sees the bufio.Reader, so a read blocked on r is
			// released here when the group is cancelled.
			if c, ok := r.(io.Closer); ok {
				stop := context.AfterFunc(ctx, func() { _ = c.Close() })
				defer stop()
			}

			br := bufio.NewReaderSize(r, sniffSize)
			if err := a.checkInput(name, br, cfg); err != nil {
				return err
			}
			doc, perr := tap.Stream(ctx, br, nil, opts...)
			if errors.Is(perr, context.Canceled) {
				return perr
			}
			sources[i] = mapper.Source{Name: name, Doc: doc, Err: perr}
			if a.debug {
				s := tap.ComputeStats(doc)
				a.debugf("%s: %d elements, %d tests, %d diagnostics, err=%v",
					name, doc.Len(), s.TotalTests, s.Diagnostics, perr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func stdinCount(names []string) int {
	n := 0
	for _, name := range names {
		if name == stdinName {
			n++
		}
	}
	return n
}

func (a *app) open(name string) (io.Reader, func(), error) {
	if name == stdinName {
		return a.stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// checkInput sniffs the head of an input without consuming it. Empty stdin
// and go test -json are rejected; headerless TAP gets a hint unless the
// lenient mode that accepts it is on.
func (a *app) checkInput(name string, br *bufio.Reader, cfg *config.Resolved) error {
	peeked, _ := br.Peek(sniffSize)
	if len(peeked) == 0 && name == stdinName {
		return usageErrorf("no input on stdin")
	}
	switch detect.Sniff(peeked) {
	case detect.GoTestJSON:
		return usageErrorf("%s: input is go test -json, not TAP (convert it first, e.g. with a go test to TAP reporter)", name)
	case detect.TAPNoHeader:
		if !cfg.Lenient {
			a.warnf("%s: no \"TAP version 13\" header; pass --lenient to accept headerless TAP", name)
		}
	}
	return nil
}
