// tapfo renders TAP version 13 test output as information-dense terminal
// visualizations.
//
// Usage:
//
//	prove -v t/ | tapfo
//	node --test --test-reporter=tap | tapfo
//	tapfo results/*.tap
//	tapfo browse results.tap
//	tapfo export --to yaml results.tap
//
// Output modes (auto-detected):
//
//	terminal  styled Unicode output (default when TTY)
//	llm       terse plain text for AI consumption (default when piped)
//	json      structured JSON for automation
//
// With a single piped stream and a terminal on stdout, results are shown live
// as they arrive.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkoosis/tapfo/internal/config"
	"github.com/dkoosis/tapfo/internal/version"
	"github.com/dkoosis/tapfo/pkg/browse"
	"github.com/dkoosis/tapfo/pkg/export"
	"github.com/dkoosis/tapfo/pkg/mapper"
	"github.com/dkoosis/tapfo/pkg/render"
	"github.com/dkoosis/tapfo/pkg/stream"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return newApp(stdin, stdout, stderr).execute(args)
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

// app holds the I/O endpoints and flag values shared by all commands.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	getenv         func(string) string
	getwd          func() (string, error)

	flags  config.Flags
	debug  bool
	format string
	to     string
	code   int

	mu        sync.Mutex // serializes stderr writes from parser goroutines
	errColor  *color.Color
	warnColor *color.Color
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	a := &app{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		getenv:    os.Getenv,
		getwd:     os.Getwd,
		errColor:  color.New(color.FgRed, color.Bold),
		warnColor: color.New(color.FgYellow),
	}
	if !isTTYWriter(stderr) {
		a.errColor.DisableColor()
		a.warnColor.DisableColor()
	}
	return a
}

func (a *app) execute(args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.Execute()
	if err == nil {
		return a.code
	}
	a.errorf("%v", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 2 // cobra flag and argument errors
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tapfo [file...]",
		Short: "Render TAP version 13 test output",
		Long: `tapfo parses TAP version 13 streams from files or stdin ("-") and renders
a summary of failures, skips, TODOs, bail-outs and diagnostics.

Exit codes: 0 all tests pass, 1 failures or bail-out, 2 usage, input or parse errors.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runRender,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.Theme, "theme", "", "Theme: default, orca, mono")
	pf.StringVar(&a.flags.YAMLEngine, "yaml-engine", "", "Diagnostic YAML decoder: yaml.v3, goccy")
	pf.BoolVar(&a.flags.Lenient, "lenient", false, "Accept TAP without a version header")
	pf.IntVar(&a.flags.MaxLineLength, "max-line-length", 0, "Longest accepted input line in bytes")
	pf.IntVarP(&a.flags.Jobs, "jobs", "j", 0, "Number of files parsed concurrently")
	pf.BoolVar(&a.debug, "debug", false, "Print configuration and parse statistics to stderr")

	root.Flags().StringVar(&a.format, "format", "auto", "Output format: auto, terminal, llm, json")

	root.AddCommand(a.browseCmd(), a.exportCmd(), a.versionCmd())
	return root
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [file...]",
		Short: "Explore results and diagnostics interactively",
		Args:  cobra.ArbitraryArgs,
		RunE:  a.runBrowse,
	}
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file...]",
		Short: "Write the parsed document as JSON, YAML or MessagePack",
		Args:  cobra.ArbitraryArgs,
		RunE:  a.runExport,
	}
	cmd.Flags().StringVar(&a.to, "to", "json", "Encoding: json, yaml, msgpack")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(a.stdout, version.String())
			return nil
		},
	}
}

// resolve merges flags, environment and the project config file.
func (a *app) resolve(cmd *cobra.Command) (*config.Resolved, error) {
	a.flags.LenientSet = cmd.Flags().Changed("lenient")
	if a.format != "auto" {
		a.flags.Format = a.format
	}

	dir, err := a.getwd()
	if err != nil {
		return nil, &exitError{code: 2, err: fmt.Errorf("getting working directory: %w", err)}
	}
	file, err := config.Load(dir)
	if err != nil {
		return nil, &exitError{code: 2, err: err}
	}
	cfg, err := config.Resolve(a.flags, file, a.getenv)
	if err != nil {
		return nil, &exitError{code: 2, err: err}
	}
	if a.debug {
		a.debugf("config: file=%q theme=%s (%s) format=%q yaml=%s lenient=%t jobs=%d",
			cfg.ConfigPath, cfg.Theme, cfg.ThemeSource, cfg.Format, cfg.YAMLEngine, cfg.Lenient, cfg.Jobs)
	}
	return cfg, nil
}

func (a *app) runRender(cmd *cobra.Command, args []string) error {
	cfg, err := a.resolve(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	names := inputNames(args)
	if len(names) == 1 && names[0] == stdinName && cfg.Format == "" && isTTYWriter(a.stdout) {
		code, err := a.runLive(ctx, cfg)
		if err != nil {
			return err
		}
		a.code = code
		return nil
	}

	sources, err := a.loadSources(ctx, names, cfg)
	if err != nil {
		return err
	}

	mode := cfg.Format
	if mode == "" {
		mode = "llm"
		if isTTYWriter(a.stdout) {
			mode = "terminal"
		}
	}
	width, _ := termSize(a.stdout)
	r, err := render.ForFormat(mode, render.ThemeByName(cfg.Theme), width)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	fmt.Fprint(a.stdout, r.Render(mapper.FromSources(sources)))
	a.code = exitCode(sources)
	return nil
}

// runLive streams a single stdin input to the terminal as it arrives.
func (a *app) runLive(ctx context.Context, cfg *config.Resolved) (int, error) {
	opts, err := parserOptions(cfg)
	if err != nil {
		return 2, &exitError{code: 2, err: err}
	}
	if isTerminalReader(a.stdin) {
		return 2, usageErrorf("no input: pass TAP files or pipe a TAP stream on stdin")
	}
	br := bufio.NewReaderSize(a.stdin, sniffSize)
	if err := a.checkInput(stdinName, br, cfg); err != nil {
		return 2, err
	}
	// Stream sees only the bufio.Reader, so closing stdin on cancel is ours to do.
	if c, ok := a.stdin.(io.Closer); ok {
		stopClose := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stopClose()
	}
	width, height := termSize(a.stdout)
	style := liveStyle(render.ThemeByName(cfg.Theme))
	return stream.Run(ctx, br, a.stdout, width, height, style, opts...), nil
}

func (a *app) runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := a.resolve(cmd)
	if err != nil {
		return err
	}
	if !isTTYWriter(a.stdout) {
		return usageErrorf("browse needs a terminal on stdout")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sources, err := a.loadSources(ctx, inputNames(args), cfg)
	if err != nil {
		return err
	}
	opts := []tea.ProgramOption{tea.WithOutput(a.stdout)}
	if !isTerminalReader(a.stdin) {
		// stdin carried the TAP stream; read keys from the controlling terminal.
		opts = append(opts, tea.WithInputTTY())
	}
	code, err := browse.Run(ctx, sources, render.ThemeByName(cfg.Theme), opts...)
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("running browser: %w", err)}
	}
	a.code = code
	return nil
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	if !slices.Contains(export.Formats, a.to) {
		return usageErrorf("unknown export format %q (want json, yaml or msgpack)", a.to)
	}
	cfg, err := a.resolve(cmd)
	if err != nil {
		return err
	}
	sources, err := a.loadSources(cmd.Context(), inputNames(args), cfg)
	if err != nil {
		return err
	}

	streams := make([]export.Stream, 0, len(sources))
	for _, src := range sources {
		streams = append(streams, export.NewStream(src.Name, src.Doc, src.Err))
	}
	if err := export.Write(a.stdout, a.to, streams); err != nil {
		return &exitError{code: 2, err: fmt.Errorf("writing %s: %w", a.to, err)}
	}
	for _, src := range sources {
		if src.Err != nil {
			a.errorf("%s: %v", src.Name, src.Err)
			a.code = 2
		}
	}
	return nil
}

// exitCode returns 2 when any stream failed to parse, 1 when any stream has
// failures, a bail-out or a plan mismatch, and 0 otherwise.
func exitCode(sources []mapper.Source) int {
	code := 0
	for _, src := range sources {
		switch {
		case src.Err != nil:
			return 2
		case src.Failed():
			code = 1
		}
	}
	return code
}

func (a *app) errorf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stderr, "%s %s\n", a.errColor.Sprint("tapfo:"), fmt.Sprintf(format, args...))
}

func (a *app) warnf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stderr, "%s %s\n", a.warnColor.Sprint("tapfo: warning:"), fmt.Sprintf(format, args...))
}

func (a *app) debugf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stderr, "tapfo: debug: %s\n", fmt.Sprintf(format, args...))
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// isTerminalReader reports whether r is an interactive terminal, in which
// case there is no piped input to read.
func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}

// liveStyle colors live stream lines with the theme.
func liveStyle(theme render.Theme) stream.StyleFunc {
	return func(kind stream.LineKind, text string) string {
		switch kind {
		case stream.KindPass:
			return theme.Success.Render(text)
		case stream.KindFail, stream.KindBailOut:
			return theme.Error.Render(text)
		case stream.KindSkip:
			return theme.Warning.Render(text)
		case stream.KindTodo, stream.KindComment, stream.KindOutput, stream.KindSeparator:
			return theme.Muted.Render(text)
		case stream.KindPlan:
			return theme.Primary.Render(text)
		default:
			return text
		}
	}
}
