// Command termsnap captures the visual output of a command-line program,
// the exact grid of glyphs, colors, and attributes a terminal would show,
// and writes it out as a self-contained SVG. The command runs under an
// in-process terminal emulator driven through a PTY; this file is only the
// flag parsing, environment lookup, and file output around that.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"termsnap"
)

const (
	defaultLines   = 24
	defaultColumns = 80
	defaultTerm    = "linux"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "termsnap: %v\n", r)
			os.Exit(1)
		}
	}()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "termsnap: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var interactive bool
	var outPath string
	var lines int
	var columns int
	var termName string

	cmd := &cobra.Command{
		Use:                "termsnap [flags] -- COMMAND [ARGS...]",
		Short:              "Capture a command's terminal output as an SVG",
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.ErrOrStderr(), runOptions{
				interactive: interactive,
				outPath:     outPath,
				lines:       lines,
				columns:     columns,
				termName:    termName,
				args:        args,
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&interactive, "interactive", "i", false, "run the command interactively, proxying the PTY to this process's stdin/stdout (requires --out)")
	flags.StringVarP(&outPath, "out", "o", "", "write the SVG here instead of stdout")
	flags.IntVarP(&lines, "lines", "l", 0, "grid rows (default: $LINES, else 24)")
	flags.IntVarP(&columns, "columns", "c", 0, "grid columns (default: $COLUMNS, else 80)")
	flags.StringVarP(&termName, "term", "t", defaultTerm, "TERM value passed to the child process")

	return cmd
}

type runOptions struct {
	interactive bool
	outPath     string
	lines       int
	columns     int
	termName    string
	args        []string
}

func run(stderr io.Writer, opts runOptions) error {
	if opts.interactive && opts.outPath == "" {
		return fmt.Errorf("--interactive requires --out; see `termsnap --help`")
	}
	if opts.interactive && (opts.lines != 0 || opts.columns != 0) {
		fmt.Fprintln(stderr, "termsnap: --lines/--columns have no effect when --interactive is set")
	}

	if len(opts.args) == 0 {
		return runNoCommand(opts)
	}

	lines, columns := resolveSize(opts)
	name, args := opts.args[0], opts.args[1:]

	var sink termsnap.ResponseSink
	var queue *termsnap.QueueSink
	if opts.interactive {
		sink = termsnap.NoopSink{}
	} else {
		queue = termsnap.NewQueueSink()
		sink = queue
	}

	proxy, err := termsnap.StartProxy(name, args, lines, columns, opts.termName, sink)
	if err != nil {
		return err
	}

	var screen termsnap.Screen
	if opts.interactive {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(stderr, "termsnap: stdin is not a tty")
		}
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Fprintln(stderr, "termsnap: stdout is not a tty")
		}
		screen, err = proxy.RunInteractive(os.Stdin, os.Stdout)
	} else {
		screen, err = proxy.RunNonInteractive()
	}
	if err != nil {
		return err
	}

	return writeSVG(screen, opts.outPath)
}

// runNoCommand handles the command-less invocation: an error when stdin is
// a terminal (there is nothing to capture), else stdin is treated as an
// already-recorded byte stream.
func runNoCommand(opts runOptions) error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("no COMMAND given and stdin is a terminal; pass a command or pipe recorded terminal output on stdin")
	}

	lines, columns := resolveSize(opts)
	screen, err := termsnap.RunFallback(os.Stdin, lines, columns)
	if err != nil {
		return err
	}
	return writeSVG(screen, opts.outPath)
}

// resolveSize picks the grid size. In interactive mode it is the terminal's
// current size, else 24x80 (flags and $LINES/$COLUMNS are not consulted).
// Otherwise each dimension is the explicit flag, else $LINES/$COLUMNS, else
// 24x80.
func resolveSize(opts runOptions) (lines, columns int) {
	if opts.interactive {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && h > 0 {
			return h, w
		}
		return defaultLines, defaultColumns
	}

	lines = opts.lines
	if lines == 0 {
		lines = envInt("LINES", defaultLines)
	}
	columns = opts.columns
	if columns == 0 {
		columns = envInt("COLUMNS", defaultColumns)
	}
	return lines, columns
}

func envInt(name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeSVG(screen termsnap.Screen, outPath string) error {
	svg := termsnap.RenderSVG(screen, nil)

	if outPath == "" {
		_, err := fmt.Println(svg)
		return err
	}

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", outPath, err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, svg); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}
