// Package main provides the entry point for tomasim.
// tomasim runs a floating-point program through a cycle-accurate dynamic
// scheduling core and prints the per-cycle state and instruction timeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/rs/xid"
	"golang.org/x/term"

	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/trace"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	verbose    bool
	showTrace  bool
	dump       bool
	engine     bool
	maxCycles  uint64
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("tomasim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to timing configuration JSON or YAML file")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.BoolVar(&opts.showTrace, "trace", true, "Print the state of every cycle")
	fs.BoolVar(&opts.dump, "dump", false, "Pretty-print the final core state")
	fs.BoolVar(&opts.engine, "engine", false, "Drive the core from an akita engine")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", core.DefaultMaxCycles, "Stop after this many cycles (0 for no limit)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: tomasim [options] <program.s>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}

	logger := newLogger(stderr, opts.verbose).With("run", xid.New().String())
	if err := simulate(fs.Arg(0), opts, stdout, logger); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func simulate(programPath string, opts options, stdout io.Writer, logger *slog.Logger) error {
	timingConfig := latency.DefaultTimingConfig()
	if opts.configPath != "" {
		var err error
		timingConfig, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			return fmt.Errorf("loading timing config: %w", err)
		}
	}

	c, err := core.NewCore(
		core.WithLatencyTable(latency.NewTableWithConfig(timingConfig)),
		core.WithLogger(logger),
		core.WithMaxCycles(opts.maxCycles),
	)
	if err != nil {
		return err
	}

	prog, err := loader.Load(programPath, c.Decoder())
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	c.Load(prog.Instructions)
	logger.Info("loaded program", "path", programPath, "instructions", prog.Len())

	rec := trace.NewRecorder()
	c.AcceptHook(rec)

	var stats core.Stats
	if opts.engine {
		stats, err = core.RunOnEngine(c)
	} else {
		stats, err = c.Run()
	}

	report := trace.WriteTimeline
	if opts.showTrace {
		report = rec.WriteReport
	}
	if werr := report(stdout, c.Timeline()); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}

	printStats(stdout, programPath, stats)

	if opts.dump {
		printer := pp.New()
		printer.SetOutput(stdout)
		printer.SetColoringEnabled(isTerminal(stdout))
		_, _ = printer.Println(c.Snapshot())
	}

	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printStats(w io.Writer, programPath string, stats core.Stats) {
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Program: %s\n", programPath)
	_, _ = fmt.Fprintf(w, "Total Instructions: %d\n", stats.Issued)
	_, _ = fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	_, _ = fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Events:\n")
	_, _ = fmt.Fprintf(w, "  Structural stalls: %d\n", stats.StructuralStalls)
	_, _ = fmt.Fprintf(w, "  Bus stalls:        %d\n", stats.BusStalls)
	_, _ = fmt.Fprintf(w, "  Broadcasts:        %d\n", stats.Broadcasts)
	if stats.CacheHits > 0 || stats.CacheMisses > 0 {
		_, _ = fmt.Fprintf(w, "  D-Cache hits:      %d\n", stats.CacheHits)
		_, _ = fmt.Fprintf(w, "  D-Cache misses:    %d\n", stats.CacheMisses)
	}
}
