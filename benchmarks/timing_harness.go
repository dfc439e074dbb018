// Package benchmarks provides kernels and a harness for measuring how the
// scheduling core handles dependencies and resource pressure.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsIssued is the number of issued instructions
	InstructionsIssued uint64 `json:"instructions_issued"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StructuralStalls counts cycles issue waited for a free station
	StructuralStalls uint64 `json:"structural_stalls"`

	// BusStalls counts cycles a ready result waited for the bus
	BusStalls uint64 `json:"bus_stalls"`

	// Broadcasts is the number of results carried by the bus
	Broadcasts uint64 `json:"broadcasts"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Source holds the program, one instruction per line
	Source string

	// Setup adjusts the timing configuration, e.g. initial values
	Setup func(config *latency.TimingConfig)
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the base timing configuration. Nil uses the defaults.
	Timing *latency.TimingConfig

	// EnableDCache enables data cache simulation
	EnableDCache bool

	// Parallelism bounds how many benchmarks run at once. Each simulation
	// is single threaded. Zero uses GOMAXPROCS.
	Parallelism int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache: false,
		Output:       os.Stdout,
		Verbose:      false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
	runID      string
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
		runID:      xid.New().String(),
	}
}

// RunID identifies this harness in reports.
func (h *Harness) RunID() string {
	return h.runID
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results in the order they were
// added. It stops at the first failing benchmark.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, len(h.benchmarks))

	var g errgroup.Group
	g.SetLimit(h.config.Parallelism)
	for i, bench := range h.benchmarks {
		g.Go(func() error {
			r, err := h.runBenchmark(bench)
			if err != nil {
				return fmt.Errorf("benchmark %s: %w", bench.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (h *Harness) timingConfig(bench Benchmark) *latency.TimingConfig {
	config := latency.DefaultTimingConfig()
	if h.config.Timing != nil {
		config = h.config.Timing.Clone()
	}
	if h.config.EnableDCache && config.DataCache == nil {
		dc := cache.DefaultConfig()
		config.DataCache = &dc
	}
	if bench.Setup != nil {
		bench.Setup(config)
	}
	return config
}

// runBenchmark executes a single benchmark on a fresh core.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	c, err := core.NewCore(
		core.WithLatencyTable(latency.NewTableWithConfig(h.timingConfig(bench))))
	if err != nil {
		return BenchmarkResult{}, err
	}

	prog, err := loader.Parse(strings.NewReader(bench.Source), c.Decoder())
	if err != nil {
		return BenchmarkResult{}, err
	}
	c.Load(prog.Instructions)

	start := time.Now()
	stats, err := c.Run()
	wallTime := time.Since(start)
	if err != nil {
		return BenchmarkResult{}, err
	}

	return BenchmarkResult{
		Name:               bench.Name,
		Description:        bench.Description,
		SimulatedCycles:    stats.Cycles,
		InstructionsIssued: stats.Issued,
		CPI:                stats.CPI(),
		StructuralStalls:   stats.StructuralStalls,
		BusStalls:          stats.BusStalls,
		Broadcasts:         stats.Broadcasts,
		DCacheHits:         stats.CacheHits,
		DCacheMisses:       stats.CacheMisses,
		WallTime:           wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Tomasim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Issued:  %d\n", r.InstructionsIssued)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Structural Stalls:    %d\n", r.StructuralStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Bus Stalls:           %d\n", r.BusStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Broadcasts:           %d\n", r.Broadcasts)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		}
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,structural_stalls,bus_stalls,broadcasts,dcache_hits,dcache_misses")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsIssued,
			r.CPI,
			r.StructuralStalls,
			r.BusStalls,
			r.Broadcasts,
			r.DCacheHits,
			r.DCacheMisses,
		)
	}
}

// BenchmarkReport is the JSON document written by PrintJSON.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata describes the run that produced a report.
type ReportMetadata struct {
	RunID     string                `json:"run_id"`
	Timestamp string                `json:"timestamp"`
	Timing    *latency.TimingConfig `json:"timing"`
	DCache    bool                  `json:"dcache_enabled"`
}

// ReportSummary aggregates all results of a report.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions issued
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsIssued
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	timing := h.config.Timing
	if timing == nil {
		timing = latency.DefaultTimingConfig()
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			RunID:     h.runID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Timing:    timing,
			DCache:    h.config.EnableDCache,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
