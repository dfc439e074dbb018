// Command benchmark runs the tomasim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv       Output results in CSV format (default: human-readable)
//	-json      Output results in JSON format
//	-dcache    Enable data cache simulation
//	-config    Timing configuration file
//	-parallel  Number of benchmarks to run at once
//	-core      Run only the core benchmarks
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/tomasim/benchmarks"
	"github.com/sarchlab/tomasim/timing/latency"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	dcache := flag.Bool("dcache", false, "Enable data cache simulation")
	configPath := flag.String("config", "", "Path to timing configuration JSON or YAML file")
	parallel := flag.Int("parallel", 0, "Number of benchmarks to run at once (0 for GOMAXPROCS)")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.EnableDCache = *dcache
	config.Parallelism = *parallel
	config.Verbose = *verbose
	config.Output = os.Stdout
	if *configPath != "" {
		timing, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		config.Timing = timing
	}

	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("Tomasim Timing Benchmark Harness")
		fmt.Println("================================")
		fmt.Printf("Run:     %s\n", harness.RunID())
		fmt.Printf("D-Cache: %v\n", config.EnableDCache)
		fmt.Println("")
	}

	results, err := harness.RunAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		fmt.Println("=== Summary ===")
		fmt.Println("")
		fmt.Println("Expected characteristics:")
		fmt.Println("- independent_adds: stalls only once the adder stations fill up")
		fmt.Println("- raw_chain: each result waits for its producer's broadcast")
		fmt.Println("- war_waw_rename: renaming hides false dependencies")
		fmt.Println("- structural_mul: issue stalls behind two multiplier stations")
		fmt.Println("- load_use / store_load: memory latency on the critical path")
	}
}
