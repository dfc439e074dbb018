// Package main checks that every way of driving the core produces the same
// cycle-level results.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/tomasim/benchmarks"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/trace"
)

// testDecoderRoundTrip validates that printing and re-decoding an
// instruction yields the same instruction.
func testDecoderRoundTrip() bool {
	decoder := insts.NewDecoder()

	testCases := []string{
		"ADDD F2 F4 F6",
		"subd f8, f6, f2",
		"MULD F0 F2 F4",
		"DIVD F10 F0 F6",
		"LD F6 34(R2)",
		"LD F2 45+ R3",
		"SD F4 -8(R1)",
	}

	fmt.Println("Testing instruction decoder round trip...")

	for i, line := range testCases {
		inst1, err := decoder.Decode(line)
		if err != nil {
			fmt.Printf("❌ Test case %d failed: %v\n", i, err)
			return false
		}
		inst2, err := decoder.Decode(inst1.String())
		if err != nil {
			fmt.Printf("❌ Test case %d failed to re-decode %q: %v\n", i, inst1.String(), err)
			return false
		}

		if inst1.Op != inst2.Op ||
			inst1.Rd != inst2.Rd ||
			inst1.Rn != inst2.Rn ||
			inst1.Rm != inst2.Rm ||
			inst1.Imm != inst2.Imm {
			fmt.Printf("❌ Test case %d failed: Decode mismatch\n", i)
			fmt.Printf("  first:  %+v\n", inst1)
			fmt.Printf("  second: %+v\n", inst2)
			return false
		}

		fmt.Printf("✅ Test case %d: %q decoded as %s\n", i, line, inst1.String())
	}

	return true
}

type runResult struct {
	stats    core.Stats
	timeline []core.Timeline
	final    core.Snapshot
}

func newCore(b benchmarks.Benchmark) (*core.Core, error) {
	config := latency.DefaultTimingConfig()
	if b.Setup != nil {
		b.Setup(config)
	}

	c, err := core.NewCore(core.WithLatencyTable(latency.NewTableWithConfig(config)))
	if err != nil {
		return nil, err
	}
	prog, err := loader.Parse(strings.NewReader(b.Source), c.Decoder())
	if err != nil {
		return nil, err
	}
	c.Load(prog.Instructions)

	return c, nil
}

func collect(c *core.Core, stats core.Stats) runResult {
	return runResult{stats: stats, timeline: c.Timeline(), final: c.Snapshot()}
}

func same(name, mode string, want, got runResult) bool {
	if want.stats != got.stats {
		fmt.Printf("❌ %s (%s): stats differ: %+v vs %+v\n", name, mode, want.stats, got.stats)
		return false
	}
	if len(want.timeline) != len(got.timeline) {
		fmt.Printf("❌ %s (%s): timeline length differs\n", name, mode)
		return false
	}
	for i := range want.timeline {
		if want.timeline[i] != got.timeline[i] {
			fmt.Printf("❌ %s (%s): timeline entry %d differs\n", name, mode, i)
			return false
		}
	}
	if d := trace.Diff(want.final, got.final); d != "" {
		fmt.Printf("❌ %s (%s): final state differs:\n%s\n", name, mode, d)
		return false
	}
	return true
}

// testDrivingModes validates that Run, the akita engine and a reset replay
// agree on every benchmark.
func testDrivingModes() bool {
	fmt.Println("\nTesting driving mode consistency...")

	for _, b := range benchmarks.GetMicrobenchmarks() {
		c, err := newCore(b)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", b.Name, err)
			return false
		}
		stats, err := c.Run()
		if err != nil {
			fmt.Printf("❌ %s: %v\n", b.Name, err)
			return false
		}
		want := collect(c, stats)

		c.Reset()
		stats, err = c.Run()
		if err != nil || !same(b.Name, "reset", want, collect(c, stats)) {
			return false
		}

		other, err := newCore(b)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", b.Name, err)
			return false
		}
		stats, err = core.RunOnEngine(other)
		if err != nil || !same(b.Name, "engine", want, collect(other, stats)) {
			return false
		}

		fmt.Printf("✅ %s: %d cycles in every mode\n", b.Name, want.stats.Cycles)
	}

	return true
}

func main() {
	fmt.Println("Tomasim Accuracy Validation")
	fmt.Println("===========================")

	allPassed := true

	if !testDecoderRoundTrip() {
		allPassed = false
	}

	if !testDrivingModes() {
		allPassed = false
	}

	if !allPassed {
		fmt.Println("\n❌ Validation failed")
		os.Exit(1)
	}
	fmt.Println("\n✅ All validations passed")
}
