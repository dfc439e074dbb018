// Validate decoder throughput - measures allocations per decoded line
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sarchlab/tomasim/insts"
)

func main() {
	decoder := insts.NewDecoder()

	lines := []string{
		"LD F6 34(R2)",
		"MULTD F0 F2 F4",
		"SUBD F8, F6, F2",
		"SD F6 0(R1) ; store back",
	}

	// Warm up
	for i := 0; i < 1000; i++ {
		_, _ = decoder.Decode(lines[i%len(lines)])
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	iterations := 100000

	for i := 0; i < iterations; i++ {
		for _, l := range lines {
			if _, err := decoder.Decode(l); err != nil {
				fmt.Printf("❌ decode %q failed: %v\n", l, err)
				return
			}
		}
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	totalDecodes := iterations * len(lines)
	allocations := m2.Mallocs - m1.Mallocs
	allocatedBytes := m2.TotalAlloc - m1.TotalAlloc

	fmt.Printf("Decoder Validation Results:\n")
	fmt.Printf("===========================\n")
	fmt.Printf("Total decode operations: %d\n", totalDecodes)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Decodes per second: %.0f\n", float64(totalDecodes)/elapsed.Seconds())
	fmt.Printf("Allocations: %d\n", allocations)
	fmt.Printf("Allocated bytes: %d\n", allocatedBytes)
	fmt.Printf("Allocations per decode: %.3f\n", float64(allocations)/float64(totalDecodes))
	fmt.Printf("Bytes per decode: %.1f\n", float64(allocatedBytes)/float64(totalDecodes))

	if float64(allocations)/float64(totalDecodes) <= 4 {
		fmt.Printf("\n✅ GOOD: Low allocation rate (<= 4 per decode)\n")
	} else {
		fmt.Printf("\n⚠️  WARNING: High allocation rate detected\n")
	}
}
