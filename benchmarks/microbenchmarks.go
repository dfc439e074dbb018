package benchmarks

import "github.com/sarchlab/tomasim/timing/latency"

// GetMicrobenchmarks returns the standard set of kernels. Each one targets a
// single scheduling behavior.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentAdds(),
		rawChain(),
		warWawRename(),
		structuralMul(),
		loadUse(),
		storeLoad(),
		textbook(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		rawChain(),
		structuralMul(),
		textbook(),
	}
}

// 1. Independent adds - adder throughput limited by station count
func independentAdds() Benchmark {
	return Benchmark{
		Name:        "independent_adds",
		Description: "6 independent ADDD - measures adder throughput with 3 stations",
		Source: `
ADDD F0 F1 F2
ADDD F3 F4 F5
ADDD F6 F7 F8
ADDD F9 F10 F11
ADDD F12 F13 F14
ADDD F15 F16 F17
`,
	}
}

// 2. RAW chain - every instruction waits for its predecessor on the bus
func rawChain() Benchmark {
	return Benchmark{
		Name:        "raw_chain",
		Description: "MULTD feeding a chain of ADDD/SUBD - measures tag wait latency",
		Setup: func(config *latency.TimingConfig) {
			config.InitialFP = map[string]float64{"F2": 3, "F4": 4, "F8": 1}
		},
		Source: `
MULTD F0 F2 F4
ADDD F6 F0 F8
SUBD F10 F6 F8
ADDD F12 F10 F6
`,
	}
}

// 3. WAR/WAW - renaming lets writers overtake readers of the old value
func warWawRename() Benchmark {
	return Benchmark{
		Name:        "war_waw_rename",
		Description: "Overlapping reads and writes of F2/F4 - exercises register renaming",
		Source: `
DIVD F2 F0 F6
ADDD F6 F8 F2
SUBD F8 F10 F14
MULTD F6 F10 F8
ADDD F2 F4 F6
`,
	}
}

// 4. Structural - more multiplies than multiplier stations
func structuralMul() Benchmark {
	return Benchmark{
		Name:        "structural_mul",
		Description: "4 independent MULTD into 2 stations - measures issue stalls",
		Source: `
MULTD F0 F2 F4
MULTD F6 F8 F10
MULTD F12 F14 F16
MULTD F18 F20 F22
`,
	}
}

// 5. Load use - arithmetic waiting on loads with unresolved memory
func loadUse() Benchmark {
	return Benchmark{
		Name:        "load_use",
		Description: "Loads feeding arithmetic - measures load-to-use latency",
		Setup: func(config *latency.TimingConfig) {
			config.InitialInt = map[string]float64{"R1": 0}
			config.InitialMemory = map[string]float64{"0": 1.5, "8": 2.5}
		},
		Source: `
LD F2 0(R1)
LD F4 8(R1)
ADDD F6 F2 F4
MULTD F8 F6 F6
`,
	}
}

// 6. Store then load - memory ordering through the memory map
func storeLoad() Benchmark {
	return Benchmark{
		Name:        "store_load",
		Description: "Stores followed by loads of the same addresses",
		Setup: func(config *latency.TimingConfig) {
			config.InitialFP = map[string]float64{"F2": 2, "F4": 5}
			config.InitialInt = map[string]float64{"R1": 64}
		},
		Source: `
ADDD F6 F2 F4
SD F6 0(R1)
SD F4 8(R1)
LD F8 0(R1)
LD F10 8(R1)
MULTD F12 F8 F10
`,
	}
}

// 7. Textbook - the classic six-instruction example
func textbook() Benchmark {
	return Benchmark{
		Name:        "textbook",
		Description: "Classic Tomasulo example with loads, multiply and divide",
		Source: `
LD F6 34(R2)
LD F2 45(R3)
MULTD F0 F2 F4
SUBD F8 F6 F2
DIVD F10 F0 F6
ADDD F6 F8 F2
`,
	}
}
