// Package insts provides floating-point instruction definitions and decoding.
//
// This package turns assembler-style text lines into structured instruction
// records consumed by the timing core. It supports:
//   - Arithmetic: ADDD, SUBD, MULTD (alias MULD), DIVD on F registers
//   - Memory: LD and SD with offset(base) addressing
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("MULTD F0 F2 F4")
//	fmt.Printf("Op: %v, Rd: %v, Rn: %v, Rm: %v\n", inst.Op, inst.Rd, inst.Rn, inst.Rm)
package insts
