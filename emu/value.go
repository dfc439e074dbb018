// Package emu provides the functional side of the simulator: operand values,
// floating-point arithmetic, the data memory map, and the architectural
// register banks.
//
// Values are either numeric (float64) or symbolic. Symbolic values let a run
// trace where each result came from, e.g. "(R(F2) + R(F4)) * M(R(R2) + 34)",
// without assigning concrete numbers to registers or memory.
package emu

import "strconv"

// Value is a numeric or symbolic operand value.
type Value struct {
	Num      float64
	Sym      string
	Symbolic bool
}

// Num returns a numeric value.
func Num(f float64) Value {
	return Value{Num: f}
}

// Sym returns a symbolic value.
func Sym(s string) Value {
	return Value{Sym: s, Symbolic: true}
}

// Float returns the numeric value and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	return v.Num, !v.Symbolic
}

func (v Value) String() string {
	if v.Symbolic {
		return v.Sym
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// operandString renders v for use inside a larger expression.
func (v Value) operandString() string {
	s := v.String()
	if v.Symbolic && !isAtomic(s) {
		return "(" + s + ")"
	}
	return s
}

// isAtomic reports whether s has no blank outside parentheses.
func isAtomic(s string) bool {
	depth := 0
	for _, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ' ':
			if depth == 0 {
				return false
			}
		}
	}
	return true
}
