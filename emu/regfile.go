package emu

import (
	"fmt"

	"github.com/sarchlab/tomasim/insts"
)

// RegFile holds the architectural register banks.
// F registers are renamed by the timing core; R registers only serve as
// address bases and are never written by the simulated program.
type RegFile struct {
	F []Value
	R []Value
}

// NewRegFile creates register banks initialised to the placeholders R(Fn)
// and R(Rn).
func NewRegFile(numFP, numInt int) *RegFile {
	r := &RegFile{
		F: make([]Value, numFP),
		R: make([]Value, numInt),
	}
	for i := range r.F {
		r.F[i] = Sym(fmt.Sprintf("R(F%d)", i))
	}
	for i := range r.R {
		r.R[i] = Sym(fmt.Sprintf("R(R%d)", i))
	}
	return r
}

// ReadReg returns the value of reg.
func (r *RegFile) ReadReg(reg insts.Reg) Value {
	if reg.Class == insts.RegInt {
		return r.R[reg.Index]
	}
	return r.F[reg.Index]
}

// WriteReg sets the value of reg.
func (r *RegFile) WriteReg(reg insts.Reg, v Value) {
	if reg.Class == insts.RegInt {
		r.R[reg.Index] = v
		return
	}
	r.F[reg.Index] = v
}
