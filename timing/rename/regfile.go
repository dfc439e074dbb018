// Package rename provides the register file with register renaming.
//
// Each F register holds either its architectural value or the tag of the
// youngest in-flight instruction that will write it. Issuing a writer
// overwrites the tag, so older producers no longer update the register and
// WAW and WAR hazards disappear. R registers are address bases only and are
// never renamed.
package rename

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cdb"
)

// ErrNotRenamable is returned when renaming a register outside the F bank.
var ErrNotRenamable = errors.New("register cannot be renamed")

// RegisterFile tracks pending producers on top of the architectural
// register banks.
type RegisterFile struct {
	regs *emu.RegFile
	bus  *cdb.Bus
	tags []cdb.Tag
}

// NewRegisterFile wraps regs. All registers start resolved.
func NewRegisterFile(regs *emu.RegFile, bus *cdb.Bus) *RegisterFile {
	return &RegisterFile{
		regs: regs,
		bus:  bus,
		tags: make([]cdb.Tag, len(regs.F)),
	}
}

// Read returns the value or pending tag of reg. If the bus currently
// carries the pending tag, the carried value is returned instead.
func (f *RegisterFile) Read(reg insts.Reg) cdb.Operand {
	if reg.Class != insts.RegFP {
		return cdb.Ready(f.regs.ReadReg(reg))
	}

	tag := f.tags[reg.Index]
	if !tag.Valid() {
		return cdb.Ready(f.regs.ReadReg(reg))
	}
	if r, ok := f.bus.Read(); ok && r.Tag == tag {
		return cdb.Ready(r.Value)
	}
	return cdb.Pending(tag)
}

// SetProducer renames reg to the result of tag, replacing any earlier
// pending producer.
func (f *RegisterFile) SetProducer(reg insts.Reg, tag cdb.Tag) error {
	if reg.Class != insts.RegFP {
		return fmt.Errorf("%w: %v", ErrNotRenamable, reg)
	}
	f.tags[reg.Index] = tag
	return nil
}

// Advance resolves every register waiting on the committed bus result.
func (f *RegisterFile) Advance() {
	r, ok := f.bus.Read()
	if !ok {
		return
	}
	for i, tag := range f.tags {
		if tag.Valid() && tag == r.Tag {
			f.regs.F[i] = r.Value
			f.tags[i] = cdb.Tag{}
		}
	}
}

// Registers returns the state of every F register.
func (f *RegisterFile) Registers() []cdb.Operand {
	out := make([]cdb.Operand, len(f.tags))
	for i, tag := range f.tags {
		if tag.Valid() {
			out[i] = cdb.Pending(tag)
		} else {
			out[i] = cdb.Ready(f.regs.F[i])
		}
	}
	return out
}

// Pending returns the number of renamed registers.
func (f *RegisterFile) Pending() int {
	n := 0
	for _, tag := range f.tags {
		if tag.Valid() {
			n++
		}
	}
	return n
}

// Arch returns the architectural register banks.
func (f *RegisterFile) Arch() *emu.RegFile {
	return f.regs
}

// Reset clears every pending producer.
func (f *RegisterFile) Reset() {
	for i := range f.tags {
		f.tags[i] = cdb.Tag{}
	}
}
