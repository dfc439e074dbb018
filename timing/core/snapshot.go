package core

import (
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/timing/cdb"
	"github.com/sarchlab/tomasim/timing/fu"
	"github.com/sarchlab/tomasim/timing/lsu"
)

// Snapshot is a deep copy of the visible core state at the end of a cycle.
type Snapshot struct {
	Cycle uint64
	PC    int

	// BusValid reports whether Bus holds the result committed this cycle.
	BusValid bool
	Bus      cdb.Result

	Adder      []fu.Station
	Multiplier []fu.Station
	Loads      []lsu.Entry
	Stores     []lsu.Entry

	// Registers holds the F bank, each either a value or a producer tag.
	Registers []cdb.Operand
	Ints      []emu.Value
	Memory    map[emu.Address]emu.Value
}

// Snapshot captures the current state.
func (c *Core) Snapshot() Snapshot {
	r, ok := c.bus.Read()
	ints := make([]emu.Value, len(c.regs.Arch().R))
	copy(ints, c.regs.Arch().R)

	return Snapshot{
		Cycle:      c.cycle,
		PC:         c.pc,
		BusValid:   ok,
		Bus:        r,
		Adder:      c.adder.Stations(),
		Multiplier: c.mul.Stations(),
		Loads:      c.mem.Loads(),
		Stores:     c.mem.Stores(),
		Registers:  c.regs.Registers(),
		Ints:       ints,
		Memory:     c.memory.Contents(),
	}
}
