// Package fu implements floating-point functional units built from a
// circular set of reservation stations.
//
// Stations are allocated at the tail and only the head station may execute
// and write back, so results leave a unit in issue order. A unit that cannot
// allocate a station reports a structural hazard and the caller retries the
// same instruction in a later cycle.
package fu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cdb"
	"github.com/sarchlab/tomasim/timing/latency"
)

// NotStarted is the countdown value of a station that has not begun
// executing.
const NotStarted = -1

// ErrUnknownOp is returned when an op is issued to a unit that cannot
// execute it.
var ErrUnknownOp = errors.New("operation not supported by unit")

// Station is one reservation station.
type Station struct {
	Busy bool
	Op   insts.Op
	Src1 cdb.Operand
	Src2 cdb.Operand

	// Remaining counts down execution cycles; NotStarted until both
	// sources are ready.
	Remaining int

	// Result holds the value once staged on the bus.
	Result emu.Value
}

// Ready returns true if both sources hold values.
func (s *Station) Ready() bool {
	return s.Src1.IsReady() && s.Src2.IsReady()
}

// snoop resolves sources waiting on r.
func (s *Station) snoop(r cdb.Result) {
	s.Src1.Snoop(r.Tag, r.Value)
	s.Src2.Snoop(r.Tag, r.Value)
}

// Unit is a functional unit such as the FP adder or multiplier.
type Unit struct {
	*sim.HookableBase

	kind    cdb.UnitKind
	bus     *cdb.Bus
	latency *latency.Table
	ops     map[insts.Op]bool

	stations []Station
	head     int
	tail     int

	busStalls uint64
}

// NewUnit creates a unit of the given kind with size stations that executes
// the listed ops.
func NewUnit(
	kind cdb.UnitKind,
	size int,
	bus *cdb.Bus,
	table *latency.Table,
	ops ...insts.Op,
) *Unit {
	u := &Unit{
		HookableBase: sim.NewHookableBase(),
		kind:         kind,
		bus:          bus,
		latency:      table,
		ops:          make(map[insts.Op]bool, len(ops)),
		stations:     make([]Station, size),
	}
	for _, op := range ops {
		u.ops[op] = true
	}
	u.Reset()
	return u
}

// NewAdder creates the ADDD/SUBD unit.
func NewAdder(size int, bus *cdb.Bus, table *latency.Table) *Unit {
	return NewUnit(cdb.UnitAdd, size, bus, table, insts.OpADDD, insts.OpSUBD)
}

// NewMultiplier creates the MULTD/DIVD unit.
func NewMultiplier(size int, bus *cdb.Bus, table *latency.Table) *Unit {
	return NewUnit(cdb.UnitMul, size, bus, table, insts.OpMULTD, insts.OpDIVD)
}

// Kind returns the unit kind used in its tags.
func (u *Unit) Kind() cdb.UnitKind {
	return u.kind
}

// Supports returns true if the unit executes op.
func (u *Unit) Supports(op insts.Op) bool {
	return u.ops[op]
}

func (u *Unit) tagOf(slot int) cdb.Tag {
	return cdb.Tag{Unit: u.kind, Slot: slot}
}

// Issue places op into the tail station. It returns ok=false without error
// when the tail station is still busy.
func (u *Unit) Issue(op insts.Op, src1, src2 cdb.Operand) (tag cdb.Tag, ok bool, err error) {
	if !u.ops[op] {
		return cdb.Tag{}, false, fmt.Errorf("%w: %v on %v", ErrUnknownOp, op, u.kind)
	}

	s := &u.stations[u.tail]
	if s.Busy {
		return cdb.Tag{}, false, nil
	}

	*s = Station{
		Busy:      true,
		Op:        op,
		Src1:      src1,
		Src2:      src2,
		Remaining: NotStarted,
	}
	tag = u.tagOf(u.tail)
	u.tail = (u.tail + 1) % len(u.stations)

	return tag, true, nil
}

// Advance runs one cycle: snoop the bus into every busy station, then move
// the head station one step through start, countdown, write back and retire.
func (u *Unit) Advance() error {
	if r, ok := u.bus.Read(); ok {
		for i := range u.stations {
			if u.stations[i].Busy {
				u.stations[i].snoop(r)
			}
		}
	}

	s := &u.stations[u.head]
	if !s.Busy {
		return nil
	}
	tag := u.tagOf(u.head)

	switch {
	case s.Remaining == NotStarted:
		if !s.Ready() {
			return nil
		}
		lat, err := u.latency.GetLatency(s.Op)
		if err != nil {
			return err
		}
		s.Remaining = int(lat)
		u.invoke(cdb.HookPosExecStart, tag)

	case s.Remaining > 1:
		s.Remaining--

	case s.Remaining == 1:
		if u.bus.Staged() {
			u.busStalls++
			return nil
		}
		result, err := emu.Execute(s.Op, s.Src1.Value, s.Src2.Value)
		if err != nil {
			return err
		}
		if err := u.bus.Write(tag, result); err != nil {
			return err
		}
		s.Result = result
		s.Remaining = 0
		u.invoke(cdb.HookPosExecComplete, tag)

	default:
		u.stations[u.head] = Station{Remaining: NotStarted}
		u.head = (u.head + 1) % len(u.stations)
		u.invoke(cdb.HookPosRetire, tag)
	}

	return nil
}

func (u *Unit) invoke(pos *sim.HookPos, tag cdb.Tag) {
	if u.NumHooks() == 0 {
		return
	}
	u.InvokeHook(sim.HookCtx{Domain: u, Pos: pos, Item: tag})
}

// Finished returns true if no station is busy.
func (u *Unit) Finished() bool {
	return !u.stations[u.head].Busy
}

// Occupancy returns the number of busy stations.
func (u *Unit) Occupancy() int {
	n := 0
	for i := range u.stations {
		if u.stations[i].Busy {
			n++
		}
	}
	return n
}

// Head returns the index of the oldest station.
func (u *Unit) Head() int {
	return u.head
}

// Stations returns a copy of all stations.
func (u *Unit) Stations() []Station {
	out := make([]Station, len(u.stations))
	copy(out, u.stations)
	return out
}

// BusStalls returns the cycles the head waited for the bus.
func (u *Unit) BusStalls() uint64 {
	return u.busStalls
}

// Reset frees every station.
func (u *Unit) Reset() {
	for i := range u.stations {
		u.stations[i] = Station{Remaining: NotStarted}
	}
	u.head, u.tail = 0, 0
	u.busStalls = 0
}
