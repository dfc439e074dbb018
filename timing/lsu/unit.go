// Package lsu implements the memory unit: a load buffer and a store buffer,
// each a circular FIFO that executes and retires only its head entry.
//
// Pending base addresses and store data are resolved from the bus in every
// busy entry, so younger entries finish waiting while an older head is still
// executing. The two buffers retire independently of each other.
package lsu

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/cdb"
	"github.com/sarchlab/tomasim/timing/latency"
)

// NotStarted is the countdown value of an entry that has not begun its
// memory access.
const NotStarted = -1

// Entry is one load or store buffer entry.
type Entry struct {
	Busy bool

	// Base is the address base; Address is valid once Base is ready.
	Base    cdb.Operand
	Offset  int64
	Address emu.Address

	// Data is the value to store. Unused by loads.
	Data cdb.Operand

	Remaining int

	// Result holds the loaded or stored value once staged on the bus.
	Result emu.Value
}

// AddressReady returns true once the effective address is known.
func (e *Entry) AddressReady() bool {
	return e.Base.IsReady()
}

func (e *Entry) snoop(r cdb.Result) {
	if e.Base.Snoop(r.Tag, r.Value) {
		e.Address = emu.EffectiveAddress(e.Base.Value, e.Offset)
	}
	e.Data.Snoop(r.Tag, r.Value)
}

type buffer struct {
	kind    cdb.UnitKind
	entries []Entry
	head    int
	tail    int
}

func newBuffer(kind cdb.UnitKind, size int) buffer {
	b := buffer{kind: kind, entries: make([]Entry, size)}
	b.reset()
	return b
}

func (b *buffer) reset() {
	for i := range b.entries {
		b.entries[i] = Entry{Remaining: NotStarted}
	}
	b.head, b.tail = 0, 0
}

func (b *buffer) allocate(e Entry) (cdb.Tag, bool) {
	if b.entries[b.tail].Busy {
		return cdb.Tag{}, false
	}

	e.Busy = true
	e.Remaining = NotStarted
	if e.Base.IsReady() {
		e.Address = emu.EffectiveAddress(e.Base.Value, e.Offset)
	}
	b.entries[b.tail] = e

	tag := cdb.Tag{Unit: b.kind, Slot: b.tail}
	b.tail = (b.tail + 1) % len(b.entries)
	return tag, true
}

func (b *buffer) retire() {
	b.entries[b.head] = Entry{Remaining: NotStarted}
	b.head = (b.head + 1) % len(b.entries)
}

func (b *buffer) snoop(r cdb.Result) {
	for i := range b.entries {
		if b.entries[i].Busy {
			b.entries[i].snoop(r)
		}
	}
}

func (b *buffer) snapshot() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Unit is the memory unit.
type Unit struct {
	*sim.HookableBase

	bus     *cdb.Bus
	memory  *emu.Memory
	latency *latency.Table
	cache   *cache.Cache

	loads  buffer
	stores buffer

	busStalls uint64
}

// NewUnit creates a memory unit with the given buffer sizes.
func NewUnit(
	loadBuffers, storeBuffers int,
	bus *cdb.Bus,
	memory *emu.Memory,
	table *latency.Table,
) *Unit {
	u := &Unit{
		HookableBase: sim.NewHookableBase(),
		bus:          bus,
		memory:       memory,
		latency:      table,
		loads:        newBuffer(cdb.UnitLoad, loadBuffers),
		stores:       newBuffer(cdb.UnitStore, storeBuffers),
	}
	if dc := table.Config().DataCache; dc != nil {
		u.cache = cache.New(*dc)
	}
	return u
}

// IssueLoad allocates a load buffer entry. It returns false if the tail
// entry is still busy.
func (u *Unit) IssueLoad(base cdb.Operand, offset int64) (cdb.Tag, bool) {
	return u.loads.allocate(Entry{Base: base, Offset: offset})
}

// IssueStore allocates a store buffer entry. It returns false if the tail
// entry is still busy.
func (u *Unit) IssueStore(base cdb.Operand, offset int64, data cdb.Operand) (cdb.Tag, bool) {
	return u.stores.allocate(Entry{Base: base, Offset: offset, Data: data})
}

// Advance runs one cycle: resolve pending bases and data in every busy
// entry, then step the load head and the store head.
func (u *Unit) Advance() error {
	if r, ok := u.bus.Read(); ok {
		u.loads.snoop(r)
		u.stores.snoop(r)
	}

	if err := u.advance(&u.loads, insts.OpLD); err != nil {
		return err
	}
	return u.advance(&u.stores, insts.OpSD)
}

func (u *Unit) advance(b *buffer, op insts.Op) error {
	e := &b.entries[b.head]
	if !e.Busy {
		return nil
	}
	tag := cdb.Tag{Unit: b.kind, Slot: b.head}

	switch {
	case e.Remaining == NotStarted:
		if !e.AddressReady() || (op == insts.OpSD && !e.Data.IsReady()) {
			return nil
		}
		lat, err := u.accessLatency(op, e.Address)
		if err != nil {
			return err
		}
		e.Remaining = int(lat)
		u.invoke(cdb.HookPosExecStart, tag)

	case e.Remaining > 1:
		e.Remaining--

	case e.Remaining == 1:
		if u.bus.Staged() {
			u.busStalls++
			return nil
		}

		var v emu.Value
		if op == insts.OpLD {
			v = u.memory.Read(e.Address)
		} else {
			v = e.Data.Value
			u.memory.Write(e.Address, v)
		}
		if err := u.bus.Write(tag, v); err != nil {
			return err
		}
		e.Result = v
		e.Remaining = 0
		u.invoke(cdb.HookPosExecComplete, tag)

	default:
		b.retire()
		u.invoke(cdb.HookPosRetire, tag)
	}

	return nil
}

// accessLatency returns the fixed latency of op, or the cache latency of the
// access when a data cache is attached.
func (u *Unit) accessLatency(op insts.Op, addr emu.Address) (uint64, error) {
	if u.cache == nil {
		return u.latency.GetLatency(op)
	}
	if op == insts.OpSD {
		return u.cache.Write(addr).Latency, nil
	}
	return u.cache.Read(addr).Latency, nil
}

func (u *Unit) invoke(pos *sim.HookPos, tag cdb.Tag) {
	if u.NumHooks() == 0 {
		return
	}
	u.InvokeHook(sim.HookCtx{Domain: u, Pos: pos, Item: tag})
}

// Finished returns true if both buffers are empty.
func (u *Unit) Finished() bool {
	return !u.loads.entries[u.loads.head].Busy && !u.stores.entries[u.stores.head].Busy
}

// Loads returns a copy of the load buffer.
func (u *Unit) Loads() []Entry {
	return u.loads.snapshot()
}

// Stores returns a copy of the store buffer.
func (u *Unit) Stores() []Entry {
	return u.stores.snapshot()
}

// Memory returns the data memory the unit reads and writes.
func (u *Unit) Memory() *emu.Memory {
	return u.memory
}

// BusStalls returns the cycles a buffer head waited for the bus.
func (u *Unit) BusStalls() uint64 {
	return u.busStalls
}

// Cache returns the data cache, or nil when fixed latencies are used.
func (u *Unit) Cache() *cache.Cache {
	return u.cache
}

// Reset empties both buffers and the data cache. Memory contents are kept.
func (u *Unit) Reset() {
	u.loads.reset()
	u.stores.reset()
	u.busStalls = 0
	if u.cache != nil {
		u.cache.Reset()
	}
}
