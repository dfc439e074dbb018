// Package core provides the cycle-accurate dynamic scheduling core.
// It wires the register file, the functional units, the memory unit and the
// common data bus together and advances them in lock step.
package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cdb"
	"github.com/sarchlab/tomasim/timing/fu"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/lsu"
	"github.com/sarchlab/tomasim/timing/rename"
)

// DefaultMaxCycles bounds Run when no limit is configured.
const DefaultMaxCycles = 1_000_000

var (
	// ErrUnknownOp is returned when an instruction has no unit to run on.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrInvalidRegister is returned for register indices outside the
	// configured banks.
	ErrInvalidRegister = errors.New("invalid register")

	// ErrCycleLimit is returned when a run exceeds its cycle budget.
	ErrCycleLimit = errors.New("cycle limit exceeded")
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Issued is the number of instructions issued.
	Issued uint64
	// StructuralStalls counts cycles in which issue failed for lack of a
	// free station or buffer.
	StructuralStalls uint64
	// BusStalls counts cycles in which a ready result waited for the bus.
	BusStalls uint64
	// Broadcasts is the number of results carried by the bus.
	Broadcasts uint64
	// CacheHits and CacheMisses count data cache accesses. Both stay zero
	// without a data cache.
	CacheHits   uint64
	CacheMisses uint64
}

// CPI returns the cycles per issued instruction.
func (s Stats) CPI() float64 {
	if s.Issued == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Issued)
}

// Timeline records the cycles in which one instruction passed each phase.
// Zero means the phase has not happened yet.
type Timeline struct {
	Inst insts.Instruction
	Tag  cdb.Tag

	Issued        uint64
	ExecStarted   uint64
	ExecCompleted uint64
	// Written is the first cycle the result can be read from the bus. The
	// slot retires and waiting stations capture the value in this cycle, one
	// after ExecCompleted.
	Written uint64
}

// Option is a functional option for configuring the Core.
type Option func(*Core)

// WithLatencyTable sets the latency table and structure sizes.
func WithLatencyTable(table *latency.Table) Option {
	return func(c *Core) {
		c.table = table
	}
}

// WithLogger sets the structured logger. The default discards records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithMaxCycles bounds the number of cycles the core may run. Zero removes
// the bound.
func WithMaxCycles(n uint64) Option {
	return func(c *Core) {
		c.maxCycles = n
	}
}

// Core is the scheduler. One Tick is one cycle:
//
//  1. issue the next instruction if its unit has a free slot,
//  2. advance the memory unit, the adder and the multiplier,
//  3. commit the bus, then resolve renamed registers against it.
//
// Units advance in that fixed order, which also sets bus priority when two
// results are ready in the same cycle.
type Core struct {
	*sim.HookableBase

	table     *latency.Table
	logger    *slog.Logger
	maxCycles uint64
	decoder   *insts.Decoder

	bus    *cdb.Bus
	memory *emu.Memory
	regs   *rename.RegisterFile
	adder  *fu.Unit
	mul    *fu.Unit
	mem    *lsu.Unit

	program  []*insts.Instruction
	pc       int
	cycle    uint64
	issued   uint64
	stalls   uint64
	timeline []Timeline
	inFlight map[cdb.Tag]int

	initF   []emu.Value
	initR   []emu.Value
	initMem map[emu.Address]emu.Value

	err error
}

// NewCore creates a core from the configured latency table.
func NewCore(opts ...Option) (*Core, error) {
	c := &Core{
		HookableBase: sim.NewHookableBase(),
		table:        latency.NewTable(),
		logger:       slog.New(slog.DiscardHandler),
		maxCycles:    DefaultMaxCycles,
		inFlight:     make(map[cdb.Tag]int),
	}
	for _, opt := range opts {
		opt(c)
	}

	config := c.table.Config()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}

	c.decoder = &insts.Decoder{
		NumFPRegs:  config.FPRegisters,
		NumIntRegs: config.IntRegisters,
	}
	c.bus = cdb.NewBus()
	c.memory = emu.NewMemory()
	c.regs = rename.NewRegisterFile(
		emu.NewRegFile(config.FPRegisters, config.IntRegisters), c.bus)
	c.adder = fu.NewAdder(config.AddStations, c.bus, c.table)
	c.mul = fu.NewMultiplier(config.MulStations, c.bus, c.table)
	c.mem = lsu.NewUnit(config.LoadBuffers, config.StoreBuffers, c.bus, c.memory, c.table)

	observer := &unitObserver{core: c}
	c.adder.AcceptHook(observer)
	c.mul.AcceptHook(observer)
	c.mem.AcceptHook(observer)

	if err := c.loadInitialState(); err != nil {
		return nil, err
	}
	arch := c.regs.Arch()
	c.initF = append([]emu.Value(nil), arch.F...)
	c.initR = append([]emu.Value(nil), arch.R...)
	c.initMem = c.memory.Contents()

	return c, nil
}

// loadInitialState applies the configured numeric register and memory
// values on top of the symbolic placeholders.
func (c *Core) loadInitialState() error {
	config := c.table.Config()
	arch := c.regs.Arch()

	for _, bank := range []map[string]float64{config.InitialFP, config.InitialInt} {
		for name, v := range bank {
			reg, err := c.decoder.ParseReg(name)
			if err != nil {
				return fmt.Errorf("initial value for %q: %w", name, err)
			}
			arch.WriteReg(reg, emu.Num(v))
		}
	}
	for addr, v := range config.InitialMemory {
		c.memory.Write(emu.Address(addr), emu.Num(v))
	}

	return nil
}

// Load replaces the program and resets the core, so the new program starts
// at cycle 0 with the initial registers and memory.
func (c *Core) Load(program []*insts.Instruction) {
	c.Reset()
	c.program = program
}

// Push appends one instruction to the program.
func (c *Core) Push(inst *insts.Instruction) {
	c.program = append(c.program, inst)
}

// Decoder returns a decoder bounded by the configured register banks.
func (c *Core) Decoder() *insts.Decoder {
	return c.decoder
}

// PC returns the index of the next instruction to issue.
func (c *Core) PC() int {
	return c.pc
}

// Cycle returns the number of cycles simulated.
func (c *Core) Cycle() uint64 {
	return c.cycle
}

// Err returns the error that stopped the core, if any.
func (c *Core) Err() error {
	return c.err
}

// Tick executes one cycle. Errors are fatal: once Tick fails, every later
// call returns the same error.
func (c *Core) Tick() error {
	if c.err != nil {
		return c.err
	}
	if c.maxCycles > 0 && c.cycle >= c.maxCycles {
		c.err = fmt.Errorf("%w: %d cycles", ErrCycleLimit, c.maxCycles)
		return c.err
	}

	c.cycle++
	if err := c.tick(); err != nil {
		c.err = fmt.Errorf("cycle %d: %w", c.cycle, err)
		c.logger.Error("simulation stopped", "cycle", c.cycle, "err", err)
		return c.err
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosCycleEnd, Item: c.Snapshot()})
	}

	return nil
}

func (c *Core) tick() error {
	if err := c.issue(); err != nil {
		return err
	}

	if err := c.mem.Advance(); err != nil {
		return err
	}
	if err := c.adder.Advance(); err != nil {
		return err
	}
	if err := c.mul.Advance(); err != nil {
		return err
	}

	c.bus.Advance()
	c.regs.Advance()

	if r, ok := c.bus.Read(); ok {
		c.logger.Debug("broadcast",
			"cycle", c.cycle, "tag", r.Tag.String(), "value", r.Value.String())
	}

	return nil
}

// issue tries to issue the instruction at pc. A structural hazard leaves
// pc unchanged so the same instruction is retried next cycle.
func (c *Core) issue() error {
	if c.pc >= len(c.program) {
		return nil
	}
	inst := c.program[c.pc]

	tag, ok, err := c.dispatch(inst)
	if err != nil {
		return fmt.Errorf("issue %q: %w", inst.String(), err)
	}
	if !ok {
		c.stalls++
		c.logger.Debug("structural stall", "cycle", c.cycle, "inst", inst.String())
		if c.NumHooks() > 0 {
			c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosStall, Item: inst})
		}
		return nil
	}

	c.timeline = append(c.timeline, Timeline{Inst: *inst, Tag: tag, Issued: c.cycle})
	c.inFlight[tag] = len(c.timeline) - 1
	c.pc++
	c.issued++

	c.logger.Debug("issue", "cycle", c.cycle, "inst", inst.String(), "tag", tag.String())
	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c, Pos: HookPosIssue, Item: c.timeline[len(c.timeline)-1],
		})
	}

	return nil
}

func (c *Core) dispatch(inst *insts.Instruction) (cdb.Tag, bool, error) {
	if err := c.checkRegs(inst); err != nil {
		return cdb.Tag{}, false, err
	}

	if c.table.IsMemoryOp(inst.Op) {
		return c.issueMemory(inst)
	}

	switch inst.Op {
	case insts.OpADDD, insts.OpSUBD:
		return c.issueArith(c.adder, inst)

	case insts.OpMULTD, insts.OpDIVD:
		return c.issueArith(c.mul, inst)

	default:
		return cdb.Tag{}, false, fmt.Errorf("%w: %v", ErrUnknownOp, inst.Op)
	}
}

func (c *Core) issueMemory(inst *insts.Instruction) (cdb.Tag, bool, error) {
	switch inst.Op {
	case insts.OpLD:
		tag, ok := c.mem.IssueLoad(c.regs.Read(inst.Rn), inst.Imm)
		if !ok {
			return cdb.Tag{}, false, nil
		}
		return tag, true, c.regs.SetProducer(inst.Rd, tag)

	case insts.OpSD:
		tag, ok := c.mem.IssueStore(c.regs.Read(inst.Rn), inst.Imm, c.regs.Read(inst.Rd))
		return tag, ok, nil

	default:
		return cdb.Tag{}, false, fmt.Errorf("%w: %v", ErrUnknownOp, inst.Op)
	}
}

// issueArith reads both sources before renaming the destination, so an
// instruction that reads and writes the same register sees the old value.
func (c *Core) issueArith(u *fu.Unit, inst *insts.Instruction) (cdb.Tag, bool, error) {
	src1 := c.regs.Read(inst.Rn)
	src2 := c.regs.Read(inst.Rm)

	tag, ok, err := u.Issue(inst.Op, src1, src2)
	if err != nil {
		return cdb.Tag{}, false, err
	}
	if !ok {
		return cdb.Tag{}, false, nil
	}

	return tag, true, c.regs.SetProducer(inst.Rd, tag)
}

func (c *Core) checkRegs(inst *insts.Instruction) error {
	config := c.table.Config()
	regs := []insts.Reg{inst.Rd, inst.Rn}
	if inst.Op.IsArith() {
		regs = append(regs, inst.Rm)
	}

	for _, r := range regs {
		limit := config.FPRegisters
		if r.Class == insts.RegInt {
			limit = config.IntRegisters
		}
		if int(r.Index) >= limit {
			return fmt.Errorf("%w: %v", ErrInvalidRegister, r)
		}
	}

	return nil
}

// Done returns true once every instruction has issued and every unit is
// idle.
func (c *Core) Done() bool {
	return c.pc >= len(c.program) &&
		c.adder.Finished() &&
		c.mul.Finished() &&
		c.mem.Finished()
}

// Run executes the core until it is done.
func (c *Core) Run() (Stats, error) {
	for !c.Done() {
		if err := c.Tick(); err != nil {
			return c.Stats(), err
		}
	}
	return c.Stats(), nil
}

// RunCycles executes the core for at most the specified number of cycles.
// Returns true if still running, false if done.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles && !c.Done(); i++ {
		if err := c.Tick(); err != nil {
			return false, err
		}
	}
	return !c.Done(), nil
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := Stats{
		Cycles:           c.cycle,
		Issued:           c.issued,
		StructuralStalls: c.stalls,
		BusStalls:        c.adder.BusStalls() + c.mul.BusStalls() + c.mem.BusStalls(),
		Broadcasts:       c.bus.Broadcasts(),
	}
	if dc := c.mem.Cache(); dc != nil {
		cs := dc.Stats()
		s.CacheHits = cs.Hits
		s.CacheMisses = cs.Misses
	}
	return s
}

// Timeline returns a copy of the per-instruction bookkeeping in issue order.
func (c *Core) Timeline() []Timeline {
	out := make([]Timeline, len(c.timeline))
	copy(out, c.timeline)
	return out
}

// Reset clears all core state and rewinds the program. Registers and memory
// return to their initial values.
func (c *Core) Reset() {
	c.bus.Reset()
	c.adder.Reset()
	c.mul.Reset()
	c.mem.Reset()
	c.regs.Reset()

	arch := c.regs.Arch()
	copy(arch.F, c.initF)
	copy(arch.R, c.initR)
	c.memory.Reset()
	for addr, v := range c.initMem {
		c.memory.Write(addr, v)
	}

	c.pc = 0
	c.cycle = 0
	c.issued = 0
	c.stalls = 0
	c.timeline = nil
	c.inFlight = make(map[cdb.Tag]int)
	c.err = nil
}
