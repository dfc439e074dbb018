package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cdb"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
)

type cycleCounter struct {
	cycles   []uint64
	stalls   int
	issues   int
	lastSnap core.Snapshot
}

func (h *cycleCounter) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case core.HookPosCycleEnd:
		snap := ctx.Item.(core.Snapshot)
		h.cycles = append(h.cycles, snap.Cycle)
		h.lastSnap = snap
	case core.HookPosStall:
		h.stalls++
	case core.HookPosIssue:
		h.issues++
	}
}

var _ = Describe("Core", func() {
	var (
		decoder *insts.Decoder
		c       *core.Core
	)

	program := func(lines ...string) []*insts.Instruction {
		out := make([]*insts.Instruction, 0, len(lines))
		for _, l := range lines {
			inst, err := decoder.Decode(l)
			Expect(err).NotTo(HaveOccurred())
			out = append(out, inst)
		}
		return out
	}

	newCore := func(config *latency.TimingConfig, opts ...core.Option) *core.Core {
		opts = append(opts, core.WithLatencyTable(latency.NewTableWithConfig(config)))
		c, err := core.NewCore(opts...)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	BeforeEach(func() {
		decoder = insts.NewDecoder()
		c = newCore(latency.DefaultTimingConfig())
	})

	It("should be done with an empty program", func() {
		Expect(c.Done()).To(BeTrue())

		stats, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Cycles).To(BeZero())
		Expect(stats.CPI()).To(BeZero())
	})

	It("should reject an invalid config", func() {
		config := latency.DefaultTimingConfig()
		config.MulStations = 0

		_, err := core.NewCore(core.WithLatencyTable(latency.NewTableWithConfig(config)))
		Expect(err).To(HaveOccurred())
	})

	It("should reject an unknown initial register", func() {
		config := latency.DefaultTimingConfig()
		config.InitialFP = map[string]float64{"F99": 1}

		_, err := core.NewCore(core.WithLatencyTable(latency.NewTableWithConfig(config)))
		Expect(err).To(HaveOccurred())
	})

	It("should run a single add through issue, execute and write back", func() {
		config := latency.DefaultTimingConfig()
		config.InitialFP = map[string]float64{"F4": 1.5, "F6": 2}
		c = newCore(config)
		c.Load(program("ADDD F2 F4 F6"))

		stats, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Cycles).To(Equal(uint64(4)))
		Expect(stats.Issued).To(Equal(uint64(1)))
		Expect(stats.Broadcasts).To(Equal(uint64(1)))

		tl := c.Timeline()
		Expect(tl).To(HaveLen(1))
		Expect(tl[0].Tag).To(Equal(cdb.Tag{Unit: cdb.UnitAdd, Slot: 0}))
		Expect(tl[0].Issued).To(Equal(uint64(1)))
		Expect(tl[0].ExecStarted).To(Equal(uint64(1)))
		Expect(tl[0].ExecCompleted).To(Equal(uint64(3)))
		Expect(tl[0].Written).To(Equal(uint64(4)))

		snap := c.Snapshot()
		Expect(snap.Registers[2]).To(Equal(cdb.Ready(emu.Num(3.5))))
	})

	It("should eliminate WAR hazards by reading sources at issue", func() {
		c.Load(program(
			"ADDD F2 F4 F6",
			"SUBD F4 F2 F8",
		))

		Expect(c.Tick()).To(Succeed())
		Expect(c.Tick()).To(Succeed())

		snap := c.Snapshot()
		Expect(snap.Adder[0].Src1).To(Equal(cdb.Ready(emu.Sym("R(F4)"))))
		Expect(snap.Adder[1].Src1).To(Equal(cdb.Pending(cdb.Tag{Unit: cdb.UnitAdd, Slot: 0})))
		Expect(snap.Registers[4]).To(Equal(cdb.Pending(cdb.Tag{Unit: cdb.UnitAdd, Slot: 1})))

		stats, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Cycles).To(Equal(uint64(8)))

		snap = c.Snapshot()
		Expect(snap.Registers[2].Value).To(Equal(emu.Sym("R(F4) + R(F6)")))
		Expect(snap.Registers[4].Value).To(Equal(emu.Sym("(R(F4) + R(F6)) - R(F8)")))
	})

	It("should hold a RAW consumer on the producer tag until broadcast", func() {
		mulTag := cdb.Tag{Unit: cdb.UnitMul, Slot: 0}
		c.Load(program(
			"MULTD F0 F2 F4",
			"ADDD F6 F0 F8",
		))

		_, err := c.RunCycles(11)
		Expect(err).NotTo(HaveOccurred())

		snap := c.Snapshot()
		Expect(snap.Adder[0].Src1).To(Equal(cdb.Pending(mulTag)))
		Expect(snap.BusValid).To(BeTrue())
		Expect(snap.Bus.Tag).To(Equal(mulTag))
		Expect(snap.Registers[0]).To(Equal(cdb.Ready(emu.Sym("R(F2) * R(F4)"))))

		Expect(c.Tick()).To(Succeed())
		snap = c.Snapshot()
		Expect(snap.Adder[0].Src1).To(Equal(cdb.Ready(emu.Sym("R(F2) * R(F4)"))))
		Expect(snap.Adder[0].Remaining).To(Equal(2))

		stats, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Cycles).To(Equal(uint64(15)))

		tl := c.Timeline()
		Expect(tl[0].Written).To(Equal(uint64(12)))
		Expect(tl[1].ExecStarted).To(Equal(uint64(12)))
		Expect(c.Snapshot().Registers[6].Value).To(
			Equal(emu.Sym("(R(F2) * R(F4)) + R(F8)")))
	})

	It("should stall issue when every station is busy", func() {
		hook := &cycleCounter{}
		c.AcceptHook(hook)
		c.Load(program(
			"MULTD F0 F2 F4",
			"MULTD F6 F8 F10",
			"MULTD F12 F14 F16",
			"MULTD F18 F20 F22",
		))

		stats, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Issued).To(Equal(uint64(4)))
		Expect(stats.StructuralStalls).To(Equal(uint64(21)))
		Expect(stats.Cycles).To(Equal(uint64(48)))
		Expect(hook.stalls).To(Equal(21))
		Expect(hook.issues).To(Equal(4))

		tl := c.Timeline()
		Expect(tl[2].Issued).To(Equal(uint64(13)))
		Expect(tl[2].Tag).To(Equal(cdb.Tag{Unit: cdb.UnitMul, Slot: 0}))
		Expect(tl[3].Issued).To(Equal(uint64(25)))
		Expect(tl[3].Tag).To(Equal(cdb.Tag{Unit: cdb.UnitMul, Slot: 1}))
	})

	It("should load placeholders from unwritten memory", func() {
		c.Load(program("LD F6 34(R2)"))

		stats, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Cycles).To(Equal(uint64(5)))
		Expect(c.Snapshot().Registers[6].Value).To(Equal(emu.Sym("M(R(R2) + 34)")))
	})

	It("should let a later load observe an earlier store", func() {
		config := latency.DefaultTimingConfig()
		config.InitialFP = map[string]float64{"F6": 7}
		config.InitialInt = map[string]float64{"R1": 100}
		c = newCore(config)
		c.Load(program(
			"SD F6 0(R1)",
			"LD F2 0(R1)",
		))

		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		snap := c.Snapshot()
		Expect(snap.Memory).To(HaveKeyWithValue(emu.Address("100"), emu.Num(7)))
		Expect(snap.Registers[2]).To(Equal(cdb.Ready(emu.Num(7))))
	})

	It("should give the bus to memory, then the adder, then the multiplier", func() {
		config := latency.DefaultTimingConfig()
		config.LoadLatency = 2
		config.AddLatency = 1
		config.MulLatency = 1
		c = newCore(config)
		c.Load(program(
			"LD F1 0(R1)",
			"ADDD F2 F3 F4",
			"MULTD F5 F6 F7",
			"ADDD F8 F1 F2",
		))

		stats, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Cycles).To(Equal(uint64(8)))
		Expect(stats.BusStalls).To(Equal(uint64(2)))
		Expect(stats.Broadcasts).To(Equal(uint64(4)))
		Expect(stats.StructuralStalls).To(BeZero())

		tl := c.Timeline()
		Expect(tl).To(HaveLen(4))
		completed := []uint64{}
		for _, t := range tl {
			completed = append(completed, t.ExecCompleted)
			Expect(t.Written).To(Equal(t.ExecCompleted + 1))
		}
		Expect(completed).To(Equal([]uint64{3, 4, 5, 7}))
		Expect(tl[3].ExecStarted).To(Equal(uint64(6)))
	})

	It("should start a newly loaded program from a clean core", func() {
		config := latency.DefaultTimingConfig()
		config.InitialFP = map[string]float64{"F6": 7}
		config.InitialInt = map[string]float64{"R1": 100}
		c = newCore(config)
		c.Load(program("SD F6 0(R1)", "MULTD F6 F6 F6"))
		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		next := []string{"LD F2 0(R1)", "ADDD F4 F2 F6"}
		c.Load(program(next...))
		Expect(c.Cycle()).To(BeZero())
		Expect(c.Timeline()).To(BeEmpty())
		got, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		fresh := newCore(config)
		fresh.Load(program(next...))
		want, err := fresh.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(got).To(Equal(want))
		Expect(c.Timeline()).To(Equal(fresh.Timeline()))
		Expect(c.Snapshot()).To(Equal(fresh.Snapshot()))
		Expect(c.Snapshot().Memory).NotTo(HaveKey(emu.Address("100")))
	})

	It("should be deterministic", func() {
		lines := []string{
			"LD F6 34(R2)",
			"LD F2 45(R3)",
			"MULTD F0 F2 F4",
			"SUBD F8 F6 F2",
			"DIVD F10 F0 F6",
			"ADDD F6 F8 F2",
		}

		c.Load(program(lines...))
		first, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		firstTimeline := c.Timeline()

		other := newCore(latency.DefaultTimingConfig())
		other.Load(program(lines...))
		second, err := other.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(other.Timeline()).To(Equal(firstTimeline))
		Expect(other.Snapshot()).To(Equal(c.Snapshot()))
	})

	It("should replay the same run after reset", func() {
		c.Load(program("MULTD F0 F2 F4", "ADDD F6 F0 F8"))
		first, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		c.Reset()
		Expect(c.Cycle()).To(BeZero())
		Expect(c.Done()).To(BeFalse())

		second, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("should invoke the cycle hook once per cycle", func() {
		hook := &cycleCounter{}
		c.AcceptHook(hook)
		c.Load(program("ADDD F2 F4 F6"))

		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(hook.cycles).To(Equal([]uint64{1, 2, 3, 4}))
		Expect(hook.lastSnap.Cycle).To(Equal(uint64(4)))
	})

	It("should report progress from RunCycles", func() {
		c.Load(program("ADDD F2 F4 F6"))

		running, err := c.RunCycles(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(BeTrue())
		Expect(c.Cycle()).To(Equal(uint64(2)))

		running, err = c.RunCycles(10)
		Expect(err).NotTo(HaveOccurred())
		Expect(running).To(BeFalse())
		Expect(c.Cycle()).To(Equal(uint64(4)))
	})

	It("should stop on an unknown operation and stay stopped", func() {
		c.Push(&insts.Instruction{Op: insts.OpUnknown})

		err := c.Tick()
		Expect(err).To(MatchError(core.ErrUnknownOp))
		Expect(c.Tick()).To(Equal(err))
		Expect(c.Err()).To(Equal(err))
	})

	It("should reject registers outside the configured banks", func() {
		c.Push(&insts.Instruction{
			Op: insts.OpADDD, Rd: insts.F(40), Rn: insts.F(0), Rm: insts.F(1),
		})

		_, err := c.Run()
		Expect(err).To(MatchError(core.ErrInvalidRegister))
	})

	It("should stop at the cycle limit", func() {
		c = newCore(latency.DefaultTimingConfig(), core.WithMaxCycles(5))
		c.Load(program("MULTD F0 F2 F4"))

		stats, err := c.Run()
		Expect(err).To(MatchError(core.ErrCycleLimit))
		Expect(stats.Cycles).To(Equal(uint64(5)))
	})

	It("should run on an akita engine", func() {
		lines := []string{"LD F2 0(R1)", "MULTD F0 F2 F4", "ADDD F6 F0 F8"}

		c.Load(program(lines...))
		want, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		other := newCore(latency.DefaultTimingConfig())
		other.Load(program(lines...))
		got, err := core.RunOnEngine(other)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))
	})
})
