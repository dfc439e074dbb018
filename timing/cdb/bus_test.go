package cdb_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/timing/cdb"
)

var _ = Describe("Bus", func() {
	var (
		bus  *cdb.Bus
		add0 = cdb.Tag{Unit: cdb.UnitAdd, Slot: 0}
		mul1 = cdb.Tag{Unit: cdb.UnitMul, Slot: 1}
	)

	BeforeEach(func() {
		bus = cdb.NewBus()
	})

	It("should start empty", func() {
		_, ok := bus.Read()
		Expect(ok).To(BeFalse())
		Expect(bus.Staged()).To(BeFalse())
	})

	It("should hide staged writes until advanced", func() {
		Expect(bus.Write(add0, emu.Num(3))).To(Succeed())
		Expect(bus.Staged()).To(BeTrue())

		_, ok := bus.Read()
		Expect(ok).To(BeFalse())

		bus.Advance()
		r, ok := bus.Read()
		Expect(ok).To(BeTrue())
		Expect(r).To(Equal(cdb.Result{Tag: add0, Value: emu.Num(3)}))
		Expect(bus.Staged()).To(BeFalse())
		Expect(bus.Broadcasts()).To(Equal(uint64(1)))
	})

	It("should clear the committed slot when nothing was staged", func() {
		Expect(bus.Write(add0, emu.Num(3))).To(Succeed())
		bus.Advance()
		bus.Advance()

		_, ok := bus.Read()
		Expect(ok).To(BeFalse())
		Expect(bus.Broadcasts()).To(Equal(uint64(1)))
	})

	It("should reject a second writer in the same cycle", func() {
		Expect(bus.Write(add0, emu.Num(3))).To(Succeed())
		err := bus.Write(mul1, emu.Num(4))
		Expect(errors.Is(err, cdb.ErrBusConflict)).To(BeTrue())

		bus.Advance()
		r, _ := bus.Read()
		Expect(r.Tag).To(Equal(add0))
	})

	It("should reject writes without a tag", func() {
		Expect(bus.Write(cdb.Tag{}, emu.Num(1))).To(MatchError(cdb.ErrInvalidTag))
	})

	It("should reset", func() {
		Expect(bus.Write(add0, emu.Num(3))).To(Succeed())
		bus.Advance()
		bus.Reset()
		_, ok := bus.Read()
		Expect(ok).To(BeFalse())
		Expect(bus.Broadcasts()).To(BeZero())
	})
})

var _ = Describe("Operand", func() {
	mul0 := cdb.Tag{Unit: cdb.UnitMul, Slot: 0}

	It("should name tags", func() {
		Expect(mul0.String()).To(Equal("Mul0"))
		Expect(cdb.Tag{Unit: cdb.UnitStore, Slot: 2}.String()).To(Equal("Store2"))
		Expect(cdb.Tag{}.String()).To(BeEmpty())
	})

	It("should resolve only on a matching tag", func() {
		op := cdb.Pending(mul0)
		Expect(op.IsReady()).To(BeFalse())

		Expect(op.Snoop(cdb.Tag{Unit: cdb.UnitMul, Slot: 1}, emu.Num(1))).To(BeFalse())
		Expect(op.IsReady()).To(BeFalse())

		Expect(op.Snoop(mul0, emu.Num(6))).To(BeTrue())
		Expect(op.IsReady()).To(BeTrue())
		Expect(op.Value).To(Equal(emu.Num(6)))
		Expect(op.Tag.Valid()).To(BeFalse())
	})

	It("should ignore snoops once resolved", func() {
		op := cdb.Ready(emu.Num(2))
		Expect(op.Snoop(mul0, emu.Num(6))).To(BeFalse())
		Expect(op.Value).To(Equal(emu.Num(2)))
	})

	It("should print the tag while pending", func() {
		Expect(cdb.Pending(mul0).String()).To(Equal("Mul0"))
		Expect(cdb.Ready(emu.Sym("R(F1)")).String()).To(Equal("R(F1)"))
	})
})
