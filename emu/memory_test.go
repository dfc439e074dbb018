package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should return a placeholder for unwritten addresses", func() {
		Expect(memory.Read("R(R2) + 34").String()).To(Equal("M(R(R2) + 34)"))
		Expect(memory.Len()).To(Equal(0))
	})

	It("should read back written values", func() {
		memory.Write("8", emu.Num(2.5))
		Expect(memory.Read("8")).To(Equal(emu.Num(2.5)))
		Expect(memory.Addresses()).To(Equal([]emu.Address{"8"}))
	})

	It("should hand out copies of its contents", func() {
		memory.Write("8", emu.Num(1))
		contents := memory.Contents()
		contents["8"] = emu.Num(99)
		Expect(memory.Read("8")).To(Equal(emu.Num(1)))
	})

	DescribeTable("effective addresses",
		func(base emu.Value, off int64, want emu.Address) {
			Expect(emu.EffectiveAddress(base, off)).To(Equal(want))
		},
		Entry("numeric", emu.Num(100), int64(8), emu.Address("108")),
		Entry("symbolic", emu.Sym("R(R2)"), int64(34), emu.Address("R(R2) + 34")),
		Entry("symbolic negative", emu.Sym("R(R2)"), int64(-4), emu.Address("R(R2) - 4")),
		Entry("symbolic zero", emu.Sym("R(R2)"), int64(0), emu.Address("R(R2)")),
		Entry("compound base", emu.Sym("R(F1) + R(F2)"), int64(4), emu.Address("(R(F1) + R(F2)) + 4")),
	)
})

var _ = Describe("RegFile", func() {
	It("should start with placeholders", func() {
		rf := emu.NewRegFile(4, 2)
		Expect(rf.ReadReg(insts.F(3)).String()).To(Equal("R(F3)"))
		Expect(rf.ReadReg(insts.R(1)).String()).To(Equal("R(R1)"))
	})

	It("should keep banks separate", func() {
		rf := emu.NewRegFile(4, 4)
		rf.WriteReg(insts.F(1), emu.Num(7))
		Expect(rf.ReadReg(insts.F(1))).To(Equal(emu.Num(7)))
		Expect(rf.ReadReg(insts.R(1)).Symbolic).To(BeTrue())
	})
})
