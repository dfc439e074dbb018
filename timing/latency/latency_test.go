package latency_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	DescribeTable("default latencies",
		func(op insts.Op, want uint64) {
			got, err := table.GetLatency(op)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("ADDD", insts.OpADDD, uint64(2)),
		Entry("SUBD", insts.OpSUBD, uint64(2)),
		Entry("MULTD", insts.OpMULTD, uint64(10)),
		Entry("DIVD", insts.OpDIVD, uint64(20)),
		Entry("LD", insts.OpLD, uint64(3)),
		Entry("SD", insts.OpSD, uint64(1)),
	)

	It("should fail for unknown ops", func() {
		_, err := table.GetLatency(insts.OpUnknown)
		Expect(errors.Is(err, latency.ErrUnknownOp)).To(BeTrue())
	})

	It("should identify memory ops", func() {
		Expect(table.IsMemoryOp(insts.OpLD)).To(BeTrue())
		Expect(table.IsMemoryOp(insts.OpMULTD)).To(BeFalse())
	})

	It("should use a custom configuration", func() {
		config := latency.DefaultTimingConfig()
		config.MulLatency = 4
		custom := latency.NewTableWithConfig(config)
		got, err := custom.GetLatency(insts.OpMULTD)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(uint64(4)))
		Expect(custom.Config()).To(BeIdenticalTo(config))
	})

	Describe("default structure sizes", func() {
		It("should match the textbook machine", func() {
			c := table.Config()
			Expect(c.AddStations).To(Equal(3))
			Expect(c.MulStations).To(Equal(2))
			Expect(c.LoadBuffers).To(Equal(3))
			Expect(c.StoreBuffers).To(Equal(3))
			Expect(c.FPRegisters).To(Equal(32))
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Validate", func() {
		DescribeTable("rejects invalid values",
			func(mutate func(c *latency.TimingConfig), msg string) {
				c := latency.DefaultTimingConfig()
				mutate(c)
				Expect(c.Validate()).To(MatchError(ContainSubstring(msg)))
			},
			Entry("zero add latency", func(c *latency.TimingConfig) { c.AddLatency = 0 }, "add_latency"),
			Entry("zero div latency", func(c *latency.TimingConfig) { c.DivLatency = 0 }, "div_latency"),
			Entry("zero store latency", func(c *latency.TimingConfig) { c.StoreLatency = 0 }, "store_latency"),
			Entry("no mul stations", func(c *latency.TimingConfig) { c.MulStations = 0 }, "mul_stations"),
			Entry("no load buffers", func(c *latency.TimingConfig) { c.LoadBuffers = -1 }, "load_buffers"),
			Entry("huge register bank", func(c *latency.TimingConfig) { c.FPRegisters = 300 }, "256"),
		)
	})

	Describe("Clone", func() {
		It("should deep copy initial values", func() {
			c := latency.DefaultTimingConfig()
			c.InitialFP = map[string]float64{"F2": 1}
			clone := c.Clone()
			clone.InitialFP["F2"] = 5
			clone.AddLatency = 9
			Expect(c.InitialFP["F2"]).To(Equal(1.0))
			Expect(c.AddLatency).To(Equal(uint64(2)))
		})

		It("should deep copy the data cache", func() {
			c := latency.DefaultTimingConfig()
			dc := cache.DefaultConfig()
			c.DataCache = &dc
			clone := c.Clone()
			clone.DataCache.HitLatency = 7
			Expect(c.DataCache.HitLatency).To(Equal(uint64(3)))
		})
	})

	It("should reject a broken data cache geometry", func() {
		c := latency.DefaultTimingConfig()
		c.DataCache = &cache.Config{Size: 1000, Associativity: 3, BlockSize: 64}
		Expect(c.Validate()).To(MatchError(ContainSubstring("data_cache")))
	})

	It("should load a data cache from YAML", func() {
		path := filepath.Join(GinkgoT().TempDir(), "cache.yml")
		content := "data_cache:\n  size: 2048\n  associativity: 2\n  block_size: 64\n" +
			"  hit_latency: 2\n  miss_latency: 9\n"
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())

		loaded, err := latency.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.DataCache).NotTo(BeNil())
		Expect(loaded.DataCache.MissLatency).To(Equal(uint64(9)))
		Expect(loaded.Validate()).To(Succeed())
	})

	Describe("Config files", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should round trip JSON", func() {
			path := filepath.Join(dir, "timing.json")
			c := latency.DefaultTimingConfig()
			c.MulLatency = 6
			c.InitialMemory = map[string]float64{"100": 2}
			Expect(c.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should load partial YAML over defaults", func() {
			path := filepath.Join(dir, "timing.yaml")
			Expect(os.WriteFile(path, []byte("div_latency: 40\nadd_stations: 1\n"), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.DivLatency).To(Equal(uint64(40)))
			Expect(loaded.AddStations).To(Equal(1))
			Expect(loaded.MulLatency).To(Equal(uint64(10)))
		})

		It("should fail on a missing file", func() {
			_, err := latency.LoadConfig(filepath.Join(dir, "missing.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read")))
		})

		It("should fail on malformed content", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte("{"), 0644)).To(Succeed())
			_, err := latency.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse")))
		})
	})
})
