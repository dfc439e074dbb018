// Package cache provides an optional data cache latency model for the memory
// unit, built on Akita cache directories.
//
// The cache tracks tags only. Values live in the memory map; the cache decides
// how long a load or store takes.
package cache

import (
	"strconv"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/tomasim/emu"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size" yaml:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity" yaml:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size" yaml:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency" yaml:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency" yaml:"miss_latency"`
}

// DefaultConfig returns a small 4-way data cache with a 3-cycle hit, which
// matches the default load latency.
func DefaultConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    3,
		MissLatency:   12,
	}
}

// Valid returns true if the geometry describes at least one set.
func (c Config) Valid() bool {
	return c.Size > 0 && c.Associativity > 0 && c.BlockSize > 0 &&
		c.Size%(c.Associativity*c.BlockSize) == 0 &&
		c.HitLatency > 0 && c.MissLatency >= c.HitLatency
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads     uint64
	Writes    uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a write-allocate, tag-only cache.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics

	// symbolic addresses are given synthetic block addresses in first-use
	// order
	symbolic  map[emu.Address]uint64
	nextBlock uint64
}

// New creates a new cache with the given configuration.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		symbolic: make(map[emu.Address]uint64),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Read performs a cache read of addr.
func (c *Cache) Read(addr emu.Address) AccessResult {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write performs a cache write of addr. Misses allocate the block.
func (c *Cache) Write(addr emu.Address) AccessResult {
	c.stats.Writes++
	return c.access(addr, true)
}

func (c *Cache) access(addr emu.Address, isWrite bool) AccessResult {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if isWrite {
			block.IsDirty = true
		}
		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}
	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite
	c.directory.Visit(victim)

	return result
}

// blockAddr maps addr to a block-aligned address. Non-negative integral
// addresses are used as byte addresses. Every other address gets a block of
// its own above the numeric range.
func (c *Cache) blockAddr(addr emu.Address) uint64 {
	bs := uint64(c.config.BlockSize)

	if x, err := strconv.ParseFloat(string(addr), 64); err == nil &&
		x >= 0 && x < 1<<52 && x == float64(uint64(x)) {
		return uint64(x) / bs * bs
	}

	n, ok := c.symbolic[addr]
	if !ok {
		n = c.nextBlock
		c.symbolic[addr] = n
		c.nextBlock++
	}
	return (1<<52 + n) * bs
}

// Reset invalidates all cache lines and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
	c.symbolic = make(map[emu.Address]uint64)
	c.nextBlock = 0
}
