package latency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/tomasim/timing/cache"
)

// TimingConfig holds latencies and structure sizes for the scheduling core.
// Defaults follow the classic Tomasulo textbook machine.
type TimingConfig struct {
	// AddLatency is the execution latency of ADDD. Default: 2 cycles.
	AddLatency uint64 `json:"add_latency" yaml:"add_latency"`

	// SubLatency is the execution latency of SUBD. Default: 2 cycles.
	SubLatency uint64 `json:"sub_latency" yaml:"sub_latency"`

	// MulLatency is the execution latency of MULTD. Default: 10 cycles.
	MulLatency uint64 `json:"mul_latency" yaml:"mul_latency"`

	// DivLatency is the execution latency of DIVD. Default: 20 cycles.
	DivLatency uint64 `json:"div_latency" yaml:"div_latency"`

	// LoadLatency is the memory access latency of LD once its address is
	// known. Default: 3 cycles.
	LoadLatency uint64 `json:"load_latency" yaml:"load_latency"`

	// StoreLatency is the latency of SD once address and data are known.
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency" yaml:"store_latency"`

	// AddStations is the number of adder reservation stations. Default: 3.
	AddStations int `json:"add_stations" yaml:"add_stations"`

	// MulStations is the number of multiplier reservation stations. Default: 2.
	MulStations int `json:"mul_stations" yaml:"mul_stations"`

	// LoadBuffers is the number of load buffer entries. Default: 3.
	LoadBuffers int `json:"load_buffers" yaml:"load_buffers"`

	// StoreBuffers is the number of store buffer entries. Default: 3.
	StoreBuffers int `json:"store_buffers" yaml:"store_buffers"`

	// FPRegisters is the number of F registers. Default: 32.
	FPRegisters int `json:"fp_registers" yaml:"fp_registers"`

	// IntRegisters is the number of R registers usable as address bases.
	// Default: 32.
	IntRegisters int `json:"int_registers" yaml:"int_registers"`

	// InitialFP assigns numeric start values to F registers by name
	// ("F2": 1.5). Unlisted registers start symbolic.
	InitialFP map[string]float64 `json:"initial_fp,omitempty" yaml:"initial_fp,omitempty"`

	// InitialInt assigns numeric start values to R registers by name.
	InitialInt map[string]float64 `json:"initial_int,omitempty" yaml:"initial_int,omitempty"`

	// InitialMemory assigns numeric start values to memory addresses.
	InitialMemory map[string]float64 `json:"initial_memory,omitempty" yaml:"initial_memory,omitempty"`

	// DataCache, when set, replaces LoadLatency and StoreLatency with the
	// hit or miss latency of a data cache.
	DataCache *cache.Config `json:"data_cache,omitempty" yaml:"data_cache,omitempty"`
}

// DefaultTimingConfig returns a TimingConfig with textbook default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		AddLatency:   2,
		SubLatency:   2,
		MulLatency:   10,
		DivLatency:   20,
		LoadLatency:  3,
		StoreLatency: 1,
		AddStations:  3,
		MulStations:  2,
		LoadBuffers:  3,
		StoreBuffers: 3,
		FPRegisters:  32,
		IntRegisters: 32,
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig loads a TimingConfig from a JSON or YAML file. Fields missing
// from the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON or YAML file.
func (c *TimingConfig) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latencies and sizes are valid (> 0).
func (c *TimingConfig) Validate() error {
	latencies := []struct {
		name  string
		value uint64
	}{
		{"add_latency", c.AddLatency},
		{"sub_latency", c.SubLatency},
		{"mul_latency", c.MulLatency},
		{"div_latency", c.DivLatency},
		{"load_latency", c.LoadLatency},
		{"store_latency", c.StoreLatency},
	}
	for _, l := range latencies {
		if l.value == 0 {
			return fmt.Errorf("%s must be > 0", l.name)
		}
	}

	sizes := []struct {
		name  string
		value int
	}{
		{"add_stations", c.AddStations},
		{"mul_stations", c.MulStations},
		{"load_buffers", c.LoadBuffers},
		{"store_buffers", c.StoreBuffers},
		{"fp_registers", c.FPRegisters},
		{"int_registers", c.IntRegisters},
	}
	for _, s := range sizes {
		if s.value <= 0 {
			return fmt.Errorf("%s must be > 0", s.name)
		}
	}
	if c.FPRegisters > 256 || c.IntRegisters > 256 {
		return fmt.Errorf("register banks are limited to 256 entries")
	}
	if c.DataCache != nil && !c.DataCache.Valid() {
		return fmt.Errorf("invalid data_cache geometry")
	}

	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	clone.InitialFP = cloneMap(c.InitialFP)
	clone.InitialInt = cloneMap(c.InitialInt)
	clone.InitialMemory = cloneMap(c.InitialMemory)
	if c.DataCache != nil {
		dc := *c.DataCache
		clone.DataCache = &dc
	}
	return &clone
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
