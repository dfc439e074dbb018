// Package latency provides the execution timing model of the scheduling
// core.
//
// Latencies and structure sizes are configured via TimingConfig.
package latency

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tomasim/insts"
)

// ErrUnknownOp is returned for opcodes without a latency entry.
var ErrUnknownOp = errors.New("no latency for operation")

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for op.
func (t *Table) GetLatency(op insts.Op) (uint64, error) {
	switch op {
	case insts.OpADDD:
		return t.config.AddLatency, nil
	case insts.OpSUBD:
		return t.config.SubLatency, nil
	case insts.OpMULTD:
		return t.config.MulLatency, nil
	case insts.OpDIVD:
		return t.config.DivLatency, nil
	case insts.OpLD:
		return t.config.LoadLatency, nil
	case insts.OpSD:
		return t.config.StoreLatency, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownOp, op)
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(op insts.Op) bool {
	return op.IsMemory()
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
