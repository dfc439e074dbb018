package core

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Comp drives a Core from an akita engine, one Tick per clock cycle.
type Comp struct {
	*sim.TickingComponent

	Core *Core
}

// NewComp wraps core into a ticking component on engine.
func NewComp(name string, engine sim.Engine, freq sim.Freq, core *Core) *Comp {
	c := &Comp{Core: core}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)
	return c
}

// Tick advances the core one cycle. It reports no progress once the core is
// done or stopped, which lets the engine drain.
func (c *Comp) Tick() bool {
	if c.Core.Done() || c.Core.Err() != nil {
		return false
	}
	// the error is latched in the core
	_ = c.Core.Tick()
	return true
}

// RunOnEngine runs core to completion on a serial akita engine at 1 GHz.
func RunOnEngine(core *Core) (Stats, error) {
	engine := sim.NewSerialEngine()
	comp := NewComp("Core", engine, 1*sim.GHz, core)
	comp.TickLater()

	if err := engine.Run(); err != nil {
		return core.Stats(), err
	}
	return core.Stats(), core.Err()
}
