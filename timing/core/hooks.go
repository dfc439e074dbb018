package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tomasim/timing/cdb"
)

var (
	// HookPosIssue is invoked after an instruction issues. The item is its
	// Timeline.
	HookPosIssue = &sim.HookPos{Name: "Issue"}

	// HookPosStall is invoked when issue fails on a structural hazard. The
	// item is the instruction.
	HookPosStall = &sim.HookPos{Name: "Stall"}

	// HookPosCycleEnd is invoked after every cycle with a Snapshot.
	HookPosCycleEnd = &sim.HookPos{Name: "CycleEnd"}
)

// unitObserver fills in the timeline from unit events.
type unitObserver struct {
	core *Core
}

func (o *unitObserver) Func(ctx sim.HookCtx) {
	tag, ok := ctx.Item.(cdb.Tag)
	if !ok {
		return
	}
	idx, ok := o.core.inFlight[tag]
	if !ok {
		return
	}
	t := &o.core.timeline[idx]

	switch ctx.Pos {
	case cdb.HookPosExecStart:
		t.ExecStarted = o.core.cycle
	case cdb.HookPosExecComplete:
		t.ExecCompleted = o.core.cycle
	case cdb.HookPosRetire:
		t.Written = o.core.cycle
		delete(o.core.inFlight, tag)
	}
}
