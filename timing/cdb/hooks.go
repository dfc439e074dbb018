package cdb

import "github.com/sarchlab/akita/v4/sim"

// Producer lifecycle hook positions. Units invoke them with the producer Tag
// as the hook item.
var (
	// HookPosExecStart marks a slot whose operands are ready starting its
	// countdown.
	HookPosExecStart = &sim.HookPos{Name: "ExecStart"}

	// HookPosExecComplete marks a slot staging its result on the bus.
	HookPosExecComplete = &sim.HookPos{Name: "ExecComplete"}

	// HookPosRetire marks a slot being freed, one cycle after its result was
	// staged.
	HookPosRetire = &sim.HookPos{Name: "Retire"}
)
