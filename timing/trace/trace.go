// Package trace records per-cycle core state and renders it as text.
package trace

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/timing/cdb"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/fu"
	"github.com/sarchlab/tomasim/timing/lsu"
)

// Recorder is a hook that keeps the snapshot of every cycle.
type Recorder struct {
	ID        string
	Snapshots []core.Snapshot
}

// NewRecorder creates a recorder with a fresh id.
func NewRecorder() *Recorder {
	return &Recorder{ID: xid.New().String()}
}

// Func implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != core.HookPosCycleEnd {
		return
	}
	if snap, ok := ctx.Item.(core.Snapshot); ok {
		r.Snapshots = append(r.Snapshots, snap)
	}
}

// Diff returns a human readable difference between two snapshots, or an
// empty string if they are equal.
func Diff(a, b core.Snapshot) string {
	return cmp.Diff(a, b)
}

// WriteReport renders a header carrying the recorder id, every recorded
// snapshot, and then the instruction timeline.
func (r *Recorder) WriteReport(w io.Writer, timeline []core.Timeline) error {
	if _, err := fmt.Fprintf(w, "Trace %s\n\n", r.ID); err != nil {
		return err
	}
	for i := range r.Snapshots {
		if err := WriteCycle(w, &r.Snapshots[i]); err != nil {
			return err
		}
	}
	return WriteTimeline(w, timeline)
}

// WriteCycle renders the stations, buffers and renamed registers of one
// snapshot.
func WriteCycle(w io.Writer, s *core.Snapshot) error {
	bus := "-"
	if s.BusValid {
		bus = s.Bus.Tag.String() + " = " + s.Bus.Value.String()
	}
	if _, err := fmt.Fprintf(w, "Cycle %d  pc=%d  bus: %s\n", s.Cycle, s.PC, bus); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "  Station\tBusy\tOp\tSrc1\tSrc2\tRemaining\t")
	writeStations(tw, cdb.UnitAdd, s.Adder)
	writeStations(tw, cdb.UnitMul, s.Multiplier)
	if err := tw.Flush(); err != nil {
		return err
	}

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "  Buffer\tBusy\tAddress\tData\tRemaining\t")
	writeEntries(tw, cdb.UnitLoad, s.Loads)
	writeEntries(tw, cdb.UnitStore, s.Stores)
	if err := tw.Flush(); err != nil {
		return err
	}

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, r := range s.Registers {
		if !changed(i, r) {
			continue
		}
		_, _ = fmt.Fprintf(tw, "  F%d\t%s\t\n", i, r.String())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w)
	return err
}

// changed reports whether register i holds anything but its placeholder.
func changed(i int, r cdb.Operand) bool {
	return !r.IsReady() || r.Value != emu.Sym(fmt.Sprintf("R(F%d)", i))
}

func writeStations(w io.Writer, kind cdb.UnitKind, stations []fu.Station) {
	for i, s := range stations {
		name := cdb.Tag{Unit: kind, Slot: i}.String()
		if !s.Busy {
			_, _ = fmt.Fprintf(w, "  %s\tno\t\t\t\t\t\n", name)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s\tyes\t%v\t%s\t%s\t%s\t\n",
			name, s.Op, s.Src1.String(), s.Src2.String(), remaining(s.Remaining))
	}
}

func writeEntries(w io.Writer, kind cdb.UnitKind, entries []lsu.Entry) {
	for i, e := range entries {
		name := cdb.Tag{Unit: kind, Slot: i}.String()
		if !e.Busy {
			_, _ = fmt.Fprintf(w, "  %s\tno\t\t\t\t\n", name)
			continue
		}

		addr := string(e.Address)
		if !e.AddressReady() {
			addr = fmt.Sprintf("%d(%s)", e.Offset, e.Base.String())
		}
		data := ""
		if kind == cdb.UnitStore {
			data = e.Data.String()
		}
		_, _ = fmt.Fprintf(w, "  %s\tyes\t%s\t%s\t%s\t\n",
			name, addr, data, remaining(e.Remaining))
	}
}

func remaining(n int) string {
	if n < 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

// WriteTimeline renders the cycle in which each instruction passed each
// phase.
func WriteTimeline(w io.Writer, timeline []core.Timeline) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Instruction\tUnit\tIssue\tStart\tComplete\tWrite\t")
	for _, t := range timeline {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			t.Inst.String(), t.Tag.String(),
			cycle(t.Issued), cycle(t.ExecStarted),
			cycle(t.ExecCompleted), cycle(t.Written))
	}
	return tw.Flush()
}

func cycle(c uint64) string {
	if c == 0 {
		return "-"
	}
	return strconv.FormatUint(c, 10)
}
