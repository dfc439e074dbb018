// Package cdb provides the common data bus that carries results from
// producers to every waiting consumer, together with the tag and
// value-or-tag operand types that consumers use to wait on it.
package cdb

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tomasim/emu"
)

// UnitKind identifies the kind of unit that owns a producer slot.
type UnitKind uint8

// Producer unit kinds. UnitNone marks the zero Tag.
const (
	UnitNone UnitKind = iota
	UnitAdd
	UnitMul
	UnitLoad
	UnitStore
)

var unitNames = [...]string{"", "Add", "Mul", "Load", "Store"}

func (k UnitKind) String() string {
	if int(k) < len(unitNames) {
		return unitNames[k]
	}
	return fmt.Sprintf("Unit(%d)", uint8(k))
}

// Tag names an in-flight producer: one slot of one unit.
// Tags are compared by value and are reused once their slot retires.
type Tag struct {
	Unit UnitKind
	Slot int
}

// Valid returns false for the zero Tag.
func (t Tag) Valid() bool {
	return t.Unit != UnitNone
}

func (t Tag) String() string {
	if !t.Valid() {
		return ""
	}
	return fmt.Sprintf("%v%d", t.Unit, t.Slot)
}

// Operand holds either a resolved value or the tag of its pending producer,
// never both.
type Operand struct {
	Value emu.Value
	Tag   Tag
}

// Ready returns a resolved operand.
func Ready(v emu.Value) Operand {
	return Operand{Value: v}
}

// Pending returns an operand waiting on tag.
func Pending(tag Tag) Operand {
	return Operand{Tag: tag}
}

// IsReady returns true if the operand holds a value.
func (o Operand) IsReady() bool {
	return !o.Tag.Valid()
}

// Snoop resolves the operand if it waits on tag. It returns true if the
// operand changed.
func (o *Operand) Snoop(tag Tag, v emu.Value) bool {
	if !o.Tag.Valid() || o.Tag != tag {
		return false
	}
	o.Value = v
	o.Tag = Tag{}
	return true
}

func (o Operand) String() string {
	if o.Tag.Valid() {
		return o.Tag.String()
	}
	return o.Value.String()
}

// Result is one tag/value pair carried by the bus.
type Result struct {
	Tag   Tag
	Value emu.Value
}

var (
	// ErrBusConflict is returned when a second producer stages a result in
	// the same cycle.
	ErrBusConflict = errors.New("bus arbitration conflict")

	// ErrInvalidTag is returned when a result is staged without a producer tag.
	ErrInvalidTag = errors.New("invalid producer tag")
)

// Bus is a single-slot broadcast bus. Writes are staged and only become
// visible to Read after Advance, so every reader in a cycle sees the result
// committed in the previous cycle.
type Bus struct {
	committed    Result
	hasCommitted bool

	staged    Result
	hasStaged bool

	broadcasts uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Write stages a result for the next cycle.
func (b *Bus) Write(tag Tag, v emu.Value) error {
	if !tag.Valid() {
		return ErrInvalidTag
	}
	if b.hasStaged {
		return fmt.Errorf("%w: %v already staged, %v rejected",
			ErrBusConflict, b.staged.Tag, tag)
	}

	b.staged = Result{Tag: tag, Value: v}
	b.hasStaged = true
	return nil
}

// Staged returns true if a result has been staged this cycle. Producers use
// it to arbitrate: a producer that finds the bus taken waits a cycle.
func (b *Bus) Staged() bool {
	return b.hasStaged
}

// Read returns the committed result, if any.
func (b *Bus) Read() (Result, bool) {
	return b.committed, b.hasCommitted
}

// Advance commits the staged result (or nothing) and clears the stage.
func (b *Bus) Advance() {
	b.committed, b.hasCommitted = b.staged, b.hasStaged
	b.staged, b.hasStaged = Result{}, false
	if b.hasCommitted {
		b.broadcasts++
	}
}

// Broadcasts returns the number of results committed so far.
func (b *Bus) Broadcasts() uint64 {
	return b.broadcasts
}

// Reset empties the bus.
func (b *Bus) Reset() {
	*b = Bus{}
}
