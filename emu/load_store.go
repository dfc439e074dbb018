package emu

import (
	"fmt"
	"sort"
	"strconv"
)

// Address is a resolved memory address. Numeric addresses are printed with
// %g; symbolic ones keep the base expression.
type Address string

// EffectiveAddress computes base + offset.
func EffectiveAddress(base Value, offset int64) Address {
	if x, ok := base.Float(); ok {
		return Address(strconv.FormatFloat(x+float64(offset), 'g', -1, 64))
	}

	switch {
	case offset == 0:
		return Address(base.Sym)
	case offset < 0:
		return Address(fmt.Sprintf("%s - %d", base.operandString(), -offset))
	default:
		return Address(fmt.Sprintf("%s + %d", base.operandString(), offset))
	}
}

// Memory is the data memory map. Addresses never written read as the
// placeholder M(addr).
type Memory struct {
	data map[Address]Value
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{data: make(map[Address]Value)}
}

// Read returns the value at addr.
func (m *Memory) Read(addr Address) Value {
	if v, ok := m.data[addr]; ok {
		return v
	}
	return Sym(fmt.Sprintf("M(%s)", addr))
}

// Write stores v at addr.
func (m *Memory) Write(addr Address, v Value) {
	m.data[addr] = v
}

// Len returns the number of written addresses.
func (m *Memory) Len() int {
	return len(m.data)
}

// Contents returns a copy of every written location.
func (m *Memory) Contents() map[Address]Value {
	out := make(map[Address]Value, len(m.data))
	for a, v := range m.data {
		out[a] = v
	}
	return out
}

// Addresses returns written addresses in sorted order.
func (m *Memory) Addresses() []Address {
	addrs := make([]Address, 0, len(m.data))
	for a := range m.data {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Reset forgets every written location.
func (m *Memory) Reset() {
	m.data = make(map[Address]Value)
}
