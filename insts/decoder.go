package insts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Op represents a floating-point opcode.
type Op uint8

// Supported opcodes.
const (
	OpUnknown Op = iota
	OpADDD
	OpSUBD
	OpMULTD
	OpDIVD
	OpLD
	OpSD
)

var opNames = map[Op]string{
	OpUnknown: "UNKNOWN",
	OpADDD:    "ADDD",
	OpSUBD:    "SUBD",
	OpMULTD:   "MULTD",
	OpDIVD:    "DIVD",
	OpLD:      "LD",
	OpSD:      "SD",
}

var opByMnemonic = map[string]Op{
	"ADDD":  OpADDD,
	"SUBD":  OpSUBD,
	"MULTD": OpMULTD,
	"MULD":  OpMULTD,
	"DIVD":  OpDIVD,
	"LD":    OpLD,
	"SD":    OpSD,
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// IsArith returns true for register-register floating-point operations.
func (o Op) IsArith() bool {
	return o == OpADDD || o == OpSUBD || o == OpMULTD || o == OpDIVD
}

// IsMemory returns true for LD and SD.
func (o Op) IsMemory() bool {
	return o == OpLD || o == OpSD
}

// RegClass selects a register bank.
type RegClass uint8

// Register banks.
const (
	RegFP  RegClass = iota // F registers, renamed by the core
	RegInt                 // R registers, only used as address bases
)

// Reg names one architectural register.
type Reg struct {
	Class RegClass
	Index uint8
}

// F returns floating-point register Fn.
func F(n uint8) Reg { return Reg{Class: RegFP, Index: n} }

// R returns integer register Rn.
func R(n uint8) Reg { return Reg{Class: RegInt, Index: n} }

func (r Reg) String() string {
	if r.Class == RegInt {
		return fmt.Sprintf("R%d", r.Index)
	}
	return fmt.Sprintf("F%d", r.Index)
}

// Instruction represents one decoded instruction record.
//
// For arithmetic ops Rd is the destination and Rn, Rm are the sources. For LD,
// Rd is the destination and Rn+Imm the address. For SD, Rd holds the data to
// store and Rn+Imm the address.
type Instruction struct {
	Op  Op
	Rd  Reg
	Rn  Reg
	Rm  Reg
	Imm int64

	// Text is the source line the instruction was decoded from.
	Text string
}

func (i *Instruction) String() string {
	switch {
	case i.Op.IsArith():
		return fmt.Sprintf("%v %v %v %v", i.Op, i.Rd, i.Rn, i.Rm)
	case i.Op.IsMemory():
		return fmt.Sprintf("%v %v %d(%v)", i.Op, i.Rd, i.Imm, i.Rn)
	default:
		return i.Op.String()
	}
}

// ErrSyntax is returned for lines that do not follow the instruction grammar.
var ErrSyntax = errors.New("syntax error")

// Decoder decodes instruction text into instructions.
type Decoder struct {
	// NumFPRegs bounds valid F register indices.
	NumFPRegs int
	// NumIntRegs bounds valid R register indices.
	NumIntRegs int
}

// NewDecoder creates a decoder accepting 32 registers per bank.
func NewDecoder() *Decoder {
	return &Decoder{NumFPRegs: 32, NumIntRegs: 32}
}

// StripComment removes a trailing '#' or ';' comment and surrounding space.
func StripComment(line string) string {
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// Decode decodes a single instruction line.
func (d *Decoder) Decode(line string) (*Instruction, error) {
	text := StripComment(line)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty instruction", ErrSyntax)
	}

	op, ok := opByMnemonic[strings.ToUpper(fields[0])]
	if !ok {
		return nil, fmt.Errorf("%w: unknown opcode %q", ErrSyntax, fields[0])
	}

	inst := &Instruction{Op: op, Text: text}
	var err error
	if op.IsArith() {
		err = d.decodeArith(fields[1:], inst)
	} else {
		err = d.decodeMemory(fields[1:], inst)
	}
	if err != nil {
		return nil, err
	}

	return inst, nil
}

// decodeArith decodes "Fd Fn Fm".
func (d *Decoder) decodeArith(args []string, inst *Instruction) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: %v takes 3 operands, got %d", ErrSyntax, inst.Op, len(args))
	}

	regs := make([]Reg, 3)
	for i, a := range args {
		r, err := d.ParseReg(a)
		if err != nil {
			return err
		}
		if r.Class != RegFP {
			return fmt.Errorf("%w: %v operand %q must be an F register", ErrSyntax, inst.Op, a)
		}
		regs[i] = r
	}

	inst.Rd, inst.Rn, inst.Rm = regs[0], regs[1], regs[2]
	return nil
}

// decodeMemory decodes "Fd offset(base)", "Fd offset+ base" or "Fd offset base".
func (d *Decoder) decodeMemory(args []string, inst *Instruction) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: %v takes a register and an address", ErrSyntax, inst.Op)
	}

	rd, err := d.ParseReg(args[0])
	if err != nil {
		return err
	}
	if rd.Class != RegFP {
		return fmt.Errorf("%w: %v data register %q must be an F register", ErrSyntax, inst.Op, args[0])
	}
	inst.Rd = rd

	var offText, baseText string
	if len(args) == 2 {
		open := strings.Index(args[1], "(")
		if open < 0 || !strings.HasSuffix(args[1], ")") {
			return fmt.Errorf("%w: malformed address %q", ErrSyntax, args[1])
		}
		offText = args[1][:open]
		baseText = args[1][open+1 : len(args[1])-1]
	} else {
		offText = strings.TrimSuffix(args[1], "+")
		baseText = args[2]
	}

	if offText == "" {
		offText = "0"
	}
	off, err := strconv.ParseInt(offText, 0, 64)
	if err != nil {
		return fmt.Errorf("%w: bad offset %q", ErrSyntax, offText)
	}

	base, err := d.ParseReg(baseText)
	if err != nil {
		return err
	}

	inst.Rn = base
	inst.Imm = off
	return nil
}

// ParseReg parses a register name such as "F4" or "R2".
func (d *Decoder) ParseReg(s string) (Reg, error) {
	if len(s) < 2 {
		return Reg{}, fmt.Errorf("%w: bad register %q", ErrSyntax, s)
	}

	var class RegClass
	var limit int
	switch s[0] {
	case 'F', 'f':
		class, limit = RegFP, d.NumFPRegs
	case 'R', 'r':
		class, limit = RegInt, d.NumIntRegs
	default:
		return Reg{}, fmt.Errorf("%w: bad register %q", ErrSyntax, s)
	}

	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 || n >= limit {
		return Reg{}, fmt.Errorf("%w: register %q out of range", ErrSyntax, s)
	}

	return Reg{Class: class, Index: uint8(n)}, nil
}
