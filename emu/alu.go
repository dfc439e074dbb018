package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tomasim/insts"
)

// ErrUnknownOp is returned when an opcode has no arithmetic semantics.
var ErrUnknownOp = errors.New("unknown operation")

var opSymbols = map[insts.Op]string{
	insts.OpADDD:  "+",
	insts.OpSUBD:  "-",
	insts.OpMULTD: "*",
	insts.OpDIVD:  "/",
}

// Execute applies an arithmetic op to two resolved operands.
// Numeric operands produce IEEE-754 results; if either operand is symbolic
// the result is the symbolic expression of the operation.
func Execute(op insts.Op, a, b Value) (Value, error) {
	sym, ok := opSymbols[op]
	if !ok {
		return Value{}, fmt.Errorf("%w: %v", ErrUnknownOp, op)
	}

	x, xNum := a.Float()
	y, yNum := b.Float()
	if !xNum || !yNum {
		return Sym(a.operandString() + " " + sym + " " + b.operandString()), nil
	}

	switch op {
	case insts.OpADDD:
		return Num(x + y), nil
	case insts.OpSUBD:
		return Num(x - y), nil
	case insts.OpMULTD:
		return Num(x * y), nil
	default:
		return Num(x / y), nil
	}
}
