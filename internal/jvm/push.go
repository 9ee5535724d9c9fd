// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package jvm

import (
	"math"
)

// PushInt returns the shortest instruction that pushes v.
func PushInt(v int32) Insn {
	switch {
	case v >= -1 && v <= 5:
		return Op(Opcode(int32(Iconst0) + v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return &IntInsn{Opcode: Bipush, Operand: v}
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return &IntInsn{Opcode: Sipush, Operand: v}
	}
	return &LdcInsn{Value: v}
}

func PushLong(v int64) Insn {
	if v == 0 || v == 1 {
		return Op(Lconst0 + Opcode(v))
	}
	return &LdcInsn{Value: v}
}

// PushFloat uses fconst only for the exact values 0, 1 and 2; negative zero
// goes through the constant pool.
func PushFloat(v float32) Insn {
	if (v == 0 && !math.Signbit(float64(v))) || v == 1 || v == 2 {
		return Op(Fconst0 + Opcode(v))
	}
	return &LdcInsn{Value: v}
}

func PushDouble(v float64) Insn {
	if (v == 0 && !math.Signbit(v)) || v == 1 {
		return Op(Dconst0 + Opcode(v))
	}
	return &LdcInsn{Value: v}
}

// ConstValue returns the constant pushed by insn, if it is a constant push.
func ConstValue(insn Insn) (any, bool) {
	switch insn := insn.(type) {
	case *LdcInsn:
		return insn.Value, true
	case *IntInsn:
		if insn.Opcode != Newarray {
			return insn.Operand, true
		}
	case *SimpleInsn:
		switch op := insn.Opcode; {
		case op >= IconstM1 && op <= Iconst5:
			return int32(op) - int32(Iconst0), true
		case op == Lconst0 || op == Lconst1:
			return int64(op - Lconst0), true
		case op >= Fconst0 && op <= Fconst2:
			return float32(op - Fconst0), true
		case op == Dconst0 || op == Dconst1:
			return float64(op - Dconst0), true
		case op == AconstNull:
			return nil, true
		}
	}
	return nil, false
}
