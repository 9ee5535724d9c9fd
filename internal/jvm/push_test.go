// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package jvm

import (
	"math"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestPushInt(t *testing.T) {
	tests := []struct {
		v    int32
		want Opcode
	}{
		{-1, IconstM1},
		{0, Iconst0},
		{5, Iconst5},
		{6, Bipush},
		{-128, Bipush},
		{-129, Sipush},
		{32767, Sipush},
		{32768, Ldc},
		{math.MinInt32, Ldc},
	}
	for _, test := range tests {
		insn := PushInt(test.v)
		qt.Check(t, qt.Equals(insn.Op(), test.want), qt.Commentf("%d", test.v))
		v, ok := ConstValue(insn)
		qt.Check(t, qt.IsTrue(ok))
		qt.Check(t, qt.Equals[any](v, test.v))
	}
}

func TestPushWide(t *testing.T) {
	qt.Assert(t, qt.Equals(PushLong(1).Op(), Lconst1))
	qt.Assert(t, qt.Equals(PushLong(2).Op(), Ldc))
	qt.Assert(t, qt.Equals(PushFloat(2).Op(), Fconst2))
	qt.Assert(t, qt.Equals(PushFloat(float32(math.Copysign(0, -1))).Op(), Ldc))
	qt.Assert(t, qt.Equals(PushFloat(0.5).Op(), Ldc))
	qt.Assert(t, qt.Equals(PushDouble(1).Op(), Dconst1))
	qt.Assert(t, qt.Equals(PushDouble(2).Op(), Ldc))

	v, ok := ConstValue(PushDouble(1))
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals[any](v, float64(1)))
}
