// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package literals

import (
	"math"
	mathrand "math/rand"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/emu"
	"github.com/bipbap/bipbap/internal/jvm"
)

var returnOps = map[string]jvm.Opcode{
	"I": jvm.Ireturn,
	"J": jvm.Lreturn,
	"F": jvm.Freturn,
	"D": jvm.Dreturn,
	"Ljava/lang/String;": jvm.Areturn,
}

// evalCode runs code as the body of a static no-argument method.
func evalCode(t *testing.T, desc string, code []jvm.Insn, extra ...*jvm.Method) any {
	t.Helper()
	c := jvm.NewClass("t/Eval", jvm.V1_8)
	body := append(append([]jvm.Insn(nil), code...), jvm.Op(returnOps[desc]))
	c.Methods = append([]*jvm.Method{{
		Access:       jvm.AccPublic | jvm.AccStatic,
		Name:         "eval",
		Desc:         "()" + desc,
		Instructions: body,
	}}, extra...)
	v, err := emu.New(c).Invoke("t/Eval", "eval", "()"+desc)
	qt.Assert(t, qt.IsNil(err))
	return v
}

func TestIntShapes(t *testing.T) {
	rand := mathrand.New(mathrand.NewSource(7))
	values := []int32{0, 1, -1, 5, 127, -128, 32767, 1 << 20, math.MaxInt32, math.MinInt32}
	for _, obf := range intObfuscators {
		for _, v := range values {
			for i := 0; i < 20; i++ {
				code := obf.obfuscate(rand, v)
				qt.Assert(t, qt.Equals(evalCode(t, "I", code), any(v)), qt.Commentf("%T %d", obf, v))
			}
		}
	}
}

func TestIntDoesNotStoreValue(t *testing.T) {
	rand := mathrand.New(mathrand.NewSource(8))
	const v = 123456789
	for i := 0; i < 50; i++ {
		code, err := Obfuscate(rand, int32(v))
		qt.Assert(t, qt.IsNil(err))
		for _, insn := range code {
			c, ok := jvm.ConstValue(insn)
			if !ok {
				continue
			}
			qt.Assert(t, qt.Not(qt.Equals(c, any(int32(v)))))
			qt.Assert(t, qt.Not(qt.Equals(c, any(int64(v)))))
		}
	}
}

func TestSplitIntRange(t *testing.T) {
	rand := mathrand.New(mathrand.NewSource(9))
	for i := 0; i < 1000; i++ {
		v := rand.Int31() - rand.Int31()
		n, m := splitInt(rand, v)
		qt.Assert(t, qt.Equals(n^m, v))
	}
}

func TestWideValues(t *testing.T) {
	rand := mathrand.New(mathrand.NewSource(10))
	longs := []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 0x1234_5678_9abc_def0}
	for _, v := range longs {
		code, err := Obfuscate(rand, v)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(evalCode(t, "J", code), any(v)))
	}

	floats := []float32{0, float32(math.Copysign(0, -1)), 1.5, -3.25e10, float32(math.Inf(1)), math.Float32frombits(0x7fc00123)}
	for _, v := range floats {
		code, err := Obfuscate(rand, v)
		qt.Assert(t, qt.IsNil(err))
		got := evalCode(t, "F", code).(float32)
		qt.Assert(t, qt.Equals(math.Float32bits(got), math.Float32bits(v)))
	}

	doubles := []float64{0, math.Copysign(0, -1), math.Pi, math.Inf(-1), math.Float64frombits(0x7ff8000000000abc)}
	for _, v := range doubles {
		code, err := Obfuscate(rand, v)
		qt.Assert(t, qt.IsNil(err))
		got := evalCode(t, "D", code).(float64)
		qt.Assert(t, qt.Equals(math.Float64bits(got), math.Float64bits(v)))
	}
}

func TestObfuscateUnsupported(t *testing.T) {
	_, err := Obfuscate(mathrand.New(mathrand.NewSource(1)), "text")
	qt.Assert(t, qt.ErrorMatches(err, "cannot obfuscate constant of type string"))
}

func TestTypeDesc(t *testing.T) {
	qt.Assert(t, qt.Equals(TypeDesc(int32(1)), "I"))
	qt.Assert(t, qt.Equals(TypeDesc(1.0), "D"))
	qt.Assert(t, qt.Equals(TypeDesc("s"), "Ljava/lang/String;"))
	qt.Assert(t, qt.Equals(TypeDesc(jvm.TypeRef{}), ""))
}
