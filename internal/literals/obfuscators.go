// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package literals

import (
	"math"
	mathrand "math/rand"

	"github.com/bipbap/bipbap/internal/jvm"
)

// intObfuscator rewrites one int constant. Every implementation stores two
// derived values N and M with N^M == v; only the instruction shape differs.
type intObfuscator interface {
	obfuscate(rand *mathrand.Rand, v int32) []jvm.Insn
}

// intObfuscators contains all types which implement the intObfuscator interface
var intObfuscators = []intObfuscator{
	widening{},
	narrowing{},
}

func randIntObfuscator(rand *mathrand.Rand) intObfuscator {
	return intObfuscators[rand.Intn(len(intObfuscators))]
}

// splitInt picks N = v ± R with R uniform in [0, MaxInt32), wrapping, and
// M = v ^ N.
func splitInt(rand *mathrand.Rand, v int32) (n, m int32) {
	r := rand.Int31n(math.MaxInt32)
	if rand.Intn(2) == 0 {
		r = -r
	}
	n = v + r
	return n, v ^ n
}

// widening xors the halves as longs: N i2l M i2l lxor l2i.
type widening struct{}

var _ intObfuscator = widening{}

func (widening) obfuscate(rand *mathrand.Rand, v int32) []jvm.Insn {
	n, m := splitInt(rand, v)
	return []jvm.Insn{
		jvm.PushInt(n),
		jvm.Op(jvm.I2l),
		jvm.PushInt(m),
		jvm.Op(jvm.I2l),
		jvm.Op(jvm.Lxor),
		jvm.Op(jvm.L2i),
	}
}

// narrowing pushes N as a long and truncates it: (long)N l2i M ixor.
type narrowing struct{}

var _ intObfuscator = narrowing{}

func (narrowing) obfuscate(rand *mathrand.Rand, v int32) []jvm.Insn {
	n, m := splitInt(rand, v)
	return []jvm.Insn{
		jvm.PushLong(int64(n)),
		jvm.Op(jvm.L2i),
		jvm.PushInt(m),
		jvm.Op(jvm.Ixor),
	}
}

func obfuscateLong(rand *mathrand.Rand, v int64) []jvm.Insn {
	key := int64(rand.Uint64())
	return []jvm.Insn{
		jvm.PushLong(v ^ key),
		jvm.PushLong(key),
		jvm.Op(jvm.Lxor),
	}
}

// Floating point values travel as their raw bits, so NaN payloads and
// negative zero survive.
func obfuscateFloat(rand *mathrand.Rand, v float32) []jvm.Insn {
	bits := int32(math.Float32bits(v))
	key := int32(rand.Uint32())
	return []jvm.Insn{
		jvm.PushInt(bits ^ key),
		jvm.PushInt(key),
		jvm.Op(jvm.Ixor),
		jvm.Invoke(jvm.Invokestatic, "java/lang/Float", "intBitsToFloat", "(I)F"),
	}
}

func obfuscateDouble(rand *mathrand.Rand, v float64) []jvm.Insn {
	bits := int64(math.Float64bits(v))
	key := int64(rand.Uint64())
	return []jvm.Insn{
		jvm.PushLong(bits ^ key),
		jvm.PushLong(key),
		jvm.Op(jvm.Lxor),
		jvm.Invoke(jvm.Invokestatic, "java/lang/Double", "longBitsToDouble", "(J)D"),
	}
}
