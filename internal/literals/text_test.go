// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package literals

import (
	mathrand "math/rand"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/jvm"
)

var texts = []string{
	"",
	"hello",
	"naïve café",
	"日本語のテキスト",
	"emoji \U0001F600 pair",
	jvm.FromUTF16([]uint16{'x', 0xD800, 'y'}),
	"\x00control\n\t",
}

func TestEncryptTextInvolution(t *testing.T) {
	for key := int32(minTextKey); key < maxTextKey; key += 37 {
		for _, s := range texts {
			enc := EncryptText(s, key)
			qt.Assert(t, qt.DeepEquals(jvm.UTF16(EncryptText(enc, key)), jvm.UTF16(s)))
			if s != "" {
				qt.Assert(t, qt.Not(qt.Equals(enc, s)))
			}
		}
	}
}

func TestTextKeyRange(t *testing.T) {
	rand := mathrand.New(mathrand.NewSource(11))
	for i := 0; i < 10000; i++ {
		k := TextKey(rand)
		qt.Assert(t, qt.IsTrue(k >= 8 && k < 2048), qt.Commentf("key %d", k))
	}
}

func TestDecryptRoutine(t *testing.T) {
	rand := mathrand.New(mathrand.NewSource(12))
	for _, s := range texts {
		key := TextKey(rand)
		routine := DecryptRoutine("dec", key)
		qt.Assert(t, qt.Equals(routine.Desc, DecryptDesc))
		qt.Assert(t, qt.IsTrue(routine.IsStatic()))

		code := []jvm.Insn{
			&jvm.LdcInsn{Value: EncryptText(s, key)},
			jvm.Invoke(jvm.Invokestatic, "t/Eval", "dec", DecryptDesc),
		}
		got := evalCode(t, "Ljava/lang/String;", code, routine).(string)
		qt.Assert(t, qt.DeepEquals(jvm.UTF16(got), jvm.UTF16(s)))
	}
}
