// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package literals

import (
	mathrand "math/rand"

	"github.com/bipbap/bipbap/internal/jvm"
)

const (
	minTextKey = 8
	maxTextKey = 0x800

	// DecryptDesc is the descriptor of routines built by DecryptRoutine.
	DecryptDesc = "(Ljava/lang/String;)Ljava/lang/String;"
)

// TextKey returns a key in [8, 2048) for EncryptText.
func TextKey(rand *mathrand.Rand) int32 {
	return minTextKey + rand.Int31n(maxTextKey-minTextKey)
}

// EncryptText xors every UTF-16 code unit of s with key. The operation is
// its own inverse.
func EncryptText(s string, key int32) string {
	units := jvm.UTF16(s)
	for i, u := range units {
		units[i] = u ^ uint16(key)
	}
	return jvm.FromUTF16(units)
}

// DecryptRoutine builds the static method that undoes EncryptText for key:
//
//	StringBuilder sb = new StringBuilder();
//	for (int i = 0; i < s.length(); i++)
//		sb.append((char) (s.charAt(i) ^ key));
//	return sb.toString();
func DecryptRoutine(name string, key int32) *jvm.Method {
	body, cond := jvm.NewLabel(), jvm.NewLabel()
	const sb = "java/lang/StringBuilder"
	return &jvm.Method{
		Access: jvm.AccPrivate | jvm.AccStatic | jvm.AccSynthetic | jvm.AccBridge,
		Name:   name,
		Desc:   DecryptDesc,
		Instructions: []jvm.Insn{
			jvm.TypeOp(jvm.New, sb),
			jvm.Op(jvm.Dup),
			jvm.Invoke(jvm.Invokespecial, sb, jvm.Constructor, "()V"),
			jvm.Var(jvm.Astore, 1),
			jvm.Op(jvm.Iconst0),
			jvm.Var(jvm.Istore, 2),
			jvm.Jump(jvm.Goto, cond),

			body,
			jvm.Var(jvm.Aload, 1),
			jvm.Var(jvm.Aload, 0),
			jvm.Var(jvm.Iload, 2),
			jvm.Invoke(jvm.Invokevirtual, "java/lang/String", "charAt", "(I)C"),
			jvm.PushInt(key),
			jvm.Op(jvm.Ixor),
			jvm.Op(jvm.I2c),
			jvm.Invoke(jvm.Invokevirtual, sb, "append", "(C)Ljava/lang/StringBuilder;"),
			jvm.Op(jvm.Pop),
			&jvm.IincInsn{Slot: 2, Increment: 1},

			cond,
			jvm.Var(jvm.Iload, 2),
			jvm.Var(jvm.Aload, 0),
			jvm.Invoke(jvm.Invokevirtual, "java/lang/String", "length", "()I"),
			jvm.Jump(jvm.IfIcmplt, body),
			jvm.Var(jvm.Aload, 1),
			jvm.Invoke(jvm.Invokevirtual, sb, "toString", "()Ljava/lang/String;"),
			jvm.Op(jvm.Areturn),
		},
	}
}
