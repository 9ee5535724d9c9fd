// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package indy

import (
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/literals"
)

const (
	// BootstrapDesc is the descriptor of resolver routines. The trailing
	// arguments are the encrypted owner, name and descriptor of the target
	// and the dispatch kind.
	BootstrapDesc = "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;" +
		"Ljava/lang/String;Ljava/lang/String;Ljava/lang/String;Ljava/lang/Integer;)Ljava/lang/invoke/CallSite;"

	dispatchStatic  int32 = 0
	dispatchVirtual int32 = 1

	lookupClass   = "java/lang/invoke/MethodHandles$Lookup"
	callSiteClass = "java/lang/invoke/ConstantCallSite"
	findDesc      = "(Ljava/lang/Class;Ljava/lang/String;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/MethodHandle;"
)

// CallSite returns the dynamic call site replacing call. Virtual calls take
// the receiver as an extra leading Object argument.
func CallSite(owner, resolver string, key int32, call *jvm.MethodInsn) *jvm.InvokeDynamicInsn {
	desc := call.Desc
	dispatch := dispatchStatic
	if call.Opcode != jvm.Invokestatic {
		desc = "(Ljava/lang/Object;" + desc[1:]
		dispatch = dispatchVirtual
	}
	return &jvm.InvokeDynamicInsn{
		Name: resolver,
		Desc: desc,
		Bootstrap: jvm.Handle{
			Kind:  jvm.HInvokeStatic,
			Owner: owner,
			Name:  resolver,
			Desc:  BootstrapDesc,
		},
		Args: []any{
			literals.EncryptText(jvm.BinaryName(call.Owner), key),
			literals.EncryptText(call.Name, key),
			literals.EncryptText(call.Desc, key),
			dispatch,
		},
	}
}

// Resolver builds the bootstrap routine of owner's call sites. It decrypts
// the target with the routine named decrypt, looks it up through the
// caller's Lookup and binds it for good:
//
//	MethodType type = MethodType.fromMethodDescriptorString(decrypt(desc), Owner.class.getClassLoader());
//	Class<?> c = Class.forName(decrypt(owner));
//	MethodHandle mh = kind == 1
//		? lookup.findVirtual(c, decrypt(name), type)
//		: lookup.findStatic(c, decrypt(name), type);
//	return new ConstantCallSite(mh.asType(callType));
//
// Lookup failures are not caught.
func Resolver(owner, name, decrypt string) *jvm.Method {
	static := jvm.NewLabel()
	code := []jvm.Insn{
		jvm.Var(jvm.Aload, 3),
		jvm.TypeOp(jvm.Checkcast, "java/lang/String"),
		jvm.Var(jvm.Astore, 7),
		jvm.Var(jvm.Aload, 4),
		jvm.TypeOp(jvm.Checkcast, "java/lang/String"),
		jvm.Var(jvm.Astore, 8),
		jvm.Var(jvm.Aload, 5),
		jvm.TypeOp(jvm.Checkcast, "java/lang/String"),
		jvm.Var(jvm.Astore, 9),
		jvm.Var(jvm.Aload, 6),
		jvm.TypeOp(jvm.Checkcast, "java/lang/Integer"),
		jvm.Invoke(jvm.Invokevirtual, "java/lang/Integer", "intValue", "()I"),
		jvm.Var(jvm.Istore, 10),

		jvm.Var(jvm.Aload, 9),
		jvm.Invoke(jvm.Invokestatic, owner, decrypt, literals.DecryptDesc),
		&jvm.LdcInsn{Value: jvm.TypeRef{Desc: "L" + owner + ";"}},
		jvm.Invoke(jvm.Invokevirtual, "java/lang/Class", "getClassLoader", "()Ljava/lang/ClassLoader;"),
		jvm.Invoke(jvm.Invokestatic, "java/lang/invoke/MethodType", "fromMethodDescriptorString",
			"(Ljava/lang/String;Ljava/lang/ClassLoader;)Ljava/lang/invoke/MethodType;"),
		jvm.Var(jvm.Astore, 11),

		jvm.Var(jvm.Iload, 10),
		jvm.Op(jvm.Iconst1),
		jvm.Jump(jvm.IfIcmpne, static),
	}
	code = append(code, bindCallSite(owner, decrypt, "findVirtual")...)
	code = append(code, static)
	code = append(code, bindCallSite(owner, decrypt, "findStatic")...)
	return &jvm.Method{
		Access:       jvm.AccPrivate | jvm.AccStatic | jvm.AccSynthetic | jvm.AccBridge,
		Name:         name,
		Desc:         BootstrapDesc,
		Instructions: code,
	}
}

func bindCallSite(owner, decrypt, find string) []jvm.Insn {
	return []jvm.Insn{
		jvm.TypeOp(jvm.New, callSiteClass),
		jvm.Op(jvm.Dup),
		jvm.Var(jvm.Aload, 0),
		jvm.Var(jvm.Aload, 7),
		jvm.Invoke(jvm.Invokestatic, owner, decrypt, literals.DecryptDesc),
		jvm.Invoke(jvm.Invokestatic, "java/lang/Class", "forName", "(Ljava/lang/String;)Ljava/lang/Class;"),
		jvm.Var(jvm.Aload, 8),
		jvm.Invoke(jvm.Invokestatic, owner, decrypt, literals.DecryptDesc),
		jvm.Var(jvm.Aload, 11),
		jvm.Invoke(jvm.Invokevirtual, lookupClass, find, findDesc),
		jvm.Var(jvm.Aload, 2),
		jvm.Invoke(jvm.Invokevirtual, "java/lang/invoke/MethodHandle", "asType",
			"(Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/MethodHandle;"),
		jvm.Invoke(jvm.Invokespecial, callSiteClass, jvm.Constructor, "(Ljava/lang/invoke/MethodHandle;)V"),
		jvm.Op(jvm.Areturn),
	}
}
