// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package optimize

import "github.com/bipbap/bipbap/internal/jvm"

const (
	intrinsics = "kotlin/jvm/internal/Intrinsics"

	// Placeholder replaces the messages of intrinsics that must stay.
	Placeholder = "REMOVED BY BIPBAP"
)

// removableChecks maps null checks that only fail fast to the number of
// arguments left on the stack once the trailing message constant is gone.
var removableChecks = map[string]int{
	"checkExpressionValueIsNotNull(Ljava/lang/Object;Ljava/lang/String;)V":                 1,
	"checkNotNullExpressionValue(Ljava/lang/Object;Ljava/lang/String;)V":                   1,
	"checkReturnedValueIsNotNull(Ljava/lang/Object;Ljava/lang/String;Ljava/lang/String;)V": 2,
	"checkReturnedValueIsNotNull(Ljava/lang/Object;Ljava/lang/String;)V":                   1,
	"checkFieldIsNotNull(Ljava/lang/Object;Ljava/lang/String;Ljava/lang/String;)V":         2,
	"checkFieldIsNotNull(Ljava/lang/Object;Ljava/lang/String;)V":                           1,
	"checkParameterIsNotNull(Ljava/lang/Object;Ljava/lang/String;)V":                       1,
	"checkNotNullParameter(Ljava/lang/Object;Ljava/lang/String;)V":                         1,
}

// messageChecks throw with a descriptive message; the call stays but the
// message is blanked.
var messageChecks = map[string]bool{
	"checkNotNull(Ljava/lang/Object;Ljava/lang/String;)V":            true,
	"throwNpe(Ljava/lang/String;)V":                                  true,
	"throwJavaNpe(Ljava/lang/String;)V":                              true,
	"throwUninitializedProperty(Ljava/lang/String;)V":                true,
	"throwUninitializedPropertyAccessException(Ljava/lang/String;)V": true,
	"throwAssert(Ljava/lang/String;)V":                               true,
	"throwIllegalArgument(Ljava/lang/String;)V":                      true,
	"throwIllegalState(Ljava/lang/String;)V":                         true,
	"throwUndefinedForReified(Ljava/lang/String;)V":                  true,
}

// stripIntrinsics rewrites calls into the Kotlin null-check helpers. A
// removable check loses its message constant and its remaining arguments
// are popped; when the message is not a constant right before the call,
// every argument is popped instead.
func stripIntrinsics(code []jvm.Insn) ([]jvm.Insn, int64) {
	var n int64
	out := make([]jvm.Insn, 0, len(code))
	for _, insn := range code {
		call, ok := insn.(*jvm.MethodInsn)
		if !ok || call.Opcode != jvm.Invokestatic || call.Owner != intrinsics {
			out = append(out, insn)
			continue
		}
		key := call.Name + call.Desc
		if pops, ok := removableChecks[key]; ok {
			if last := len(out) - 1; last >= 0 {
				if _, isLdc := out[last].(*jvm.LdcInsn); isLdc {
					out = out[:last]
				} else {
					pops++
				}
			} else {
				pops++
			}
			for i := 0; i < pops; i++ {
				out = append(out, jvm.Op(jvm.Pop))
			}
			n++
			continue
		}
		if messageChecks[key] && len(out) > 0 {
			if ldc, ok := out[len(out)-1].(*jvm.LdcInsn); ok {
				if _, isText := ldc.Value.(string); isText {
					ldc.Value = Placeholder
					n++
				}
			}
		}
		out = append(out, insn)
	}
	return out, n
}
