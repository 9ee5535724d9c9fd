// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package optimize

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/modelcodec"
	"github.com/bipbap/bipbap/internal/pipe/pipetest"
)

const kotlinClass = `
version: 52
access: 49
name: app/Greeter
super: java/lang/Object
source_file: Greeter.kt
source_debug: SMAP
outer_class: app/Outer
inner_classes:
  - name: app/Greeter$Inner
    outer_name: app/Greeter
    inner_name: Inner
    access: 9
visible_annotations:
  - desc: Lkotlin/Metadata;
  - desc: Lapp/Keep;
methods:
  - access: 17
    name: greet
    desc: (Ljava/lang/String;)Ljava/lang/String;
    code: |
      L0:
      line 4 L0
      aload 1
      ldc "name"
      invokestatic kotlin/jvm/internal/Intrinsics checkNotNullParameter (Ljava/lang/Object;Ljava/lang/String;)V
      aload 1
      ldc "lateinit property was not initialized"
      invokestatic kotlin/jvm/internal/Intrinsics throwUninitializedPropertyAccessException (Ljava/lang/String;)V
      iload 2
      pop
      aload 1
      areturn
  - access: 1025
    name: shape
    desc: ()V
`

func TestRun(t *testing.T) {
	ctx := pipetest.Context(t, kotlinClass)
	ctx.Config.CodeOptimizer.Enabled = true
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

	c := ctx.Image.Class("app/Greeter")
	qt.Check(t, qt.Equals(c.SourceFile, ""))
	qt.Check(t, qt.Equals(c.SourceDebug, ""))
	qt.Check(t, qt.Equals(c.OuterClass, ""))
	qt.Check(t, qt.HasLen(c.InnerClasses, 0))
	qt.Check(t, qt.HasLen(c.VisibleAnnotations, 1))
	qt.Check(t, qt.Equals(c.VisibleAnnotations[0].Desc, "Lapp/Keep;"))

	// the dropped parameter check leaves "aload 1; pop", which the dead
	// load pass then removes
	qt.Check(t, qt.Equals(pipetest.Code(t, pipetest.Method(t, c, "greet", "(Ljava/lang/String;)Ljava/lang/String;")), pipetest.Lines(`
		L0:
		aload 1
		ldc "REMOVED BY BIPBAP"
		invokestatic kotlin/jvm/internal/Intrinsics throwUninitializedPropertyAccessException (Ljava/lang/String;)V
		aload 1
		areturn
	`)))

	stats := ctx.Stats.Stage("CodeOptimizer")
	qt.Check(t, qt.Equals(stats.Get(countSource), int64(3)))
	qt.Check(t, qt.Equals(stats.Get(countInner), int64(1)))
	qt.Check(t, qt.Equals(stats.Get(countIntrinsics), int64(2)))
	qt.Check(t, qt.Equals(stats.Get(countDeadCode), int64(4)))
	qt.Check(t, qt.Equals(stats.Get(countAnnotations), int64(1)))
}

func TestRunMixinKeepsMetadata(t *testing.T) {
	ctx := pipetest.Context(t, `
name: app/MixinTarget
source_file: Target.java
invisible_annotations:
  - desc: Lorg/spongepowered/asm/mixin/Mixin;
`)
	ctx.Config.CodeOptimizer.Enabled = true
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))
	qt.Assert(t, qt.Equals(ctx.Image.Class("app/MixinTarget").SourceFile, "Target.java"))
}

func TestRunExcluded(t *testing.T) {
	ctx := pipetest.Context(t, kotlinClass)
	ctx.Config.CodeOptimizer.Enabled = true
	ctx.Config.CodeOptimizer.Exclusion = []string{"app/"}
	err := Pipe{}.Run(ctx)
	qt.Assert(t, qt.ErrorMatches(err, "no classes to optimize"))
	qt.Assert(t, qt.Equals(ctx.Image.Class("app/Greeter").SourceFile, "Greeter.kt"))
}

func TestSkip(t *testing.T) {
	ctx := pipetest.Context(t)
	qt.Assert(t, qt.IsTrue(Pipe{}.Skip(ctx)))
	ctx.Config.CodeOptimizer.Enabled = true
	qt.Assert(t, qt.IsFalse(Pipe{}.Skip(ctx)))
}

func TestRemoveDeadLoads(t *testing.T) {
	tests := []struct {
		name    string
		in, out string
		removed int64
	}{
		{"SingleSlot", "iload 1\npop\nfload 2\npop\naload 0\npop\nreturn", "return", 6},
		{"DoubleSlot", "lload 1\npop2\ndload 3\npop2\nreturn", "return", 4},
		{"Pair", "iload 1\naload 2\npop2\nreturn", "return", 3},
		{"Nested", "aload 0\naload 1\npop\npop\nreturn", "return", 4},
		{"Label", "aload 0\nL0:\npop\nreturn", "aload 0\nL0:\npop\nreturn", 0},
		{"WideSinglePop", "lload 1\npop\nreturn", "lload 1\npop\nreturn", 0},
		{"Store", "iconst_1\npop\nreturn", "iconst_1\npop\nreturn", 0},
		{"LonePop2", "iload 1\npop2\nreturn", "iload 1\npop2\nreturn", 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, err := modelcodec.ParseCode(test.in)
			qt.Assert(t, qt.IsNil(err))
			code, removed := removeDeadLoads(code)
			text, err := modelcodec.FormatCode(code)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(text, test.out+"\n"))
			qt.Assert(t, qt.Equals(removed, test.removed))
		})
	}
}

func TestStripIntrinsics(t *testing.T) {
	tests := []struct {
		name    string
		in, out string
	}{
		{
			"TwoMessages",
			`aload 0
			ldc "a"
			ldc "b"
			invokestatic kotlin/jvm/internal/Intrinsics checkReturnedValueIsNotNull (Ljava/lang/Object;Ljava/lang/String;Ljava/lang/String;)V`,
			"aload 0\nldc \"a\"\npop\npop",
		},
		{
			"MessageNotConstant",
			`aload 0
			aload 1
			invokestatic kotlin/jvm/internal/Intrinsics checkNotNullExpressionValue (Ljava/lang/Object;Ljava/lang/String;)V`,
			"aload 0\naload 1\npop\npop",
		},
		{
			"OtherOwner",
			`aload 0
			ldc "x"
			invokestatic app/Intrinsics checkNotNullParameter (Ljava/lang/Object;Ljava/lang/String;)V`,
			"aload 0\nldc \"x\"\ninvokestatic app/Intrinsics checkNotNullParameter (Ljava/lang/Object;Ljava/lang/String;)V",
		},
		{
			"MessageCheck",
			`aload 0
			ldc "must not be null"
			invokestatic kotlin/jvm/internal/Intrinsics checkNotNull (Ljava/lang/Object;Ljava/lang/String;)V`,
			"aload 0\nldc \"REMOVED BY BIPBAP\"\ninvokestatic kotlin/jvm/internal/Intrinsics checkNotNull (Ljava/lang/Object;Ljava/lang/String;)V",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, err := modelcodec.ParseCode(test.in)
			qt.Assert(t, qt.IsNil(err))
			code, _ = stripIntrinsics(code)
			text, err := modelcodec.FormatCode(code)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(text, test.out+"\n"))
		})
	}
}
