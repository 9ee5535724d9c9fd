// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package constants

import (
	"math"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/emu"
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/pipe/pipetest"
)

const valuesClass = `
version: 52
access: 33
name: app/Values
super: java/lang/Object
methods:
  - access: 9
    name: answer
    desc: ()I
    code: |
      ldc 123456789
      ireturn
  - access: 9
    name: negative
    desc: ()I
    code: |
      ldc -2147483648
      ireturn
  - access: 9
    name: big
    desc: ()J
    code: |
      ldc -81985529216486896L
      lreturn
  - access: 9
    name: ratio
    desc: ()F
    code: |
      ldc NaN(0x7fc00123)F
      freturn
  - access: 9
    name: pi
    desc: ()D
    code: |
      ldc 3.141592653589793D
      dreturn
  - access: 9
    name: text
    desc: ()Ljava/lang/String;
    code: |
      ldc "héllo, wörld ☃"
      areturn
  - access: 9
    name: more
    desc: ()Ljava/lang/String;
    code: |
      ldc "second"
      areturn
  - access: 9
    name: type
    desc: ()Ljava/lang/Class;
    code: |
      ldc type Lapp/Values;
      areturn
`

const otherClass = `
version: 52
access: 33
name: app/Other
super: java/lang/Object
methods:
  - access: 9
    name: seven
    desc: ()I
    code: |
      ldc 7777777
      ireturn
`

func TestRunPreservesValues(t *testing.T) {
	for seed := 0; seed < 5; seed++ {
		ctx := pipetest.SeededContext(t, int64(seed), valuesClass, otherClass)
		ctx.Config.ConstantEncryptor.Enabled = true
		qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

		values := ctx.Image.Class("app/Values")
		for _, m := range values.Methods {
			for _, insn := range m.Instructions {
				if ldc, ok := insn.(*jvm.LdcInsn); ok {
					_, isType := ldc.Value.(jvm.TypeRef)
					qt.Assert(t, qt.IsTrue(isType), qt.Commentf("%s still loads %v", m.Name, ldc.Value))
				}
			}
		}

		m := emu.New(ctx.Image.Classes()...)
		invoke := func(name, desc string) any {
			v, err := m.Invoke("app/Values", name, desc)
			qt.Assert(t, qt.IsNil(err))
			return v
		}
		qt.Check(t, qt.Equals(invoke("answer", "()I"), any(int32(123456789))))
		qt.Check(t, qt.Equals(invoke("negative", "()I"), any(int32(math.MinInt32))))
		qt.Check(t, qt.Equals(invoke("big", "()J"), any(int64(-81985529216486896))))
		qt.Check(t, qt.Equals(math.Float32bits(invoke("ratio", "()F").(float32)), uint32(0x7fc00123)))
		qt.Check(t, qt.Equals(invoke("pi", "()D"), any(math.Pi)))
		qt.Check(t, qt.Equals(invoke("text", "()Ljava/lang/String;"), any("héllo, wörld ☃")))
		qt.Check(t, qt.Equals(invoke("more", "()Ljava/lang/String;"), any("second")))

		v, err := m.Invoke("app/Other", "seven", "()I")
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(v, any(int32(7777777))))
	}
}

func TestCompanions(t *testing.T) {
	ctx := pipetest.Context(t, valuesClass, otherClass)
	ctx.Config.ConstantEncryptor.Enabled = true
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

	stats := ctx.Stats.Stage("ConstantEncryptor")
	qt.Check(t, qt.Equals(stats.Get("integers"), int64(3)))
	qt.Check(t, qt.Equals(stats.Get("longs"), int64(1)))
	qt.Check(t, qt.Equals(stats.Get("floats"), int64(1)))
	qt.Check(t, qt.Equals(stats.Get("doubles"), int64(1)))
	qt.Check(t, qt.Equals(stats.Get("strings"), int64(2)))

	var fields int
	for _, c := range ctx.Image.Classes() {
		if !strings.HasSuffix(c.Name, CompanionSuffix) {
			continue
		}
		qt.Check(t, qt.Equals(c.Super, "java/lang/Object"))
		qt.Check(t, qt.IsTrue(c.Access.Has(jvm.AccPublic)))
		qt.Check(t, qt.IsNotNil(c.Method(jvm.StaticInitializer, "()V")))
		qt.Check(t, qt.Not(qt.HasLen(c.Fields, 0)))
		var routines int
		for _, m := range c.Methods {
			if m.Desc == "(Ljava/lang/String;)Ljava/lang/String;" {
				routines++
				qt.Check(t, qt.Equals(m.Access, jvm.AccPrivate|jvm.AccStatic|jvm.AccSynthetic|jvm.AccBridge))
			}
		}
		qt.Check(t, qt.IsTrue(routines <= 1))
		for _, f := range c.Fields {
			qt.Check(t, qt.IsTrue(strings.HasPrefix(f.Name, "const_")))
			qt.Check(t, qt.HasLen(f.Name, len("const_")+15))
			qt.Check(t, qt.IsNil(f.Value))
			fields++
		}
		// no plain text in the companion's constant pool
		for _, m := range c.Methods {
			for _, insn := range m.Instructions {
				if ldc, ok := insn.(*jvm.LdcInsn); ok {
					qt.Check(t, qt.Not(qt.Equals(ldc.Value, any("second"))))
				}
			}
		}
	}
	qt.Assert(t, qt.Equals(fields, 8))
}

func TestDisabledTypes(t *testing.T) {
	ctx := pipetest.Context(t, valuesClass)
	cfg := &ctx.Config.ConstantEncryptor
	cfg.Enabled = true
	cfg.Integer, cfg.Long, cfg.Float, cfg.Double = false, false, false, false
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

	values := ctx.Image.Class("app/Values")
	qt.Assert(t, qt.Equals(pipetest.Code(t, pipetest.Method(t, values, "answer", "()I")), "ldc 123456789\nireturn"))
	text := pipetest.Code(t, pipetest.Method(t, values, "text", "()Ljava/lang/String;"))
	qt.Assert(t, qt.Matches(text, `getstatic app/Values\$Constants const_\w{15} Ljava/lang/String;\nareturn`))
}

func TestNothingCaptured(t *testing.T) {
	ctx := pipetest.Context(t, `
name: app/Empty
super: java/lang/Object
methods:
  - access: 9
    name: run
    desc: ()V
    code: |
      return
`)
	ctx.Config.ConstantEncryptor.Enabled = true
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))
	qt.Assert(t, qt.Equals(ctx.Image.Len(), 1))
}

func TestExcluded(t *testing.T) {
	ctx := pipetest.Context(t, valuesClass)
	ctx.Config.ConstantEncryptor.Enabled = true
	ctx.Config.Settings.Exclusions = append(ctx.Config.Settings.Exclusions, "app/")
	err := Pipe{}.Run(ctx)
	qt.Assert(t, qt.ErrorMatches(err, "no classes to hold constants"))
	qt.Assert(t, qt.Equals(ctx.Image.Len(), 1))
}
