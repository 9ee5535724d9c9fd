// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package rename

import (
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/name"
	"github.com/bipbap/bipbap/internal/pipe/pipetest"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

const (
	baseClass = `
version: 52
access: 33
name: p/A
super: java/lang/Object
fields:
  - access: 1
    name: x
    desc: I
  - access: 25
    name: INSTANCE
    desc: Lp/A;
  - access: 1
    name: kept
    desc: J
methods:
  - access: 2
    name: helper
    desc: ()I
    code: |
      aload 0
      getfield p/A x I
      ireturn
  - access: 1
    name: visible
    desc: ()I
    code: |
      L0:
      aload 0
      invokespecial p/A helper ()I
      ireturn
      L1:
    locals:
      - name: this
        desc: Lp/A;
        start: L0
        end: L1
        index: 0
`
	subClass = `
version: 52
access: 33
name: p/B
super: p/A
methods:
  - access: 9
    name: main
    desc: ([Ljava/lang/String;)V
    code: |
      new p/B
      getfield p/B x I
      pop
      return
`
	otherClass = `
version: 52
access: 33
name: q/C
super: java/lang/Object
interfaces: [q/I]
fields:
  - access: 1
    name: x
    desc: I
`
	ifaceClass = `
version: 52
access: 1537
name: q/I
super: java/lang/Object
fields:
  - access: 25
    name: x
    desc: I
methods:
  - access: 2
    name: secret
    desc: ()V
    code: |
      return
`
)

func renamerContext(t *testing.T, seed int64) *context.Context {
	ctx := pipetest.SeededContext(t, seed, baseClass, subClass, otherClass, ifaceClass)
	ctx.Config.MembersRenamer.Enabled = true
	return ctx
}

func isGenerated(s string) bool {
	return len(s) == name.DefaultSize && strings.Trim(s, name.Confusable) == ""
}

func TestFieldPropagation(t *testing.T) {
	ctx := renamerContext(t, 1)
	ctx.Config.MembersRenamer.Field = true
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

	a := ctx.Image.Class("p/A")
	b := ctx.Image.Class("p/B")
	newX := a.Fields[0].Name
	qt.Assert(t, qt.IsTrue(isGenerated(newX)))
	qt.Assert(t, qt.Equals(a.Fields[1].Name, "INSTANCE"))
	qt.Assert(t, qt.Not(qt.Equals(a.Fields[2].Name, "kept")))

	// the declaration and both reference sites agree, including the one
	// through the subclass
	helper := pipetest.Method(t, a, "helper", "()I")
	qt.Assert(t, qt.Equals(helper.Instructions[1].(*jvm.FieldInsn).Name, newX))
	main := pipetest.Method(t, b, "main", "([Ljava/lang/String;)V")
	qt.Assert(t, qt.Equals(main.Instructions[1].(*jvm.FieldInsn).Name, newX))
	qt.Assert(t, qt.Equals(ctx.Mapping["p/B.x"], newX))

	// q/C and q/I form their own hierarchy and share one name there
	c := ctx.Image.Class("q/C")
	i := ctx.Image.Class("q/I")
	qt.Assert(t, qt.Equals(c.Fields[0].Name, i.Fields[0].Name))
	qt.Assert(t, qt.Not(qt.Equals(c.Fields[0].Name, newX)))

	for _, cls := range ctx.Image.Classes() {
		for _, f := range cls.Fields {
			qt.Check(t, qt.Not(qt.Equals(f.Name, "x")))
		}
	}
	qt.Assert(t, qt.Equals(ctx.Stats.Stage("MembersRenamer").Get(countFields), int64(3)))
}

func TestFieldExclusionAcrossSeeds(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		ctx := renamerContext(t, seed)
		ctx.Config.MembersRenamer.Field = true
		ctx.Config.MembersRenamer.Exclusion = append(ctx.Config.MembersRenamer.Exclusion, "p/A.kept", "q/")
		qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

		a := ctx.Image.Class("p/A")
		qt.Assert(t, qt.Equals(a.Fields[2].Name, "kept"))
		qt.Assert(t, qt.Equals(ctx.Image.Class("q/C").Fields[0].Name, "x"))
		qt.Assert(t, qt.Equals(ctx.Image.Class("q/I").Fields[0].Name, "x"))
		qt.Assert(t, qt.IsTrue(isGenerated(a.Fields[0].Name)))
	}
}

func TestMethods(t *testing.T) {
	ctx := renamerContext(t, 2)
	ctx.Config.MembersRenamer.Method = true
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

	a := ctx.Image.Class("p/A")
	qt.Assert(t, qt.IsNil(a.Method("helper", "()I")))
	visible := pipetest.Method(t, a, "visible", "()I")
	call := visible.Instructions[2].(*jvm.MethodInsn)
	qt.Assert(t, qt.IsTrue(isGenerated(call.Name)))
	qt.Assert(t, qt.IsNotNil(a.Method(call.Name, "()I")))

	// interface members and entry points stay
	qt.Assert(t, qt.IsNotNil(ctx.Image.Class("q/I").Method("secret", "()V")))
	qt.Assert(t, qt.IsNotNil(ctx.Image.Class("p/B").Method("main", "([Ljava/lang/String;)V")))
	qt.Assert(t, qt.Equals(ctx.Stats.Stage("MembersRenamer").Get(countMethods), int64(1)))
}

func TestMethodExclusion(t *testing.T) {
	ctx := renamerContext(t, 3)
	ctx.Config.MembersRenamer.Method = true
	ctx.Config.MembersRenamer.Exclusion = []string{"p/A.helper()I"}
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))
	qt.Assert(t, qt.IsNotNil(ctx.Image.Class("p/A").Method("helper", "()I")))
}

func TestLocals(t *testing.T) {
	ctx := renamerContext(t, 4)
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))
	visible := pipetest.Method(t, ctx.Image.Class("p/A"), "visible", "()I")
	qt.Assert(t, qt.IsTrue(isGenerated(visible.LocalVariables[0].Name)))
	qt.Assert(t, qt.Equals(visible.LocalVariables[0].Desc, "Lp/A;"))
	qt.Assert(t, qt.Equals(ctx.Stats.Stage("MembersRenamer").Get(countLocals), int64(1)))
}

func TestClasses(t *testing.T) {
	ctx := renamerContext(t, 5)
	ctx.Config.MembersRenamer.LocalVariable = false
	ctx.Config.MembersRenamer.Class = true
	ctx.Config.MembersRenamer.Exclusion = []string{"q/I"}
	qt.Assert(t, qt.IsNil(Pipe{}.Run(ctx)))

	qt.Assert(t, qt.IsNil(ctx.Image.Class("p/A")))
	newA := ctx.Mapping["p/A"]
	qt.Assert(t, qt.IsTrue(strings.HasPrefix(newA, "p/")))
	qt.Assert(t, qt.IsTrue(isGenerated(strings.TrimPrefix(newA, "p/"))))

	b := ctx.Image.Class("p/B")
	qt.Assert(t, qt.IsNotNil(b), qt.Commentf("entry point class keeps its name"))
	qt.Assert(t, qt.Equals(b.Super, newA))

	qt.Assert(t, qt.IsNotNil(ctx.Image.Class("q/I")))
	c := ctx.Image.Class(ctx.Mapping["q/C"])
	qt.Assert(t, qt.IsNotNil(c))
	qt.Assert(t, qt.DeepEquals(c.Interfaces, []string{"q/I"}))
	qt.Assert(t, qt.Equals(ctx.Image.Len(), 4))
}

func TestHierarchy(t *testing.T) {
	classes := []*jvm.Class{
		{Name: "a/Root", Super: "java/lang/Object"},
		{Name: "a/Left", Super: "a/Root"},
		{Name: "a/Right", Super: "a/Root", Interfaces: []string{"a/Face"}},
		{Name: "a/Face", Super: "java/lang/Object"},
		{Name: "a/Impl", Super: "java/lang/Object", Interfaces: []string{"a/Face", "java/io/Serializable"}},
		{Name: "b/Alone", Super: "java/lang/Object", Interfaces: []string{"java/io/Serializable"}},
	}
	h, err := newHierarchy(classes)
	qt.Assert(t, qt.IsNil(err))
	all := []string{"a/Face", "a/Impl", "a/Left", "a/Right", "a/Root"}
	qt.Assert(t, qt.DeepEquals(h.component("a/Left"), all))
	qt.Assert(t, qt.DeepEquals(h.component("a/Impl"), all))
	qt.Assert(t, qt.DeepEquals(h.component("b/Alone"), []string{"b/Alone"}))
	qt.Assert(t, qt.DeepEquals(h.component("java/lang/Object"), []string{"java/lang/Object"}))
}
