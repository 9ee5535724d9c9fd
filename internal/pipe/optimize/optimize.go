// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package optimize strips debug metadata and removes a few instruction
// shapes whose only effect is to load a value and throw it away.
package optimize

import (
	"strings"

	"github.com/apex/log"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/pipe"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

const (
	countSource      = "source debug infos"
	countInner       = "inner classes"
	countDeadCode    = "dead codes"
	countIntrinsics  = "kotlin intrinsics checks"
	countAnnotations = "kotlin debug annotations"
)

// Pipe is the CodeOptimizer stage.
type Pipe struct{}

func (Pipe) String() string { return "CodeOptimizer" }

func (Pipe) Skip(ctx *context.Context) bool { return !ctx.Config.CodeOptimizer.Enabled }

func (p Pipe) Run(ctx *context.Context) error {
	cfg := ctx.Config.CodeOptimizer
	stats := ctx.Stats.Stage(p.String(), countSource, countInner, countIntrinsics, countDeadCode, countAnnotations)
	classes := ctx.Image.NonExcluded(ctx.Excluded(cfg.Exclusion))
	if len(classes) == 0 {
		return pipe.Skip("no classes to optimize")
	}
	err := pipe.EachClass(ctx, classes, func(c *jvm.Class) error {
		optimizeClass(&cfg, c, stats)
		return nil
	})
	if err != nil {
		return err
	}
	stats.Each(func(key string, n int64) {
		log.WithField("count", n).Infof("removed %s", key)
	})
	return nil
}

type counter interface {
	Add(key string, n int64)
}

func optimizeClass(cfg *config.CodeOptimizer, c *jvm.Class, stats counter) {
	mixin := c.HasMixin()
	if cfg.RemoveSource && !mixin {
		stats.Add(countSource, removeSource(c))
	}
	if cfg.RemoveInnerClass && !mixin {
		stats.Add(countInner, removeInnerClasses(c))
	}
	if cfg.KotlinOptimize {
		for _, m := range c.Methods {
			var n int64
			m.Instructions, n = stripIntrinsics(m.Instructions)
			stats.Add(countIntrinsics, n)
		}
		stats.Add(countAnnotations, stripKotlinAnnotations(c))
	}
	if cfg.RemoveDeadCodes {
		for _, m := range c.Methods {
			if !m.HasCode() {
				continue
			}
			var n int64
			m.Instructions, n = removeDeadLoads(m.Instructions)
			stats.Add(countDeadCode, n)
		}
	}
}

func removeSource(c *jvm.Class) int64 {
	var n int64
	if c.SourceFile != "" {
		c.SourceFile = ""
		n++
	}
	if c.SourceDebug != "" {
		c.SourceDebug = ""
		n++
	}
	for _, m := range c.Methods {
		code := m.Instructions[:0]
		for _, insn := range m.Instructions {
			if _, ok := insn.(*jvm.LineNumber); ok {
				n++
				continue
			}
			code = append(code, insn)
		}
		m.Instructions = code
	}
	return n
}

func removeInnerClasses(c *jvm.Class) int64 {
	c.OuterClass = ""
	c.OuterMethod = ""
	c.OuterMethodDesc = ""
	n := int64(len(c.InnerClasses))
	c.InnerClasses = nil
	return n
}

func isSingleLoad(insn jvm.Insn) bool {
	switch insn.Op() {
	case jvm.Iload, jvm.Fload, jvm.Aload:
		_, ok := insn.(*jvm.VarInsn)
		return ok
	}
	return false
}

func isDoubleLoad(insn jvm.Insn) bool {
	switch insn.Op() {
	case jvm.Lload, jvm.Dload:
		_, ok := insn.(*jvm.VarInsn)
		return ok
	}
	return false
}

// removeDeadLoads drops loads that are popped right away. After a removal
// the preceding instructions become adjacent to what follows, so nested
// shapes collapse too.
func removeDeadLoads(code []jvm.Insn) ([]jvm.Insn, int64) {
	var removed int64
	out := make([]jvm.Insn, 0, len(code))
	for _, insn := range code {
		out = append(out, insn)
		n := len(out)
		switch insn.Op() {
		case jvm.Pop:
			if n >= 2 && isSingleLoad(out[n-2]) {
				out = out[:n-2]
				removed += 2
			}
		case jvm.Pop2:
			switch {
			case n >= 2 && isDoubleLoad(out[n-2]):
				out = out[:n-2]
				removed += 2
			case n >= 3 && isSingleLoad(out[n-2]) && isSingleLoad(out[n-3]):
				out = out[:n-3]
				removed += 3
			}
		}
	}
	return out, removed
}

var kotlinDebugAnnotations = []string{
	"Lkotlin/jvm/internal/SourceDebugExtension",
	"Lkotlin/Metadata",
	"Lkotlin/coroutines/jvm/internal/DebugMetadata",
}

func stripKotlinAnnotations(c *jvm.Class) int64 {
	var n int64
	strip := func(list []jvm.Annotation) []jvm.Annotation {
		out := list[:0]
		for _, a := range list {
			if hasAnyPrefix(a.Desc, kotlinDebugAnnotations) {
				n++
				continue
			}
			out = append(out, a)
		}
		return out
	}
	c.VisibleAnnotations = strip(c.VisibleAnnotations)
	c.InvisibleAnnotations = strip(c.InvisibleAnnotations)
	return n
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
