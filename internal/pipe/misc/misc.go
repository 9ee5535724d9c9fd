// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package misc implements the assorted class-level tweaks: hiding members
// from decompilers, planting oversized signatures, and watermarking.
package misc

import (
	mathrand "math/rand"
	"strings"

	"github.com/apex/log"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/pipe"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

const (
	countHidden     = "hidden members"
	countCrashers   = "crashers"
	countWatermarks = "watermarks"
)

// crasherSignature is the longest run of blanks a constant pool entry fits.
var crasherSignature = strings.Repeat(" ", 32766)

var watermarkNumbers = []int32{114514, 1919810, 69420, 911, 8964}

// Pipe is the Miscellaneous stage.
type Pipe struct{}

func (Pipe) String() string { return "Miscellaneous" }

func (Pipe) Skip(ctx *context.Context) bool { return !ctx.Config.Miscellaneous.Enabled }

func (p Pipe) Run(ctx *context.Context) error {
	cfg := ctx.Config.Miscellaneous
	if !cfg.HideCode && !cfg.Crasher && !cfg.Watermark {
		return pipe.Skip("no miscellaneous transformers enabled")
	}
	if cfg.Watermark && len(cfg.Watermarks) == 0 {
		log.Warn("watermarking enabled without watermarks")
		cfg.Watermark = false
	}
	stats := ctx.Stats.Stage(p.String(), countHidden, countCrashers, countWatermarks)

	err := pipe.EachClassRand(ctx, ctx.Eligible(cfg.Exclusion), func(c *jvm.Class, rand *mathrand.Rand) error {
		if cfg.HideCode && !c.IsAnnotation() {
			stats.Add(countHidden, hide(c))
		}
		if cfg.Crasher {
			crash(c)
			stats.Add(countCrashers, 1)
		}
		if cfg.Watermark && !c.IsInterface() && watermark(rand, c, cfg) {
			stats.Add(countWatermarks, 1)
		}
		return nil
	})
	if err != nil {
		return err
	}
	stats.Each(func(key string, n int64) {
		log.WithField("count", n).Infof("%s", key)
	})
	return nil
}

// hide marks c and its members synthetic, and its concrete methods bridge.
// Annotated classes and fields keep their flags. It returns the number of
// flags set on members.
func hide(c *jvm.Class) int64 {
	var n int64
	if !c.Access.Has(jvm.AccSynthetic) && !hasAnnotations(c.VisibleAnnotations, c.InvisibleAnnotations) {
		c.Access |= jvm.AccSynthetic
	}
	for _, m := range c.Methods {
		if !m.Access.Has(jvm.AccSynthetic) {
			m.Access |= jvm.AccSynthetic
			n++
		}
	}
	for _, f := range c.Fields {
		if !f.Access.Has(jvm.AccSynthetic) && !hasAnnotations(f.VisibleAnnotations, f.InvisibleAnnotations) {
			f.Access |= jvm.AccSynthetic
			n++
		}
	}
	for _, m := range c.Methods {
		if !m.IsInitializer() && !m.IsAbstract() && !m.Access.Has(jvm.AccBridge) {
			m.Access |= jvm.AccBridge
			n++
		}
	}
	return n
}

func hasAnnotations(visible, invisible []jvm.Annotation) bool {
	return len(visible) > 0 || len(invisible) > 0
}

func crash(c *jvm.Class) {
	if c.Signature == "" {
		c.Signature = crasherSignature
	}
	for _, m := range c.Methods {
		if m.Signature == "" {
			m.Signature = crasherSignature
		}
	}
	for _, f := range c.Fields {
		if f.Signature == "" {
			f.Signature = crasherSignature
		}
	}
}

// watermark adds a private static constant field carrying one of the
// configured marks. It reports false if the chosen name is already taken.
func watermark(rand *mathrand.Rand, c *jvm.Class, cfg config.Miscellaneous) bool {
	marks := cfg.Watermarks
	mark := marks[rand.Intn(len(marks))]
	f := &jvm.Field{Access: jvm.AccPrivate | jvm.AccStatic}
	if rand.Intn(3) == 1 {
		f.Name = "_" + mark + " _"
		f.Desc = "I"
		f.Value = watermarkNumbers[rand.Intn(len(watermarkNumbers))]
	} else {
		f.Name = marks[rand.Intn(len(marks))]
		f.Desc = "Ljava/lang/String;"
		f.Value = mark
	}
	for _, other := range c.Fields {
		if other.Name == f.Name {
			return false
		}
	}
	c.Fields = append(c.Fields, f)
	return true
}
