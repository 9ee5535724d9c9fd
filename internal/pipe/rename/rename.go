// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package rename replaces local variable, field, method and class names with
// generated identifiers.
package rename

import (
	mathrand "math/rand"
	"strings"

	"github.com/apex/log"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/image"
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/name"
	"github.com/bipbap/bipbap/internal/pipe"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

const (
	countLocals  = "local variables"
	countFields  = "fields"
	countMethods = "methods"
	countClasses = "classes"
)

// reservedFields are prefixes of field names the Kotlin runtime looks up
// reflectively.
var reservedFields = []string{"INSTANCE", "Companion"}

// Pipe is the MembersRenamer stage.
type Pipe struct{}

func (Pipe) String() string { return "MembersRenamer" }

func (Pipe) Skip(ctx *context.Context) bool { return !ctx.Config.MembersRenamer.Enabled }

func (p Pipe) Run(ctx *context.Context) error {
	cfg := ctx.Config.MembersRenamer
	stats := ctx.Stats.Stage(p.String(), countLocals, countFields, countMethods, countClasses)

	if cfg.LocalVariable {
		if err := renameLocals(ctx, stats); err != nil {
			return err
		}
		log.WithField("count", stats.Get(countLocals)).Info("renamed local variables")
	}

	type facet struct {
		enabled bool
		key     string
		build   func(*context.Context, *config.MembersRenamer) (image.Mapping, int, error)
	}
	// Member keys name their owner as it is before any class rename, so
	// classes go last.
	facets := []facet{
		{cfg.Field, countFields, fieldMapping},
		{cfg.Method, countMethods, methodMapping},
		{cfg.Class, countClasses, classMapping},
	}
	for _, f := range facets {
		if !f.enabled {
			continue
		}
		m, n, err := f.build(ctx, &cfg)
		if err != nil {
			return err
		}
		if err := image.Remap(ctx, ctx.Image, m, ctx.Parallelism); err != nil {
			return err
		}
		ctx.Mapping.Merge(m)
		stats.Add(f.key, int64(n))
		log.WithField("count", n).Infof("renamed %s", f.key)
	}
	return nil
}

func renameLocals(ctx *context.Context, stats *context.StageStats) error {
	classes := ctx.Image.NonExcluded(ctx.Config.Settings.IsExcluded)
	return pipe.EachClassRand(ctx, classes, func(c *jvm.Class, rand *mathrand.Rand) error {
		names := name.NewGenerator(rand)
		for _, m := range c.Methods {
			for i := range m.LocalVariables {
				m.LocalVariables[i].Name = names.Next()
			}
			stats.Add(countLocals, int64(len(m.LocalVariables)))
		}
		return nil
	})
}

// fieldMapping gives every field one new name and carries that name to
// every class of the declaring class's hierarchy, so that a field reached
// through a subclass or an implemented interface keeps resolving. Fields
// are visited in random order; one that is already mapped keeps the name it
// got from an earlier visit.
func fieldMapping(ctx *context.Context, cfg *config.MembersRenamer) (image.Mapping, int, error) {
	h, err := newHierarchy(ctx.Image.Classes())
	if err != nil {
		return nil, 0, err
	}
	type declared struct {
		owner string
		field *jvm.Field
	}
	var pool []declared
	for _, c := range ctx.Image.NonExcluded(ctx.Config.Settings.IsExcluded) {
		if c.HasMixin() {
			continue
		}
		for _, f := range c.Fields {
			pool = append(pool, declared{c.Name, f})
		}
	}
	rand := ctx.Fork()
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	m := make(image.Mapping)
	var n int
	for _, d := range pool {
		if hasAnyPrefix(d.field.Name, reservedFields) || d.field.HasMixin() {
			continue
		}
		if _, ok := m[image.FieldKey(d.owner, d.field.Name)]; ok {
			continue
		}
		to := ctx.Names.Next()
		for _, owner := range h.component(d.owner) {
			key := image.FieldKey(owner, d.field.Name)
			if !cfg.Exclusion.Match(key) {
				m[key] = to
			}
		}
		n++
	}
	return m, n, nil
}

func methodMapping(ctx *context.Context, cfg *config.MembersRenamer) (image.Mapping, int, error) {
	m := make(image.Mapping)
	for _, c := range ctx.Image.NonExcluded(ctx.Config.Settings.IsExcluded) {
		if c.IsInterface() || c.IsEnum() || c.IsAnnotation() || c.HasMixin() {
			continue
		}
		for _, meth := range c.Methods {
			if !meth.IsPrivate() || meth.HasMixin() || meth.IsInitializer() || meth.IsMain() || meth.IsNative() {
				continue
			}
			key := image.MethodKey(c.Name, meth.Name, meth.Desc)
			if cfg.Exclusion.Match(key) {
				continue
			}
			m[key] = ctx.Names.Next()
		}
	}
	return m, len(m), nil
}

// classMapping moves classes to generated names inside their own package.
// Entry point classes and package or module descriptors keep their names.
func classMapping(ctx *context.Context, cfg *config.MembersRenamer) (image.Mapping, int, error) {
	m := make(image.Mapping)
	for _, c := range ctx.Image.NonExcluded(ctx.Config.Settings.IsExcluded, cfg.Exclusion.Match) {
		if c.HasMixin() || c.HasMainMethod() || strings.HasSuffix(c.Name, "package-info") || c.Name == "module-info" {
			continue
		}
		m[c.Name] = jvm.PackageOf(c.Name) + ctx.Names.Next()
	}
	return m, len(m), nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
