// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package context provides the state shared by every stage of one run.
package context

import (
	stdctx "context"
	mathrand "math/rand"
	"runtime"
	"sync"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/image"
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/name"
)

// Context carries the program image and configuration through the pipeline.
type Context struct {
	stdctx.Context

	Config      *config.Config
	Image       *image.Image
	Report      *image.Report
	Names       *name.Generator
	Stats       *Stats
	Parallelism int

	// Mapping accumulates every rename applied during the run.
	Mapping image.Mapping

	randMu sync.Mutex
	rand   *mathrand.Rand
}

// New returns a new runtime context.
func New(cfg *config.Config, img *image.Image, seed int64) *Context {
	return Wrap(stdctx.Background(), cfg, img, seed)
}

// Wrap wraps an existing context.
func Wrap(ctx stdctx.Context, cfg *config.Config, img *image.Image, seed int64) *Context {
	rand := mathrand.New(mathrand.NewSource(seed))
	return &Context{
		Context:     ctx,
		Config:      cfg,
		Image:       img,
		Report:      new(image.Report),
		Names:       name.NewGenerator(mathrand.New(mathrand.NewSource(rand.Int63()))),
		Stats:       NewStats(),
		Parallelism: runtime.NumCPU(),
		Mapping:     make(image.Mapping),
		rand:        rand,
	}
}

// Fork returns a new random source seeded from the run's source. Each
// goroutine that needs randomness takes its own fork.
func (ctx *Context) Fork() *mathrand.Rand {
	ctx.randMu.Lock()
	defer ctx.randMu.Unlock()
	return mathrand.New(mathrand.NewSource(ctx.rand.Int63()))
}

// Excluded returns a filter matching classes that are globally excluded or
// covered by a stage's own exclusion list.
func (ctx *Context) Excluded(stage config.Exclusion) image.Filter {
	return func(name string) bool {
		return ctx.Config.Settings.IsExcluded(name) || stage.Match(name)
	}
}

// Eligible returns, sorted by name, the classes a stage may rewrite: those
// not excluded and not carrying a mixin annotation.
func (ctx *Context) Eligible(stage config.Exclusion) []*jvm.Class {
	classes := ctx.Image.NonExcluded(ctx.Excluded(stage))
	out := classes[:0]
	for _, c := range classes {
		if !c.HasMixin() {
			out = append(out, c)
		}
	}
	return out
}
