// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package pipe

import (
	mathrand "math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

// EachClass runs fn on every class, at most ctx.Parallelism at a time. fn
// owns the class it is given; anything else it touches must be guarded. The
// first error stops the remaining work and is returned.
func EachClass(ctx *context.Context, classes []*jvm.Class, fn func(c *jvm.Class) error) error {
	return EachClassRand(ctx, classes, func(c *jvm.Class, _ *mathrand.Rand) error {
		return fn(c)
	})
}

// EachClassRand is like EachClass, and also hands fn a random source of its
// own. Sources are forked in class order before any work starts, so a run
// is reproducible from its seed whatever the scheduling.
func EachClassRand(ctx *context.Context, classes []*jvm.Class, fn func(c *jvm.Class, rand *mathrand.Rand) error) error {
	rands := make([]*mathrand.Rand, len(classes))
	for i := range classes {
		rands[i] = ctx.Fork()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, ctx.Parallelism))
	for i, c := range classes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(c, rands[i])
		})
	}
	return g.Wait()
}
