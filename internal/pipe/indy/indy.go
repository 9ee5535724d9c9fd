// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package indy replaces direct calls with dynamic call sites whose targets
// are stored encrypted and resolved by a generated bootstrap routine.
package indy

import (
	mathrand "math/rand"
	"strings"

	"github.com/apex/log"

	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/literals"
	"github.com/bipbap/bipbap/internal/pipe"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

const (
	countStatics  = "statics"
	countVirtuals = "virtuals"
)

// Pipe is the InvokeDynamics stage.
type Pipe struct{}

func (Pipe) String() string { return "InvokeDynamics" }

func (Pipe) Skip(ctx *context.Context) bool { return !ctx.Config.InvokeDynamics.Enabled }

func (p Pipe) Run(ctx *context.Context) error {
	cfg := ctx.Config.InvokeDynamics
	stats := ctx.Stats.Stage(p.String(), countStatics, countVirtuals)

	var classes []*jvm.Class
	for _, c := range ctx.Eligible(cfg.Exclusion) {
		// dynamic call sites need class files of version 51 or later
		if !c.IsInterface() && c.Version >= jvm.V1_7 {
			classes = append(classes, c)
		}
	}
	if len(classes) == 0 {
		return pipe.Skip("no classes support dynamic call sites")
	}

	// routine names are drawn up front to keep them independent of scheduling
	names := make(map[string][2]string, len(classes))
	for _, c := range classes {
		names[c.Name] = [2]string{ctx.Names.Next(), ctx.Names.Next()}
	}
	err := pipe.EachClassRand(ctx, classes, func(c *jvm.Class, rand *mathrand.Rand) error {
		resolver, decrypt := names[c.Name][0], names[c.Name][1]
		key := literals.TextKey(rand)
		var replaced bool
		for _, m := range c.Methods {
			if !m.HasCode() || m.HasMixin() {
				continue
			}
			for i, insn := range m.Instructions {
				call, ok := insn.(*jvm.MethodInsn)
				if !ok || call.Name == jvm.Constructor || strings.HasPrefix(call.Owner, "[") {
					continue
				}
				var counter string
				switch {
				case call.Opcode == jvm.Invokestatic && cfg.InvokeStatic:
					counter = countStatics
				case call.Opcode == jvm.Invokevirtual && cfg.InvokeVirtual:
					counter = countVirtuals
				default:
					continue
				}
				if rand.Intn(100) >= cfg.ReplacePercentage {
					continue
				}
				m.Instructions[i] = CallSite(c.Name, resolver, key, call)
				stats.Add(counter, 1)
				replaced = true
			}
		}
		if replaced {
			c.Methods = append(c.Methods,
				literals.DecryptRoutine(decrypt, key),
				Resolver(c.Name, resolver, decrypt),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}
	stats.Each(func(key string, n int64) {
		log.WithField("count", n).Infof("replaced %s", key)
	})
	return nil
}
