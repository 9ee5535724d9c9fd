// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package constants moves literal constants out of method bodies into
// companion classes that recompute them from encrypted parts when loaded.
package constants

import (
	mathrand "math/rand"
	"sync"

	"github.com/apex/log"
	"golang.org/x/exp/slices"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/literals"
	"github.com/bipbap/bipbap/internal/name"
	"github.com/bipbap/bipbap/internal/pipe"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

const (
	// CompanionSuffix is appended to a class name to name its companion.
	CompanionSuffix = "$Constants"

	fieldPrefix = "const_"
	fieldRandom = 15
)

var countKeys = []string{"integers", "longs", "floats", "doubles", "strings"}

// Pipe is the ConstantEncryptor stage.
type Pipe struct{}

func (Pipe) String() string { return "ConstantEncryptor" }

func (Pipe) Skip(ctx *context.Context) bool { return !ctx.Config.ConstantEncryptor.Enabled }

// companion is a synthetic class collecting the constants drawn to it.
type companion struct {
	class *jvm.Class

	mu     sync.Mutex
	queued []queuedConst
}

type queuedConst struct {
	field *jvm.Field
	value any
}

func (cp *companion) add(rand *mathrand.Rand, value any) *jvm.Field {
	f := &jvm.Field{
		Access: jvm.AccPublic | jvm.AccStatic,
		Name:   fieldPrefix + name.Random(rand, fieldRandom),
		Desc:   literals.TypeDesc(value),
	}
	cp.mu.Lock()
	cp.queued = append(cp.queued, queuedConst{field: f, value: value})
	cp.mu.Unlock()
	return f
}

func (p Pipe) Run(ctx *context.Context) error {
	cfg := ctx.Config.ConstantEncryptor
	stats := ctx.Stats.Stage(p.String(), countKeys...)

	classes := ctx.Eligible(cfg.Exclusion)
	arena := make([]*companion, 0, len(classes))
	for _, c := range classes {
		cname := c.Name + CompanionSuffix
		if ctx.Image.Class(cname) != nil {
			log.WithField("class", cname).Warn("companion name taken, not using it")
			continue
		}
		arena = append(arena, &companion{class: jvm.NewClass(cname, c.Version)})
	}
	if len(arena) == 0 {
		return pipe.Skip("no classes to hold constants")
	}

	err := pipe.EachClassRand(ctx, classes, func(c *jvm.Class, rand *mathrand.Rand) error {
		for _, m := range c.Methods {
			if m.IsAbstract() || m.IsNative() {
				continue
			}
			for i, insn := range m.Instructions {
				ldc, ok := insn.(*jvm.LdcInsn)
				if !ok {
					continue
				}
				key, ok := eligible(&cfg, ldc.Value)
				if !ok {
					continue
				}
				cp := arena[rand.Intn(len(arena))]
				f := cp.add(rand, ldc.Value)
				m.Instructions[i] = jvm.FieldRef(jvm.Getstatic, cp.class.Name, f.Name, f.Desc)
				stats.Add(key, 1)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var added int
	for _, cp := range arena {
		if len(cp.queued) == 0 {
			continue
		}
		if err := cp.finish(ctx.Fork(), ctx.Names); err != nil {
			return err
		}
		if err := ctx.Image.AddClass(cp.class); err != nil {
			return err
		}
		added++
	}
	stats.Each(func(key string, n int64) {
		log.WithField("count", n).Infof("encrypted %s", key)
	})
	log.WithField("count", added).Debug("added companion classes")
	return nil
}

// eligible reports whether a constant is enabled for encryption, and under
// which counter it is recorded.
func eligible(cfg *config.ConstantEncryptor, v any) (string, bool) {
	switch v.(type) {
	case int32:
		return "integers", cfg.Integer
	case int64:
		return "longs", cfg.Long
	case float32:
		return "floats", cfg.Float
	case float64:
		return "doubles", cfg.Double
	case string:
		return "strings", cfg.String
	}
	return "", false
}

// finish declares the queued fields and builds the static initializer that
// computes them. Text shares one key and one decrypt routine per companion.
// Fields are declared in name order, whatever order they were queued in.
func (cp *companion) finish(rand *mathrand.Rand, names *name.Generator) error {
	c := cp.class
	slices.SortFunc(cp.queued, func(a, b queuedConst) bool { return a.field.Name < b.field.Name })
	var (
		code    []jvm.Insn
		decrypt string
		key     = literals.TextKey(rand)
	)
	for _, q := range cp.queued {
		c.Fields = append(c.Fields, q.field)
		if s, ok := q.value.(string); ok {
			if decrypt == "" {
				decrypt = names.Next()
				c.Methods = append(c.Methods, literals.DecryptRoutine(decrypt, key))
			}
			code = append(code,
				&jvm.LdcInsn{Value: literals.EncryptText(s, key)},
				jvm.Invoke(jvm.Invokestatic, c.Name, decrypt, literals.DecryptDesc),
			)
		} else {
			insns, err := literals.Obfuscate(rand, q.value)
			if err != nil {
				return err
			}
			code = append(code, insns...)
		}
		code = append(code, jvm.FieldRef(jvm.Putstatic, c.Name, q.field.Name, q.field.Desc))
	}
	code = append(code, jvm.Op(jvm.Return))
	c.Methods = append(c.Methods, &jvm.Method{
		Access:       jvm.AccStatic,
		Name:         jvm.StaticInitializer,
		Desc:         "()V",
		Instructions: code,
	})
	return nil
}
