// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package image

import (
	"context"
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/bipbap/bipbap/internal/jvm"
)

// Mapping maps symbol keys to new identifiers. A key is a class's internal
// name, "owner.name" for a field, or "owner.name" followed by the descriptor
// for a method. Values are bare identifiers for members and full internal
// names for classes.
type Mapping map[string]string

func FieldKey(owner, name string) string { return owner + "." + name }

func MethodKey(owner, name, desc string) string { return owner + "." + name + desc }

// Merge copies every entry of other into m.
func (m Mapping) Merge(other Mapping) {
	for k, v := range other {
		m[k] = v
	}
}

// Save writes the mapping as a YAML document with sorted keys.
func (m Mapping) Save(path string) error {
	data, err := yaml.Marshal(map[string]string(m))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o666)
}

func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := make(Mapping)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return m, nil
}

const descCacheSize = 4096

type remapper struct {
	m     Mapping
	descs *lru.Cache[string, string]
}

// Remap applies m to the whole image at once: declarations and every
// reference site are rewritten, and lookups always use the names as they were
// before the call. Classes are rewritten in parallel, then re-keyed.
func Remap(ctx context.Context, img *Image, m Mapping, parallelism int) error {
	if len(m) == 0 {
		return nil
	}
	descs, err := lru.New[string, string](descCacheSize)
	if err != nil {
		return err
	}
	r := &remapper{m: m, descs: descs}

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, c := range img.Classes() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.class(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return img.rekey()
}

func (r *remapper) className(name string) string {
	if strings.HasPrefix(name, "[") {
		return r.desc(name)
	}
	if to, ok := r.m[name]; ok {
		return to
	}
	return name
}

func (r *remapper) desc(desc string) string {
	if desc == "" {
		return desc
	}
	if to, ok := r.descs.Get(desc); ok {
		return to
	}
	to := jvm.MapTypes(desc, func(name string) string {
		if to, ok := r.m[name]; ok {
			return to
		}
		return name
	})
	r.descs.Add(desc, to)
	return to
}

func (r *remapper) fieldName(owner, name string) string {
	if to, ok := r.m[FieldKey(owner, name)]; ok {
		return to
	}
	return name
}

func (r *remapper) methodName(owner, name, desc string) string {
	if to, ok := r.m[MethodKey(owner, name, desc)]; ok {
		return to
	}
	return name
}

func (r *remapper) names(names []string) {
	for i, name := range names {
		names[i] = r.className(name)
	}
}

func (r *remapper) annotations(list []jvm.Annotation) {
	for i := range list {
		list[i].Desc = r.desc(list[i].Desc)
	}
}

func (r *remapper) class(c *jvm.Class) {
	owner := c.Name

	for _, f := range c.Fields {
		f.Name = r.fieldName(owner, f.Name)
		f.Desc = r.desc(f.Desc)
		f.Signature = r.desc(f.Signature)
		r.annotations(f.VisibleAnnotations)
		r.annotations(f.InvisibleAnnotations)
	}
	for _, m := range c.Methods {
		r.method(m, owner)
	}

	if c.OuterMethod != "" {
		c.OuterMethod = r.methodName(c.OuterClass, c.OuterMethod, c.OuterMethodDesc)
		c.OuterMethodDesc = r.desc(c.OuterMethodDesc)
	}
	if c.OuterClass != "" {
		c.OuterClass = r.className(c.OuterClass)
	}
	for i, ic := range c.InnerClasses {
		name := r.className(ic.Name)
		if name != ic.Name && ic.InnerName != "" {
			if j := strings.LastIndexByte(name, '$'); j >= 0 {
				ic.InnerName = name[j+1:]
			}
		}
		ic.Name = name
		if ic.OuterName != "" {
			ic.OuterName = r.className(ic.OuterName)
		}
		c.InnerClasses[i] = ic
	}

	c.Signature = r.desc(c.Signature)
	if c.Super != "" {
		c.Super = r.className(c.Super)
	}
	r.names(c.Interfaces)
	r.annotations(c.VisibleAnnotations)
	r.annotations(c.InvisibleAnnotations)
	c.Name = r.className(owner)
}

func (r *remapper) method(m *jvm.Method, owner string) {
	m.Name = r.methodName(owner, m.Name, m.Desc)
	m.Desc = r.desc(m.Desc)
	m.Signature = r.desc(m.Signature)
	r.names(m.Exceptions)
	r.annotations(m.VisibleAnnotations)
	r.annotations(m.InvisibleAnnotations)

	for i := range m.TryCatchBlocks {
		if t := m.TryCatchBlocks[i].Type; t != "" {
			m.TryCatchBlocks[i].Type = r.className(t)
		}
	}
	for i := range m.LocalVariables {
		lv := &m.LocalVariables[i]
		lv.Desc = r.desc(lv.Desc)
		lv.Signature = r.desc(lv.Signature)
	}
	for _, insn := range m.Instructions {
		switch insn := insn.(type) {
		case *jvm.FieldInsn:
			insn.Name = r.fieldName(insn.Owner, insn.Name)
			insn.Owner = r.className(insn.Owner)
			insn.Desc = r.desc(insn.Desc)
		case *jvm.MethodInsn:
			insn.Name = r.methodName(insn.Owner, insn.Name, insn.Desc)
			insn.Owner = r.className(insn.Owner)
			insn.Desc = r.desc(insn.Desc)
		case *jvm.TypeInsn:
			insn.Type = r.className(insn.Type)
		case *jvm.MultiANewArrayInsn:
			insn.Desc = r.desc(insn.Desc)
		case *jvm.LdcInsn:
			insn.Value = r.constant(insn.Value)
		case *jvm.InvokeDynamicInsn:
			insn.Desc = r.desc(insn.Desc)
			insn.Bootstrap = r.handle(insn.Bootstrap)
			for i, arg := range insn.Args {
				insn.Args[i] = r.constant(arg)
			}
		}
	}
}

func (r *remapper) constant(v any) any {
	switch v := v.(type) {
	case jvm.TypeRef:
		if strings.HasPrefix(v.Desc, "(") || strings.HasPrefix(v.Desc, "[") || strings.HasPrefix(v.Desc, "L") {
			return jvm.TypeRef{Desc: r.desc(v.Desc)}
		}
		return v
	case jvm.Handle:
		return r.handle(v)
	}
	return v
}

func (r *remapper) handle(h jvm.Handle) jvm.Handle {
	if h.Kind <= jvm.HPutStatic {
		h.Name = r.fieldName(h.Owner, h.Name)
	} else {
		h.Name = r.methodName(h.Owner, h.Name, h.Desc)
	}
	h.Owner = r.className(h.Owner)
	h.Desc = r.desc(h.Desc)
	return h
}
