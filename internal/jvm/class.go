// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package jvm is the in-memory model of compiled classes that every stage
// of the obfuscator reads and rewrites.
//
// Names are internal names ("java/lang/Object"), types are descriptors
// ("Ljava/lang/Object;", "(I)V"). Stack map frames and max stack/locals are
// not modeled; the class codec recomputes them on encoding.
package jvm

// Class is one compiled class unit.
type Class struct {
	Version    int
	Access     Access
	Name       string
	Signature  string
	Super      string
	Interfaces []string

	SourceFile  string
	SourceDebug string

	OuterClass      string
	OuterMethod     string
	OuterMethodDesc string
	InnerClasses    []InnerClass

	VisibleAnnotations   []Annotation
	InvisibleAnnotations []Annotation

	Fields  []*Field
	Methods []*Method
}

type InnerClass struct {
	Name      string
	OuterName string
	InnerName string
	Access    Access
}

// Annotation is kept by type only, plus its raw element values. Values are
// carried through untouched apart from the descriptor.
type Annotation struct {
	Desc   string
	Values map[string]any
}

type Field struct {
	Access    Access
	Name      string
	Desc      string
	Signature string
	// Value is the ConstantValue initializer, if any, with the same value
	// types as LdcInsn.
	Value any

	VisibleAnnotations   []Annotation
	InvisibleAnnotations []Annotation
}

type Method struct {
	Access     Access
	Name       string
	Desc       string
	Signature  string
	Exceptions []string

	Instructions   []Insn
	TryCatchBlocks []TryCatch
	LocalVariables []LocalVariable

	VisibleAnnotations   []Annotation
	InvisibleAnnotations []Annotation
}

// TryCatch is an exception handler; an empty Type catches everything.
type TryCatch struct {
	Start, End, Handler *Label
	Type                string
}

type LocalVariable struct {
	Name       string
	Desc       string
	Signature  string
	Start, End *Label
	Index      int
}

// Method returns the method with the given name and descriptor, or nil.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}

// Field returns the field with the given name and descriptor, or nil.
func (c *Class) Field(name, desc string) *Field {
	for _, f := range c.Fields {
		if f.Name == name && f.Desc == desc {
			return f
		}
	}
	return nil
}

// Supertypes returns the super class followed by the interfaces.
func (c *Class) Supertypes() []string {
	var out []string
	if c.Super != "" {
		out = append(out, c.Super)
	}
	return append(out, c.Interfaces...)
}

// NewClass returns a public class extending java/lang/Object.
func NewClass(name string, version int) *Class {
	return &Class{
		Version: version,
		Access:  AccPublic | AccSuper,
		Name:    name,
		Super:   "java/lang/Object",
	}
}
