// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package jvm

import "strings"

// Access is a set of access and property flags of a class, field or method.
// Several bits mean different things depending on the kind of declaration,
// which is why there are aliases such as AccSuper and AccSynchronized.
type Access uint16

const (
	AccPublic       Access = 0x0001
	AccPrivate      Access = 0x0002
	AccProtected    Access = 0x0004
	AccStatic       Access = 0x0008
	AccFinal        Access = 0x0010
	AccSuper        Access = 0x0020
	AccSynchronized Access = 0x0020
	AccVolatile     Access = 0x0040
	AccBridge       Access = 0x0040
	AccTransient    Access = 0x0080
	AccVarargs      Access = 0x0080
	AccNative       Access = 0x0100
	AccInterface    Access = 0x0200
	AccAbstract     Access = 0x0400
	AccStrict       Access = 0x0800
	AccSynthetic    Access = 0x1000
	AccAnnotation   Access = 0x2000
	AccEnum         Access = 0x4000
	AccModule       Access = 0x8000
)

// Has reports whether all bits of flag are set.
func (a Access) Has(flag Access) bool { return a&flag == flag }

// Class file major versions.
const (
	V1_5 = 49
	V1_6 = 50
	V1_7 = 51
	V1_8 = 52
)

// Method handle kinds, as used by bootstrap methods.
const (
	HGetField         = 1
	HGetStatic        = 2
	HPutField         = 3
	HPutStatic        = 4
	HInvokeVirtual    = 5
	HInvokeStatic     = 6
	HInvokeSpecial    = 7
	HNewInvokeSpecial = 8
	HInvokeInterface  = 9
)

const (
	Constructor       = "<init>"
	StaticInitializer = "<clinit>"

	mainDesc = "([Ljava/lang/String;)V"
)

// MixinPrefix is the descriptor prefix of the mixin framework's annotations.
// Classes and members carrying one of them are rewritten by the framework at
// load time by name, so they must be left alone.
const MixinPrefix = "Lorg/spongepowered/asm/mixin"

func (c *Class) IsInterface() bool  { return c.Access.Has(AccInterface) }
func (c *Class) IsAnnotation() bool { return c.Access.Has(AccAnnotation) }
func (c *Class) IsEnum() bool       { return c.Access.Has(AccEnum) }
func (c *Class) IsAbstract() bool   { return c.Access.Has(AccAbstract) }

func (m *Method) IsAbstract() bool { return m.Access.Has(AccAbstract) }
func (m *Method) IsNative() bool   { return m.Access.Has(AccNative) }
func (m *Method) IsPrivate() bool  { return m.Access.Has(AccPrivate) }
func (m *Method) IsStatic() bool   { return m.Access.Has(AccStatic) }

// IsInitializer reports whether m is a constructor or a static initializer.
func (m *Method) IsInitializer() bool {
	return m.Name == Constructor || m.Name == StaticInitializer
}

// IsMain reports whether m looks like a program entry point.
func (m *Method) IsMain() bool {
	return m.Name == "main" && m.Desc == mainDesc
}

// HasCode reports whether m carries an instruction body.
func (m *Method) HasCode() bool { return !m.IsAbstract() && !m.IsNative() }

func (f *Field) IsStatic() bool { return f.Access.Has(AccStatic) }

func hasMixin(lists ...[]Annotation) bool {
	for _, list := range lists {
		for _, a := range list {
			if strings.HasPrefix(a.Desc, MixinPrefix) {
				return true
			}
		}
	}
	return false
}

// HasMixin reports whether the class carries a mixin annotation.
func (c *Class) HasMixin() bool {
	return hasMixin(c.VisibleAnnotations, c.InvisibleAnnotations)
}

func (m *Method) HasMixin() bool {
	return hasMixin(m.VisibleAnnotations, m.InvisibleAnnotations)
}

func (f *Field) HasMixin() bool {
	return hasMixin(f.VisibleAnnotations, f.InvisibleAnnotations)
}

// HasMainMethod reports whether the class declares a program entry point.
func (c *Class) HasMainMethod() bool {
	for _, m := range c.Methods {
		if m.IsMain() {
			return true
		}
	}
	return false
}
