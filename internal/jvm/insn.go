// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package jvm

// Insn is one element of a method body. The concrete type is decided by the
// opcode's Kind; see the types below.
type Insn interface {
	Op() Opcode
}

// SimpleInsn is an instruction without operands, such as iadd or return.
type SimpleInsn struct {
	Opcode Opcode
}

// IntInsn is bipush, sipush or newarray.
type IntInsn struct {
	Opcode  Opcode
	Operand int32
}

// VarInsn loads or stores a local variable slot.
type VarInsn struct {
	Opcode Opcode
	Slot   int
}

type IincInsn struct {
	Slot      int
	Increment int
}

// LdcInsn pushes a constant from the pool. Value is one of int32, int64,
// float32, float64, string, TypeRef or Handle.
type LdcInsn struct {
	Value any
}

// TypeInsn is new, anewarray, checkcast or instanceof; Type is an internal
// name or an array descriptor.
type TypeInsn struct {
	Opcode Opcode
	Type   string
}

type FieldInsn struct {
	Opcode Opcode
	Owner  string
	Name   string
	Desc   string
}

type MethodInsn struct {
	Opcode    Opcode
	Owner     string
	Name      string
	Desc      string
	Interface bool
}

// InvokeDynamicInsn is a dynamically resolved call site. Args holds the static
// bootstrap arguments, with the same value types as LdcInsn.
type InvokeDynamicInsn struct {
	Name      string
	Desc      string
	Bootstrap Handle
	Args      []any
}

type JumpInsn struct {
	Opcode Opcode
	Target *Label
}

type TableSwitchInsn struct {
	Min, Max int32
	Default  *Label
	Targets  []*Label
}

type LookupSwitchInsn struct {
	Default *Label
	Keys    []int32
	Targets []*Label
}

type MultiANewArrayInsn struct {
	Desc string
	Dims int
}

// Label marks a position in a method body. Labels are compared by identity.
type Label struct {
	_ byte // distinct allocations for distinct labels
}

// LineNumber records the source line of the code starting at Start.
type LineNumber struct {
	Line  int
	Start *Label
}

func (i *SimpleInsn) Op() Opcode { return i.Opcode }
func (i *IntInsn) Op() Opcode { return i.Opcode }
func (i *VarInsn) Op() Opcode { return i.Opcode }
func (*IincInsn) Op() Opcode { return Iinc }
func (*LdcInsn) Op() Opcode { return Ldc }
func (i *TypeInsn) Op() Opcode { return i.Opcode }
func (i *FieldInsn) Op() Opcode { return i.Opcode }
func (i *MethodInsn) Op() Opcode { return i.Opcode }
func (*InvokeDynamicInsn) Op() Opcode { return Invokedynamic }
func (i *JumpInsn) Op() Opcode { return i.Opcode }
func (*TableSwitchInsn) Op() Opcode { return Tableswitch }
func (*LookupSwitchInsn) Op() Opcode { return Lookupswitch }
func (*MultiANewArrayInsn) Op() Opcode { return Multianewarray }
func (*Label) Op() Opcode { return LabelMarker }
func (*LineNumber) Op() Opcode { return LineMarker }

// TypeRef is a class literal or a method type constant, held as a descriptor.
type TypeRef struct {
	Desc string
}

// Handle is a method handle constant.
type Handle struct {
	Kind      int
	Owner     string
	Name      string
	Desc      string
	Interface bool
}

// Op returns a SimpleInsn for op.
func Op(op Opcode) *SimpleInsn { return &SimpleInsn{Opcode: op} }

// Var returns a local variable access.
func Var(op Opcode, slot int) *VarInsn { return &VarInsn{Opcode: op, Slot: slot} }

func TypeOp(op Opcode, typ string) *TypeInsn { return &TypeInsn{Opcode: op, Type: typ} }

func FieldRef(op Opcode, owner, name, desc string) *FieldInsn {
	return &FieldInsn{Opcode: op, Owner: owner, Name: name, Desc: desc}
}

func Invoke(op Opcode, owner, name, desc string) *MethodInsn {
	return &MethodInsn{Opcode: op, Owner: owner, Name: name, Desc: desc, Interface: op == Invokeinterface}
}

func Jump(op Opcode, target *Label) *JumpInsn { return &JumpInsn{Opcode: op, Target: target} }

func NewLabel() *Label { return new(Label) }
