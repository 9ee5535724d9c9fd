// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package emu executes the small subset of bytecode that the obfuscator
// itself emits: constant arithmetic, static fields, string building and
// static calls. Tests use it to check that rewritten methods still compute
// the same values.
package emu

import (
	"fmt"
	"math"

	"github.com/bipbap/bipbap/internal/jvm"
)

const defaultBudget = 1 << 20

// Machine holds the classes that calls may reach and their static state.
type Machine struct {
	classes map[string]*jvm.Class
	statics map[string]any
	inited  map[string]bool

	// Budget bounds the number of instructions a single Invoke may execute.
	Budget int
	steps  int
}

func New(classes ...*jvm.Class) *Machine {
	m := &Machine{
		classes: make(map[string]*jvm.Class),
		statics: make(map[string]any),
		inited:  make(map[string]bool),
		Budget:  defaultBudget,
	}
	for _, c := range classes {
		m.classes[c.Name] = c
	}
	return m
}

// Static returns the value of a static field, running the owner's static
// initializer first if needed.
func (m *Machine) Static(owner, name string) (any, error) {
	if err := m.initClass(owner); err != nil {
		return nil, err
	}
	return m.statics[owner+"."+name], nil
}

// Invoke runs a static method and returns its result, or nil for void.
func (m *Machine) Invoke(owner, name, desc string, args ...any) (any, error) {
	m.steps = 0
	if err := m.initClass(owner); err != nil {
		return nil, err
	}
	return m.call(owner, name, desc, args)
}

func (m *Machine) initClass(owner string) error {
	if m.inited[owner] {
		return nil
	}
	m.inited[owner] = true
	c := m.classes[owner]
	if c == nil {
		return nil
	}
	for _, f := range c.Fields {
		if f.IsStatic() {
			m.statics[owner+"."+f.Name] = zeroValue(f.Desc, f.Value)
		}
	}
	if c.Method(jvm.StaticInitializer, "()V") == nil {
		return nil
	}
	_, err := m.call(owner, jvm.StaticInitializer, "()V", nil)
	return err
}

func zeroValue(desc string, initial any) any {
	if initial != nil {
		return initial
	}
	switch desc {
	case "I", "Z", "B", "C", "S":
		return int32(0)
	case "J":
		return int64(0)
	case "F":
		return float32(0)
	case "D":
		return float64(0)
	}
	return nil
}

func (m *Machine) call(owner, name, desc string, args []any) (any, error) {
	c := m.classes[owner]
	if c == nil {
		return nil, fmt.Errorf("unknown class %s", owner)
	}
	meth := c.Method(name, desc)
	if meth == nil {
		return nil, fmt.Errorf("unknown method %s.%s%s", owner, name, desc)
	}
	if !meth.IsStatic() {
		return nil, fmt.Errorf("%s.%s%s is not static", owner, name, desc)
	}
	argTypes, _, err := jvm.ParseMethodDesc(desc)
	if err != nil {
		return nil, err
	}
	if len(argTypes) != len(args) {
		return nil, fmt.Errorf("%s.%s%s wants %d arguments, got %d", owner, name, desc, len(argTypes), len(args))
	}
	f := &frame{locals: make(map[int]any)}
	slot := 0
	for i, a := range args {
		f.locals[slot] = a
		slot++
		if jvm.IsWide(argTypes[i]) {
			slot++
		}
	}
	return m.exec(meth, f)
}

type frame struct {
	stack  []any
	locals map[int]any
}

func (f *frame) push(v any) { f.stack = append(f.stack, v) }

func (f *frame) pop() any {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func isWide(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// builder models java.lang.StringBuilder.
type builder struct {
	units []uint16
}

func (m *Machine) exec(meth *jvm.Method, f *frame) (result any, err error) {
	defer func() {
		// operand type mismatches surface as failed assertions
		if r := recover(); r != nil {
			err = fmt.Errorf("%s%s: %v", meth.Name, meth.Desc, r)
		}
	}()
	labels := make(map[*jvm.Label]int)
	for i, insn := range meth.Instructions {
		if l, ok := insn.(*jvm.Label); ok {
			labels[l] = i
		}
	}
	code := meth.Instructions
	for pc := 0; pc < len(code); pc++ {
		m.steps++
		if m.steps > m.Budget {
			return nil, fmt.Errorf("%s%s: instruction budget exhausted", meth.Name, meth.Desc)
		}
		switch insn := code[pc].(type) {
		case *jvm.Label, *jvm.LineNumber:
		case *jvm.SimpleInsn:
			done, ret, err := m.simple(insn.Opcode, f)
			if err != nil || done {
				return ret, err
			}
		case *jvm.IntInsn:
			if insn.Opcode == jvm.Newarray {
				return nil, fmt.Errorf("unsupported newarray")
			}
			f.push(insn.Operand)
		case *jvm.VarInsn:
			switch insn.Opcode {
			case jvm.Iload, jvm.Lload, jvm.Fload, jvm.Dload, jvm.Aload:
				f.push(f.locals[insn.Slot])
			case jvm.Istore, jvm.Lstore, jvm.Fstore, jvm.Dstore, jvm.Astore:
				f.locals[insn.Slot] = f.pop()
			default:
				return nil, fmt.Errorf("unsupported %s", insn.Opcode)
			}
		case *jvm.IincInsn:
			f.locals[insn.Slot] = f.locals[insn.Slot].(int32) + int32(insn.Increment)
		case *jvm.LdcInsn:
			f.push(insn.Value)
		case *jvm.TypeInsn:
			switch {
			case insn.Opcode == jvm.New && insn.Type == "java/lang/StringBuilder":
				f.push(&builder{})
			case insn.Opcode == jvm.Checkcast:
			default:
				return nil, fmt.Errorf("unsupported %s %s", insn.Opcode, insn.Type)
			}
		case *jvm.FieldInsn:
			if err := m.initClass(insn.Owner); err != nil {
				return nil, err
			}
			key := insn.Owner + "." + insn.Name
			switch insn.Opcode {
			case jvm.Getstatic:
				v, ok := m.statics[key]
				if !ok {
					return nil, fmt.Errorf("unknown static field %s", key)
				}
				f.push(v)
			case jvm.Putstatic:
				m.statics[key] = f.pop()
			default:
				return nil, fmt.Errorf("unsupported %s", insn.Opcode)
			}
		case *jvm.MethodInsn:
			if err := m.invoke(insn, f); err != nil {
				return nil, err
			}
		case *jvm.JumpInsn:
			if m.jumps(insn.Opcode, f) {
				target, ok := labels[insn.Target]
				if !ok {
					return nil, fmt.Errorf("jump to a label outside the method")
				}
				pc = target
			}
		default:
			return nil, fmt.Errorf("unsupported %s", insn.Op())
		}
	}
	return nil, fmt.Errorf("%s%s: fell off the end of the code", meth.Name, meth.Desc)
}

func (m *Machine) simple(op jvm.Opcode, f *frame) (done bool, ret any, err error) {
	if v, ok := jvm.ConstValue(jvm.Op(op)); ok {
		f.push(v)
		return false, nil, nil
	}
	switch op {
	case jvm.Nop:
	case jvm.Pop:
		f.pop()
	case jvm.Pop2:
		if !isWide(f.pop()) {
			f.pop()
		}
	case jvm.Dup:
		v := f.pop()
		f.push(v)
		f.push(v)
	case jvm.Swap:
		a, b := f.pop(), f.pop()
		f.push(a)
		f.push(b)
	case jvm.Iadd, jvm.Isub, jvm.Imul, jvm.Iand, jvm.Ior, jvm.Ixor:
		b, a := f.pop().(int32), f.pop().(int32)
		f.push(intOp(op, a, b))
	case jvm.Ladd, jvm.Lsub, jvm.Lmul, jvm.Land, jvm.Lor, jvm.Lxor:
		b, a := f.pop().(int64), f.pop().(int64)
		f.push(longOp(op, a, b))
	case jvm.I2l:
		f.push(int64(f.pop().(int32)))
	case jvm.L2i:
		f.push(int32(f.pop().(int64)))
	case jvm.I2c:
		f.push(int32(uint16(f.pop().(int32))))
	case jvm.I2b:
		f.push(int32(int8(f.pop().(int32))))
	case jvm.I2s:
		f.push(int32(int16(f.pop().(int32))))
	case jvm.Ireturn, jvm.Lreturn, jvm.Freturn, jvm.Dreturn, jvm.Areturn:
		return true, f.pop(), nil
	case jvm.Return:
		return true, nil, nil
	default:
		return false, nil, fmt.Errorf("unsupported %s", op)
	}
	return false, nil, nil
}

func intOp(op jvm.Opcode, a, b int32) int32 {
	switch op {
	case jvm.Iadd:
		return a + b
	case jvm.Isub:
		return a - b
	case jvm.Imul:
		return a * b
	case jvm.Iand:
		return a & b
	case jvm.Ior:
		return a | b
	}
	return a ^ b
}

func longOp(op jvm.Opcode, a, b int64) int64 {
	switch op {
	case jvm.Ladd:
		return a + b
	case jvm.Lsub:
		return a - b
	case jvm.Lmul:
		return a * b
	case jvm.Land:
		return a & b
	case jvm.Lor:
		return a | b
	}
	return a ^ b
}

func (m *Machine) jumps(op jvm.Opcode, f *frame) bool {
	switch op {
	case jvm.Goto:
		return true
	case jvm.Ifeq, jvm.Ifne, jvm.Iflt, jvm.Ifge, jvm.Ifgt, jvm.Ifle:
		return compare(op-jvm.Ifeq, f.pop().(int32), 0)
	case jvm.IfIcmpeq, jvm.IfIcmpne, jvm.IfIcmplt, jvm.IfIcmpge, jvm.IfIcmpgt, jvm.IfIcmple:
		b, a := f.pop().(int32), f.pop().(int32)
		return compare(op-jvm.IfIcmpeq, a, b)
	case jvm.Ifnull:
		return f.pop() == nil
	case jvm.Ifnonnull:
		return f.pop() != nil
	}
	panic(fmt.Sprintf("unsupported %s", op))
}

// compare evaluates eq, ne, lt, ge, gt, le in opcode order.
func compare(cond jvm.Opcode, a, b int32) bool {
	switch cond {
	case 0:
		return a == b
	case 1:
		return a != b
	case 2:
		return a < b
	case 3:
		return a >= b
	case 4:
		return a > b
	}
	return a <= b
}

func (m *Machine) invoke(insn *jvm.MethodInsn, f *frame) error {
	sig := insn.Owner + "." + insn.Name + insn.Desc
	switch sig {
	case "java/lang/Float.intBitsToFloat(I)F":
		f.push(math.Float32frombits(uint32(f.pop().(int32))))
	case "java/lang/Double.longBitsToDouble(J)D":
		f.push(math.Float64frombits(uint64(f.pop().(int64))))
	case "java/lang/Integer.intValue()I":
		f.push(f.pop().(int32))
	case "java/lang/StringBuilder.<init>()V":
		f.pop()
	case "java/lang/StringBuilder.append(C)Ljava/lang/StringBuilder;":
		ch := f.pop().(int32)
		sb := f.pop().(*builder)
		sb.units = append(sb.units, uint16(ch))
		f.push(sb)
	case "java/lang/StringBuilder.toString()Ljava/lang/String;":
		f.push(jvm.FromUTF16(f.pop().(*builder).units))
	case "java/lang/String.length()I":
		f.push(int32(len(jvm.UTF16(f.pop().(string)))))
	case "java/lang/String.charAt(I)C":
		i := f.pop().(int32)
		units := jvm.UTF16(f.pop().(string))
		f.push(int32(units[i]))
	default:
		if insn.Opcode != jvm.Invokestatic {
			return fmt.Errorf("unsupported call %s", sig)
		}
		argTypes, ret, err := jvm.ParseMethodDesc(insn.Desc)
		if err != nil {
			return err
		}
		args := make([]any, len(argTypes))
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = f.pop()
		}
		if err := m.initClass(insn.Owner); err != nil {
			return err
		}
		v, err := m.call(insn.Owner, insn.Name, insn.Desc, args)
		if err != nil {
			return err
		}
		if ret != "V" {
			f.push(v)
		}
	}
	return nil
}
