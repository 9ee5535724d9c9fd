// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package jvm

import "fmt"

// Opcode is a bytecode instruction opcode. The short forms such as iload_0
// and the wide prefix only exist in the binary encoding and never appear in
// the program model.
type Opcode uint8

const (
	Nop        Opcode = 0
	AconstNull Opcode = 1
	IconstM1   Opcode = 2
	Iconst0    Opcode = 3
	Iconst1    Opcode = 4
	Iconst2    Opcode = 5
	Iconst3    Opcode = 6
	Iconst4    Opcode = 7
	Iconst5    Opcode = 8
	Lconst0    Opcode = 9
	Lconst1    Opcode = 10
	Fconst0    Opcode = 11
	Fconst1    Opcode = 12
	Fconst2    Opcode = 13
	Dconst0    Opcode = 14
	Dconst1    Opcode = 15
	Bipush     Opcode = 16
	Sipush     Opcode = 17
	Ldc        Opcode = 18

	Iload Opcode = 21
	Lload Opcode = 22
	Fload Opcode = 23
	Dload Opcode = 24
	Aload Opcode = 25

	Iaload Opcode = 46
	Laload Opcode = 47
	Faload Opcode = 48
	Daload Opcode = 49
	Aaload Opcode = 50
	Baload Opcode = 51
	Caload Opcode = 52
	Saload Opcode = 53
	Istore Opcode = 54
	Lstore Opcode = 55
	Fstore Opcode = 56
	Dstore Opcode = 57
	Astore Opcode = 58

	Iastore  Opcode = 79
	Lastore  Opcode = 80
	Fastore  Opcode = 81
	Dastore  Opcode = 82
	Aastore  Opcode = 83
	Bastore  Opcode = 84
	Castore  Opcode = 85
	Sastore  Opcode = 86
	Pop      Opcode = 87
	Pop2     Opcode = 88
	Dup      Opcode = 89
	DupX1    Opcode = 90
	DupX2    Opcode = 91
	Dup2     Opcode = 92
	Dup2X1   Opcode = 93
	Dup2X2   Opcode = 94
	Swap     Opcode = 95
	Iadd     Opcode = 96
	Ladd     Opcode = 97
	Fadd     Opcode = 98
	Dadd     Opcode = 99
	Isub     Opcode = 100
	Lsub     Opcode = 101
	Fsub     Opcode = 102
	Dsub     Opcode = 103
	Imul     Opcode = 104
	Lmul     Opcode = 105
	Fmul     Opcode = 106
	Dmul     Opcode = 107
	Idiv     Opcode = 108
	Ldiv     Opcode = 109
	Fdiv     Opcode = 110
	Ddiv     Opcode = 111
	Irem     Opcode = 112
	Lrem     Opcode = 113
	Frem     Opcode = 114
	Drem     Opcode = 115
	Ineg     Opcode = 116
	Lneg     Opcode = 117
	Fneg     Opcode = 118
	Dneg     Opcode = 119
	Ishl     Opcode = 120
	Lshl     Opcode = 121
	Ishr     Opcode = 122
	Lshr     Opcode = 123
	Iushr    Opcode = 124
	Lushr    Opcode = 125
	Iand     Opcode = 126
	Land     Opcode = 127
	Ior      Opcode = 128
	Lor      Opcode = 129
	Ixor     Opcode = 130
	Lxor     Opcode = 131
	Iinc     Opcode = 132
	I2l      Opcode = 133
	I2f      Opcode = 134
	I2d      Opcode = 135
	L2i      Opcode = 136
	L2f      Opcode = 137
	L2d      Opcode = 138
	F2i      Opcode = 139
	F2l      Opcode = 140
	F2d      Opcode = 141
	D2i      Opcode = 142
	D2l      Opcode = 143
	D2f      Opcode = 144
	I2b      Opcode = 145
	I2c      Opcode = 146
	I2s      Opcode = 147
	Lcmp     Opcode = 148
	Fcmpl    Opcode = 149
	Fcmpg    Opcode = 150
	Dcmpl    Opcode = 151
	Dcmpg    Opcode = 152
	Ifeq     Opcode = 153
	Ifne     Opcode = 154
	Iflt     Opcode = 155
	Ifge     Opcode = 156
	Ifgt     Opcode = 157
	Ifle     Opcode = 158
	IfIcmpeq Opcode = 159
	IfIcmpne Opcode = 160
	IfIcmplt Opcode = 161
	IfIcmpge Opcode = 162
	IfIcmpgt Opcode = 163
	IfIcmple Opcode = 164
	IfAcmpeq Opcode = 165
	IfAcmpne Opcode = 166
	Goto     Opcode = 167
	Jsr      Opcode = 168
	Ret      Opcode = 169

	Tableswitch  Opcode = 170
	Lookupswitch Opcode = 171
	Ireturn      Opcode = 172
	Lreturn      Opcode = 173
	Freturn      Opcode = 174
	Dreturn      Opcode = 175
	Areturn      Opcode = 176
	Return       Opcode = 177

	Getstatic       Opcode = 178
	Putstatic       Opcode = 179
	Getfield        Opcode = 180
	Putfield        Opcode = 181
	Invokevirtual   Opcode = 182
	Invokespecial   Opcode = 183
	Invokestatic    Opcode = 184
	Invokeinterface Opcode = 185
	Invokedynamic   Opcode = 186
	New             Opcode = 187
	Newarray        Opcode = 188
	Anewarray       Opcode = 189
	Arraylength     Opcode = 190
	Athrow          Opcode = 191
	Checkcast       Opcode = 192
	Instanceof      Opcode = 193
	Monitorenter    Opcode = 194
	Monitorexit     Opcode = 195

	Multianewarray Opcode = 197
	Ifnull         Opcode = 198
	Ifnonnull      Opcode = 199

	// Pseudo opcodes of the model's marker instructions.
	LabelMarker Opcode = 254
	LineMarker  Opcode = 255
)

// Kind groups opcodes by the shape of their operands, which decides the
// concrete Insn type that carries them.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSimple
	KindInt
	KindVar
	KindIinc
	KindLdc
	KindType
	KindField
	KindMethod
	KindDynamic
	KindJump
	KindTableSwitch
	KindLookupSwitch
	KindMultiANewArray
	KindLabel
	KindLine
)

type opInfo struct {
	name string
	kind Kind
}

var opTable [256]opInfo

func def(kind Kind, first Opcode, names ...string) {
	for i, name := range names {
		opTable[int(first)+i] = opInfo{name: name, kind: kind}
	}
}

func init() {
	def(KindSimple, Nop, "nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1",
		"iconst_2", "iconst_3", "iconst_4", "iconst_5", "lconst_0", "lconst_1",
		"fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1")
	def(KindInt, Bipush, "bipush", "sipush")
	def(KindLdc, Ldc, "ldc")
	def(KindVar, Iload, "iload", "lload", "fload", "dload", "aload")
	def(KindSimple, Iaload, "iaload", "laload", "faload", "daload", "aaload",
		"baload", "caload", "saload")
	def(KindVar, Istore, "istore", "lstore", "fstore", "dstore", "astore")
	def(KindSimple, Iastore, "iastore", "lastore", "fastore", "dastore", "aastore",
		"bastore", "castore", "sastore", "pop", "pop2", "dup", "dup_x1", "dup_x2",
		"dup2", "dup2_x1", "dup2_x2", "swap",
		"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
		"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
		"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
		"ishl", "lshl", "ishr", "lshr", "iushr", "lushr",
		"iand", "land", "ior", "lor", "ixor", "lxor")
	def(KindIinc, Iinc, "iinc")
	def(KindSimple, I2l, "i2l", "i2f", "i2d", "l2i", "l2f", "l2d", "f2i", "f2l",
		"f2d", "d2i", "d2l", "d2f", "i2b", "i2c", "i2s",
		"lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg")
	def(KindJump, Ifeq, "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle",
		"if_icmpeq", "if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple",
		"if_acmpeq", "if_acmpne", "goto", "jsr")
	def(KindVar, Ret, "ret")
	def(KindTableSwitch, Tableswitch, "tableswitch")
	def(KindLookupSwitch, Lookupswitch, "lookupswitch")
	def(KindSimple, Ireturn, "ireturn", "lreturn", "freturn", "dreturn", "areturn", "return")
	def(KindField, Getstatic, "getstatic", "putstatic", "getfield", "putfield")
	def(KindMethod, Invokevirtual, "invokevirtual", "invokespecial", "invokestatic", "invokeinterface")
	def(KindDynamic, Invokedynamic, "invokedynamic")
	def(KindType, New, "new")
	def(KindInt, Newarray, "newarray")
	def(KindType, Anewarray, "anewarray")
	def(KindSimple, Arraylength, "arraylength", "athrow")
	def(KindType, Checkcast, "checkcast", "instanceof")
	def(KindSimple, Monitorenter, "monitorenter", "monitorexit")
	def(KindMultiANewArray, Multianewarray, "multianewarray")
	def(KindJump, Ifnull, "ifnull", "ifnonnull")
	def(KindLabel, LabelMarker, "label")
	def(KindLine, LineMarker, "line")
}

// Kind returns the operand shape of op, or KindInvalid for opcodes that
// cannot appear in the program model.
func (op Opcode) Kind() Kind { return opTable[op].kind }

func (op Opcode) String() string {
	if name := opTable[op].name; name != "" {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

var opByName map[string]Opcode

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opByName[name]
	return op, ok
}

func init() {
	opByName = make(map[string]Opcode, 210)
	for i, info := range opTable {
		if info.kind != KindInvalid && info.kind != KindLabel && info.kind != KindLine {
			opByName[info.name] = Opcode(i)
		}
	}
}
