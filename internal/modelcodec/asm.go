// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package modelcodec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bipbap/bipbap/internal/jvm"
)

// Method bodies are written one instruction per line:
//
//	L0:
//	line 12 L0
//	aload 0
//	ldc "hello"
//	getstatic java/lang/System out Ljava/io/PrintStream;
//	invokevirtual java/io/PrintStream println (Ljava/lang/String;)V
//	invokestatic p/Iface helper ()V itf
//	invokedynamic run ()Ljava/lang/Runnable; handle 6 p/Boot boot (...)Ljava/lang/invoke/CallSite; "arg" 1
//	tableswitch 0 2 L9 L1 L2 L3
//	lookupswitch L9 10 L1 20 L2
//	return
//
// Constants are 5, 5L, 1.5F, 1.5D, quoted strings, "type <desc>" and
// "handle <kind>[i] <owner> <name> <desc>". Names that are empty or contain
// blanks, quotes or non-printable bytes are quoted. Lines starting with "//"
// are comments.

type labelNames struct {
	names map[*jvm.Label]string
}

func (ln *labelNames) name(l *jvm.Label) string {
	if name, ok := ln.names[l]; ok {
		return name
	}
	name := "L" + strconv.Itoa(len(ln.names))
	ln.names[l] = name
	return name
}

func newLabelNames(code []jvm.Insn) *labelNames {
	ln := &labelNames{names: make(map[*jvm.Label]string)}
	for _, insn := range code {
		if l, ok := insn.(*jvm.Label); ok {
			ln.name(l)
		}
	}
	return ln
}

func quote(s string) string {
	if s == "" || !utf8.ValidString(s) {
		return strconv.Quote(s)
	}
	for _, r := range s {
		if r == '"' || r == '\\' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}

func formatConst(v any) (string, error) {
	switch v := v.(type) {
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10) + "L", nil
	case float32:
		if f := float64(v); math.IsNaN(f) {
			return fmt.Sprintf("NaN(%#x)F", math.Float32bits(v)), nil
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32) + "F", nil
	case float64:
		if math.IsNaN(v) {
			return fmt.Sprintf("NaN(%#x)D", math.Float64bits(v)), nil
		}
		return strconv.FormatFloat(v, 'g', -1, 64) + "D", nil
	case string:
		return strconv.Quote(v), nil
	case jvm.TypeRef:
		return "type " + quote(v.Desc), nil
	case jvm.Handle:
		return formatHandle(v), nil
	}
	return "", fmt.Errorf("unsupported constant %T", v)
}

func formatHandle(h jvm.Handle) string {
	kind := strconv.Itoa(h.Kind)
	if h.Interface {
		kind += "i"
	}
	return strings.Join([]string{"handle", kind, quote(h.Owner), quote(h.Name), quote(h.Desc)}, " ")
}

func formatCode(code []jvm.Insn, ln *labelNames) (string, error) {
	var sb strings.Builder
	for _, insn := range code {
		line, err := formatInsn(insn, ln)
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func formatInsn(insn jvm.Insn, ln *labelNames) (string, error) {
	op := insn.Op().String()
	switch insn := insn.(type) {
	case *jvm.Label:
		return ln.name(insn) + ":", nil
	case *jvm.LineNumber:
		return fmt.Sprintf("line %d %s", insn.Line, ln.name(insn.Start)), nil
	case *jvm.SimpleInsn:
		return op, nil
	case *jvm.IntInsn:
		return fmt.Sprintf("%s %d", op, insn.Operand), nil
	case *jvm.VarInsn:
		return fmt.Sprintf("%s %d", op, insn.Slot), nil
	case *jvm.IincInsn:
		return fmt.Sprintf("iinc %d %d", insn.Slot, insn.Increment), nil
	case *jvm.LdcInsn:
		c, err := formatConst(insn.Value)
		if err != nil {
			return "", err
		}
		return "ldc " + c, nil
	case *jvm.TypeInsn:
		return op + " " + quote(insn.Type), nil
	case *jvm.FieldInsn:
		return strings.Join([]string{op, quote(insn.Owner), quote(insn.Name), quote(insn.Desc)}, " "), nil
	case *jvm.MethodInsn:
		s := strings.Join([]string{op, quote(insn.Owner), quote(insn.Name), quote(insn.Desc)}, " ")
		if insn.Interface && insn.Opcode != jvm.Invokeinterface {
			s += " itf"
		}
		return s, nil
	case *jvm.InvokeDynamicInsn:
		parts := []string{op, quote(insn.Name), quote(insn.Desc), formatHandle(insn.Bootstrap)}
		for _, arg := range insn.Args {
			c, err := formatConst(arg)
			if err != nil {
				return "", err
			}
			parts = append(parts, c)
		}
		return strings.Join(parts, " "), nil
	case *jvm.JumpInsn:
		return op + " " + ln.name(insn.Target), nil
	case *jvm.TableSwitchInsn:
		parts := []string{op, strconv.Itoa(int(insn.Min)), strconv.Itoa(int(insn.Max)), ln.name(insn.Default)}
		for _, l := range insn.Targets {
			parts = append(parts, ln.name(l))
		}
		return strings.Join(parts, " "), nil
	case *jvm.LookupSwitchInsn:
		parts := []string{op, ln.name(insn.Default)}
		for i, key := range insn.Keys {
			parts = append(parts, strconv.Itoa(int(key)), ln.name(insn.Targets[i]))
		}
		return strings.Join(parts, " "), nil
	case *jvm.MultiANewArrayInsn:
		return fmt.Sprintf("%s %s %d", op, quote(insn.Desc), insn.Dims), nil
	}
	return "", fmt.Errorf("unsupported instruction %T", insn)
}

type token struct {
	text   string
	quoted bool
}

func tokenize(line string) ([]token, error) {
	var toks []token
	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == '"':
			j := i + 1
			for ; j < len(line); j++ {
				if line[j] == '\\' {
					j++
					continue
				}
				if line[j] == '"' {
					break
				}
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated string")
			}
			s, err := strconv.Unquote(line[i : j+1])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{text: s, quoted: true})
			i = j + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' {
				j++
			}
			toks = append(toks, token{text: line[i:j]})
			i = j
		}
	}
	return toks, nil
}

type codeParser struct {
	labels  map[string]*jvm.Label
	defined map[string]bool
}

func newCodeParser() *codeParser {
	return &codeParser{labels: make(map[string]*jvm.Label), defined: make(map[string]bool)}
}

func (p *codeParser) label(name string) *jvm.Label {
	l, ok := p.labels[name]
	if !ok {
		l = jvm.NewLabel()
		p.labels[name] = l
	}
	return l
}

// lookup returns a label that must have been placed in the code.
func (p *codeParser) lookup(name string) (*jvm.Label, error) {
	if !p.defined[name] {
		return nil, fmt.Errorf("undefined label %s", name)
	}
	return p.labels[name], nil
}

func (p *codeParser) parse(text string) ([]jvm.Insn, error) {
	var code []jvm.Insn
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		insn, err := p.parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q: %w", n+1, line, err)
		}
		code = append(code, insn)
	}
	for name := range p.labels {
		if !p.defined[name] {
			return nil, fmt.Errorf("undefined label %s", name)
		}
	}
	return code, nil
}

func (p *codeParser) parseLine(line string) (jvm.Insn, error) {
	if name, ok := strings.CutSuffix(line, ":"); ok && !strings.ContainsAny(name, " \t\"") {
		if p.defined[name] {
			return nil, fmt.Errorf("label %s defined twice", name)
		}
		p.defined[name] = true
		return p.label(name), nil
	}
	toks, err := tokenize(line)
	if err != nil {
		return nil, err
	}
	args := toks[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("want %d operands, got %d", n, len(args))
		}
		return nil
	}
	if toks[0].text == "line" {
		if err := need(2); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(args[0].text)
		if err != nil {
			return nil, err
		}
		return &jvm.LineNumber{Line: n, Start: p.label(args[1].text)}, nil
	}
	op, ok := jvm.LookupOpcode(toks[0].text)
	if !ok {
		return nil, fmt.Errorf("unknown instruction %q", toks[0].text)
	}
	switch op.Kind() {
	case jvm.KindSimple:
		return jvm.Op(op), nil
	case jvm.KindInt:
		if err := need(1); err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(args[0].text, 10, 32)
		if err != nil {
			return nil, err
		}
		return &jvm.IntInsn{Opcode: op, Operand: int32(n)}, nil
	case jvm.KindVar:
		if err := need(1); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(args[0].text)
		if err != nil {
			return nil, err
		}
		return jvm.Var(op, n), nil
	case jvm.KindIinc:
		if err := need(2); err != nil {
			return nil, err
		}
		slot, err := strconv.Atoi(args[0].text)
		if err != nil {
			return nil, err
		}
		inc, err := strconv.Atoi(args[1].text)
		if err != nil {
			return nil, err
		}
		return &jvm.IincInsn{Slot: slot, Increment: inc}, nil
	case jvm.KindLdc:
		v, rest, err := parseConst(args)
		if err != nil {
			return nil, err
		}
		if len(rest) > 0 {
			return nil, fmt.Errorf("trailing operands")
		}
		return &jvm.LdcInsn{Value: v}, nil
	case jvm.KindType:
		if err := need(1); err != nil {
			return nil, err
		}
		return jvm.TypeOp(op, args[0].text), nil
	case jvm.KindField:
		if err := need(3); err != nil {
			return nil, err
		}
		return jvm.FieldRef(op, args[0].text, args[1].text, args[2].text), nil
	case jvm.KindMethod:
		if err := need(3); err != nil {
			return nil, err
		}
		insn := jvm.Invoke(op, args[0].text, args[1].text, args[2].text)
		if len(args) > 3 && args[3].text == "itf" {
			insn.Interface = true
		}
		return insn, nil
	case jvm.KindDynamic:
		if err := need(2); err != nil {
			return nil, err
		}
		h, rest, err := parseConst(args[2:])
		if err != nil {
			return nil, err
		}
		bsm, ok := h.(jvm.Handle)
		if !ok {
			return nil, fmt.Errorf("bootstrap must be a handle")
		}
		insn := &jvm.InvokeDynamicInsn{Name: args[0].text, Desc: args[1].text, Bootstrap: bsm}
		for len(rest) > 0 {
			var v any
			v, rest, err = parseConst(rest)
			if err != nil {
				return nil, err
			}
			insn.Args = append(insn.Args, v)
		}
		return insn, nil
	case jvm.KindJump:
		if err := need(1); err != nil {
			return nil, err
		}
		return jvm.Jump(op, p.label(args[0].text)), nil
	case jvm.KindTableSwitch:
		if err := need(3); err != nil {
			return nil, err
		}
		lo, err := strconv.ParseInt(args[0].text, 10, 32)
		if err != nil {
			return nil, err
		}
		hi, err := strconv.ParseInt(args[1].text, 10, 32)
		if err != nil {
			return nil, err
		}
		insn := &jvm.TableSwitchInsn{Min: int32(lo), Max: int32(hi), Default: p.label(args[2].text)}
		for _, t := range args[3:] {
			insn.Targets = append(insn.Targets, p.label(t.text))
		}
		if int64(len(insn.Targets)) != hi-lo+1 {
			return nil, fmt.Errorf("tableswitch wants %d targets, got %d", hi-lo+1, len(insn.Targets))
		}
		return insn, nil
	case jvm.KindLookupSwitch:
		if err := need(1); err != nil {
			return nil, err
		}
		insn := &jvm.LookupSwitchInsn{Default: p.label(args[0].text)}
		pairs := args[1:]
		if len(pairs)%2 != 0 {
			return nil, fmt.Errorf("lookupswitch wants key and label pairs")
		}
		for i := 0; i < len(pairs); i += 2 {
			key, err := strconv.ParseInt(pairs[i].text, 10, 32)
			if err != nil {
				return nil, err
			}
			insn.Keys = append(insn.Keys, int32(key))
			insn.Targets = append(insn.Targets, p.label(pairs[i+1].text))
		}
		return insn, nil
	case jvm.KindMultiANewArray:
		if err := need(2); err != nil {
			return nil, err
		}
		dims, err := strconv.Atoi(args[1].text)
		if err != nil {
			return nil, err
		}
		return &jvm.MultiANewArrayInsn{Desc: args[0].text, Dims: dims}, nil
	}
	return nil, fmt.Errorf("instruction %s cannot be written in code", op)
}

// parseConst reads one constant from the front of toks and returns the
// remaining tokens.
func parseConst(toks []token) (any, []token, error) {
	if len(toks) == 0 {
		return nil, nil, fmt.Errorf("missing constant")
	}
	tok := toks[0]
	if tok.quoted {
		return tok.text, toks[1:], nil
	}
	switch tok.text {
	case "type":
		if len(toks) < 2 {
			return nil, nil, fmt.Errorf("missing type descriptor")
		}
		return jvm.TypeRef{Desc: toks[1].text}, toks[2:], nil
	case "handle":
		if len(toks) < 5 {
			return nil, nil, fmt.Errorf("handle wants kind, owner, name and desc")
		}
		kind, itf := strings.CutSuffix(toks[1].text, "i")
		k, err := strconv.Atoi(kind)
		if err != nil {
			return nil, nil, err
		}
		h := jvm.Handle{Kind: k, Owner: toks[2].text, Name: toks[3].text, Desc: toks[4].text, Interface: itf}
		return h, toks[5:], nil
	}
	v, err := parseNumber(tok.text)
	return v, toks[1:], err
}

func parseNumber(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty constant")
	}
	body := s[:len(s)-1]
	switch s[len(s)-1] {
	case 'L':
		return strconv.ParseInt(body, 10, 64)
	case 'F':
		if bits, ok := nanBits(body); ok {
			return math.Float32frombits(uint32(bits)), nil
		}
		f, err := strconv.ParseFloat(body, 32)
		return float32(f), err
	case 'D':
		if bits, ok := nanBits(body); ok {
			return math.Float64frombits(bits), nil
		}
		return strconv.ParseFloat(body, 64)
	}
	n, err := strconv.ParseInt(s, 10, 32)
	return int32(n), err
}

func nanBits(s string) (uint64, bool) {
	inner, ok := strings.CutPrefix(s, "NaN(")
	if !ok {
		return 0, false
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return 0, false
	}
	bits, err := strconv.ParseUint(inner, 0, 64)
	return bits, err == nil
}

// FormatCode returns the assembly form of an instruction sequence. Labels
// are named in order of appearance.
func FormatCode(code []jvm.Insn) (string, error) {
	return formatCode(code, newLabelNames(code))
}

// ParseCode reads an instruction sequence in assembly form.
func ParseCode(text string) ([]jvm.Insn, error) {
	return newCodeParser().parse(text)
}
