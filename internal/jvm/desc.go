// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package jvm

import (
	"fmt"
	"strings"
)

// ParseMethodDesc splits a method descriptor into its argument and return
// type descriptors.
func ParseMethodDesc(desc string) (args []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("invalid method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := typeLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("invalid method descriptor %q: %w", desc, err)
		}
		args = append(args, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("invalid method descriptor %q: missing ')'", desc)
	}
	ret = desc[i+1:]
	if ret == "" {
		return nil, "", fmt.Errorf("invalid method descriptor %q: missing return type", desc)
	}
	return args, ret, nil
}

// typeLen returns the length of the field descriptor at the start of s.
func typeLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, fmt.Errorf("truncated type")
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated class type")
		}
		return i + end + 1, nil
	}
	return 0, fmt.Errorf("unknown type %q", s[i])
}

// IsWide reports whether values of the field descriptor take two slots.
func IsWide(desc string) bool { return desc == "J" || desc == "D" }

// MapTypes rewrites every class name that appears in a descriptor or a
// generic signature through mapName. Names of inner classes written with a
// '.' in signatures, and type variables, are left alone.
func MapTypes(s string, mapName func(string) string) string {
	if !strings.ContainsRune(s, 'L') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	typePos := true
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case typePos && c == 'L':
			j := i + 1
			for j < len(s) && s[j] != ';' && s[j] != '<' && s[j] != '.' {
				j++
			}
			sb.WriteByte('L')
			sb.WriteString(mapName(s[i+1 : j]))
			i = j
			typePos = false
			continue
		case typePos && c == 'T':
			j := strings.IndexByte(s[i:], ';')
			if j < 0 {
				sb.WriteString(s[i:])
				return sb.String()
			}
			sb.WriteString(s[i : i+j+1])
			i += j + 1
			continue
		}
		sb.WriteByte(c)
		switch c {
		case '(', ')', '[', ';', '<', '>', '+', '-', '*', ':', '^':
			typePos = true
		case '.':
			typePos = false
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
			// a primitive in type position leaves us in type position
		default:
			typePos = false
		}
		i++
	}
	return sb.String()
}

// ClassOfType returns the internal name behind a field descriptor or an
// array descriptor's element, or "" for primitives.
func ClassOfType(desc string) string {
	desc = strings.TrimLeft(desc, "[")
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return ""
}

// BinaryName turns an internal name into the dotted form used by reflection.
func BinaryName(internal string) string { return strings.ReplaceAll(internal, "/", ".") }

// PackageOf returns the package part of an internal name including the
// trailing slash, or "" for the default package.
func PackageOf(internal string) string {
	if i := strings.LastIndexByte(internal, '/'); i >= 0 {
		return internal[:i+1]
	}
	return ""
}
