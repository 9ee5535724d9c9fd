// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package literals turns numeric and text constants into instruction
// sequences that recompute them at run time, so the values never appear in
// a class's constant pool.
package literals

import (
	"fmt"
	mathrand "math/rand"

	"github.com/bipbap/bipbap/internal/jvm"
)

// Obfuscate returns instructions that leave v on the operand stack. v must
// be an int32, int64, float32 or float64; text goes through EncryptText and a
// decrypt routine instead.
func Obfuscate(rand *mathrand.Rand, v any) ([]jvm.Insn, error) {
	switch v := v.(type) {
	case int32:
		return randIntObfuscator(rand).obfuscate(rand, v), nil
	case int64:
		return obfuscateLong(rand, v), nil
	case float32:
		return obfuscateFloat(rand, v), nil
	case float64:
		return obfuscateDouble(rand, v), nil
	}
	return nil, fmt.Errorf("cannot obfuscate constant of type %T", v)
}

// TypeDesc returns the field descriptor matching a constant value, or "" if
// the value has no field type.
func TypeDesc(v any) string {
	switch v.(type) {
	case int32:
		return "I"
	case int64:
		return "J"
	case float32:
		return "F"
	case float64:
		return "D"
	case string:
		return "Ljava/lang/String;"
	}
	return ""
}
