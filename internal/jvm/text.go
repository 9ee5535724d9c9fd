// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package jvm

import (
	"unicode/utf16"
	"unicode/utf8"
)

// String constants are sequences of UTF-16 code units that need not be
// well-formed. The model stores them as Go strings in generalized UTF-8:
// valid pairs become 4-byte sequences and lone surrogates become the 3-byte
// sequences that strict UTF-8 rejects. UTF16 and FromUTF16 convert between
// the two forms without loss.

// UTF16 returns the code units of a string constant.
func UTF16(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for i := 0; i < len(s); {
		if r, ok := surrogateAt(s, i); ok {
			units = append(units, r)
			i += 3
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			// not produced by FromUTF16; keep the byte as a unit
			units = append(units, uint16(s[i]))
			i++
			continue
		}
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			units = append(units, uint16(hi), uint16(lo))
		} else {
			units = append(units, uint16(r))
		}
		i += size
	}
	return units
}

func surrogateAt(s string, i int) (uint16, bool) {
	if i+2 >= len(s) || s[i] != 0xED || s[i+1] < 0xA0 || s[i+1] > 0xBF || s[i+2]&0xC0 != 0x80 {
		return 0, false
	}
	return uint16(s[i]&0x0F)<<12 | uint16(s[i+1]&0x3F)<<6 | uint16(s[i+2]&0x3F), true
}

// FromUTF16 is the inverse of UTF16.
func FromUTF16(units []uint16) string {
	buf := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if utf16.IsSurrogate(rune(u)) {
			if u < 0xDC00 && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF {
				buf = utf8.AppendRune(buf, utf16.DecodeRune(rune(u), rune(units[i+1])))
				i++
				continue
			}
			buf = append(buf, 0xED, byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
			continue
		}
		buf = utf8.AppendRune(buf, rune(u))
	}
	return string(buf)
}
