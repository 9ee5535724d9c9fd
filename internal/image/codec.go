// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package image

import (
	"fmt"

	"github.com/bipbap/bipbap/internal/jvm"
)

// Codec converts single class units between their encoded form and the
// program model. Encode must recompute whatever the model does not carry,
// such as stack map frames.
type Codec interface {
	Decode(data []byte) (*jvm.Class, error)
	Encode(c *jvm.Class) ([]byte, error)
}

// CodecError is an archive entry that could not be decoded. The entry is
// dropped from the image.
type CodecError struct {
	Entry string
	Err   error
}

func (e *CodecError) Error() string { return fmt.Sprintf("decode %s: %v", e.Entry, e.Err) }
func (e *CodecError) Unwrap() error { return e.Err }

// DumpError is a class that could not be encoded. The class is left out of
// the output archive.
type DumpError struct {
	Class string
	Err   error
}

func (e *DumpError) Error() string { return fmt.Sprintf("encode %s: %v", e.Class, e.Err) }
func (e *DumpError) Unwrap() error { return e.Err }
