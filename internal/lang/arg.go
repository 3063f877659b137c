/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package lang

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Arg is the constant attached to a leaf term. The underlying buffer is
// immutable and shared by every copy of the term and every descriptor lowered
// from it. The zero Arg means no constant.
type Arg struct {
	data *argData
}

type argData struct {
	b []byte
}

// NewArg encodes a fixed-size plain value (integers, floats, arrays and
// structs thereof) in native byte order.
func NewArg(v any) (Arg, error) {
	size := binary.Size(v)
	if size < 0 {
		return Arg{}, fmt.Errorf("argument of type %T is not a fixed-size value", v)
	}
	if size == 0 {
		return Arg{}, fmt.Errorf("argument of type %T has zero size", v)
	}

	b, err := binary.Append(make([]byte, 0, size), binary.NativeEndian, v)
	if err != nil {
		return Arg{}, fmt.Errorf("failed to encode argument of type %T: %w", v, err)
	}

	return Arg{data: &argData{b: b}}, nil
}

// MustArg is like NewArg but panics on error.
func MustArg(v any) Arg {
	a, err := NewArg(v)
	if err != nil {
		panic(err)
	}
	return a
}

// RawArg copies b into a new constant. An empty b yields the zero Arg.
func RawArg(b []byte) Arg {
	if len(b) == 0 {
		return Arg{}
	}
	return Arg{data: &argData{b: bytes.Clone(b)}}
}

func (a Arg) IsZero() bool {
	return a.data == nil
}

// Len returns the logical size in bytes.
func (a Arg) Len() int {
	if a.data == nil {
		return 0
	}
	return len(a.data.b)
}

// Bytes returns a copy of the constant.
func (a Arg) Bytes() []byte {
	if a.data == nil {
		return nil
	}
	return bytes.Clone(a.data.b)
}

// AppendTo appends the constant to dst.
func (a Arg) AppendTo(dst []byte) []byte {
	if a.data == nil {
		return dst
	}
	return append(dst, a.data.b...)
}

func (a Arg) Equal(other Arg) bool {
	if a.data == nil || other.data == nil {
		return a.data == other.data
	}
	return bytes.Equal(a.data.b, other.data.b)
}

func (a Arg) String() string {
	if a.data == nil {
		return "-"
	}
	return "0x" + hex.EncodeToString(a.data.b)
}
