/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package wire converts a lowered program into the fixed-layout image the
// packet engine consumes, and back.
//
// An image is a header, one record per descriptor and a pool holding the
// constant arguments, all in native byte order:
//
//	header: magic "PFQL" | version u16 | reserved u16 | count u32 | pool u32
//	record: type u32 | symbol [32]byte | arg_off u32 | arg_size u32
//	        | fun i32 | left i32 | right i32
//
// Symbols are NUL padded. A descriptor without a constant has arg_off and
// arg_size zero. Equal constants are stored once in the pool.
package wire

import (
	"encoding/binary"
	"errors"
)

const (
	Version = 1

	// SymbolSize is the size of the NUL padded symbol field.
	SymbolSize = 32

	DefaultMaxDescriptors = 1024
)

var (
	ErrTooManyDescriptors = errors.New("too many descriptors")
	ErrSymbolTooLong      = errors.New("symbol too long")
	ErrInvalidImage       = errors.New("invalid image")
)

var magic = [4]byte{'P', 'F', 'Q', 'L'}

type header struct {
	Magic    [4]byte
	Version  uint16
	Reserved uint16
	Count    uint32
	Pool     uint32
}

type record struct {
	Type    uint32
	Symbol  [SymbolSize]byte
	ArgOff  uint32
	ArgSize uint32
	Fun     int32
	Left    int32
	Right   int32
}

var (
	HeaderSize = binary.Size(header{})
	RecordSize = binary.Size(record{})
)
