/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/tschaefer/pfqlang/internal/lang"
)

type Encoder struct {
	// MaxDescriptors bounds the program size; zero means
	// DefaultMaxDescriptors.
	MaxDescriptors int
}

func (e *Encoder) limit() int {
	if e.MaxDescriptors <= 0 {
		return DefaultMaxDescriptors
	}
	return e.MaxDescriptors
}

// Encode serializes prog into an image.
func (e *Encoder) Encode(prog *lang.Program) ([]byte, error) {
	if prog.Len() > e.limit() {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyDescriptors, prog.Len(), e.limit())
	}

	records := make([]record, prog.Len())
	var pool []byte
	offsets := make(map[string]uint32)

	for i, d := range prog.Descriptors {
		if len(d.Symbol) >= SymbolSize {
			return nil, fmt.Errorf("%w: descriptor %d: %q has %d bytes, limit is %d",
				ErrSymbolTooLong, i, d.Symbol, len(d.Symbol), SymbolSize-1)
		}

		r := record{
			Type:  uint32(d.Type),
			Fun:   int32(d.Fun),
			Left:  int32(d.Left),
			Right: int32(d.Right),
		}
		copy(r.Symbol[:], d.Symbol)

		if !d.Arg.IsZero() {
			key := string(d.Arg.Bytes())
			off, ok := offsets[key]
			if !ok {
				off = uint32(len(pool))
				offsets[key] = off
				pool = d.Arg.AppendTo(pool)
			}
			r.ArgOff = off
			r.ArgSize = uint32(d.Arg.Len())
		}

		records[i] = r
	}

	h := header{
		Magic:   magic,
		Version: Version,
		Count:   uint32(len(records)),
		Pool:    uint32(len(pool)),
	}

	buf := make([]byte, 0, HeaderSize+len(records)*RecordSize+len(pool))
	buf, err := binary.Append(buf, binary.NativeEndian, h)
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	buf, err = binary.Append(buf, binary.NativeEndian, records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}

	return append(buf, pool...), nil
}

// Encode serializes prog with the default limits.
func Encode(prog *lang.Program) ([]byte, error) {
	var e Encoder
	return e.Encode(prog)
}
