/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tschaefer/pfqlang/internal/lang"
)

// Decode parses an image produced by Encode.
func Decode(image []byte) (*lang.Program, error) {
	if len(image) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrInvalidImage, len(image), HeaderSize)
	}

	var h header
	if _, err := binary.Decode(image, binary.NativeEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidImage, h.Magic[:])
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidImage, h.Version)
	}

	count := int(h.Count)
	expected := HeaderSize + count*RecordSize + int(h.Pool)
	if len(image) != expected {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrInvalidImage, len(image), expected)
	}

	records := make([]record, count)
	if count > 0 {
		if _, err := binary.Decode(image[HeaderSize:], binary.NativeEndian, records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}
	}
	pool := image[HeaderSize+count*RecordSize:]

	descrs := make([]lang.Descriptor, count)
	for i, r := range records {
		d, err := r.descriptor(pool, count)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidImage, i, err)
		}
		descrs[i] = d
	}

	return &lang.Program{Descriptors: descrs}, nil
}

func (r record) descriptor(pool []byte, count int) (lang.Descriptor, error) {
	if r.Type > uint32(lang.PropertyFun) {
		return lang.Descriptor{}, fmt.Errorf("unknown type %d", r.Type)
	}

	symbol, _, _ := bytes.Cut(r.Symbol[:], []byte{0})
	if len(symbol) == 0 {
		return lang.Descriptor{}, errors.New("empty symbol")
	}

	end := uint64(r.ArgOff) + uint64(r.ArgSize)
	if end > uint64(len(pool)) {
		return lang.Descriptor{}, fmt.Errorf("constant %d+%d outside pool of %d bytes", r.ArgOff, r.ArgSize, len(pool))
	}

	// left and right may point one past the end, fun must name a descriptor.
	if r.Fun < lang.Absent || int(r.Fun) >= count {
		return lang.Descriptor{}, fmt.Errorf("fun link %d out of range", r.Fun)
	}
	for _, link := range []int32{r.Left, r.Right} {
		if link < lang.Absent || int(link) > count {
			return lang.Descriptor{}, fmt.Errorf("link %d out of range", link)
		}
	}

	return lang.Descriptor{
		Type:   lang.FunctionalType(r.Type),
		Symbol: string(symbol),
		Arg:    lang.RawArg(pool[r.ArgOff:end]),
		Fun:    int(r.Fun),
		Left:   int(r.Left),
		Right:  int(r.Right),
	}, nil
}
