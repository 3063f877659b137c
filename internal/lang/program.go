/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package lang

import (
	"fmt"
	"strings"
)

// Program is a lowered computation. Index 0 is its entry point.
type Program struct {
	Descriptors []Descriptor
}

// Compile lowers c starting at index 0.
func Compile(c Computation) *Program {
	descrs, _ := Lower(0, c)
	return &Program{Descriptors: descrs}
}

// Len returns the number of descriptors.
func (p *Program) Len() int {
	return len(p.Descriptors)
}

func (p *Program) Entry() int {
	return 0
}

// Symbols returns the distinct symbols in order of first use.
func (p *Program) Symbols() []string {
	seen := make(map[string]bool, len(p.Descriptors))
	var symbols []string
	for _, d := range p.Descriptors {
		if seen[d.Symbol] {
			continue
		}
		seen[d.Symbol] = true
		symbols = append(symbols, d.Symbol)
	}
	return symbols
}

func (p *Program) String() string {
	var sb strings.Builder
	for i, d := range p.Descriptors {
		fmt.Fprintf(&sb, "%03d  %s\n", i, d)
	}
	return sb.String()
}
