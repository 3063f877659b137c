/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package lang

import (
	"fmt"
	"strconv"
	"strings"
)

// Absent marks a missing link.
const Absent = -1

// FunctionalType tags a descriptor with the kind of primitive it names.
type FunctionalType uint32

const (
	MonadicFun FunctionalType = iota
	HighOrderFun
	PredicateFun
	CombinatorFun
	PropertyFun
)

func (t FunctionalType) String() string {
	switch t {
	case MonadicFun:
		return "fun"
	case HighOrderFun:
		return "hfun"
	case PredicateFun:
		return "pred"
	case CombinatorFun:
		return "comb"
	case PropertyFun:
		return "prop"
	default:
		return "unknown"
	}
}

// Descriptor is one position-addressed record of a lowered expression. Its
// index is its position in the sequence; Fun, Left and Right refer to other
// positions or are Absent.
type Descriptor struct {
	Type   FunctionalType
	Symbol string
	Arg    Arg
	Fun    int
	Left   int
	Right  int
}

func (d Descriptor) String() string {
	var sb strings.Builder
	sb.WriteString(d.Type.String())
	sb.WriteByte(' ')
	sb.WriteString(d.Symbol)
	if !d.Arg.IsZero() {
		fmt.Fprintf(&sb, " %s:%d", d.Arg, d.Arg.Len())
	}
	fmt.Fprintf(&sb, " fun:%s left:%s right:%s", link(d.Fun), link(d.Left), link(d.Right))
	return sb.String()
}

func link(i int) string {
	if i == Absent {
		return "-"
	}
	return strconv.Itoa(i)
}
