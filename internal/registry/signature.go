/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tschaefer/pfqlang/internal/lang"
)

const (
	packetType = "SkBuff"
	boolType   = "Bool"
	actionType = "Action SkBuff"
)

// Kind is the term kind a primitive can appear as.
type Kind int

const (
	KindFunction Kind = iota
	KindFilter
	KindBranch
	KindChoice
	KindPredicate
	KindPropertyPredicate
	KindProperty
	KindCombinator
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindFilter:
		return "filter"
	case KindBranch:
		return "branch"
	case KindChoice:
		return "choice"
	case KindPredicate:
		return "predicate"
	case KindPropertyPredicate:
		return "property-predicate"
	case KindProperty:
		return "property"
	case KindCombinator:
		return "combinator"
	default:
		return "unknown"
	}
}

// FunctionalType returns the descriptor tag of the kind.
func (k Kind) FunctionalType() lang.FunctionalType {
	switch k {
	case KindFilter, KindBranch, KindChoice:
		return lang.HighOrderFun
	case KindPredicate, KindPropertyPredicate:
		return lang.PredicateFun
	case KindProperty:
		return lang.PropertyFun
	case KindCombinator:
		return lang.CombinatorFun
	default:
		return lang.MonadicFun
	}
}

// ArgClass tells how a literal is encoded for an argument type.
type ArgClass int

const (
	ArgNone ArgClass = iota
	ArgNumber
	ArgAddress
	ArgCIDR
)

// ArgType is the constant argument declared by a signature.
type ArgType struct {
	Name  string
	Class ArgClass
	Size  int
}

func (a ArgType) IsZero() bool {
	return a.Class == ArgNone
}

var argTypes = map[string]ArgType{
	"Word8":  {Name: "Word8", Class: ArgNumber, Size: 1},
	"Word16": {Name: "Word16", Class: ArgNumber, Size: 2},
	"Word32": {Name: "Word32", Class: ArgNumber, Size: 4},
	"Word64": {Name: "Word64", Class: ArgNumber, Size: 8},
	"Word":   {Name: "Word", Class: ArgNumber, Size: 8},
	"Int32":  {Name: "Int32", Class: ArgNumber, Size: 4},
	"Int":    {Name: "Int", Class: ArgNumber, Size: 8},
	"IPv4":   {Name: "IPv4", Class: ArgAddress, Size: 4},
	"IPv6":   {Name: "IPv6", Class: ArgAddress, Size: 16},
	"CIDR4":  {Name: "CIDR4", Class: ArgCIDR, Size: 8},
	"CIDR6":  {Name: "CIDR6", Class: ArgCIDR, Size: 20},
}

// ParseSignature derives the kind and argument of a primitive from its type
// signature, e.g. "(SkBuff -> Bool) -> (SkBuff -> Action SkBuff) -> SkBuff ->
// Action SkBuff" for a branch.
func ParseSignature(sig string) (Kind, ArgType, error) {
	parts, err := splitArrows(sig)
	if err != nil {
		return 0, ArgType{}, fmt.Errorf("invalid signature %q: %w", sig, err)
	}
	if len(parts) < 2 || parts[len(parts)-2] != packetType {
		return 0, ArgType{}, fmt.Errorf("invalid signature %q: expected %s -> result", sig, packetType)
	}

	result := parts[len(parts)-1]
	var preds, comps, props int
	var arg ArgType

	for _, p := range parts[:len(parts)-2] {
		if strings.HasPrefix(p, "(") && strings.HasSuffix(p, ")") {
			inner, err := splitArrows(p[1 : len(p)-1])
			if err != nil || len(inner) != 2 || inner[0] != packetType {
				return 0, ArgType{}, fmt.Errorf("invalid signature %q: unsupported parameter %s", sig, p)
			}
			switch {
			case inner[1] == boolType:
				preds++
			case inner[1] == actionType:
				comps++
			case isValueType(inner[1]):
				props++
			default:
				return 0, ArgType{}, fmt.Errorf("invalid signature %q: unsupported parameter %s", sig, p)
			}
			continue
		}

		a, ok := argTypes[p]
		if !ok {
			return 0, ArgType{}, fmt.Errorf("invalid signature %q: unknown argument type %s", sig, p)
		}
		if !arg.IsZero() {
			return 0, ArgType{}, fmt.Errorf("invalid signature %q: more than one argument", sig)
		}
		arg = a
	}

	kind, ok := classify(result, preds, comps, props)
	if !ok {
		return 0, ArgType{}, fmt.Errorf("invalid signature %q: no term kind matches", sig)
	}

	switch kind {
	case KindFilter, KindBranch, KindChoice, KindCombinator:
		if !arg.IsZero() {
			return 0, ArgType{}, fmt.Errorf("invalid signature %q: %s takes no argument", sig, kind)
		}
	}

	return kind, arg, nil
}

func classify(result string, preds, comps, props int) (Kind, bool) {
	switch {
	case result == boolType && preds == 2 && comps == 0 && props == 0:
		return KindCombinator, true
	case result == boolType && preds == 0 && comps == 0 && props == 0:
		return KindPredicate, true
	case result == boolType && preds == 0 && comps == 0 && props == 1:
		return KindPropertyPredicate, true
	case result == actionType && props == 0 && preds == 0 && comps == 0:
		return KindFunction, true
	case result == actionType && props == 0 && preds == 1 && comps == 0:
		return KindFilter, true
	case result == actionType && props == 0 && preds == 1 && comps == 1:
		return KindBranch, true
	case result == actionType && props == 0 && preds == 1 && comps == 2:
		return KindChoice, true
	case isValueType(result) && preds == 0 && comps == 0 && props == 0:
		return KindProperty, true
	default:
		return 0, false
	}
}

func isValueType(t string) bool {
	a, ok := argTypes[t]
	return ok && a.Class == ArgNumber
}

// splitArrows splits a type on its top-level arrows.
func splitArrows(sig string) ([]string, error) {
	var parts []string
	depth, start := 0, 0

	for i := 0; i < len(sig); i++ {
		switch sig[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parenthesis at position %d", i)
			}
		case '-':
			if depth == 0 && i+1 < len(sig) && sig[i+1] == '>' {
				parts = append(parts, strings.TrimSpace(sig[start:i]))
				start = i + 2
				i++
			}
		}
	}
	if depth != 0 {
		return nil, errors.New("unbalanced parenthesis")
	}
	parts = append(parts, strings.TrimSpace(sig[start:]))

	for _, p := range parts {
		if p == "" {
			return nil, errors.New("empty type")
		}
	}

	return parts, nil
}
