/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package lang implements the typed term algebra of packet pipelines and its
// lowering into a flat sequence of index-linked descriptors.
//
// Terms are built through the constructors in this package. Predicates only
// combine with predicates and computations only chain with computations; the
// Predicate and Computation interfaces are sealed, so invalid nesting is a
// compile error. Building term structs by hand with nil children is not
// supported.
package lang

import (
	"fmt"
)

// Term is any node of the expression tree.
type Term interface {
	fmt.Stringer
	lower(n int) ([]Descriptor, int)
}

// Predicate is a term yielding a boolean over a packet.
type Predicate interface {
	Term
	isPredicate()
}

// Computation is a term transforming a packet.
type Computation interface {
	Term
	isComputation()
	// Then chains next after the receiver.
	Then(next Computation) Sequence
}

// Combinator names a boolean join of two predicates.
type Combinator struct {
	Name string
}

// SimplePredicate is an atomic test.
type SimplePredicate struct {
	Name string
	Arg  Arg
}

// JoinPredicate combines two predicates with a combinator.
type JoinPredicate struct {
	Comb  Combinator
	Left  Predicate
	Right Predicate
}

// PropertyPredicate tests the value of a property.
type PropertyPredicate struct {
	Name string
	Prop Property
	Arg  Arg
}

// Property produces a value from a packet. It only appears inside a
// PropertyPredicate.
type Property struct {
	Name string
	Arg  Arg
}

// Function is an atomic pipeline step.
type Function struct {
	Name string
	Arg  Arg
}

// FilterFunction passes or drops packets according to a predicate.
type FilterFunction struct {
	Name string
	Pred Predicate
}

// BranchFunction runs Comp only if the predicate holds.
type BranchFunction struct {
	Name string
	Pred Predicate
	Comp Computation
}

// ChoiceFunction runs Comp if the predicate holds and Else otherwise.
type ChoiceFunction struct {
	Name string
	Pred Predicate
	Comp Computation
	Else Computation
}

// Sequence feeds the output of Left into Right.
type Sequence struct {
	Left  Computation
	Right Computation
}

func (SimplePredicate) isPredicate()   {}
func (JoinPredicate) isPredicate()     {}
func (PropertyPredicate) isPredicate() {}

func (Function) isComputation()       {}
func (FilterFunction) isComputation() {}
func (BranchFunction) isComputation() {}
func (ChoiceFunction) isComputation() {}
func (Sequence) isComputation()       {}

func (f Function) Then(next Computation) Sequence       { return Seq(f, next) }
func (f FilterFunction) Then(next Computation) Sequence { return Seq(f, next) }
func (f BranchFunction) Then(next Computation) Sequence { return Seq(f, next) }
func (f ChoiceFunction) Then(next Computation) Sequence { return Seq(f, next) }
func (s Sequence) Then(next Computation) Sequence       { return Seq(s, next) }

func Comb(name string) Combinator {
	return Combinator{Name: name}
}

func Pred(name string) SimplePredicate {
	return SimplePredicate{Name: name}
}

func PredArg(name string, arg Arg) SimplePredicate {
	return SimplePredicate{Name: name, Arg: arg}
}

func Join(comb Combinator, left, right Predicate) JoinPredicate {
	return JoinPredicate{Comb: comb, Left: left, Right: right}
}

func Or(left, right Predicate) JoinPredicate {
	return Join(Comb("or"), left, right)
}

func And(left, right Predicate) JoinPredicate {
	return Join(Comb("and"), left, right)
}

func Xor(left, right Predicate) JoinPredicate {
	return Join(Comb("xor"), left, right)
}

// PredOf builds a predicate over the value of prop.
func PredOf(name string, prop Property) PropertyPredicate {
	return PropertyPredicate{Name: name, Prop: prop}
}

func PredOfArg(name string, prop Property, arg Arg) PropertyPredicate {
	return PropertyPredicate{Name: name, Prop: prop, Arg: arg}
}

func Prop(name string) Property {
	return Property{Name: name}
}

func PropArg(name string, arg Arg) Property {
	return Property{Name: name, Arg: arg}
}

func Fun(name string) Function {
	return Function{Name: name}
}

func FunArg(name string, arg Arg) Function {
	return Function{Name: name, Arg: arg}
}

func Filter(name string, pred Predicate) FilterFunction {
	return FilterFunction{Name: name, Pred: pred}
}

func Branch(name string, pred Predicate, comp Computation) BranchFunction {
	return BranchFunction{Name: name, Pred: pred, Comp: comp}
}

func Choice(name string, pred Predicate, comp, alt Computation) ChoiceFunction {
	return ChoiceFunction{Name: name, Pred: pred, Comp: comp, Else: alt}
}

// Seq chains computations left to right: Seq(a, b, c) is (a >-> b) >-> c.
func Seq(first, second Computation, more ...Computation) Sequence {
	s := Sequence{Left: first, Right: second}
	for _, c := range more {
		s = Sequence{Left: s, Right: c}
	}
	return s
}

func (c Combinator) String() string {
	switch c.Name {
	case "or":
		return "|"
	case "and":
		return "&"
	case "xor":
		return "^"
	default:
		return c.Name
	}
}

func (p SimplePredicate) String() string {
	return leaf(p.Name, p.Arg)
}

func (p JoinPredicate) String() string {
	return "(" + p.Left.String() + " " + p.Comb.String() + " " + p.Right.String() + ")"
}

func (p PropertyPredicate) String() string {
	if p.Arg.IsZero() {
		return "(" + p.Name + " " + p.Prop.String() + ")"
	}
	return "(" + p.Name + " " + p.Prop.String() + " " + p.Arg.String() + ")"
}

func (p Property) String() string {
	return leaf(p.Name, p.Arg)
}

func (f Function) String() string {
	return leaf(f.Name, f.Arg)
}

func (f FilterFunction) String() string {
	return "(" + f.Name + " " + f.Pred.String() + ")"
}

func (f BranchFunction) String() string {
	return "(" + f.Name + " " + f.Pred.String() + " (" + f.Comp.String() + "))"
}

func (f ChoiceFunction) String() string {
	return "(" + f.Name + " " + f.Pred.String() + " (" + f.Comp.String() + ") (" + f.Else.String() + "))"
}

func (s Sequence) String() string {
	return s.Left.String() + " >-> " + s.Right.String()
}

func leaf(name string, arg Arg) string {
	if arg.IsZero() {
		return name
	}
	return "(" + name + " " + arg.String() + ")"
}
