/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package lang

// Lower linearizes t starting at index n. It returns the descriptors in
// emission order and the next free index, always n+len(descriptors).
//
// A parent descriptor precedes its children. Function leaves fall through to
// the position right after themselves; the second branch of a ChoiceFunction
// is skipped by relocating the fall-through links of the first one.
func Lower(n int, t Term) ([]Descriptor, int) {
	return t.lower(n)
}

// LowerChain linearizes plain functions one after the other, each falling
// through to the next.
func LowerChain(n int, funs []Function) ([]Descriptor, int) {
	descrs := make([]Descriptor, 0, len(funs))
	for _, f := range funs {
		var d []Descriptor
		d, n = f.lower(n)
		descrs = append(descrs, d...)
	}
	return descrs, n
}

func (c Combinator) lower(n int) ([]Descriptor, int) {
	return []Descriptor{
		{Type: CombinatorFun, Symbol: c.Name, Fun: Absent, Left: Absent, Right: Absent},
	}, n + 1
}

func (p SimplePredicate) lower(n int) ([]Descriptor, int) {
	return []Descriptor{
		{Type: PredicateFun, Symbol: p.Name, Arg: p.Arg, Fun: Absent, Left: Absent, Right: Absent},
	}, n + 1
}

func (p JoinPredicate) lower(n int) ([]Descriptor, int) {
	comb, n1 := p.Comb.lower(n)
	left, n2 := p.Left.lower(n1)
	right, n3 := p.Right.lower(n2)

	comb[0].Left = n1
	comb[0].Right = n2

	return concat(comb, left, right), n3
}

func (p PropertyPredicate) lower(n int) ([]Descriptor, int) {
	self := []Descriptor{
		{Type: PredicateFun, Symbol: p.Name, Arg: p.Arg, Fun: n + 1, Left: Absent, Right: Absent},
	}
	prop, n1 := p.Prop.lower(n + 1)

	return concat(self, prop), n1
}

func (p Property) lower(n int) ([]Descriptor, int) {
	return []Descriptor{
		{Type: PropertyFun, Symbol: p.Name, Arg: p.Arg, Fun: Absent, Left: Absent, Right: Absent},
	}, n + 1
}

func (f Function) lower(n int) ([]Descriptor, int) {
	return []Descriptor{
		{Type: MonadicFun, Symbol: f.Name, Arg: f.Arg, Fun: Absent, Left: n + 1, Right: n + 1},
	}, n + 1
}

func (f FilterFunction) lower(n int) ([]Descriptor, int) {
	pred, n1 := f.Pred.lower(n + 1)
	self := []Descriptor{
		{Type: HighOrderFun, Symbol: f.Name, Fun: n + 1, Left: n1, Right: n1},
	}

	return concat(self, pred), n1
}

func (f BranchFunction) lower(n int) ([]Descriptor, int) {
	pred, n1 := f.Pred.lower(n + 1)
	comp, n2 := f.Comp.lower(n1)
	self := []Descriptor{
		{Type: HighOrderFun, Symbol: f.Name, Fun: n + 1, Left: n2, Right: n1},
	}

	return concat(self, pred, comp), n2
}

func (f ChoiceFunction) lower(n int) ([]Descriptor, int) {
	pred, n1 := f.Pred.lower(n + 1)
	comp, n2 := f.Comp.lower(n1)
	alt, n3 := f.Else.lower(n2)
	self := []Descriptor{
		{Type: HighOrderFun, Symbol: f.Name, Fun: n + 1, Left: n2, Right: n1},
	}

	// The true branch must not fall into the false one.
	relocate(comp, n2, n3)

	return concat(self, pred, comp, alt), n3
}

func (s Sequence) lower(n int) ([]Descriptor, int) {
	left, n1 := s.Left.lower(n)
	right, n2 := s.Right.lower(n1)

	return concat(left, right), n2
}

// relocate rewrites every left or right link equal to from into to.
func relocate(descrs []Descriptor, from, to int) {
	for i := range descrs {
		if descrs[i].Left == from {
			descrs[i].Left = to
		}
		if descrs[i].Right == from {
			descrs[i].Right = to
		}
	}
}

func concat(parts ...[]Descriptor) []Descriptor {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]Descriptor, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
