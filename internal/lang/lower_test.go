/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package lang

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countNodes(t Term) int {
	switch v := t.(type) {
	case Combinator, SimplePredicate, Property, Function:
		return 1
	case JoinPredicate:
		return 1 + countNodes(v.Left) + countNodes(v.Right)
	case PropertyPredicate:
		return 1 + countNodes(v.Prop)
	case FilterFunction:
		return 1 + countNodes(v.Pred)
	case BranchFunction:
		return 1 + countNodes(v.Pred) + countNodes(v.Comp)
	case ChoiceFunction:
		return 1 + countNodes(v.Pred) + countNodes(v.Comp) + countNodes(v.Else)
	case Sequence:
		return countNodes(v.Left) + countNodes(v.Right)
	default:
		panic("unexpected term")
	}
}

func sampleTerms() map[string]Term {
	return map[string]Term{
		"combinator":         Comb("and"),
		"predicate":          Pred("is_tcp"),
		"predicate with arg": PredArg("has_port", MustArg(uint16(80))),
		"join":               And(Pred("is_tcp"), Or(Pred("is_ip"), Pred("is_ip6"))),
		"property predicate": PredOfArg("less", Prop("ip_ttl"), MustArg(uint64(5))),
		"property":           PropArg("ip_tos", MustArg(uint8(0x10))),
		"function":           Fun("drop"),
		"filter":             Filter("filter", Pred("is_udp")),
		"branch":             Branch("when", Pred("is_udp"), Seq(Fun("inc"), Fun("kernel"))),
		"choice":             Choice("conditional", Pred("is_udp"), Fun("drop"), Fun("forward")),
		"nested choice": Choice("conditional", Pred("is_ip"),
			Choice("conditional", Pred("is_tcp"), Fun("a").Then(Fun("b")), Fun("c")),
			Branch("when", Pred("is_udp"), Fun("d")),
		),
		"sequence": Seq(Filter("unit", Pred("is_ip")), Fun("inc"), Fun("kernel")),
	}
}

func TestLower_SinglePredicate(t *testing.T) {
	descrs, next := Lower(0, Pred("is-tcp"))

	assert.Equal(t, 1, next)
	require.Len(t, descrs, 1)
	assert.Equal(t, Descriptor{
		Type: PredicateFun, Symbol: "is-tcp", Fun: Absent, Left: Absent, Right: Absent,
	}, descrs[0])
	assert.True(t, descrs[0].Arg.IsZero())
}

func TestLower_JoinPredicate(t *testing.T) {
	descrs, next := Lower(0, Join(Comb("and"), Pred("is-tcp"), Pred("is-ipv4")))

	assert.Equal(t, 3, next)
	expected := []Descriptor{
		{Type: CombinatorFun, Symbol: "and", Fun: Absent, Left: 1, Right: 2},
		{Type: PredicateFun, Symbol: "is-tcp", Fun: Absent, Left: Absent, Right: Absent},
		{Type: PredicateFun, Symbol: "is-ipv4", Fun: Absent, Left: Absent, Right: Absent},
	}
	if diff := cmp.Diff(expected, descrs); diff != "" {
		t.Errorf("unexpected descriptors (-want +got):\n%s", diff)
	}
}

func TestLower_JoinOrdering(t *testing.T) {
	left := And(Pred("a"), Pred("b"))
	right := PredOf("equal", Prop("ip_tos"))

	for _, n := range []int{0, 7} {
		descrs, next := Lower(n, Or(left, right))
		_, leftNext := Lower(n+1, left)

		assert.Equal(t, n+6, next)
		assert.Equal(t, CombinatorFun, descrs[0].Type)
		assert.Equal(t, n+1, descrs[0].Left)
		assert.Equal(t, leftNext, descrs[0].Right)
		assert.Equal(t, "and", descrs[1].Symbol)
		assert.Equal(t, "equal", descrs[leftNext-n].Symbol)
	}
}

func TestLower_ChoiceRelocation(t *testing.T) {
	descrs, next := Lower(0, Choice("when", Pred("is-udp"), Fun("drop"), Fun("forward")))

	assert.Equal(t, 4, next)
	expected := []Descriptor{
		{Type: HighOrderFun, Symbol: "when", Fun: 1, Left: 3, Right: 2},
		{Type: PredicateFun, Symbol: "is-udp", Fun: Absent, Left: Absent, Right: Absent},
		{Type: MonadicFun, Symbol: "drop", Fun: Absent, Left: 4, Right: 4},
		{Type: MonadicFun, Symbol: "forward", Fun: Absent, Left: 4, Right: 4},
	}
	if diff := cmp.Diff(expected, descrs); diff != "" {
		t.Errorf("unexpected descriptors (-want +got):\n%s", diff)
	}
}

func TestLower_NestedChoiceRelocation(t *testing.T) {
	term := Choice("c", Pred("p"), Branch("w", Pred("q"), Fun("a")), Fun("b"))
	descrs, next := Lower(0, term)

	assert.Equal(t, 6, next)
	expected := []Descriptor{
		{Type: HighOrderFun, Symbol: "c", Fun: 1, Left: 5, Right: 2},
		{Type: PredicateFun, Symbol: "p", Fun: Absent, Left: Absent, Right: Absent},
		{Type: HighOrderFun, Symbol: "w", Fun: 3, Left: 6, Right: 4},
		{Type: PredicateFun, Symbol: "q", Fun: Absent, Left: Absent, Right: Absent},
		{Type: MonadicFun, Symbol: "a", Fun: Absent, Left: 6, Right: 6},
		{Type: MonadicFun, Symbol: "b", Fun: Absent, Left: 6, Right: 6},
	}
	if diff := cmp.Diff(expected, descrs); diff != "" {
		t.Errorf("unexpected descriptors (-want +got):\n%s", diff)
	}
}

func TestLower_RelocationNeverTargetsSecondBranch(t *testing.T) {
	branches := []Computation{
		Fun("a"),
		Seq(Fun("a"), Fun("b"), Fun("c")),
		Branch("when", Pred("p"), Fun("a")),
		Filter("filter", Pred("p")),
		Choice("conditional", Pred("p"), Fun("a"), Fun("b")),
	}

	for _, comp := range branches {
		for _, n := range []int{0, 3} {
			pred := Pred("is_ip")
			_, n1 := Lower(n+1, pred)
			_, n2 := Lower(n1, comp)

			descrs, n3 := Lower(n, Choice("conditional", pred, comp, Fun("z")))
			assert.Equal(t, n2+1, n3)

			for _, d := range descrs[n1-n : n2-n] {
				assert.NotEqual(t, n2, d.Left, "%s: left link into second branch", comp)
				assert.NotEqual(t, n2, d.Right, "%s: right link into second branch", comp)
			}
		}
	}
}

func TestLower_Branch(t *testing.T) {
	descrs, next := Lower(0, Branch("when", Pred("p"), Seq(Fun("a"), Fun("b"))))

	assert.Equal(t, 4, next)
	assert.Equal(t, Descriptor{Type: HighOrderFun, Symbol: "when", Fun: 1, Left: 4, Right: 2}, descrs[0])
	assert.Equal(t, 3, descrs[2].Left)
	assert.Equal(t, 4, descrs[3].Right)
}

func TestLower_Filter(t *testing.T) {
	descrs, next := Lower(5, Filter("filter", PredOfArg("less", Prop("ip_ttl"), MustArg(uint64(5)))))

	assert.Equal(t, 8, next)
	require.Len(t, descrs, 3)
	assert.Equal(t, Descriptor{Type: HighOrderFun, Symbol: "filter", Fun: 6, Left: 8, Right: 8}, descrs[0])
	assert.Equal(t, 7, descrs[1].Fun)
	assert.Equal(t, 8, descrs[1].Arg.Len())
	assert.Equal(t, PropertyFun, descrs[2].Type)
}

func TestLower_LengthMatchesNodeCount(t *testing.T) {
	for name, term := range sampleTerms() {
		t.Run(name, func(t *testing.T) {
			for _, n := range []int{0, 1, 42} {
				descrs, next := Lower(n, term)
				assert.Len(t, descrs, countNodes(term))
				assert.Equal(t, n+len(descrs), next)
			}
		})
	}
}

func TestLower_ParentPrecedesChildren(t *testing.T) {
	for name, term := range sampleTerms() {
		t.Run(name, func(t *testing.T) {
			descrs, next := Lower(0, term)
			for i, d := range descrs {
				if d.Fun != Absent {
					assert.Equal(t, i+1, d.Fun)
				}
				for _, l := range []int{d.Left, d.Right} {
					if l == Absent {
						continue
					}
					assert.Greater(t, l, i)
					assert.LessOrEqual(t, l, next)
				}
			}
		})
	}
}

func TestLower_Idempotent(t *testing.T) {
	for name, term := range sampleTerms() {
		t.Run(name, func(t *testing.T) {
			first, n1 := Lower(3, term)
			second, n2 := Lower(3, term)
			assert.Equal(t, n1, n2)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("lowering is not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestLower_SequenceAssociativity(t *testing.T) {
	a := Choice("conditional", Pred("p"), Fun("a"), Fun("b"))
	b := Branch("when", Pred("q"), Fun("c"))
	c := Fun("d")

	left, nl := Lower(2, Seq(Seq(a, b), c))
	right, nr := Lower(2, Seq(a, Seq(b, c)))

	assert.Equal(t, nl, nr)
	assert.Equal(t, len(left), len(right))
	assert.Equal(t, left[0], right[0])
}

func TestLowerChain(t *testing.T) {
	descrs, next := LowerChain(1, []Function{Fun("inc"), FunArg("mark", MustArg(uint32(7))), Fun("kernel")})

	assert.Equal(t, 4, next)
	require.Len(t, descrs, 3)
	for i, d := range descrs {
		assert.Equal(t, MonadicFun, d.Type)
		assert.Equal(t, i+2, d.Left)
		assert.Equal(t, i+2, d.Right)
	}

	descrs, next = LowerChain(0, nil)
	assert.Empty(t, descrs)
	assert.Equal(t, 0, next)
}

func TestLower_Concurrent(t *testing.T) {
	terms := sampleTerms()
	expected := make(map[string][]Descriptor, len(terms))
	for name, term := range terms {
		expected[name], _ = Lower(0, term)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	failures := 0
	for range 8 {
		for name, term := range terms {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, _ := Lower(0, term)
				if !cmp.Equal(expected[name], got) {
					mu.Lock()
					failures++
					mu.Unlock()
				}
			}()
		}
	}
	wg.Wait()

	assert.Zero(t, failures)
}
