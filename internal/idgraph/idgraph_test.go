package idgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/internal/irtypes"
)

func splitChain() (in, outer, inner *irtypes.IterDomain, split *irtypes.SplitOp) {
	in = irtypes.NewIterDomain("in", irtypes.Const{N: 256})
	outer = irtypes.NewIterDomain("outer", irtypes.Const{N: 8})
	inner = irtypes.NewIterDomain("inner", irtypes.Const{N: 32})
	split = &irtypes.SplitOp{In: in, Outer: outer, Inner: inner, Factor: 32, InnerSplit: true}
	return
}

func TestInitializeId_Idempotent(t *testing.T) {
	g := New()
	in, outer, inner, split := splitChain()
	g.InitializeId(in, nil, []irtypes.Expression{split})
	g.InitializeId(outer, []irtypes.Expression{split}, nil)
	g.InitializeId(inner, []irtypes.Expression{split}, nil)

	require.True(t, g.HasId(in))
	// re-initializing must not reset defs/uses or create a second group.
	g.InitializeId(in, nil, nil)
	assert.Len(t, g.UsesOf(g.IdGroupOf(in)), 1)
}

func TestMapIds_MergesGroupsAndIsCommutative(t *testing.T) {
	g := New()
	in, outer, inner, split := splitChain()
	g.InitializeId(in, nil, []irtypes.Expression{split})
	g.InitializeId(outer, []irtypes.Expression{split}, nil)
	g.InitializeId(inner, []irtypes.Expression{split}, nil)

	a := irtypes.NewIterDomain("a", irtypes.Const{N: 4})
	b := irtypes.NewIterDomain("b", irtypes.Const{N: 4})
	g.InitializeId(a, nil, nil)
	g.InitializeId(b, nil, nil)

	assert.False(t, g.DisjointIdSet(a, b))
	g.MapIds(a, b)
	assert.True(t, g.DisjointIdSet(a, b))
	assert.True(t, g.DisjointIdSet(b, a))
}

func TestMapIds_HandleStaysValidAfterFurtherMerges(t *testing.T) {
	g := New()
	a := irtypes.NewIterDomain("a", irtypes.Const{N: 1})
	b := irtypes.NewIterDomain("b", irtypes.Const{N: 1})
	c := irtypes.NewIterDomain("c", irtypes.Const{N: 1})
	g.InitializeId(a, nil, nil)
	g.InitializeId(b, nil, nil)
	g.InitializeId(c, nil, nil)

	handle := g.IdGroupOf(a)
	g.MapIds(a, b)
	g.MapIds(b, c)

	// the original handle, obtained before b and c joined the class,
	// must still resolve to the same (now larger) class.
	assert.True(t, handle.Equal(g.IdGroupOf(c)))
	assert.ElementsMatch(t, []*irtypes.IterDomain{a, b, c}, handle.Rep().Members())
}

// two independent Split expressions whose inputs are mapped should cascade:
// mapping the two `in` IterDomains forces ExprsMap(split1, split2, forward)
// to hold, which should in turn union the two Outer/Inner pairs.
func TestMapIds_CongruenceCascadesThroughSplit(t *testing.T) {
	g := New()

	in1 := irtypes.NewIterDomain("in1", irtypes.Const{N: 256})
	outer1 := irtypes.NewIterDomain("outer1", irtypes.Const{N: 8})
	inner1 := irtypes.NewIterDomain("inner1", irtypes.Const{N: 32})
	split1 := &irtypes.SplitOp{In: in1, Outer: outer1, Inner: inner1, Factor: 32, InnerSplit: true}

	in2 := irtypes.NewIterDomain("in2", irtypes.Const{N: 256})
	outer2 := irtypes.NewIterDomain("outer2", irtypes.Const{N: 8})
	inner2 := irtypes.NewIterDomain("inner2", irtypes.Const{N: 32})
	split2 := &irtypes.SplitOp{In: in2, Outer: outer2, Inner: inner2, Factor: 32, InnerSplit: true}

	g.InitializeId(in1, nil, []irtypes.Expression{split1})
	g.InitializeId(in2, nil, []irtypes.Expression{split2})
	g.InitializeId(outer1, []irtypes.Expression{split1}, nil)
	g.InitializeId(inner1, []irtypes.Expression{split1}, nil)
	g.InitializeId(outer2, []irtypes.Expression{split2}, nil)
	g.InitializeId(inner2, []irtypes.Expression{split2}, nil)

	g.MapIds(in1, in2)

	assert.True(t, g.DisjointIdSet(outer1, outer2), "outer axes should become congruent once inputs are mapped")
	assert.True(t, g.DisjointIdSet(inner1, inner2), "inner axes should become congruent once inputs are mapped")
}

func TestExprsMap_RequiresMatchingFactorAndGroups(t *testing.T) {
	g := New()
	_, _, _, split1 := splitChain()

	in2 := irtypes.NewIterDomain("in2", irtypes.Const{N: 256})
	outer2 := irtypes.NewIterDomain("outer2", irtypes.Const{N: 16})
	inner2 := irtypes.NewIterDomain("inner2", irtypes.Const{N: 16})
	split2 := &irtypes.SplitOp{In: in2, Outer: outer2, Inner: inner2, Factor: 16, InnerSplit: true}

	g.InitializeId(split1.In, nil, []irtypes.Expression{split1})
	g.InitializeId(in2, nil, []irtypes.Expression{split2})
	g.MapIds(split1.In, in2)

	// same input group now, but different Factor -> must not be congruent.
	assert.False(t, g.ExprsMap(split1, split2, true))
}

func TestBuildMapBetween_PreservesToOrder(t *testing.T) {
	g := New()
	from := irtypes.NewIterDomain("from", irtypes.Const{N: 4})
	t1 := irtypes.NewIterDomain("t1", irtypes.Const{N: 4})
	t2 := irtypes.NewIterDomain("t2", irtypes.Const{N: 4})
	t3 := irtypes.NewIterDomain("t3", irtypes.Const{N: 4})
	for _, id := range []*irtypes.IterDomain{from, t1, t2, t3} {
		g.InitializeId(id, nil, nil)
	}
	g.MapIds(from, t2)
	g.MapIds(from, t3)
	// t1 stays unmapped.

	result := g.BuildMapBetween(
		[]IdGroup{g.IdGroupOf(from)},
		[]IdGroup{g.IdGroupOf(t1), g.IdGroupOf(t2), g.IdGroupOf(t3)},
	)

	matches := result[g.IdGroupOf(from).Rep()]
	require.Len(t, matches, 2)
	assert.True(t, matches[0].Equal(g.IdGroupOf(t2)))
	assert.True(t, matches[1].Equal(g.IdGroupOf(t3)))
}

func TestAllUsesOf_AndAllDefinitionsOf_TraverseThroughExpr(t *testing.T) {
	g := New()
	in, outer, inner, split := splitChain()
	g.InitializeId(in, nil, []irtypes.Expression{split})
	g.InitializeId(outer, []irtypes.Expression{split}, nil)
	g.InitializeId(inner, []irtypes.Expression{split}, nil)

	uses := g.AllUsesOf([]IdGroup{g.IdGroupOf(in)})
	require.Len(t, uses, 1)
	assert.True(t, uses[0].Equal(g.ExprGroupOf(split)))

	defs := g.AllDefinitionsOf([]IdGroup{g.IdGroupOf(outer)})
	require.Len(t, defs, 1)
	assert.True(t, defs[0].Equal(g.ExprGroupOf(split)))
}

func TestIsTrivialExpr_SplitByOneAndMergeWithUnit(t *testing.T) {
	in := irtypes.NewIterDomain("in", irtypes.Const{N: 8})
	outer := irtypes.NewIterDomain("outer", irtypes.Const{N: 8})
	inner := irtypes.NewIterDomain("inner", irtypes.Const{N: 1})
	split := &irtypes.SplitOp{In: in, Outer: outer, Inner: inner, Factor: 1, InnerSplit: true}

	pairs := IsTrivialExpr(split)
	require.Len(t, pairs, 1)
	assert.Equal(t, in, pairs[0].A)
	assert.Equal(t, outer, pairs[0].B)

	unit := irtypes.NewIterDomain("unit", irtypes.Const{N: 1})
	bcast := irtypes.NewIterDomain("bcast", irtypes.Const{N: 8})
	out := irtypes.NewIterDomain("out", irtypes.Const{N: 8})
	merge := &irtypes.MergeOp{Outer: unit, Inner: bcast, Out: out}
	mp := IsTrivialExpr(merge)
	require.Len(t, mp, 1)
	assert.Equal(t, bcast, mp[0].A)
	assert.Equal(t, out, mp[0].B)
}

func TestMapThroughLoopSwizzles_UnionsBothAxes(t *testing.T) {
	g := New()
	inX := irtypes.NewIterDomain("inX", irtypes.Const{N: 4})
	inY := irtypes.NewIterDomain("inY", irtypes.Const{N: 4})
	outX := irtypes.NewIterDomain("outX", irtypes.Const{N: 4})
	outY := irtypes.NewIterDomain("outY", irtypes.Const{N: 4})
	sw := &irtypes.SwizzleOp{Type: "XOR", InX: inX, InY: inY, OutX: outX, OutY: outY}

	for _, id := range []*irtypes.IterDomain{inX, inY} {
		g.InitializeId(id, nil, []irtypes.Expression{sw})
	}
	for _, id := range []*irtypes.IterDomain{outX, outY} {
		g.InitializeId(id, []irtypes.Expression{sw}, nil)
	}

	g.MapThroughLoopSwizzles()

	assert.True(t, g.DisjointIdSet(inX, outX))
	assert.True(t, g.DisjointIdSet(inY, outY))
}
