package idgraph

import "github.com/tensorfuse/fusegen/internal/irtypes"

// ExprsMap returns true iff first and second are structurally congruent:
// same kind, matching IdGroups at every input (forward) or output
// (!forward) position, and equal kind-specific attributes.
func (g *IdGraph) ExprsMap(first, second irtypes.Expression, forward bool) bool {
	if first == nil || second == nil {
		return false
	}
	if first.Kind() != second.Kind() {
		return false
	}

	var a, b []*irtypes.IterDomain
	if forward {
		a, b = first.Inputs(), second.Inputs()
	} else {
		a, b = first.Outputs(), second.Outputs()
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !g.IdGroupOf(a[i]).Equal(g.IdGroupOf(b[i])) {
			return false
		}
	}

	switch first.Kind() {
	case irtypes.KindSplit:
		s1, s2 := first.(*irtypes.SplitOp), second.(*irtypes.SplitOp)
		if s1.Factor != s2.Factor || s1.InnerSplit != s2.InnerSplit {
			return false
		}
	case irtypes.KindMerge:
		m1, m2 := first.(*irtypes.MergeOp), second.(*irtypes.MergeOp)
		if !irtypes.StructurallyEqual(m1.Outer.Extent, m2.Outer.Extent) {
			return false
		}
		if !irtypes.StructurallyEqual(m1.Inner.Extent, m2.Inner.Extent) {
			return false
		}
	case irtypes.KindSwizzle:
		w1, w2 := first.(*irtypes.SwizzleOp), second.(*irtypes.SwizzleOp)
		if w1.Type != w2.Type {
			return false
		}
	case irtypes.KindLoadStoreOp:
		l1, l2 := first.(*irtypes.LoadStoreOp), second.(*irtypes.LoadStoreOp)
		if l1.OpType != l2.OpType {
			return false
		}
	}
	return true
}

// IdPair is an identity-mapped pair produced by IsTrivialExpr.
type IdPair struct{ A, B *irtypes.IterDomain }

// IsTrivialExpr recognises Split-by-1, Merge-with-a-size-1-input, and
// identity Swizzles, returning the pairs that should be treated as
// equivalent regardless of the general congruence rule.
func IsTrivialExpr(e irtypes.Expression) []IdPair {
	switch v := e.(type) {
	case *irtypes.SplitOp:
		if v.Factor != 1 {
			return nil
		}
		if v.InnerSplit {
			return []IdPair{{v.In, v.Outer}}
		}
		return []IdPair{{v.In, v.Inner}}
	case *irtypes.MergeOp:
		if isUnitExtent(v.Outer.Extent) {
			return []IdPair{{v.Inner, v.Out}}
		}
		if isUnitExtent(v.Inner.Extent) {
			return []IdPair{{v.Outer, v.Out}}
		}
		return nil
	case *irtypes.SwizzleOp:
		if v.Type != "Identity" {
			return nil
		}
		return []IdPair{{v.InX, v.OutX}, {v.InY, v.OutY}}
	default:
		return nil
	}
}

func isUnitExtent(v irtypes.Value) bool {
	c, ok := v.(irtypes.Const)
	return ok && c.N == 1
}

// MapThroughLoopSwizzles unions every SwizzleOp's input IdGroups with its
// corresponding output IdGroups: in LOOP mode, loop swizzles are identity
// for indexing purposes regardless of swizzle type.
func (g *IdGraph) MapThroughLoopSwizzles() {
	for _, e := range g.allExprs {
		sw, ok := e.(*irtypes.SwizzleOp)
		if !ok {
			continue
		}
		if sw.InX != nil && sw.OutX != nil {
			g.MapIds(sw.InX, sw.OutX)
		}
		if sw.InY != nil && sw.OutY != nil {
			g.MapIds(sw.InY, sw.OutY)
		}
	}
}
