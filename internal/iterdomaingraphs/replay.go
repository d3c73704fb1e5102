package iterdomaingraphs

import (
	"fmt"

	"github.com/tensorfuse/fusegen/internal/irtypes"
)

// AddReplayAs creates a fresh expression mirroring expr's structure but
// rooted at newInputs, registers its fresh outputs into every mode's
// IdGraph, and re-runs that mode's mapping rule restricted to the new
// expression so the replay becomes equivalent to expr in whichever modes
// the rule would have mapped it anyway.
func (g *IterDomainGraphs) AddReplayAs(newInputs []*irtypes.IterDomain, expr irtypes.Expression) (irtypes.Expression, error) {
	newExpr, err := mirror(newInputs, expr)
	if err != nil {
		return nil, err
	}

	for _, id := range newInputs {
		for m := Mode(0); m < numModes; m++ {
			if !g.graphs[m].HasId(id) {
				g.graphs[m].InitializeId(id, nil, []irtypes.Expression{newExpr})
			}
		}
	}
	for _, out := range newExpr.Outputs() {
		if out == nil {
			continue
		}
		for m := Mode(0); m < numModes; m++ {
			g.graphs[m].InitializeId(out, []irtypes.Expression{newExpr}, nil)
		}
	}

	one := []irtypes.Expression{newExpr}
	applyExactRule(g.graphs[Exact], one)
	applyExactRule(g.graphs[AlmostExact], one)
	applyTrivialRule(g.graphs[AlmostExact], one)
	applyExactRule(g.graphs[Permissive], one)
	applyTrivialRule(g.graphs[Permissive], one)
	applyPermissiveRule(g.graphs[Permissive], one)
	applyExactRule(g.graphs[Loop], one)
	applyTrivialRule(g.graphs[Loop], one)
	applyPermissiveRule(g.graphs[Loop], one)

	g.fusion.AddExpr(newExpr)
	return newExpr, nil
}

func mirror(newInputs []*irtypes.IterDomain, expr irtypes.Expression) (irtypes.Expression, error) {
	switch v := expr.(type) {
	case *irtypes.SplitOp:
		if len(newInputs) != 1 {
			return nil, fmt.Errorf("replaying Split requires exactly 1 input, got %d", len(newInputs))
		}
		outer := irtypes.NewIterDomain(v.Outer.Name+".replay", v.Outer.Extent).WithParallelType(v.Outer.ParallelType)
		inner := irtypes.NewIterDomain(v.Inner.Name+".replay", v.Inner.Extent).WithParallelType(v.Inner.ParallelType)
		return &irtypes.SplitOp{In: newInputs[0], Outer: outer, Inner: inner, Factor: v.Factor, InnerSplit: v.InnerSplit}, nil
	case *irtypes.MergeOp:
		if len(newInputs) != 2 {
			return nil, fmt.Errorf("replaying Merge requires exactly 2 inputs, got %d", len(newInputs))
		}
		out := irtypes.NewIterDomain(v.Out.Name+".replay", v.Out.Extent).WithParallelType(v.Out.ParallelType)
		return &irtypes.MergeOp{Outer: newInputs[0], Inner: newInputs[1], Out: out}, nil
	case *irtypes.SwizzleOp:
		if len(newInputs) != 2 {
			return nil, fmt.Errorf("replaying Swizzle requires exactly 2 inputs, got %d", len(newInputs))
		}
		outX := irtypes.NewIterDomain(v.OutX.Name+".replay", v.OutX.Extent)
		outY := irtypes.NewIterDomain(v.OutY.Name+".replay", v.OutY.Extent)
		return &irtypes.SwizzleOp{Type: v.Type, InX: newInputs[0], InY: newInputs[1], OutX: outX, OutY: outY}, nil
	default:
		return nil, fmt.Errorf("replay not supported for expression kind %s", expr.Kind())
	}
}

// UpdateComputeWith merges LOOP-mode groups for producer's axes against
// consumer's axes at every position strictly before producer's compute
// position with respect to consumer, reflecting a post-scheduling
// compute-with resolution.
func (g *IterDomainGraphs) UpdateComputeWith(producer, consumer *irtypes.TensorView) {
	pos := producer.GetComputePosition(consumer)
	if pos <= 0 {
		return
	}
	n := pos
	if len(producer.Domain) < n {
		n = len(producer.Domain)
	}
	if len(consumer.Domain) < n {
		n = len(consumer.Domain)
	}
	for i := 0; i < n; i++ {
		g.graphs[Loop].MapIds(producer.Domain[i], consumer.Domain[i])
	}
}
