package iterdomaingraphs

import (
	"github.com/tensorfuse/fusegen/internal/idgraph"
	"github.com/tensorfuse/fusegen/internal/irtypes"
)

// applyExactRule maps producer and consumer IterDomains one-to-one through
// each LoadStoreOp (the only expression kind whose inputs and outputs are
// the same position-indexed axis list copied across TensorViews); Split,
// Merge, and Swizzle introduce genuinely new axes and are left to
// IdGraph's own congruence closure once some other rule seeds an
// equivalence on their inputs. Broadcast axes are never mapped, on either
// side, so equivalences never forward through them.
func applyExactRule(g *idgraph.IdGraph, exprs []irtypes.Expression) {
	for _, e := range exprs {
		ls, ok := e.(*irtypes.LoadStoreOp)
		if !ok {
			continue
		}
		ins, outs := ls.Inputs(), ls.Outputs()
		n := len(ins)
		if len(outs) < n {
			n = len(outs)
		}
		for i := 0; i < n; i++ {
			a, b := ins[i], outs[i]
			if a == nil || b == nil || a.IsBroadcast || b.IsBroadcast {
				continue
			}
			g.MapIds(a, b)
		}
	}
}

// applyTrivialRule adds the ALMOST_EXACT refinement: Split-by-1 and
// Merge-with-a-size-1-input become identity mappings.
func applyTrivialRule(g *idgraph.IdGraph, exprs []irtypes.Expression) {
	for _, e := range exprs {
		for _, pair := range idgraph.IsTrivialExpr(e) {
			g.MapIds(pair.A, pair.B)
		}
	}
}

// applyPermissiveRule adds the PERMISSIVE refinement: a broadcast
// IterDomain maps to the concrete IterDomain it resolves to. Replay of a
// general broadcasting binary op is out of scope for this IR, so the same
// position-correspondence used by applyExactRule stands in for "resolves
// to through replay": whichever op copies a producer axis into a
// consumer's domain at a matching position is exactly where a broadcast
// gets resolved against the consumer's concrete extent.
func applyPermissiveRule(g *idgraph.IdGraph, exprs []irtypes.Expression) {
	for _, e := range exprs {
		ls, ok := e.(*irtypes.LoadStoreOp)
		if !ok {
			continue
		}
		ins, outs := ls.Inputs(), ls.Outputs()
		n := len(ins)
		if len(outs) < n {
			n = len(outs)
		}
		for i := 0; i < n; i++ {
			a, b := ins[i], outs[i]
			if a == nil || b == nil {
				continue
			}
			if a.IsBroadcast != b.IsBroadcast {
				g.MapIds(a, b)
			}
		}
	}
}

// applyLoopRule adds the LOOP refinement: only leaf axes strictly to the
// left of a consumer's compute-at position are mapped, restricting the
// permissive rule's position-correspondence to that window.
func applyLoopRule(g *idgraph.IdGraph, fusion *irtypes.Fusion) {
	for _, e := range fusion.Exprs {
		ls, ok := e.(*irtypes.LoadStoreOp)
		if !ok {
			continue
		}
		consumer := ls.Out
		if consumer == nil {
			continue
		}
		ins, outs := ls.Inputs(), ls.Outputs()
		n := len(ins)
		if len(outs) < n {
			n = len(outs)
		}
		if n > consumer.ComputeAtPosition {
			n = consumer.ComputeAtPosition
		}
		for i := 0; i < n; i++ {
			a, b := ins[i], outs[i]
			if a == nil || b == nil {
				continue
			}
			g.MapIds(a, b)
		}
	}
}
