// Package idgraph implements a single equivalence relation over iteration
// domains (IdGroup) plus the derived Expression equivalence classes
// (ExprGroup) and definition/use edges between them. One IdGraph is built
// per mapping mode by internal/iterdomaingraphs.
package idgraph

import "github.com/tensorfuse/fusegen/internal/irtypes"

// groupNode is the mutable union-find cell behind one IdGroup. Nodes are
// redirected (never pointer-identity-stable after a merge) — callers must
// always canonicalize through Rep() before comparing or using a node as a
// map key.
type groupNode struct {
	redirect *groupNode
	ids      map[*irtypes.IterDomain]struct{}

	// canon is fixed when the node is created (the singleton it started
	// as) and never reassigned by a merge, so it stays the same
	// IterDomain across every call for the node's lifetime. Any() must
	// read this instead of ranging over ids — map iteration order is
	// randomized per call, and callers key stable state (compute-at
	// depth, double-buffer info) off this value.
	canon *irtypes.IterDomain
}

func canonicalizeGroup(n *groupNode) *groupNode {
	root := n
	for root.redirect != nil {
		root = root.redirect
	}
	for n != root && n.redirect != nil {
		next := n.redirect
		n.redirect = root
		n = next
	}
	return root
}

// IdGroup is a shared handle to an equivalence class of IterDomains. Two
// IdGroup values compare equal (via Rep()) iff they currently denote the
// same class — even if one was obtained before a merge that absorbed it
// into the other.
type IdGroup struct{ node *groupNode }

// Rep returns the current canonical handle for g, following any redirects
// left by subsequent merges.
func (g IdGroup) Rep() IdGroup {
	if g.node == nil {
		return g
	}
	return IdGroup{node: canonicalizeGroup(g.node)}
}

// Equal reports whether g and other currently denote the same class.
func (g IdGroup) Equal(other IdGroup) bool { return g.Rep().node == other.Rep().node }

// Valid reports whether g denotes a real group (vs. the zero value).
func (g IdGroup) Valid() bool { return g.node != nil }

// Members returns the IterDomains currently in g's class, in no
// guaranteed order.
func (g IdGroup) Members() []*irtypes.IterDomain {
	rep := canonicalizeGroup(g.node)
	out := make([]*irtypes.IterDomain, 0, len(rep.ids))
	for id := range rep.ids {
		out = append(out, id)
	}
	return out
}

// Any returns g's canonical representative IterDomain: the singleton g
// started as when first initialized into the graph. It is the same value
// on every call for as long as g's class exists, whether read for a
// structural attribute (parallel type, extent) or used as a stable map
// key (e.g. internal/lowerctx's concrete-mapped-ID cache).
func (g IdGroup) Any() *irtypes.IterDomain {
	return canonicalizeGroup(g.node).canon
}

func mergeGroupNodes(a, b *groupNode) *groupNode {
	a, b = canonicalizeGroup(a), canonicalizeGroup(b)
	if a == b {
		return a
	}
	if len(a.ids) < len(b.ids) {
		a, b = b, a
	}
	for id := range b.ids {
		a.ids[id] = struct{}{}
	}
	b.ids = nil
	b.redirect = a
	return a
}

// exprGroupNode is the ExprGroup analogue of groupNode.
type exprGroupNode struct {
	redirect *exprGroupNode
	exprs    map[irtypes.Expression]struct{}

	// canon is fixed at creation and never reassigned by a merge, same
	// rationale as groupNode.canon.
	canon irtypes.Expression
}

func canonicalizeExprGroup(n *exprGroupNode) *exprGroupNode {
	root := n
	for root.redirect != nil {
		root = root.redirect
	}
	for n != root && n.redirect != nil {
		next := n.redirect
		n.redirect = root
		n = next
	}
	return root
}

// ExprGroup is a shared handle to an equivalence class of Expressions.
type ExprGroup struct{ node *exprGroupNode }

// Rep returns the current canonical handle for eg.
func (eg ExprGroup) Rep() ExprGroup {
	if eg.node == nil {
		return eg
	}
	return ExprGroup{node: canonicalizeExprGroup(eg.node)}
}

// Equal reports whether eg and other currently denote the same class.
func (eg ExprGroup) Equal(other ExprGroup) bool { return eg.Rep().node == other.Rep().node }

// Valid reports whether eg denotes a real group.
func (eg ExprGroup) Valid() bool { return eg.node != nil }

// Any returns eg's canonical representative Expression: the singleton eg
// started as when first initialized into the graph, stable across calls
// (see IdGroup.Any).
func (eg ExprGroup) Any() irtypes.Expression {
	return canonicalizeExprGroup(eg.node).canon
}

func mergeExprGroupNodes(a, b *exprGroupNode) *exprGroupNode {
	a, b = canonicalizeExprGroup(a), canonicalizeExprGroup(b)
	if a == b {
		return a
	}
	if len(a.exprs) < len(b.exprs) {
		a, b = b, a
	}
	for e := range b.exprs {
		a.exprs[e] = struct{}{}
	}
	b.exprs = nil
	b.redirect = a
	return a
}
