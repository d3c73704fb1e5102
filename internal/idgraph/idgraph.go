package idgraph

import "github.com/tensorfuse/fusegen/internal/irtypes"

// IdGraph is a single equivalence relation over IterDomains plus the
// derived definition/use edges between the resulting IdGroups. The
// definitions/uses facts recorded at InitializeId never change; what
// changes as MapIds merges groups is which facts fall into the same
// group, which is why DefinitionsOf/UsesOf recompute from those facts
// against current group membership rather than maintaining an
// incrementally-merged cache.
type IdGraph struct {
	idGroupOf   map[*irtypes.IterDomain]*groupNode
	exprGroupOf map[irtypes.Expression]*exprGroupNode
	idDefs      map[*irtypes.IterDomain][]irtypes.Expression
	idUses      map[*irtypes.IterDomain][]irtypes.Expression

	allIds   []*irtypes.IterDomain
	allExprs []irtypes.Expression
}

// New creates an empty IdGraph.
func New() *IdGraph {
	return &IdGraph{
		idGroupOf:   map[*irtypes.IterDomain]*groupNode{},
		exprGroupOf: map[irtypes.Expression]*exprGroupNode{},
		idDefs:      map[*irtypes.IterDomain][]irtypes.Expression{},
		idUses:      map[*irtypes.IterDomain][]irtypes.Expression{},
	}
}

// HasId reports whether id has been initialized into the graph.
func (g *IdGraph) HasId(id *irtypes.IterDomain) bool {
	_, ok := g.idGroupOf[id]
	return ok
}

// InitializeId creates a singleton IdGroup containing id and records its
// definitions/uses, creating singleton ExprGroups for any expression not
// already seen.
func (g *IdGraph) InitializeId(id *irtypes.IterDomain, definitions, uses []irtypes.Expression) {
	if g.HasId(id) {
		return
	}
	g.idGroupOf[id] = &groupNode{ids: map[*irtypes.IterDomain]struct{}{id: {}}, canon: id}
	g.allIds = append(g.allIds, id)
	g.idDefs[id] = definitions
	g.idUses[id] = uses
	for _, e := range definitions {
		g.exprGroupFor(e)
	}
	for _, e := range uses {
		g.exprGroupFor(e)
	}
}

func (g *IdGraph) exprGroupFor(e irtypes.Expression) *exprGroupNode {
	if n, ok := g.exprGroupOf[e]; ok {
		return canonicalizeExprGroup(n)
	}
	n := &exprGroupNode{exprs: map[irtypes.Expression]struct{}{e: {}}, canon: e}
	g.exprGroupOf[e] = n
	g.allExprs = append(g.allExprs, e)
	return n
}

// IdGroupOf returns the current IdGroup for id. id must already be
// initialized.
func (g *IdGraph) IdGroupOf(id *irtypes.IterDomain) IdGroup {
	n, ok := g.idGroupOf[id]
	if !ok {
		return IdGroup{}
	}
	return IdGroup{node: canonicalizeGroup(n)}
}

// ExprGroupOf returns the current ExprGroup for e. e must already appear
// as a definition/use of some initialized IterDomain, or have been merged
// via MapExprs.
func (g *IdGraph) ExprGroupOf(e irtypes.Expression) ExprGroup {
	n, ok := g.exprGroupOf[e]
	if !ok {
		return ExprGroup{}
	}
	return ExprGroup{node: canonicalizeExprGroup(n)}
}

// DisjointIdSet reports whether a and b currently belong to the same
// IdGroup.
func (g *IdGraph) DisjointIdSet(a, b *irtypes.IterDomain) bool {
	return g.IdGroupOf(a).Equal(g.IdGroupOf(b))
}

// MapIds unions the IdGroups of a and b and propagates congruence closure
// to a fixed point.
func (g *IdGraph) MapIds(a, b *irtypes.IterDomain) {
	ga, gb := g.idGroupOf[a], g.idGroupOf[b]
	if ga == nil || gb == nil {
		return
	}
	ra, rb := canonicalizeGroup(ga), canonicalizeGroup(gb)
	if ra == rb {
		return
	}
	mergeGroupNodes(ra, rb)
	g.saturate()
}

// MapExprs unions the ExprGroups of e1 and e2 directly, without expanding
// further congruence (the caller, MapThroughExpr, handles propagating the
// resulting input/output unions).
func (g *IdGraph) MapExprs(e1, e2 irtypes.Expression) {
	n1, n2 := g.exprGroupFor(e1), g.exprGroupFor(e2)
	mergeExprGroupNodes(n1, n2)
}

// MapThroughExpr unions e1 and e2's ExprGroups and the corresponding
// outputs (forward=true, used when e1/e2 are congruent "uses") or inputs
// (forward=false, used when e1/e2 are congruent "definitions") of the two
// expressions.
func (g *IdGraph) MapThroughExpr(e1, e2 irtypes.Expression, forward bool) {
	g.MapExprs(e1, e2)
	var a, b []*irtypes.IterDomain
	if forward {
		a, b = e1.Outputs(), e2.Outputs()
	} else {
		a, b = e1.Inputs(), e2.Inputs()
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] == nil || b[i] == nil {
			continue
		}
		ga, ok1 := g.idGroupOf[a[i]]
		gb, ok2 := g.idGroupOf[b[i]]
		if !ok1 || !ok2 {
			continue
		}
		ra, rb := canonicalizeGroup(ga), canonicalizeGroup(gb)
		if ra != rb {
			mergeGroupNodes(ra, rb)
		}
	}
}

// saturate repeatedly scans every group's uses (forward congruence) and
// definitions (backward congruence) for newly-congruent pairs, merging
// and rescanning until no merge changes the partition.
func (g *IdGraph) saturate() {
	for {
		changed := false
		for _, grp := range g.allGroupReps() {
			if g.scanPairs(g.UsesOf(IdGroup{node: grp}), true) {
				changed = true
			}
			if g.scanPairs(g.DefinitionsOf(IdGroup{node: grp}), false) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (g *IdGraph) scanPairs(list []ExprGroup, forward bool) bool {
	changed := false
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			e1, e2 := list[i].Rep(), list[j].Rep()
			if e1.node == e2.node {
				continue
			}
			if g.ExprsMap(e1.Any(), e2.Any(), forward) {
				g.MapThroughExpr(e1.Any(), e2.Any(), forward)
				changed = true
			}
		}
	}
	return changed
}

// allGroupReps returns the current canonical group for every initialized
// IterDomain, deduplicated.
func (g *IdGraph) allGroupReps() []*groupNode {
	seen := map[*groupNode]bool{}
	var out []*groupNode
	for _, id := range g.allIds {
		r := canonicalizeGroup(g.idGroupOf[id])
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// AllGroups returns every distinct IdGroup currently in the graph.
func (g *IdGraph) AllGroups() []IdGroup {
	var out []IdGroup
	for _, n := range g.allGroupReps() {
		out = append(out, IdGroup{node: n})
	}
	return out
}

// DefinitionsOf returns the ExprGroups whose outputs include a member of
// grp, i.e. unique_definitions_(grp).
func (g *IdGraph) DefinitionsOf(grp IdGroup) []ExprGroup {
	rep := canonicalizeGroup(grp.node)
	seen := map[*exprGroupNode]bool{}
	var out []ExprGroup
	for id := range rep.ids {
		for _, e := range g.idDefs[id] {
			n := canonicalizeExprGroup(g.exprGroupOf[e])
			if !seen[n] {
				seen[n] = true
				out = append(out, ExprGroup{node: n})
			}
		}
	}
	return out
}

// UsesOf returns the ExprGroups whose inputs include a member of grp,
// i.e. unique_uses_(grp).
func (g *IdGraph) UsesOf(grp IdGroup) []ExprGroup {
	rep := canonicalizeGroup(grp.node)
	seen := map[*exprGroupNode]bool{}
	var out []ExprGroup
	for id := range rep.ids {
		for _, e := range g.idUses[id] {
			n := canonicalizeExprGroup(g.exprGroupOf[e])
			if !seen[n] {
				seen[n] = true
				out = append(out, ExprGroup{node: n})
			}
		}
	}
	return out
}

// OutputGroups picks a representative Expression from eg and maps each of
// its outputs to its current IdGroup.
func (g *IdGraph) OutputGroups(eg ExprGroup) []IdGroup {
	rep := eg.Any()
	if rep == nil {
		return nil
	}
	var out []IdGroup
	for _, id := range rep.Outputs() {
		out = append(out, g.IdGroupOf(id))
	}
	return out
}

// InputGroups picks a representative Expression from eg and maps each of
// its inputs to its current IdGroup.
func (g *IdGraph) InputGroups(eg ExprGroup) []IdGroup {
	rep := eg.Any()
	if rep == nil {
		return nil
	}
	var out []IdGroup
	for _, id := range rep.Inputs() {
		out = append(out, g.IdGroupOf(id))
	}
	return out
}
