package idgraph

// AllDefinitionsOf performs a backward BFS from ids over the
// IdGroup -> ExprGroup -> IdGroup edges, collecting every ExprGroup
// reached.
func (g *IdGraph) AllDefinitionsOf(ids []IdGroup) []ExprGroup {
	visitedGroups := map[*groupNode]bool{}
	visitedExprs := map[*exprGroupNode]bool{}
	var order []ExprGroup
	queue := make([]*groupNode, 0, len(ids))
	for _, id := range ids {
		queue = append(queue, canonicalizeGroup(id.node))
	}
	for len(queue) > 0 {
		grp := queue[0]
		queue = queue[1:]
		if visitedGroups[grp] {
			continue
		}
		visitedGroups[grp] = true
		for _, eg := range g.DefinitionsOf(IdGroup{node: grp}) {
			n := canonicalizeExprGroup(eg.node)
			if visitedExprs[n] {
				continue
			}
			visitedExprs[n] = true
			order = append(order, ExprGroup{node: n})
			for _, in := range g.InputGroups(ExprGroup{node: n}) {
				queue = append(queue, canonicalizeGroup(in.node))
			}
		}
	}
	return order
}

// AllUsesOf performs a forward BFS from ids over the
// IdGroup -> ExprGroup -> IdGroup edges, collecting every ExprGroup
// reached.
func (g *IdGraph) AllUsesOf(ids []IdGroup) []ExprGroup {
	visitedGroups := map[*groupNode]bool{}
	visitedExprs := map[*exprGroupNode]bool{}
	var order []ExprGroup
	queue := make([]*groupNode, 0, len(ids))
	for _, id := range ids {
		queue = append(queue, canonicalizeGroup(id.node))
	}
	for len(queue) > 0 {
		grp := queue[0]
		queue = queue[1:]
		if visitedGroups[grp] {
			continue
		}
		visitedGroups[grp] = true
		for _, eg := range g.UsesOf(IdGroup{node: grp}) {
			n := canonicalizeExprGroup(eg.node)
			if visitedExprs[n] {
				continue
			}
			visitedExprs[n] = true
			order = append(order, ExprGroup{node: n})
			for _, out := range g.OutputGroups(ExprGroup{node: n}) {
				queue = append(queue, canonicalizeGroup(out.node))
			}
		}
	}
	return order
}

// GetExprsBetween performs a forward BFS from `from`, pruning expansion at
// any group also present in `to`, and returns the ExprGroups visited in
// traversal (topological) order.
func (g *IdGraph) GetExprsBetween(from, to []IdGroup) []ExprGroup {
	toSet := map[*groupNode]bool{}
	for _, t := range to {
		toSet[canonicalizeGroup(t.node)] = true
	}

	visitedGroups := map[*groupNode]bool{}
	visitedExprs := map[*exprGroupNode]bool{}
	var order []ExprGroup
	queue := make([]*groupNode, 0, len(from))
	for _, f := range from {
		queue = append(queue, canonicalizeGroup(f.node))
	}
	for len(queue) > 0 {
		grp := queue[0]
		queue = queue[1:]
		if visitedGroups[grp] {
			continue
		}
		visitedGroups[grp] = true
		if toSet[grp] {
			continue
		}
		for _, eg := range g.UsesOf(IdGroup{node: grp}) {
			n := canonicalizeExprGroup(eg.node)
			if visitedExprs[n] {
				continue
			}
			visitedExprs[n] = true
			order = append(order, ExprGroup{node: n})
			for _, out := range g.OutputGroups(ExprGroup{node: n}) {
				queue = append(queue, canonicalizeGroup(out.node))
			}
		}
	}
	return order
}

// BuildMapBetween maps each group in from to every group in to that is
// currently equivalent to it, preserving the order `to` was supplied in
// when one f maps to multiple t.
func (g *IdGraph) BuildMapBetween(from, to []IdGroup) map[IdGroup][]IdGroup {
	result := make(map[IdGroup][]IdGroup, len(from))
	for _, f := range from {
		fr := canonicalizeGroup(f.node)
		var matches []IdGroup
		for _, t := range to {
			if canonicalizeGroup(t.node) == fr {
				matches = append(matches, t)
			}
		}
		result[IdGroup{node: fr}] = matches
	}
	return result
}
