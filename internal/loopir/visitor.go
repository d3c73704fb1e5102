package loopir

// Matcher inspects a Node in pre-order, before its children (if any) are
// visited. Returning false skips descending into the node's children.
type Matcher func(n Node) bool

// Rewriter transforms a Node in post-order, after its children have already
// been rewritten. Returning nil drops the node from its parent body.
type Rewriter func(n Node) Node

// Visitor walks a loop-tree body applying an optional pre-order Match and
// an optional post-order Rewrite, mirroring the match-then-rewrite shape
// the double-buffer cloner and inserter both need without requiring a
// type-switch-based visitor class per pass.
type Visitor struct {
	Match   Matcher
	Rewrite Rewriter
}

// Walk runs v over every node in body, returning the rewritten body. A nil
// Match always descends; a nil Rewrite leaves nodes as-is.
func (v Visitor) Walk(body []Node) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		rewritten := v.visit(n)
		if rewritten != nil {
			out = append(out, rewritten)
		}
	}
	return out
}

func (v Visitor) visit(n Node) Node {
	descend := true
	if v.Match != nil {
		descend = v.Match(n)
	}
	if descend {
		switch node := n.(type) {
		case *For:
			clone := *node
			clone.Body = v.Walk(node.Body)
			n = &clone
		case *IfThenElse:
			clone := *node
			clone.Then = v.Walk(node.Then)
			clone.Else = v.Walk(node.Else)
			n = &clone
		}
	}
	if v.Rewrite != nil {
		return v.Rewrite(n)
	}
	return n
}

// Find returns the first node (searched depth-first, pre-order) for which
// match returns true, or nil.
func Find(body []Node, match Matcher) Node {
	for _, n := range body {
		if match(n) {
			return n
		}
		var children []Node
		switch node := n.(type) {
		case *For:
			children = node.Body
		case *IfThenElse:
			children = append(append([]Node{}, node.Then...), node.Else...)
		}
		if children != nil {
			if found := Find(children, match); found != nil {
				return found
			}
		}
	}
	return nil
}

// Contains reports whether any node in body (recursively) satisfies match.
func Contains(body []Node, match Matcher) bool {
	return Find(body, match) != nil
}
