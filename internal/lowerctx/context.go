// Package lowerctx carries the state every lowering pass needs but none of
// them owns: the compute-at map, the sync map, and predicate-peeling
// decisions. A *Context is passed explicitly into every pass entry point
// rather than reached for through a package-level singleton.
package lowerctx

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
	"github.com/tensorfuse/fusegen/internal/loopir"
)

// Context bundles the IterDomainGraphs built for the fusion together with
// the lowering-time facts (index variable allocation, RAW sync
// requirements, predicate-peeling eligibility) that accumulate as the
// surrounding passes the double-buffer pass consumes run.
type Context struct {
	graphs *iterdomaingraphs.IterDomainGraphs

	indexVars map[*irtypes.IterDomain]irtypes.Value

	rawSync map[*loopir.For]bool
	peel    map[*loopir.For]bool
}

// New wraps graphs in a fresh Context with empty sync/peel state.
func New(graphs *iterdomaingraphs.IterDomainGraphs) *Context {
	return &Context{
		graphs:    graphs,
		indexVars: map[*irtypes.IterDomain]irtypes.Value{},
		rawSync:   map[*loopir.For]bool{},
		peel:      map[*loopir.For]bool{},
	}
}

// Graphs returns the IterDomainGraphs this context was built from.
func (c *Context) Graphs() *iterdomaingraphs.IterDomainGraphs { return c.graphs }

// GetConcreteMappedID returns the representative IterDomain for id's LOOP
// group — the axis every loop-nest construction site should key off of
// instead of id itself, since any of id's group members denotes the same
// physical loop.
func (c *Context) GetConcreteMappedID(id *irtypes.IterDomain) *irtypes.IterDomain {
	grp := c.graphs.Graph(iterdomaingraphs.Loop).IdGroupOf(id)
	if !grp.Valid() {
		return id
	}
	return grp.Rep().Any()
}

// AreMapped reports whether a and b share a LOOP group.
func (c *Context) AreMapped(a, b *irtypes.IterDomain) bool {
	return c.graphs.Graph(iterdomaingraphs.Loop).DisjointIdSet(a, b)
}

// GetIndexVariable returns the index variable for id's LOOP-concrete axis,
// allocating a fresh NamedScalar keyed by the concrete representative the
// first time it is requested.
func (c *Context) GetIndexVariable(id *irtypes.IterDomain) irtypes.Value {
	concrete := c.GetConcreteMappedID(id)
	if v, ok := c.indexVars[concrete]; ok {
		return v
	}
	v := irtypes.NamedScalar{Name: "idx_" + concrete.Name}
	c.indexVars[concrete] = v
	return v
}

// SetNeedsRawSync records whether loop requires a read-after-write sync
// before its buffered loads can be consumed (normally set by the WAR/RAW
// sync pass that runs ahead of double buffering).
func (c *Context) SetNeedsRawSync(loop *loopir.For, needs bool) { c.rawSync[loop] = needs }

// NeedsRawSync reports the sync map's answer for loop.
func (c *Context) NeedsRawSync(loop *loopir.For) bool { return c.rawSync[loop] }

// SetShouldPeelLoop records whether predicate peeling applies to loop.
func (c *Context) SetShouldPeelLoop(loop *loopir.For, peel bool) { c.peel[loop] = peel }

// ShouldPeelLoop reports the predicate-peeling info's answer for loop.
func (c *Context) ShouldPeelLoop(loop *loopir.For) bool { return c.peel[loop] }
