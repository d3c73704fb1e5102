package iterdomaingraphs

import (
	"github.com/tensorfuse/fusegen/internal/idgraph"
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/pkg/errors"
)

// SelfMapping records one instance of two distinct axes of the same
// TensorView ending up in the same LOOP group.
type SelfMapping struct {
	TV   *irtypes.TensorView
	A, B *irtypes.IterDomain
}

// IterDomainGraphs holds one IdGraph per Mode, each mode applying the
// previous mode's rules plus its own (EXACT has the fewest equivalences,
// LOOP the most), plus
// the self-mapping findings from the LOOP build.
type IterDomainGraphs struct {
	fusion *irtypes.Fusion
	graphs [numModes]*idgraph.IdGraph

	idDefs map[*irtypes.IterDomain][]irtypes.Expression
	idUses map[*irtypes.IterDomain][]irtypes.Expression

	selfMappings []SelfMapping
}

// Graph returns the IdGraph for mode m. Panics if Build has not run.
func (g *IterDomainGraphs) Graph(m Mode) *idgraph.IdGraph { return g.graphs[m] }

// Build constructs all four IdGraphs for fusion in dependency order:
// buildIterDomainDefinitionsAndUses -> initializeIdGraph(per mode) ->
// buildExactMap -> buildAlmostExactMap -> buildPermissiveMap -> the LOOP
// map (loop rule plus swizzle mapping), followed by
// validateAndPropagatePType and (unless allowSelfMapping) a self-mapping
// assertion. No separate loop-promotion map or index map is built.
func Build(fusion *irtypes.Fusion, allowSelfMapping bool) (*IterDomainGraphs, error) {
	g := &IterDomainGraphs{fusion: fusion}
	g.buildIterDomainDefinitionsAndUses()

	for m := Mode(0); m < numModes; m++ {
		g.graphs[m] = idgraph.New()
		g.initializeIdGraph(m)
	}

	applyExactRule(g.graphs[Exact], fusion.Exprs)
	applyExactRule(g.graphs[AlmostExact], fusion.Exprs)
	applyTrivialRule(g.graphs[AlmostExact], fusion.Exprs)

	applyExactRule(g.graphs[Permissive], fusion.Exprs)
	applyTrivialRule(g.graphs[Permissive], fusion.Exprs)
	applyPermissiveRule(g.graphs[Permissive], fusion.Exprs)

	applyExactRule(g.graphs[Loop], fusion.Exprs)
	applyTrivialRule(g.graphs[Loop], fusion.Exprs)
	applyPermissiveRule(g.graphs[Loop], fusion.Exprs)
	applyLoopRule(g.graphs[Loop], fusion)
	g.graphs[Loop].MapThroughLoopSwizzles()

	// buildIndexMap: the index variable allocated per LOOP-concrete axis is
	// the responsibility of lowerctx.Context, which is constructed from
	// this graph after Build succeeds — nothing to do here.

	if err := g.validateAndPropagatePType(); err != nil {
		return nil, err
	}

	g.computeSelfMappings()
	if err := g.assertNoSelfMapping(allowSelfMapping); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *IterDomainGraphs) buildIterDomainDefinitionsAndUses() {
	g.idDefs = map[*irtypes.IterDomain][]irtypes.Expression{}
	g.idUses = map[*irtypes.IterDomain][]irtypes.Expression{}
	for _, e := range g.fusion.Exprs {
		for _, out := range e.Outputs() {
			if out == nil {
				continue
			}
			g.idDefs[out] = append(g.idDefs[out], e)
		}
		for _, in := range e.Inputs() {
			if in == nil {
				continue
			}
			g.idUses[in] = append(g.idUses[in], e)
		}
	}
}

func (g *IterDomainGraphs) initializeIdGraph(m Mode) {
	for _, id := range g.fusion.AllIterDomains() {
		g.graphs[m].InitializeId(id, g.idDefs[id], g.idUses[id])
	}
}

func (g *IterDomainGraphs) computeSelfMappings() {
	loopGraph := g.graphs[Loop]
	for _, grp := range loopGraph.AllGroups() {
		members := grp.Members()
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i], members[j]
				if a.Owner != nil && a.Owner == b.Owner {
					g.selfMappings = append(g.selfMappings, SelfMapping{TV: a.Owner, A: a, B: b})
				}
			}
		}
	}
}

// HasSelfMapping reports whether any TensorView has two distinct axes that
// ended up in the same LOOP group.
func (g *IterDomainGraphs) HasSelfMapping() bool { return len(g.selfMappings) > 0 }

// SelfMappings returns every self-mapping instance found during Build.
func (g *IterDomainGraphs) SelfMappings() []SelfMapping { return g.selfMappings }

func (g *IterDomainGraphs) assertNoSelfMapping(allowSelfMapping bool) error {
	if allowSelfMapping || !g.HasSelfMapping() {
		return nil
	}
	first := g.selfMappings[0]
	return errors.New(errors.CodeSelfMapping,
		"tensor view "+first.TV.Name+" has self-mapped axes "+first.A.String()+" and "+first.B.String())
}
