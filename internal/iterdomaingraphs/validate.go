package iterdomaingraphs

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/pkg/errors"
)

// validateAndPropagatePType runs after the LOOP graph is fully built: for
// every LOOP group, collect the non-Serial parallel types among its
// members; more than one distinct type is a conflict, otherwise every
// member is assigned that type.
func (g *IterDomainGraphs) validateAndPropagatePType() error {
	for _, grp := range g.graphs[Loop].AllGroups() {
		members := grp.Members()
		var pt *irtypes.ParallelType
		for _, id := range members {
			if id.ParallelType == irtypes.Serial {
				continue
			}
			if pt == nil {
				p := id.ParallelType
				pt = &p
			} else if *pt != id.ParallelType {
				return errors.New(errors.CodeParallelTypeConflict,
					"loop group contains conflicting parallel types "+pt.String()+" and "+id.ParallelType.String())
			}
		}
		if pt == nil {
			continue
		}
		for _, id := range members {
			id.ParallelType = *pt
		}
	}
	return nil
}
