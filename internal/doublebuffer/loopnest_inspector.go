package doublebuffer

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/internal/loopir"
	"github.com/tensorfuse/fusegen/pkg/errors"
)

// LoopNestInspector walks a lowered loop nest and groups every buffered
// load by the innermost enclosing For loop whose axis is the load's
// tensor's registered double-buffer axis.
type LoopNestInspector struct {
	ctx  *lowerctx.Context
	info *Info
}

// NewLoopNestInspector binds an inspector to ctx and a populated Info.
func NewLoopNestInspector(ctx *lowerctx.Context, info *Info) *LoopNestInspector {
	return &LoopNestInspector{ctx: ctx, info: info}
}

// Inspect returns, for every For loop that encloses at least one buffered
// load at its own double-buffer axis, the list of loads it owns.
func (ni *LoopNestInspector) Inspect(body []loopir.Node) (map[*loopir.For][]*loopir.LoadStoreOp, error) {
	result := map[*loopir.For][]*loopir.LoadStoreOp{}
	if err := ni.walk(body, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (ni *LoopNestInspector) walk(body []loopir.Node, stack []*loopir.For, result map[*loopir.For][]*loopir.LoadStoreOp) error {
	for _, n := range body {
		switch node := n.(type) {
		case *loopir.For:
			if err := ni.walk(node.Body, append(stack, node), result); err != nil {
				return err
			}
		case *loopir.IfThenElse:
			if err := ni.walk(node.Then, stack, result); err != nil {
				return err
			}
			if err := ni.walk(node.Else, stack, result); err != nil {
				return err
			}
		case *loopir.LoadStoreOp:
			tv := node.OutputTV()
			if tv == nil {
				continue
			}
			axis, ok := ni.info.AxisOf(tv)
			if !ok {
				continue
			}
			loop := ni.enclosingLoop(stack, axis)
			if loop == nil {
				return errors.New(errors.CodeMissingDoubleBufferLoop,
					"tensor "+tv.Name+" is buffered but no enclosing loop maps to its double buffer axis")
			}
			result[loop] = append(result[loop], node)
		}
	}
	return nil
}

func (ni *LoopNestInspector) enclosingLoop(stack []*loopir.For, axis *irtypes.IterDomain) *loopir.For {
	concrete := ni.ctx.GetConcreteMappedID(axis)
	for i := len(stack) - 1; i >= 0; i-- {
		if ni.ctx.GetConcreteMappedID(stack[i].Axis) == concrete {
			return stack[i]
		}
	}
	return nil
}
