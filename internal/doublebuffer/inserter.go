package doublebuffer

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/internal/loopir"
	"github.com/tensorfuse/fusegen/pkg/errors"
)

// Inserter orchestrates cloning, synchronization insertion, and loop
// replacement for every double-buffered loop in a lowered body.
type Inserter struct {
	ctx    *lowerctx.Context
	info   *Info
	cloner *LoopCloner
}

// NewInserter binds an inserter to ctx and a populated Info.
func NewInserter(ctx *lowerctx.Context, info *Info) *Inserter {
	return &Inserter{ctx: ctx, info: info, cloner: NewLoopCloner(ctx, info)}
}

// Insert rewrites body, replacing every For loop present in insertionInfo
// with its Prolog/[CircularInitProlog]/Main/[Epilog] stage sequence, inner
// loops before outer ones (insertionInfo is drained one loop per pass).
func (ins *Inserter) Insert(body []loopir.Node, insertionInfo map[*loopir.For][]*loopir.LoadStoreOp) ([]loopir.Node, error) {
	remaining := map[*loopir.For][]*loopir.LoadStoreOp{}
	for k, v := range insertionInfo {
		remaining[k] = v
	}

	for len(remaining) > 0 {
		loop, loads, err := ins.pickInnermost(body, remaining)
		if err != nil {
			return nil, err
		}
		if loop == nil {
			break
		}
		rewritten, err := ins.insertOne(loop, loads)
		if err != nil {
			return nil, err
		}
		body = replaceLoop(body, loop, rewritten, remaining)
		delete(remaining, loop)
	}
	return body, nil
}

// pickInnermost returns the first loop in remaining encountered by a
// depth-first walk with no remaining double-buffered descendant, so
// processing proceeds inner-to-outer.
func (ins *Inserter) pickInnermost(body []loopir.Node, remaining map[*loopir.For][]*loopir.LoadStoreOp) (*loopir.For, []*loopir.LoadStoreOp, error) {
	var found *loopir.For
	var walk func(nodes []loopir.Node)
	walk = func(nodes []loopir.Node) {
		for _, n := range nodes {
			switch node := n.(type) {
			case *loopir.For:
				walk(node.Body)
				if found == nil {
					if _, ok := remaining[node]; ok {
						found = node
					}
				}
			case *loopir.IfThenElse:
				walk(node.Then)
				walk(node.Else)
			}
		}
	}
	walk(body)
	if found == nil {
		return nil, nil, nil
	}
	return found, remaining[found], nil
}

func (ins *Inserter) insertOne(loop *loopir.For, loads []*loopir.LoadStoreOp) ([]loopir.Node, error) {
	if err := ins.validateShape(loop); err != nil {
		return nil, err
	}

	var out []loopir.Node

	// Step 1: emit a DoubleBufferUpdate address computation for each
	// read-address-lifted load.
	for _, l := range loads {
		tv := l.OutputTV()
		if tv == nil {
			continue
		}
		if _, ok := ins.info.ReadSwitchIndex(tv); ok {
			out = append(out, &loopir.AddressCompute{
				ComputeKind: loopir.DoubleBufferUpdate,
				DataTv:      tv,
			})
		}
	}

	// Step 2: Prolog.
	prolog := ins.cloner.Clone(loop, loads, Prolog)
	hasCpAsync := anyCpAsync(loads)
	if hasCpAsync {
		prolog.Body = append(prolog.Body, &loopir.CpAsyncCommit{})
	}
	out = append(out, prolog)

	depth := ins.info.StageDepth(loop.Axis)
	peel := ins.ctx.ShouldPeelLoop(loop)
	anySharedWrite := EpilogRequired(loads)

	// Step 3: CircularInitProlog.
	if anySharedWrite && peel {
		out = append(out, ins.cloner.Clone(loop, loads, CircularInitProlog))
	}

	// Step 4: CpAsyncWait before the loop.
	if hasCpAsync {
		out = append(out, &loopir.CpAsyncWait{N: depth - 2})
	}

	// Step 5: RAW BlockSync before the loop.
	if ins.ctx.NeedsRawSync(loop) {
		out = append(out, &loopir.BlockSync{WarHazard: false})
	}

	// Step 6: Main, replacing the original loop.
	main := ins.cloner.Clone(loop, loads, Main)
	out = append(out, main)

	// Step 7: commit after the last buffered load in Main, wait before the
	// nearest preceding BlockSync (or at end of body).
	if hasCpAsync {
		insertCommitAndWait(main, loads, depth-2)
	}

	// Step 8: Epilog.
	if anySharedWrite {
		out = append(out, ins.cloner.Clone(loop, loads, Epilog))
	}

	return out, nil
}

func (ins *Inserter) validateShape(loop *loopir.For) error {
	if loop.Vectorized {
		return errors.New(errors.CodeUnsupportedLoopShape, "double buffered loop is vectorized")
	}
	if c, ok := loop.Start.(irtypes.Const); !ok || c.N != 0 {
		return errors.New(errors.CodeUnsupportedLoopShape, "double buffered loop does not start at 0")
	}
	if loop.Step != nil {
		if c, ok := loop.Step.(irtypes.Const); !ok || c.N != 1 {
			return errors.New(errors.CodeUnsupportedLoopShape, "double buffered loop step is not 1")
		}
	}
	return nil
}

func anyCpAsync(loads []*loopir.LoadStoreOp) bool {
	for _, l := range loads {
		if l.Op.OpType == irtypes.CpAsync {
			return true
		}
	}
	return false
}

// insertCommitAndWait finds the last body node containing a buffered load
// and inserts a CpAsyncCommit right after it, then searches backward for
// an existing BlockSync to place CpAsyncWait(n) immediately before (or
// appends the wait at the end of the body if none exists).
func insertCommitAndWait(loop *loopir.For, loads []*loopir.LoadStoreOp, n int) {
	lastLoadIdx := -1
	for i, node := range loop.Body {
		if containsLoad(node, loads) {
			lastLoadIdx = i
		}
	}
	if lastLoadIdx < 0 {
		return
	}

	body := make([]loopir.Node, 0, len(loop.Body)+2)
	body = append(body, loop.Body[:lastLoadIdx+1]...)
	body = append(body, &loopir.CpAsyncCommit{})
	body = append(body, loop.Body[lastLoadIdx+1:]...)

	syncIdx := -1
	for i := len(body) - 1; i > lastLoadIdx; i-- {
		if _, ok := body[i].(*loopir.BlockSync); ok {
			syncIdx = i
			break
		}
	}

	wait := &loopir.CpAsyncWait{N: n}
	if syncIdx >= 0 {
		out := make([]loopir.Node, 0, len(body)+1)
		out = append(out, body[:syncIdx]...)
		out = append(out, wait)
		out = append(out, body[syncIdx:]...)
		loop.Body = out
	} else {
		loop.Body = append(body, wait)
	}
}

func containsLoad(n loopir.Node, loads []*loopir.LoadStoreOp) bool {
	switch node := n.(type) {
	case *loopir.LoadStoreOp:
		return isBufferedOutput(loads, node.OutputTV())
	case *loopir.For:
		for _, c := range node.Body {
			if containsLoad(c, loads) {
				return true
			}
		}
	case *loopir.IfThenElse:
		for _, c := range append(append([]loopir.Node{}, node.Then...), node.Else...) {
			if containsLoad(c, loads) {
				return true
			}
		}
	}
	return false
}

// replaceLoop rewrites body (recursively) so the single occurrence of
// target is replaced by replacement, preserving position. Enclosing For
// nodes are copied; a copied loop that is still a key of remaining is
// re-keyed to its copy so it is processed in a later pass.
func replaceLoop(body []loopir.Node, target *loopir.For, replacement []loopir.Node, remaining map[*loopir.For][]*loopir.LoadStoreOp) []loopir.Node {
	var out []loopir.Node
	for _, n := range body {
		switch node := n.(type) {
		case *loopir.For:
			if node == target {
				out = append(out, replacement...)
				continue
			}
			clone := *node
			clone.Body = replaceLoop(node.Body, target, replacement, remaining)
			if loads, ok := remaining[node]; ok {
				delete(remaining, node)
				remaining[&clone] = loads
			}
			out = append(out, &clone)
		case *loopir.IfThenElse:
			clone := *node
			clone.Then = replaceLoop(node.Then, target, replacement, remaining)
			clone.Else = replaceLoop(node.Else, target, replacement, remaining)
			out = append(out, &clone)
		default:
			out = append(out, n)
		}
	}
	return out
}
