package doublebuffer

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/internal/loopir"
)

// Stage is one of the four loop copies the pass produces.
type Stage int

const (
	Prolog Stage = iota
	Main
	Epilog
	CircularInitProlog
)

func (s Stage) String() string {
	switch s {
	case Prolog:
		return "Prolog"
	case Main:
		return "Main"
	case Epilog:
		return "Epilog"
	case CircularInitProlog:
		return "CircularInitProlog"
	default:
		return "Unknown"
	}
}

// LoopCloner produces a stage-specialized copy of a double-buffered loop.
type LoopCloner struct {
	ctx  *lowerctx.Context
	info *Info
}

// NewLoopCloner binds a cloner to ctx and a populated Info.
func NewLoopCloner(ctx *lowerctx.Context, info *Info) *LoopCloner {
	return &LoopCloner{ctx: ctx, info: info}
}

// EpilogRequired reports whether any load's output memory type is Shared:
// mixed Local+Shared load sets still require an epilog whenever any member
// writes Shared.
func EpilogRequired(loads []*loopir.LoadStoreOp) bool {
	for _, l := range loads {
		if tv := l.OutputTV(); tv != nil && tv.MemType == irtypes.Shared {
			return true
		}
	}
	return false
}

func isBufferedOutput(loads []*loopir.LoadStoreOp, tv *irtypes.TensorView) bool {
	for _, l := range loads {
		if l.OutputTV() == tv {
			return true
		}
	}
	return false
}

// Clone builds the stage-th specialized copy of loop given its buffered
// loads.
func (c *LoopCloner) Clone(loop *loopir.For, loads []*loopir.LoadStoreOp, stage Stage) *loopir.For {
	depth := c.info.StageDepth(loop.Axis)
	epilogRequired := EpilogRequired(loads)
	start, stop := c.rangeFor(loop, depth, stage, epilogRequired)

	clone := &loopir.For{
		Axis:       loop.Axis,
		Start:      start,
		Stop:       stop,
		Step:       loop.Step,
		Vectorized: loop.Vectorized,
	}
	clone.Body = c.cloneBody(loop, loop.Body, loads, stage, depth)
	return clone
}

func (c *LoopCloner) rangeFor(loop *loopir.For, depth int, stage Stage, epilogRequired bool) (irtypes.Value, irtypes.Value) {
	dMinus1 := irtypes.Const{N: int64(depth - 1)}
	switch stage {
	case Prolog:
		return irtypes.Const{N: 0}, dMinus1
	case Main:
		if epilogRequired {
			return loop.Start, irtypes.BinaryOp{Op: "-", LHS: loop.Stop, RHS: irtypes.Const{N: 1}}
		}
		return loop.Start, loop.Stop
	case Epilog:
		return irtypes.BinaryOp{Op: "-", LHS: loop.Stop, RHS: dMinus1}, loop.Stop
	case CircularInitProlog:
		return dMinus1, irtypes.Const{N: int64(depth)}
	default:
		return loop.Start, loop.Stop
	}
}

func (c *LoopCloner) cloneBody(loop *loopir.For, body []loopir.Node, loads []*loopir.LoadStoreOp, stage Stage, depth int) []loopir.Node {
	var out []loopir.Node
	for _, n := range body {
		switch stage {
		case Prolog:
			if kept := c.prologNode(n, loads); kept != nil {
				out = append(out, kept)
			}
		case Epilog:
			if !c.isAnnotatedLoad(n, loads) {
				out = append(out, n)
			}
		case CircularInitProlog:
			if kept := c.circularInitNode(n, loads); kept != nil {
				out = append(out, kept)
			}
		case Main:
			if kept := c.mainNode(loop, n, loads); kept != nil {
				out = append(out, kept)
			}
		}
	}
	if stage == Main {
		out = c.appendReadSwitchUpdates(out, loads, depth)
		if c.ctx.ShouldPeelLoop(loop) {
			out = hoistIncrements(out)
		}
	}
	return out
}

func (c *LoopCloner) isAnnotatedLoad(n loopir.Node, loads []*loopir.LoadStoreOp) bool {
	ls, ok := n.(*loopir.LoadStoreOp)
	return ok && isBufferedOutput(loads, ls.OutputTV())
}

func (c *LoopCloner) prologNode(n loopir.Node, loads []*loopir.LoadStoreOp) loopir.Node {
	switch node := n.(type) {
	case *loopir.LoadStoreOp:
		if !isBufferedOutput(loads, node.OutputTV()) {
			return nil
		}
		if node.InlinePredicate {
			fresh := *node.Op
			return &loopir.LoadStoreOp{Op: &fresh, InlinePredicate: false}
		}
		return node
	case *loopir.AddressCompute:
		if node.ComputeKind == loopir.DoubleBufferUpdate && isBufferedOutput(loads, node.DataTv) {
			return node
		}
		if node.ComputeKind == loopir.GmemIncrement {
			return node
		}
		return nil
	default:
		return nil
	}
}

func (c *LoopCloner) circularInitNode(n loopir.Node, loads []*loopir.LoadStoreOp) loopir.Node {
	switch node := n.(type) {
	case *loopir.LoadStoreOp:
		if isBufferedOutput(loads, node.OutputTV()) && node.Op.OpType == irtypes.Set {
			return node
		}
		return nil
	case *loopir.AddressCompute:
		if node.ComputeKind == loopir.GmemIncrement {
			dec := *node
			dec.Decrement = !node.Decrement
			return &dec
		}
		return nil
	default:
		return nil
	}
}

// mainNode applies the skip-cp.async-init rule: an initialization
// cp.async whose output TV is buffered and whose axis maps to loop, when
// peeling applies and every inner axis of the load's domain is either
// parallel or a compile-time constant, is elided (the CircularInitProlog
// takes over initializing it).
func (c *LoopCloner) mainNode(loop *loopir.For, n loopir.Node, loads []*loopir.LoadStoreOp) loopir.Node {
	ls, ok := n.(*loopir.LoadStoreOp)
	if !ok {
		return n
	}
	if ls.Op.OpType != irtypes.CpAsync || !isBufferedOutput(loads, ls.OutputTV()) {
		return n
	}
	if !c.ctx.ShouldPeelLoop(loop) {
		return n
	}
	axis, ok := c.info.AxisOf(ls.OutputTV())
	if !ok || !c.ctx.AreMapped(axis, loop.Axis) {
		return n
	}
	if allInnerAxesStaticOrParallel(ls.OutputTV(), axis) {
		return nil
	}
	return n
}

func allInnerAxesStaticOrParallel(tv *irtypes.TensorView, axis *irtypes.IterDomain) bool {
	inner := false
	for _, ax := range tv.Domain {
		if !inner {
			inner = ax == axis
			continue
		}
		if ax.ParallelType != irtypes.Serial {
			continue
		}
		if !ax.Extent.IsConst() {
			return false
		}
	}
	return true
}

// appendReadSwitchUpdates appends one DOUBLE_BUFFER_UPDATE AddressCompute
// per buffered load whose TV has a registered read-switch index.
func (c *LoopCloner) appendReadSwitchUpdates(body []loopir.Node, loads []*loopir.LoadStoreOp, depth int) []loopir.Node {
	for _, l := range loads {
		tv := l.OutputTV()
		if tv == nil {
			continue
		}
		if _, ok := c.info.ReadSwitchIndex(tv); !ok {
			continue
		}
		allocSize, _ := c.info.OriginalAllocSize(tv)
		elemSize := irtypes.Const{N: 4}
		body = append(body, &loopir.AddressCompute{
			ComputeKind:     loopir.DoubleBufferUpdate,
			DataTv:          tv,
			SwitchSizeBytes: irtypes.BinaryOp{Op: "*", LHS: allocSize, RHS: elemSize},
			StageDepth:      depth,
		})
	}
	return body
}

// hoistIncrements reorders body so every GMEM_INCREMENT AddressCompute
// (including ones wrapped in a single-expression inner For) precedes every
// other node, compensating for the decrement CircularInitProlog already
// applied.
func hoistIncrements(body []loopir.Node) []loopir.Node {
	var increments, rest []loopir.Node
	for _, n := range body {
		if isGmemIncrement(n) {
			increments = append(increments, n)
		} else {
			rest = append(rest, n)
		}
	}
	return append(increments, rest...)
}

func isGmemIncrement(n loopir.Node) bool {
	switch node := n.(type) {
	case *loopir.AddressCompute:
		return node.ComputeKind == loopir.GmemIncrement
	case *loopir.For:
		return len(node.Body) == 1 && isGmemIncrement(node.Body[0])
	default:
		return false
	}
}
