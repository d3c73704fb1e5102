package pipeline

import (
	"encoding/json"

	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/loopir"
	"github.com/tensorfuse/fusegen/pkg/errors"
)

// irValue is the wire encoding of an irtypes.Value: a tagged union over
// Const/NamedScalar/BinaryOp, the only three Value variants the pass needs
// to reconstruct from a fusion document's IR payload.
type irValue struct {
	Kind string   `json:"kind"`
	N    int64    `json:"n,omitempty"`
	Name string   `json:"name,omitempty"`
	Op   string   `json:"op,omitempty"`
	LHS  *irValue `json:"lhs,omitempty"`
	RHS  *irValue `json:"rhs,omitempty"`
}

func (v *irValue) decode() (irtypes.Value, error) {
	if v == nil {
		return irtypes.Const{N: 0}, nil
	}
	switch v.Kind {
	case "const", "":
		return irtypes.Const{N: v.N}, nil
	case "scalar":
		return irtypes.NamedScalar{Name: v.Name}, nil
	case "binary":
		lhs, err := v.LHS.decode()
		if err != nil {
			return nil, err
		}
		rhs, err := v.RHS.decode()
		if err != nil {
			return nil, err
		}
		return irtypes.BinaryOp{Op: v.Op, LHS: lhs, RHS: rhs}, nil
	default:
		return nil, errors.New(errors.CodeParseError, "unknown value kind "+v.Kind)
	}
}

// irAxis is the wire encoding of one irtypes.IterDomain. Axes are identified
// within a document by Name, which must be unique within the document's
// tensor-and-expression graph since irAxisRef resolves by name.
type irAxis struct {
	Name         string   `json:"name"`
	ParallelType string   `json:"parallel_type,omitempty"`
	IsBroadcast  bool     `json:"is_broadcast,omitempty"`
	IsRFactor    bool     `json:"is_rfactor,omitempty"`
	Extent       *irValue `json:"extent,omitempty"`
}

var parallelTypeByName = map[string]irtypes.ParallelType{
	"Serial":    irtypes.Serial,
	"":          irtypes.Serial,
	"Unroll":    irtypes.Unroll,
	"Vectorize": irtypes.Vectorize,
	"TIDx":      irtypes.TIDx,
	"TIDy":      irtypes.TIDy,
	"TIDz":      irtypes.TIDz,
	"BIDx":      irtypes.BIDx,
	"BIDy":      irtypes.BIDy,
	"BIDz":      irtypes.BIDz,
}

var memTypeByName = map[string]irtypes.MemoryType{
	"Global": irtypes.Global,
	"":       irtypes.Global,
	"Shared": irtypes.Shared,
	"Local":  irtypes.Local,
}

var loadStoreOpTypeByName = map[string]irtypes.LoadStoreOpType{
	"Set":     irtypes.Set,
	"":        irtypes.Set,
	"CpAsync": irtypes.CpAsync,
	"LdMatrix": irtypes.LdMatrix,
}

func (a *irAxis) decode() (*irtypes.IterDomain, error) {
	extent, err := a.Extent.decode()
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "axis "+a.Name+" has invalid extent", err)
	}
	pt, ok := parallelTypeByName[a.ParallelType]
	if !ok {
		return nil, errors.New(errors.CodeParseError, "axis "+a.Name+" has unknown parallel type "+a.ParallelType)
	}
	id := irtypes.NewIterDomain(a.Name, extent).WithParallelType(pt)
	if a.IsBroadcast {
		id.WithBroadcast()
	}
	if a.IsRFactor {
		id.WithRFactor()
	}
	return id, nil
}

// irTensor is the wire encoding of one irtypes.TensorView. Domain entries
// are axis names, resolved against the document's flat axis pool.
type irTensor struct {
	Name                 string   `json:"name"`
	Domain               []string `json:"domain"`
	MemType              string   `json:"mem_type,omitempty"`
	ComputeAtPosition    int      `json:"compute_at_position,omitempty"`
	DoubleBuffered       bool     `json:"double_buffered,omitempty"`
	CircularBuffered     bool     `json:"circular_buffered,omitempty"`
	CircularBufferDepth  int      `json:"circular_buffer_depth,omitempty"`
	HasComputeWith       bool     `json:"has_compute_with,omitempty"`
	ShouldLiftReadAddr   bool     `json:"should_lift_read_address,omitempty"`
}

// irExpr is the wire encoding of one irtypes.Expression. Exactly the fields
// relevant to Kind are populated; axis/tensor names are resolved against
// the document's pools.
type irExpr struct {
	Kind string `json:"kind"`

	// split
	In         string `json:"in,omitempty"`
	Outer      string `json:"outer,omitempty"`
	Inner      string `json:"inner,omitempty"`
	Factor     int64  `json:"factor,omitempty"`
	InnerSplit bool   `json:"inner_split,omitempty"`

	// merge
	Out string `json:"out,omitempty"`

	// swizzle
	Type string `json:"type,omitempty"`
	InX  string `json:"in_x,omitempty"`
	InY  string `json:"in_y,omitempty"`
	OutX string `json:"out_x,omitempty"`
	OutY string `json:"out_y,omitempty"`

	// load_store
	OpType string `json:"op_type,omitempty"`
	InTv   string `json:"in_tv,omitempty"`
	OutTv  string `json:"out_tv,omitempty"`
}

// irFusion is the root wire schema of a FusionDocument's IRPayload: a flat
// pool of axes and tensors plus the ordered expression list that defines
// the fusion, and an optional lowered loop body to run the double-buffer
// pass over directly (callers that have already built a loop nest skip
// re-deriving one here).
type irFusion struct {
	Axes    []irAxis   `json:"axes"`
	Tensors []irTensor `json:"tensors"`
	Exprs   []irExpr   `json:"exprs"`
	Inputs  []string   `json:"inputs"`
	Outputs []string   `json:"outputs"`
	Body    []irNode   `json:"body,omitempty"`
}

// irNode is the wire encoding of one loopir.Node. Only the fields relevant
// to Kind are populated.
type irNode struct {
	Kind string `json:"kind"`

	// for
	Axis       string   `json:"axis,omitempty"`
	Start      *irValue `json:"start,omitempty"`
	Stop       *irValue `json:"stop,omitempty"`
	Step       *irValue `json:"step,omitempty"`
	Vectorized bool     `json:"vectorized,omitempty"`
	Body       []irNode `json:"body,omitempty"`

	// if_then_else
	Predicate string   `json:"predicate,omitempty"`
	Then      []irNode `json:"then,omitempty"`
	Else      []irNode `json:"else,omitempty"`

	// load_store
	OutTv           string `json:"out_tv,omitempty"`
	InlinePredicate bool   `json:"inline_predicate,omitempty"`

	// cp_async_wait
	N int `json:"n,omitempty"`

	// block_sync
	WarHazard bool `json:"war_hazard,omitempty"`
}

// decodedFusion is the decoder's output: the reconstructed Fusion plus
// lookups the pipeline needs to resolve the caller's options against it.
type decodedFusion struct {
	fusion  *irtypes.Fusion
	tvByName map[string]*irtypes.TensorView
	body    []loopir.Node
}

// decodeIRPayload parses raw (a FusionDocument.IRPayload JSON blob) into a
// Fusion plus, if present, an initial lowered loop body.
func decodeIRPayload(raw string) (*decodedFusion, error) {
	var wire irFusion
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "malformed ir_payload", err)
	}

	axisByName := make(map[string]*irtypes.IterDomain, len(wire.Axes))
	for i := range wire.Axes {
		id, err := wire.Axes[i].decode()
		if err != nil {
			return nil, err
		}
		axisByName[id.Name] = id
	}
	resolveAxis := func(name string) (*irtypes.IterDomain, error) {
		id, ok := axisByName[name]
		if !ok {
			return nil, errors.New(errors.CodeParseError, "undefined axis "+name)
		}
		return id, nil
	}

	tvByName := make(map[string]*irtypes.TensorView, len(wire.Tensors))
	for _, wt := range wire.Tensors {
		domain := make([]*irtypes.IterDomain, 0, len(wt.Domain))
		for _, axName := range wt.Domain {
			ax, err := resolveAxis(axName)
			if err != nil {
				return nil, err
			}
			domain = append(domain, ax)
		}
		mt, ok := memTypeByName[wt.MemType]
		if !ok {
			return nil, errors.New(errors.CodeParseError, "tensor "+wt.Name+" has unknown memory type "+wt.MemType)
		}
		tv := irtypes.NewTensorView(wt.Name, domain...)
		tv.MemType = mt
		tv.ComputeAtPosition = wt.ComputeAtPosition
		if wt.DoubleBuffered {
			tv.MarkDoubleBuffered()
		}
		if wt.CircularBuffered {
			depth := wt.CircularBufferDepth
			if depth < 2 {
				depth = 2
			}
			tv.MarkCircularBuffered(depth)
		}
		if wt.HasComputeWith {
			tv.MarkHasComputeWith()
		}
		if wt.ShouldLiftReadAddr {
			tv.MarkShouldLiftReadAddress()
		}
		tvByName[wt.Name] = tv
	}
	resolveTV := func(name string) (*irtypes.TensorView, error) {
		tv, ok := tvByName[name]
		if !ok {
			return nil, errors.New(errors.CodeParseError, "undefined tensor "+name)
		}
		return tv, nil
	}

	fusion := irtypes.NewFusion()
	for _, name := range wire.Inputs {
		tv, err := resolveTV(name)
		if err != nil {
			return nil, err
		}
		fusion.Inputs = append(fusion.Inputs, tv)
	}
	for _, name := range wire.Outputs {
		tv, err := resolveTV(name)
		if err != nil {
			return nil, err
		}
		fusion.Outputs = append(fusion.Outputs, tv)
	}

	for _, we := range wire.Exprs {
		expr, err := decodeExpr(we, resolveAxis, resolveTV)
		if err != nil {
			return nil, err
		}
		fusion.AddExpr(expr)
	}

	body, err := decodeNodes(wire.Body, resolveAxis, resolveTV)
	if err != nil {
		return nil, err
	}

	return &decodedFusion{fusion: fusion, tvByName: tvByName, body: body}, nil
}

func decodeExpr(we irExpr, resolveAxis func(string) (*irtypes.IterDomain, error), resolveTV func(string) (*irtypes.TensorView, error)) (irtypes.Expression, error) {
	switch we.Kind {
	case "split":
		in, err := resolveAxis(we.In)
		if err != nil {
			return nil, err
		}
		outer, err := resolveAxis(we.Outer)
		if err != nil {
			return nil, err
		}
		inner, err := resolveAxis(we.Inner)
		if err != nil {
			return nil, err
		}
		return &irtypes.SplitOp{In: in, Outer: outer, Inner: inner, Factor: we.Factor, InnerSplit: we.InnerSplit}, nil
	case "merge":
		outer, err := resolveAxis(we.Outer)
		if err != nil {
			return nil, err
		}
		inner, err := resolveAxis(we.Inner)
		if err != nil {
			return nil, err
		}
		out, err := resolveAxis(we.Out)
		if err != nil {
			return nil, err
		}
		return &irtypes.MergeOp{Outer: outer, Inner: inner, Out: out}, nil
	case "swizzle":
		inX, err := resolveAxis(we.InX)
		if err != nil {
			return nil, err
		}
		inY, err := resolveAxis(we.InY)
		if err != nil {
			return nil, err
		}
		outX, err := resolveAxis(we.OutX)
		if err != nil {
			return nil, err
		}
		outY, err := resolveAxis(we.OutY)
		if err != nil {
			return nil, err
		}
		return &irtypes.SwizzleOp{Type: we.Type, InX: inX, InY: inY, OutX: outX, OutY: outY}, nil
	case "load_store":
		opType, ok := loadStoreOpTypeByName[we.OpType]
		if !ok {
			return nil, errors.New(errors.CodeParseError, "load_store expr has unknown op type "+we.OpType)
		}
		in, err := resolveTV(we.InTv)
		if err != nil {
			return nil, err
		}
		out, err := resolveTV(we.OutTv)
		if err != nil {
			return nil, err
		}
		return &irtypes.LoadStoreOp{OpType: opType, In: in, Out: out}, nil
	default:
		return nil, errors.New(errors.CodeParseError, "unknown expr kind "+we.Kind)
	}
}

func decodeNodes(nodes []irNode, resolveAxis func(string) (*irtypes.IterDomain, error), resolveTV func(string) (*irtypes.TensorView, error)) ([]loopir.Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]loopir.Node, 0, len(nodes))
	for _, n := range nodes {
		decoded, err := decodeNode(n, resolveAxis, resolveTV)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

func decodeNode(n irNode, resolveAxis func(string) (*irtypes.IterDomain, error), resolveTV func(string) (*irtypes.TensorView, error)) (loopir.Node, error) {
	switch n.Kind {
	case "for":
		axis, err := resolveAxis(n.Axis)
		if err != nil {
			return nil, err
		}
		start, err := n.Start.decode()
		if err != nil {
			return nil, err
		}
		stop, err := n.Stop.decode()
		if err != nil {
			return nil, err
		}
		step, err := n.Step.decode()
		if err != nil {
			return nil, err
		}
		body, err := decodeNodes(n.Body, resolveAxis, resolveTV)
		if err != nil {
			return nil, err
		}
		return &loopir.For{Axis: axis, Start: start, Stop: stop, Step: step, Vectorized: n.Vectorized, Body: body}, nil
	case "if_then_else":
		then, err := decodeNodes(n.Then, resolveAxis, resolveTV)
		if err != nil {
			return nil, err
		}
		els, err := decodeNodes(n.Else, resolveAxis, resolveTV)
		if err != nil {
			return nil, err
		}
		return &loopir.IfThenElse{Predicate: n.Predicate, Then: then, Else: els}, nil
	case "load_store":
		tv, err := resolveTV(n.OutTv)
		if err != nil {
			return nil, err
		}
		ls, ok := tv.Definition().(*irtypes.LoadStoreOp)
		if !ok {
			return nil, errors.New(errors.CodeParseError, "loop body references tensor "+n.OutTv+" with no LoadStoreOp definition")
		}
		return &loopir.LoadStoreOp{Op: ls, InlinePredicate: n.InlinePredicate}, nil
	case "cp_async_commit":
		return &loopir.CpAsyncCommit{}, nil
	case "cp_async_wait":
		return &loopir.CpAsyncWait{N: n.N}, nil
	case "block_sync":
		return &loopir.BlockSync{WarHazard: n.WarHazard}, nil
	default:
		return nil, errors.New(errors.CodeParseError, "unknown loop node kind "+n.Kind)
	}
}
