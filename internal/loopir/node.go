// Package loopir is the lowered kernel expression tree the double-buffer
// pass rewrites: a tagged-variant node type (For, IfThenElse, and leaf ops)
// traversed with a pair of pre-order match / post-order rewrite passes
// rather than a runtime type-switch class hierarchy.
package loopir

import (
	"strconv"

	"github.com/tensorfuse/fusegen/internal/irtypes"
)

// Node is any member of the lowered loop tree. Kind reports the tagged
// variant so callers can type-switch without relying on inheritance.
type Node interface {
	Kind() NodeKind
	String() string
}

// NodeKind tags the concrete variant of a Node.
type NodeKind int

const (
	KindFor NodeKind = iota
	KindIfThenElse
	KindLoadStoreOp
	KindAddressCompute
	KindCpAsyncCommit
	KindCpAsyncWait
	KindBlockSync
)

func (k NodeKind) String() string {
	switch k {
	case KindFor:
		return "For"
	case KindIfThenElse:
		return "IfThenElse"
	case KindLoadStoreOp:
		return "LoadStoreOp"
	case KindAddressCompute:
		return "AddressCompute"
	case KindCpAsyncCommit:
		return "CpAsyncCommit"
	case KindCpAsyncWait:
		return "CpAsyncWait"
	case KindBlockSync:
		return "BlockSync"
	default:
		return "Unknown"
	}
}

// For is a loop over a single IterDomain axis, start <= i < stop, step 1
// unless Step is set otherwise. Vectorized loops are marked via Vectorized.
type For struct {
	Axis       *irtypes.IterDomain
	Start      irtypes.Value
	Stop       irtypes.Value
	Step       irtypes.Value
	Vectorized bool
	Body       []Node
}

func (f *For) Kind() NodeKind { return KindFor }
func (f *For) String() string {
	return "for(" + f.Axis.String() + " = " + valStr(f.Start) + " .. " + valStr(f.Stop) + ")"
}

func valStr(v irtypes.Value) string {
	if v == nil {
		return "?"
	}
	return v.String()
}

// IfThenElse guards Then/Else bodies behind a runtime predicate described
// only by name (the predicate expression IR itself is out of scope for
// this pass).
type IfThenElse struct {
	Predicate string
	Then      []Node
	Else      []Node
}

func (i *IfThenElse) Kind() NodeKind { return KindIfThenElse }
func (i *IfThenElse) String() string { return "if(" + i.Predicate + ")" }

// LoadStoreOp wraps an irtypes.LoadStoreOp as a loop-tree leaf, optionally
// carrying an inline predicate (the prolog cloner rebuilds a fresh node
// without one to decouple predication).
type LoadStoreOp struct {
	Op              *irtypes.LoadStoreOp
	InlinePredicate bool
}

func (l *LoadStoreOp) Kind() NodeKind { return KindLoadStoreOp }
func (l *LoadStoreOp) String() string { return l.Op.String() }

// OutputTV returns the TensorView this load/store writes, or nil.
func (l *LoadStoreOp) OutputTV() *irtypes.TensorView { return l.Op.Out }

// AddressComputeKind distinguishes the two kinds of pointer-arithmetic leaf
// the double-buffer pass cares about.
type AddressComputeKind int

const (
	DoubleBufferUpdate AddressComputeKind = iota
	GmemIncrement
)

func (k AddressComputeKind) String() string {
	if k == DoubleBufferUpdate {
		return "DOUBLE_BUFFER_UPDATE"
	}
	return "GMEM_INCREMENT"
}

// AddressCompute is a pointer-arithmetic leaf: a gmem pointer increment, or
// a rotating shared-memory read-offset update.
type AddressCompute struct {
	ComputeKind AddressComputeKind
	DataTv      *irtypes.TensorView
	// SwitchSizeBytes and StageDepth are only meaningful for
	// DoubleBufferUpdate nodes.
	SwitchSizeBytes irtypes.Value
	StageDepth      int
	// Decrement flips a GmemIncrement into its inverse, used by the
	// CircularInitProlog stage.
	Decrement bool
}

func (a *AddressCompute) Kind() NodeKind { return KindAddressCompute }
func (a *AddressCompute) String() string {
	name := "addr(" + a.ComputeKind.String()
	if a.DataTv != nil {
		name += " " + a.DataTv.Name
	}
	if a.Decrement {
		name += " dec"
	}
	return name + ")"
}

// CpAsyncCommit groups outstanding cp.async copies into one batch.
type CpAsyncCommit struct{}

func (c *CpAsyncCommit) Kind() NodeKind { return KindCpAsyncCommit }
func (c *CpAsyncCommit) String() string { return "cp.async.commit_group" }

// CpAsyncWait blocks until at most N cp.async batches remain outstanding.
type CpAsyncWait struct{ N int }

func (c *CpAsyncWait) Kind() NodeKind { return KindCpAsyncWait }
func (c *CpAsyncWait) String() string { return "cp.async.wait_group " + strconv.Itoa(c.N) }

// BlockSync is a __syncthreads() barrier. WarHazard marks a sync inserted
// to guard a write-after-read hazard rather than a plain RAW hazard.
type BlockSync struct{ WarHazard bool }

func (b *BlockSync) Kind() NodeKind { return KindBlockSync }
func (b *BlockSync) String() string {
	if b.WarHazard {
		return "__syncthreads() /* war */"
	}
	return "__syncthreads()"
}
