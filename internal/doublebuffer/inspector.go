package doublebuffer

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/pkg/errors"
)

// FusionInspector validates every (circular-)buffered TensorView in a
// fusion and populates an Info registry from the result.
type FusionInspector struct {
	ctx *lowerctx.Context
}

// NewFusionInspector binds an inspector to ctx.
func NewFusionInspector(ctx *lowerctx.Context) *FusionInspector {
	return &FusionInspector{ctx: ctx}
}

// Inspect validates every double- or circular-buffered TensorView in
// fusion and records the result in a fresh Info.
func (fi *FusionInspector) Inspect(fusion *irtypes.Fusion) (*Info, error) {
	info := NewInfo(fi.ctx)
	for _, tv := range fusion.AllTensorViews() {
		if !tv.IsDoubleBuffered() && !tv.IsCircularBuffered() {
			continue
		}
		pos, err := fi.validate(tv)
		if err != nil {
			return nil, err
		}
		axis := tv.Domain[pos]
		if err := info.SetDoubleBufferAxis(tv, axis); err != nil {
			return nil, err
		}
		info.SetOriginalAllocSize(tv, allocSizeFrom(tv, pos))
		if isReadAddressLiftEligible(fusion, tv) {
			info.SetReadSwitchIndex(tv, irtypes.NamedScalar{Name: tv.Name + "_read_switch"})
		}
	}
	return info, nil
}

// validate checks that tv is a legal double-buffer candidate and returns
// the chosen double-buffer axis position.
func (fi *FusionInspector) validate(tv *irtypes.TensorView) (int, error) {
	ls, ok := tv.Definition().(*irtypes.LoadStoreOp)
	if !ok || ls.In == nil {
		return 0, errors.New(errors.CodeInvalidAnnotation,
			"tensor "+tv.Name+" is buffered but its definition is not a LoadStoreOp with a TensorView input")
	}
	if tv.HasComputeWith() {
		return 0, errors.New(errors.CodeInvalidAnnotation,
			"tensor "+tv.Name+" is buffered but uses compute-with")
	}

	pos, err := GetDoubleBufferAxisPosition(tv)
	if err != nil {
		return 0, err
	}

	if producerPos := ls.In.GetComputePosition(tv); producerPos >= 0 && producerPos > pos {
		return 0, errors.New(errors.CodeInvalidAnnotation,
			"tensor "+tv.Name+"'s producer compute position exceeds its double buffer axis position")
	}

	switch tv.MemType {
	case irtypes.Shared:
		if ls.In.MemType != irtypes.Global {
			return 0, errors.New(errors.CodeInvalidAnnotation,
				"tensor "+tv.Name+" is shared-memory buffered but its producer is not in global memory")
		}
	case irtypes.Local:
		// Global -> Local and ? -> Local are both accepted.
	default:
		return 0, errors.New(errors.CodeInvalidAnnotation,
			"tensor "+tv.Name+" has unsupported buffered memory type "+tv.MemType.String())
	}

	return pos, nil
}

// GetDoubleBufferAxisPosition scans leftward from min(computeAtPosition,
// first Unroll position) for the first axis that is neither thread-parallel
// nor broadcast, and returns it as the double-buffer axis.
func GetDoubleBufferAxisPosition(tv *irtypes.TensorView) (int, error) {
	if tv.ComputeAtPosition <= 0 {
		return 0, errors.New(errors.CodeAxisNotFound,
			"tensor "+tv.Name+" has no compute-at position set")
	}

	firstUnroll := len(tv.Domain)
	for i, ax := range tv.Domain {
		if ax.ParallelType == irtypes.Unroll {
			firstUnroll = i
			break
		}
	}

	p := tv.ComputeAtPosition
	if firstUnroll < p {
		p = firstUnroll
	}
	if p <= 0 {
		return 0, errors.New(errors.CodeAxisNotFound, "valid double buffer axis not found for tensor "+tv.Name)
	}

	for i := p - 1; i >= 0; i-- {
		ax := tv.Domain[i]
		if !ax.ParallelType.IsThread() && !ax.IsBroadcast {
			return i, nil
		}
	}
	return 0, errors.New(errors.CodeAxisNotFound, "valid double buffer axis not found for tensor "+tv.Name)
}

// allocSizeFrom computes the per-stage allocation size as the product of
// every axis extent inside (to the right of) the double-buffer axis.
func allocSizeFrom(tv *irtypes.TensorView, axisPos int) irtypes.Value {
	var size irtypes.Value = irtypes.Const{N: 1}
	for _, ax := range tv.Domain[axisPos+1:] {
		size = irtypes.BinaryOp{Op: "*", LHS: size, RHS: ax.Extent}
	}
	return size
}

// isReadAddressLiftEligible reports whether tv qualifies for a read-switch
// index: shared memory, buffered, shouldLiftReadAddress, and every use in
// the fusion is an LdMatrix op.
func isReadAddressLiftEligible(fusion *irtypes.Fusion, tv *irtypes.TensorView) bool {
	if tv.MemType != irtypes.Shared || !tv.ShouldLiftReadAddress() {
		return false
	}
	if !tv.IsDoubleBuffered() && !tv.IsCircularBuffered() {
		return false
	}
	sawUse := false
	for _, e := range fusion.Exprs {
		ls, ok := e.(*irtypes.LoadStoreOp)
		if !ok || ls.In != tv {
			continue
		}
		sawUse = true
		if ls.OpType != irtypes.LdMatrix {
			return false
		}
	}
	return sawUse
}
