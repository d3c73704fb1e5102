// Package doublebuffer implements the double-buffer loop transformation
// pass: given a lowered loop nest and the TensorViews annotated as
// double- or circular-buffered, it splits each double-buffered loop into
// Prolog/Main/Epilog/CircularInitProlog stages with the synchronization
// and pointer-increment adjustments asynchronous loads require.
package doublebuffer

import (
	"strconv"

	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/pkg/errors"
)

// Info is the per-fusion registry the inspector populates and the cloner
// and inserter query: which axis is the double-buffer axis per tensor,
// the stage depth per LOOP-concrete axis, the set of buffered loop axes,
// and the allocation/read-switch metadata used when cloning stage bodies.
type Info struct {
	ctx *lowerctx.Context

	axisByTV                 map[*irtypes.TensorView]*irtypes.IterDomain
	stageDepthByConcreteLoop map[*irtypes.IterDomain]int
	concreteBufferedLoop     map[*irtypes.IterDomain]bool
	originalAllocSizeByTV    map[*irtypes.TensorView]irtypes.Value
	readSwitchIndexByTV      map[*irtypes.TensorView]irtypes.Value
}

// NewInfo creates an empty Info bound to ctx, used to resolve LOOP-concrete
// axis identity.
func NewInfo(ctx *lowerctx.Context) *Info {
	return &Info{
		ctx:                      ctx,
		axisByTV:                 map[*irtypes.TensorView]*irtypes.IterDomain{},
		stageDepthByConcreteLoop: map[*irtypes.IterDomain]int{},
		concreteBufferedLoop:     map[*irtypes.IterDomain]bool{},
		originalAllocSizeByTV:    map[*irtypes.TensorView]irtypes.Value{},
		readSwitchIndexByTV:      map[*irtypes.TensorView]irtypes.Value{},
	}
}

// SetDoubleBufferAxis records axis as tv's double-buffer axis and derives
// its stage depth (2 for plain double buffering, tv.CircularBufferDepth()
// otherwise). Two tensors whose axes map to the same LOOP-concrete axis
// but declare different depths is a StageDepthConflict.
func (info *Info) SetDoubleBufferAxis(tv *irtypes.TensorView, axis *irtypes.IterDomain) error {
	depth := 2
	if tv.IsCircularBuffered() {
		depth = tv.CircularBufferDepth()
	}
	concrete := info.ctx.GetConcreteMappedID(axis)
	if existing, ok := info.stageDepthByConcreteLoop[concrete]; ok && existing != depth {
		return errors.New(errors.CodeStageDepthConflict,
			"axis "+concrete.String()+" already has stage depth "+strconv.Itoa(existing)+", conflicts with "+strconv.Itoa(depth)+" from tensor "+tv.Name)
	}
	info.axisByTV[tv] = axis
	info.stageDepthByConcreteLoop[concrete] = depth
	info.concreteBufferedLoop[concrete] = true
	return nil
}

// AxisOf returns tv's registered double-buffer axis.
func (info *Info) AxisOf(tv *irtypes.TensorView) (*irtypes.IterDomain, bool) {
	a, ok := info.axisByTV[tv]
	return a, ok
}

// StageDepth returns the stage depth registered for loopAxis's LOOP-concrete
// representative, or 0 if loopAxis is not a double-buffered loop axis.
func (info *Info) StageDepth(loopAxis *irtypes.IterDomain) int {
	return info.stageDepthByConcreteLoop[info.ctx.GetConcreteMappedID(loopAxis)]
}

// IsDoubleBufferedLoopAxis reports whether loopAxis's LOOP-concrete
// representative is one any annotated tensor maps into.
func (info *Info) IsDoubleBufferedLoopAxis(loopAxis *irtypes.IterDomain) bool {
	return info.concreteBufferedLoop[info.ctx.GetConcreteMappedID(loopAxis)]
}

// SetOriginalAllocSize records the per-stage allocation byte count for tv.
func (info *Info) SetOriginalAllocSize(tv *irtypes.TensorView, size irtypes.Value) {
	info.originalAllocSizeByTV[tv] = size
}

// OriginalAllocSize returns tv's registered per-stage allocation size.
func (info *Info) OriginalAllocSize(tv *irtypes.TensorView) (irtypes.Value, bool) {
	v, ok := info.originalAllocSizeByTV[tv]
	return v, ok
}

// SetReadSwitchIndex records the rotating read-offset scalar for tv.
func (info *Info) SetReadSwitchIndex(tv *irtypes.TensorView, v irtypes.Value) {
	info.readSwitchIndexByTV[tv] = v
}

// ReadSwitchIndex returns tv's registered read-switch-index scalar, if any.
func (info *Info) ReadSwitchIndex(tv *irtypes.TensorView) (irtypes.Value, bool) {
	v, ok := info.readSwitchIndexByTV[tv]
	return v, ok
}
