package irtypes

// TensorView is a tensor in the fusion: an ordered axis list plus the
// compute-at and memory-placement metadata the double-buffer pass
// validates against.
type TensorView struct {
	Name   string
	Domain []*IterDomain

	ComputeAtPosition int
	MemType           MemoryType

	doubleBuffered       bool
	circularBuffered     bool
	circularBufferDepth  int
	hasComputeWith       bool
	shouldLiftReadAddr   bool

	def Expression

	// computePositions records, per consumer TensorView, the position at
	// which this TensorView is computed inside that consumer's loop nest.
	computePositions map[*TensorView]int
}

// NewTensorView constructs a TensorView with the given ordered axes.
func NewTensorView(name string, domain ...*IterDomain) *TensorView {
	tv := &TensorView{Name: name, Domain: domain, computePositions: map[*TensorView]int{}}
	for _, ax := range domain {
		ax.Owner = tv
	}
	return tv
}

// SetDefinition records the Expression that produces tv. LoadStoreOp
// definitions are what the double-buffer inspector looks for.
func (tv *TensorView) SetDefinition(e Expression) { tv.def = e }

// Definition returns the Expression that produces tv, or nil for fusion
// inputs.
func (tv *TensorView) Definition() Expression { return tv.def }

// MarkDoubleBuffered flags tv as (plain) double-buffered.
func (tv *TensorView) MarkDoubleBuffered() *TensorView {
	tv.doubleBuffered = true
	return tv
}

// MarkCircularBuffered flags tv as circular-buffered with the given depth
// (must be >= 2).
func (tv *TensorView) MarkCircularBuffered(depth int) *TensorView {
	tv.circularBuffered = true
	tv.circularBufferDepth = depth
	return tv
}

// MarkHasComputeWith flags tv as using compute-with, which disqualifies it
// from double buffering.
func (tv *TensorView) MarkHasComputeWith() *TensorView {
	tv.hasComputeWith = true
	return tv
}

// MarkShouldLiftReadAddress enables read-switch-index allocation for tv
// when all of its uses are LdMatrix ops.
func (tv *TensorView) MarkShouldLiftReadAddress() *TensorView {
	tv.shouldLiftReadAddr = true
	return tv
}

// SetComputePosition records the position at which tv is computed inside
// consumer's loop nest.
func (tv *TensorView) SetComputePosition(consumer *TensorView, pos int) {
	tv.computePositions[consumer] = pos
}

func (tv *TensorView) IsDoubleBuffered() bool    { return tv.doubleBuffered }
func (tv *TensorView) IsCircularBuffered() bool  { return tv.circularBuffered }
func (tv *TensorView) HasComputeWith() bool      { return tv.hasComputeWith }
func (tv *TensorView) ShouldLiftReadAddress() bool { return tv.shouldLiftReadAddr }

// CircularBufferDepth returns the tensor's own stage depth, or 2 if it is
// only plain double-buffered.
func (tv *TensorView) CircularBufferDepth() int {
	if tv.circularBuffered {
		return tv.circularBufferDepth
	}
	return 2
}

// GetComputePosition returns the position at which tv is computed inside
// consumer's loop nest, or -1 if not recorded.
func (tv *TensorView) GetComputePosition(consumer *TensorView) int {
	if p, ok := tv.computePositions[consumer]; ok {
		return p
	}
	return -1
}

func (tv *TensorView) String() string { return tv.Name }
