package irtypes

import "fmt"

// ExprKind is the structural kind of an Expression. exprsMap requires both
// sides to share a Kind before comparing kind-specific attributes.
type ExprKind int

const (
	KindSplit ExprKind = iota
	KindMerge
	KindSwizzle
	KindLoadStoreOp
)

func (k ExprKind) String() string {
	switch k {
	case KindSplit:
		return "Split"
	case KindMerge:
		return "Merge"
	case KindSwizzle:
		return "Swizzle"
	case KindLoadStoreOp:
		return "LoadStoreOp"
	default:
		return "Unknown"
	}
}

// Expression is an IR node with ordered IterDomain inputs and outputs.
// Split, Merge, Swizzle and LoadStoreOp are the structurally-recognised
// kinds the IdGraph builder special-cases; any other transform would be
// registered the same way.
type Expression interface {
	Kind() ExprKind
	Inputs() []*IterDomain
	Outputs() []*IterDomain
	String() string
}

// SplitOp divides In into Outer and Inner by Factor. InnerSplit indicates
// the factor was applied to produce the inner axis (vs. outer); it is part
// of the structural signature exprsMap compares.
type SplitOp struct {
	In          *IterDomain
	Outer       *IterDomain
	Inner       *IterDomain
	Factor      int64
	InnerSplit  bool
}

func (s *SplitOp) Kind() ExprKind        { return KindSplit }
func (s *SplitOp) Inputs() []*IterDomain  { return []*IterDomain{s.In} }
func (s *SplitOp) Outputs() []*IterDomain { return []*IterDomain{s.Outer, s.Inner} }
func (s *SplitOp) String() string {
	return fmt.Sprintf("Split(%s, factor=%d) -> %s, %s", s.In, s.Factor, s.Outer, s.Inner)
}

// MergeOp merges Outer and Inner (in that order) into Out.
type MergeOp struct {
	Outer *IterDomain
	Inner *IterDomain
	Out   *IterDomain
}

func (m *MergeOp) Kind() ExprKind        { return KindMerge }
func (m *MergeOp) Inputs() []*IterDomain  { return []*IterDomain{m.Outer, m.Inner} }
func (m *MergeOp) Outputs() []*IterDomain { return []*IterDomain{m.Out} }
func (m *MergeOp) String() string {
	return fmt.Sprintf("Merge(%s, %s) -> %s", m.Outer, m.Inner, m.Out)
}

// SwizzleOp is a loop swizzle: identity for indexing purposes, but a
// distinct structural node because it changes iteration order.
type SwizzleOp struct {
	Type       string
	InX, InY   *IterDomain
	OutX, OutY *IterDomain
}

func (s *SwizzleOp) Kind() ExprKind        { return KindSwizzle }
func (s *SwizzleOp) Inputs() []*IterDomain  { return []*IterDomain{s.InX, s.InY} }
func (s *SwizzleOp) Outputs() []*IterDomain { return []*IterDomain{s.OutX, s.OutY} }
func (s *SwizzleOp) String() string {
	return fmt.Sprintf("Swizzle[%s](%s, %s) -> %s, %s", s.Type, s.InX, s.InY, s.OutX, s.OutY)
}

// LoadStoreOpType distinguishes plain copies from asynchronous ones; the
// double-buffer pass treats CpAsync specially (commit/wait insertion).
type LoadStoreOpType int

const (
	Set LoadStoreOpType = iota
	CpAsync
	LdMatrix
)

func (t LoadStoreOpType) String() string {
	switch t {
	case Set:
		return "Set"
	case CpAsync:
		return "CpAsync"
	case LdMatrix:
		return "LdMatrix"
	default:
		return "Unknown"
	}
}

// LoadStoreOp copies one TensorView's root domain into another's,
// position-for-position. It is the only Expression kind double-buffer
// validation accepts as a buffered tensor's Definition.
type LoadStoreOp struct {
	OpType LoadStoreOpType
	In     *TensorView
	Out    *TensorView
}

func (l *LoadStoreOp) Kind() ExprKind { return KindLoadStoreOp }

func (l *LoadStoreOp) Inputs() []*IterDomain {
	if l.In == nil {
		return nil
	}
	return l.In.Domain
}

func (l *LoadStoreOp) Outputs() []*IterDomain {
	if l.Out == nil {
		return nil
	}
	return l.Out.Domain
}

func (l *LoadStoreOp) String() string {
	return fmt.Sprintf("%s: %s = %s", l.OpType, l.Out.Name, l.In.Name)
}
