package irtypes

import "fmt"

// Value is a compile-time scalar expression: an extent, a stage count, a
// switch-index variable. Equality of Values is structural, not numeric —
// two extents are the "same" only if they were built the same way.
type Value interface {
	// IsConst reports whether the value is a compile-time constant.
	IsConst() bool
	String() string
	structHash(depth int) string
}

// maxStructuralDepth bounds the walk performed by StructurallyEqual so a
// pathological value graph cannot make equivalence-checking diverge.
const maxStructuralDepth = 32

// Const is a compile-time integer constant.
type Const struct{ N int64 }

func (c Const) IsConst() bool { return true }
func (c Const) String() string { return fmt.Sprintf("%d", c.N) }
func (c Const) structHash(int) string { return fmt.Sprintf("c:%d", c.N) }

// NamedScalar is a runtime scalar identified by name (a kernel parameter, a
// loop index variable, an allocated switch-index register).
type NamedScalar struct{ Name string }

func (n NamedScalar) IsConst() bool          { return false }
func (n NamedScalar) String() string         { return n.Name }
func (n NamedScalar) structHash(int) string  { return "s:" + n.Name }

// BinaryOp combines two Values, e.g. an extent computed as a product of two
// axis extents, or a byte size computed as extent*elementSize.
type BinaryOp struct {
	Op       string // "+", "-", "*", "/"
	LHS, RHS Value
}

func (b BinaryOp) IsConst() bool { return b.LHS.IsConst() && b.RHS.IsConst() }

func (b BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.LHS.String(), b.Op, b.RHS.String())
}

func (b BinaryOp) structHash(depth int) string {
	if depth <= 0 {
		return "…"
	}
	return fmt.Sprintf("(%s%s%s)", b.LHS.structHash(depth-1), b.Op, b.RHS.structHash(depth-1))
}

// structEqCache memoises StructurallyEqual results keyed on node identity
// pairs.
var structEqCache = map[[2]Value]bool{}

// StructurallyEqual reports whether a and b are built from the same
// sequence of operations down to maxStructuralDepth, without evaluating
// either side numerically. This is the extent-comparison rule exprsMap
// uses for Merge congruence.
func StructurallyEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	key := [2]Value{a, b}
	if v, ok := structEqCache[key]; ok {
		return v
	}
	result := a.structHash(maxStructuralDepth) == b.structHash(maxStructuralDepth)
	structEqCache[key] = result
	return result
}
