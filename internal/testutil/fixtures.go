// Package testutil provides synthetic Fusion graphs shared by the idgraph,
// iterdomaingraphs, and doublebuffer test suites.
package testutil

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/internal/loopir"
)

// SplitChain builds an unattached Split(in) -> outer, inner triple, the
// smallest structural congruence fixture the IdGraph builder recognizes.
func SplitChain(extent, factor int64) (in, outer, inner *irtypes.IterDomain, split *irtypes.SplitOp) {
	in = irtypes.NewIterDomain("in", irtypes.Const{N: extent})
	outer = irtypes.NewIterDomain("outer", irtypes.Const{N: extent / factor})
	inner = irtypes.NewIterDomain("inner", irtypes.Const{N: factor})
	split = &irtypes.SplitOp{In: in, Outer: outer, Inner: inner, Factor: factor, InnerSplit: true}
	return
}

// MergeChain builds an unattached Merge(outer, inner) -> out triple.
func MergeChain(outerExtent, innerExtent int64) (outer, inner, out *irtypes.IterDomain, merge *irtypes.MergeOp) {
	outer = irtypes.NewIterDomain("outer", irtypes.Const{N: outerExtent})
	inner = irtypes.NewIterDomain("inner", irtypes.Const{N: innerExtent})
	out = irtypes.NewIterDomain("out", irtypes.Const{N: outerExtent * innerExtent})
	merge = &irtypes.MergeOp{Outer: outer, Inner: inner, Out: out}
	return
}

// SimpleLoadFusion builds a single Global -> memType LoadStoreOp fusion over
// one extent-N axis: tv0 (input) feeds tv1 (output) directly, no splits or
// merges. Useful as the smallest fixture that satisfies double-buffer
// validation once tv1 is marked buffered.
func SimpleLoadFusion(extent int64, memType irtypes.MemoryType) (*irtypes.Fusion, *irtypes.TensorView, *irtypes.TensorView) {
	a0 := irtypes.NewIterDomain("a0", irtypes.Const{N: extent})
	tv0 := irtypes.NewTensorView("tv0", a0)
	tv0.MemType = irtypes.Global

	a1 := irtypes.NewIterDomain("a1", irtypes.Const{N: extent})
	tv1 := irtypes.NewTensorView("tv1", a1)
	tv1.MemType = memType

	f := irtypes.NewFusion()
	f.Inputs = append(f.Inputs, tv0)
	f.Outputs = append(f.Outputs, tv1)
	f.AddExpr(&irtypes.LoadStoreOp{OpType: irtypes.Set, In: tv0, Out: tv1})
	return f, tv0, tv1
}

// StagedMatmulFusion builds a two-stage global-memory-to-shared-memory
// staging pipeline resembling a tiled matmul's A operand load: a K-loop axis
// split into (ko, ki), with tv1 (the shared staging buffer) computed at
// position 1 and eligible for double buffering along ko. Returns the fusion,
// the staging tensor, and the K-loop's outer (buffered) axis.
func StagedMatmulFusion(kExtent, kTile int64) (*irtypes.Fusion, *irtypes.TensorView, *irtypes.IterDomain) {
	kIn, ko, ki, split := SplitChain(kExtent, kTile)

	tv0 := irtypes.NewTensorView("gmemA", kIn)
	tv0.MemType = irtypes.Global

	tv1 := irtypes.NewTensorView("smemA", ko, ki)
	tv1.MemType = irtypes.Shared
	tv1.ComputeAtPosition = 1

	f := irtypes.NewFusion()
	f.Inputs = append(f.Inputs, tv0)
	f.Outputs = append(f.Outputs, tv1)
	f.AddExpr(split)
	f.AddExpr(&irtypes.LoadStoreOp{OpType: irtypes.CpAsync, In: tv0, Out: tv1})
	return f, tv1, ko
}

// BuildGraphs builds the mapping-mode IdGraph family for fusion, panicking
// on failure. Intended for test setup where a malformed fixture is a test
// bug, not an expected error path.
func BuildGraphs(fusion *irtypes.Fusion, allowSelfMapping bool) *iterdomaingraphs.IterDomainGraphs {
	graphs, err := iterdomaingraphs.Build(fusion, allowSelfMapping)
	if err != nil {
		panic(err)
	}
	return graphs
}

// BuildContext builds the IdGraph family for fusion and wraps it in a fresh
// lowering Context, panicking on failure.
func BuildContext(fusion *irtypes.Fusion, allowSelfMapping bool) *lowerctx.Context {
	return lowerctx.New(BuildGraphs(fusion, allowSelfMapping))
}

// SingleAxisLoop wraps body under a for-loop over axis, 0..extent step 1.
func SingleAxisLoop(axis *irtypes.IterDomain, extent int64, body ...loopir.Node) *loopir.For {
	return &loopir.For{
		Axis:  axis,
		Start: irtypes.Const{N: 0},
		Stop:  irtypes.Const{N: extent},
		Step:  irtypes.Const{N: 1},
		Body:  body,
	}
}
