package doublebuffer

import (
	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/internal/loopir"
)

// buildSimpleDoubleBuffer constructs one Global -> Shared load inside a
// single extent-8 loop, tv1 double-buffered.
func buildSimpleDoubleBuffer(extent int64, memType irtypes.MemoryType, circularDepth int) (*irtypes.Fusion, *loopir.For, *lowerctx.Context) {
	a0 := irtypes.NewIterDomain("a0", irtypes.Const{N: extent})
	tv0 := irtypes.NewTensorView("tv0", a0)
	tv0.MemType = irtypes.Global

	a1 := irtypes.NewIterDomain("a1", irtypes.Const{N: extent})
	tv1 := irtypes.NewTensorView("tv1", a1)
	tv1.MemType = memType
	tv1.ComputeAtPosition = 1
	if circularDepth >= 2 {
		tv1.MarkCircularBuffered(circularDepth)
	} else {
		tv1.MarkDoubleBuffered()
	}

	f := irtypes.NewFusion()
	f.Inputs = append(f.Inputs, tv0)
	f.Outputs = append(f.Outputs, tv1)
	ls := &irtypes.LoadStoreOp{OpType: irtypes.Set, In: tv0, Out: tv1}
	f.AddExpr(ls)

	graphs, err := iterdomaingraphs.Build(f, false)
	if err != nil {
		panic(err)
	}
	ctx := lowerctx.New(graphs)

	loop := &loopir.For{
		Axis:  a0,
		Start: irtypes.Const{N: 0},
		Stop:  irtypes.Const{N: extent},
		Step:  irtypes.Const{N: 1},
		Body: []loopir.Node{
			&loopir.LoadStoreOp{Op: ls},
		},
	}
	return f, loop, ctx
}

// buildCircularCpAsyncDoubleBuffer constructs one Global -> Shared cp.async
// load into a circular-buffered tv1 (depth d), read downstream by an
// LdMatrix-only consumer so tv1 qualifies for read-address lifting, plus a
// gmem pointer increment in the loop body so hoistIncrements has something
// to reorder. tv1's second axis carries a non-const extent so it is never
// parallel-or-static, which keeps the cp.async load in the Main stage body
// instead of being elided in favor of the CircularInitProlog.
func buildCircularCpAsyncDoubleBuffer(extent int64, depth int) (*irtypes.Fusion, *loopir.For, *lowerctx.Context, *irtypes.TensorView) {
	a0 := irtypes.NewIterDomain("a0", irtypes.Const{N: extent})
	tv0 := irtypes.NewTensorView("tv0", a0)
	tv0.MemType = irtypes.Global

	a1 := irtypes.NewIterDomain("a1", irtypes.Const{N: extent})
	inner := irtypes.NewIterDomain("inner", irtypes.NamedScalar{Name: "n"})
	tv1 := irtypes.NewTensorView("tv1", a1, inner)
	tv1.MemType = irtypes.Shared
	tv1.ComputeAtPosition = 1
	tv1.MarkCircularBuffered(depth)
	tv1.MarkShouldLiftReadAddress()

	f := irtypes.NewFusion()
	f.Inputs = append(f.Inputs, tv0)
	f.Outputs = append(f.Outputs, tv1)
	ls := &irtypes.LoadStoreOp{OpType: irtypes.CpAsync, In: tv0, Out: tv1}
	f.AddExpr(ls)

	// Consumer forcing tv1's read-address-lift eligibility: its only use
	// in the fusion is an LdMatrix load. Its domain is distinct from tv1's
	// own, mapped onto it positionally through useLs like any producer/
	// consumer pair.
	a2 := irtypes.NewIterDomain("a2", irtypes.Const{N: extent})
	inner2 := irtypes.NewIterDomain("inner2", irtypes.NamedScalar{Name: "n"})
	tv2 := irtypes.NewTensorView("tv2", a2, inner2)
	useLs := &irtypes.LoadStoreOp{OpType: irtypes.LdMatrix, In: tv1, Out: tv2}
	f.AddExpr(useLs)
	f.Outputs = append(f.Outputs, tv2)

	graphs, err := iterdomaingraphs.Build(f, false)
	if err != nil {
		panic(err)
	}
	ctx := lowerctx.New(graphs)

	loop := &loopir.For{
		Axis:  a0,
		Start: irtypes.Const{N: 0},
		Stop:  irtypes.Const{N: extent},
		Step:  irtypes.Const{N: 1},
		Body: []loopir.Node{
			&loopir.AddressCompute{ComputeKind: loopir.GmemIncrement, DataTv: tv0},
			&loopir.LoadStoreOp{Op: ls},
		},
	}
	return f, loop, ctx, tv1
}
