package doublebuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/loopir"
)

// Scenario 1: simple double buffer (d=2), Global->Shared, no cp.async.
// Expected rewrite: Prolog(0..1), BlockSync, Main(0..7), Epilog(7..8), no
// commit/wait.
func TestEndToEnd_SimpleDoubleBufferGlobalToShared(t *testing.T) {
	f, loop, ctx := buildSimpleDoubleBuffer(8, irtypes.Shared, 0)
	inspector := NewFusionInspector(ctx)
	info, err := inspector.Inspect(f)
	require.NoError(t, err)

	nestInspector := NewLoopNestInspector(ctx, info)
	insertionInfo, err := nestInspector.Inspect([]loopir.Node{loop})
	require.NoError(t, err)
	require.Len(t, insertionInfo, 1)

	ctx.SetNeedsRawSync(loop, true)

	inserter := NewInserter(ctx, info)
	rewritten, err := inserter.Insert([]loopir.Node{loop}, insertionInfo)
	require.NoError(t, err)

	require.Len(t, rewritten, 4)
	prolog := rewritten[0].(*loopir.For)
	assert.Equal(t, irtypes.Const{N: 0}, prolog.Start)
	assert.Equal(t, irtypes.Const{N: 1}, prolog.Stop)

	_, ok := rewritten[1].(*loopir.BlockSync)
	assert.True(t, ok, "expected a BlockSync before Main")

	main := rewritten[2].(*loopir.For)
	assert.Equal(t, irtypes.Const{N: 0}, main.Start)
	assert.Equal(t, irtypes.BinaryOp{Op: "-", LHS: irtypes.Const{N: 8}, RHS: irtypes.Const{N: 1}}, main.Stop)

	epilog := rewritten[3].(*loopir.For)
	assert.Equal(t, irtypes.BinaryOp{Op: "-", LHS: irtypes.Const{N: 8}, RHS: irtypes.Const{N: 1}}, epilog.Start)
	assert.Equal(t, irtypes.Const{N: 8}, epilog.Stop)

	assert.False(t, loopir.Contains(rewritten, func(n loopir.Node) bool { return n.Kind() == loopir.KindCpAsyncCommit }))
}

// Scenario 3: Double buffer, Global->Local: no stop decrement, no Epilog,
// no BlockSync, no commit/wait.
func TestEndToEnd_DoubleBufferGlobalToLocal(t *testing.T) {
	f, loop, ctx := buildSimpleDoubleBuffer(10, irtypes.Local, 0)
	inspector := NewFusionInspector(ctx)
	info, err := inspector.Inspect(f)
	require.NoError(t, err)

	nestInspector := NewLoopNestInspector(ctx, info)
	insertionInfo, err := nestInspector.Inspect([]loopir.Node{loop})
	require.NoError(t, err)

	inserter := NewInserter(ctx, info)
	rewritten, err := inserter.Insert([]loopir.Node{loop}, insertionInfo)
	require.NoError(t, err)

	require.Len(t, rewritten, 2, "expected only Prolog and Main, no Epilog/sync")
	prolog := rewritten[0].(*loopir.For)
	assert.Equal(t, irtypes.Const{N: 0}, prolog.Start)
	assert.Equal(t, irtypes.Const{N: 1}, prolog.Stop)

	main := rewritten[1].(*loopir.For)
	assert.Equal(t, irtypes.Const{N: 0}, main.Start)
	assert.Equal(t, irtypes.Const{N: 10}, main.Stop, "no stop decrement when no epilog is required")
}

// Scenario 2: circular buffer (d=4), cp.async, Global->Shared. Exercises
// CircularInitProlog cloning, appendReadSwitchUpdates, hoistIncrements, and
// the commit-after-last-load / wait-before-sync ordering insertCommitAndWait
// is responsible for.
func TestEndToEnd_CircularBufferCpAsyncGlobalToShared(t *testing.T) {
	f, loop, ctx, tv1 := buildCircularCpAsyncDoubleBuffer(8, 4)
	inspector := NewFusionInspector(ctx)
	info, err := inspector.Inspect(f)
	require.NoError(t, err)

	nestInspector := NewLoopNestInspector(ctx, info)
	insertionInfo, err := nestInspector.Inspect([]loopir.Node{loop})
	require.NoError(t, err)
	require.Len(t, insertionInfo, 1)

	ctx.SetShouldPeelLoop(loop, true)

	inserter := NewInserter(ctx, info)
	rewritten, err := inserter.Insert([]loopir.Node{loop}, insertionInfo)
	require.NoError(t, err)

	require.Len(t, rewritten, 6)

	switchUpdate := rewritten[0].(*loopir.AddressCompute)
	assert.Equal(t, loopir.DoubleBufferUpdate, switchUpdate.ComputeKind)
	assert.Equal(t, tv1, switchUpdate.DataTv)

	prolog := rewritten[1].(*loopir.For)
	assert.Equal(t, irtypes.Const{N: 0}, prolog.Start)
	assert.Equal(t, irtypes.Const{N: 3}, prolog.Stop)
	require.NotEmpty(t, prolog.Body)
	_, ok := prolog.Body[len(prolog.Body)-1].(*loopir.CpAsyncCommit)
	assert.True(t, ok, "prolog should commit its cp.async loads")

	circularInit := rewritten[2].(*loopir.For)
	assert.Equal(t, irtypes.Const{N: 3}, circularInit.Start)
	assert.Equal(t, irtypes.Const{N: 4}, circularInit.Stop)
	require.Len(t, circularInit.Body, 1, "circular init prolog only re-emits the hoisted gmem increment")
	dec := circularInit.Body[0].(*loopir.AddressCompute)
	assert.Equal(t, loopir.GmemIncrement, dec.ComputeKind)
	assert.True(t, dec.Decrement, "circular init prolog decrements the pointer it will re-increment in Main")

	outerWait := rewritten[3].(*loopir.CpAsyncWait)
	assert.Equal(t, 2, outerWait.N, "wait for depth-2 outstanding batches before entering Main")

	main := rewritten[4].(*loopir.For)
	assert.Equal(t, irtypes.Const{N: 0}, main.Start)
	assert.Equal(t, irtypes.BinaryOp{Op: "-", LHS: irtypes.Const{N: 8}, RHS: irtypes.Const{N: 1}}, main.Stop)

	inc, ok := main.Body[0].(*loopir.AddressCompute)
	require.True(t, ok, "hoistIncrements must move the gmem increment to the front of Main's body")
	assert.Equal(t, loopir.GmemIncrement, inc.ComputeKind)
	assert.False(t, inc.Decrement)

	commitIdx, waitIdx, loadIdx := -1, -1, -1
	for i, n := range main.Body {
		switch n.(type) {
		case *loopir.CpAsyncCommit:
			commitIdx = i
		case *loopir.CpAsyncWait:
			waitIdx = i
		case *loopir.LoadStoreOp:
			loadIdx = i
		}
	}
	require.True(t, loadIdx >= 0, "the async load must survive in Main, not be elided")
	require.True(t, commitIdx >= 0, "Main must commit the batch it loads")
	require.True(t, waitIdx >= 0, "Main must wait on the batch depth")
	assert.Less(t, loadIdx, commitIdx, "commit must follow the last buffered load")
	assert.Less(t, commitIdx, waitIdx, "wait must follow the commit it is bounding")

	epilog := rewritten[5].(*loopir.For)
	assert.Equal(t, irtypes.BinaryOp{Op: "-", LHS: irtypes.Const{N: 8}, RHS: irtypes.Const{N: 3}}, epilog.Start)
	assert.Equal(t, irtypes.Const{N: 8}, epilog.Stop)
	require.Len(t, epilog.Body, 1, "epilog drops the buffered load, keeping only the gmem increment")
	_, ok = epilog.Body[0].(*loopir.AddressCompute)
	assert.True(t, ok)
}

// Scenario 4: stage-depth conflict — the same tensor is registered on an
// axis already recorded at depth 2, after being re-marked with depth 3.
func TestInfo_StageDepthConflict(t *testing.T) {
	f, _, ctx := buildSimpleDoubleBuffer(8, irtypes.Shared, 0)
	tv1 := f.Outputs[0]
	info := NewInfo(ctx)
	require.NoError(t, info.SetDoubleBufferAxis(tv1, tv1.Domain[0]))

	tv1.MarkCircularBuffered(3)
	err := info.SetDoubleBufferAxis(tv1, tv1.Domain[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STAGE_DEPTH_CONFLICT")
}

// Scenario 5: invalid axis due to Unroll leaving only a broadcast axis
// to the left of the computed minimum.
func TestInspector_AxisNotFoundWithUnrollAndBroadcast(t *testing.T) {
	bAxis := irtypes.NewIterDomain("b0", irtypes.Const{N: 1}).WithBroadcast()
	unrollAxis := irtypes.NewIterDomain("u1", irtypes.Const{N: 4}).WithParallelType(irtypes.Unroll)
	tailAxis := irtypes.NewIterDomain("t2", irtypes.Const{N: 4})
	tv := irtypes.NewTensorView("tv", bAxis, unrollAxis, tailAxis)
	tv.ComputeAtPosition = 3

	_, err := GetDoubleBufferAxisPosition(tv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AXIS_NOT_FOUND")
}
