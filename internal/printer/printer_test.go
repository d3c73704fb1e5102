package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/loopir"
)

func TestPrint_ForLoopWithLoadStore(t *testing.T) {
	axis := irtypes.NewIterDomain("i", irtypes.Const{N: 8})
	tv0 := irtypes.NewTensorView("gmemA", axis)
	tv0.MemType = irtypes.Global
	tv1 := irtypes.NewTensorView("smemA", axis)
	tv1.MemType = irtypes.Shared

	loop := &loopir.For{
		Axis:  axis,
		Start: irtypes.Const{N: 0},
		Stop:  irtypes.Const{N: 8},
		Step:  irtypes.Const{N: 1},
		Body: []loopir.Node{
			&loopir.LoadStoreOp{Op: &irtypes.LoadStoreOp{OpType: irtypes.CpAsync, In: tv0, Out: tv1}},
			&loopir.CpAsyncCommit{},
			&loopir.BlockSync{},
		},
	}

	out := New().Print([]loopir.Node{loop})
	assert.Contains(t, out, "for (int i = 0; i < 8; i += 1) {")
	assert.Contains(t, out, "cp.async.commit_group;")
	assert.Contains(t, out, "__syncthreads();")
	assert.Contains(t, out, "}\n")
}

func TestPrintStage_HeaderComment(t *testing.T) {
	out := New().PrintStage("Prolog", nil)
	assert.Equal(t, "// Prolog\n", out)
}

func TestPrint_IfThenElse(t *testing.T) {
	body := []loopir.Node{
		&loopir.IfThenElse{
			Predicate: "tid < 32",
			Then:      []loopir.Node{&loopir.CpAsyncWait{N: 0}},
		},
	}
	out := New().Print(body)
	assert.Contains(t, out, "if (tid < 32) {")
	assert.Contains(t, out, "cp.async.wait_group 0;")
}
