package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/internal/irtypes"
)

const simpleFusionJSON = `{
  "axes": [
    {"name": "a0", "extent": {"kind": "const", "n": 8}},
    {"name": "a1", "extent": {"kind": "const", "n": 8}}
  ],
  "tensors": [
    {"name": "tv0", "domain": ["a0"], "mem_type": "Global"},
    {"name": "tv1", "domain": ["a1"], "mem_type": "Shared", "double_buffered": true, "compute_at_position": 1}
  ],
  "exprs": [
    {"kind": "load_store", "op_type": "CpAsync", "in_tv": "tv0", "out_tv": "tv1"}
  ],
  "inputs": ["tv0"],
  "outputs": ["tv1"],
  "body": [
    {
      "kind": "for",
      "axis": "a1",
      "start": {"kind": "const", "n": 0},
      "stop": {"kind": "const", "n": 8},
      "step": {"kind": "const", "n": 1},
      "body": [
        {"kind": "load_store", "out_tv": "tv1"}
      ]
    }
  ]
}`

func TestDecodeIRPayload_SimpleFusion(t *testing.T) {
	decoded, err := decodeIRPayload(simpleFusionJSON)
	require.NoError(t, err)

	assert.Len(t, decoded.fusion.Inputs, 1)
	assert.Len(t, decoded.fusion.Outputs, 1)
	assert.Len(t, decoded.fusion.Exprs, 1)
	assert.Equal(t, irtypes.Shared, decoded.tvByName["tv1"].MemType)
	assert.True(t, decoded.tvByName["tv1"].IsDoubleBuffered())
	assert.Len(t, decoded.body, 1)
}

func TestDecodeIRPayload_MalformedJSON(t *testing.T) {
	_, err := decodeIRPayload("{not json")
	assert.Error(t, err)
}

func TestDecodeIRPayload_UndefinedAxis(t *testing.T) {
	_, err := decodeIRPayload(`{"tensors":[{"name":"tv0","domain":["missing"]}]}`)
	assert.Error(t, err)
}

func TestDecodeIRPayload_UndefinedTensor(t *testing.T) {
	_, err := decodeIRPayload(`{"inputs":["missing"]}`)
	assert.Error(t, err)
}

func TestIrValueDecode_BinaryOp(t *testing.T) {
	v := &irValue{
		Kind: "binary",
		Op:   "*",
		LHS:  &irValue{Kind: "const", N: 4},
		RHS:  &irValue{Kind: "scalar", Name: "blockDim.x"},
	}
	decoded, err := v.decode()
	require.NoError(t, err)
	assert.Equal(t, "(4 * blockDim.x)", decoded.String())
}
