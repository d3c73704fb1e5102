package idgraphdump

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
	"github.com/tensorfuse/fusegen/internal/testutil"
)

func TestBuild_StagedMatmulLoopMode(t *testing.T) {
	fusion, _, _ := testutil.StagedMatmulFusion(256, 32)
	graphs := testutil.BuildGraphs(fusion, false)

	dump := Build(iterdomaingraphs.Loop, graphs.Graph(iterdomaingraphs.Loop))

	assert.Equal(t, "LOOP", dump.Mode)
	assert.NotEmpty(t, dump.Nodes)
	for _, n := range dump.Nodes {
		assert.NotEmpty(t, n.ID)
		assert.NotEmpty(t, n.Members)
	}
}

func TestBuild_NodeIDsAreUnique(t *testing.T) {
	fusion, _, _ := testutil.SimpleLoadFusion(8, 1)
	graphs := testutil.BuildGraphs(fusion, false)

	dump := Build(iterdomaingraphs.Exact, graphs.Graph(iterdomaingraphs.Exact))

	seen := map[string]bool{}
	for _, n := range dump.Nodes {
		assert.False(t, seen[n.ID], "duplicate node id %s", n.ID)
		seen[n.ID] = true
	}
}

func TestBuild_EdgesReferenceKnownNodes(t *testing.T) {
	fusion, _, _ := testutil.StagedMatmulFusion(256, 32)
	graphs := testutil.BuildGraphs(fusion, false)

	dump := Build(iterdomaingraphs.Loop, graphs.Graph(iterdomaingraphs.Loop))

	nodeIDs := map[string]bool{}
	for _, n := range dump.Nodes {
		nodeIDs[n.ID] = true
	}
	for _, e := range dump.Edges {
		assert.True(t, nodeIDs[e.Source])
		assert.True(t, nodeIDs[e.Target])
	}
}
