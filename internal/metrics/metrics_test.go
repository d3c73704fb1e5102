package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
	"github.com/tensorfuse/fusegen/internal/testutil"
	"github.com/tensorfuse/fusegen/pkg/model"
)

func TestAccumulator_RecordGraph(t *testing.T) {
	fusion, _, _ := testutil.SimpleLoadFusion(8, 1)
	graphs := testutil.BuildGraphs(fusion, false)

	a := New()
	totalIds := int64(len(fusion.AllIterDomains()))
	for m := iterdomaingraphs.Exact; m <= iterdomaingraphs.Loop; m++ {
		a.RecordGraph(m, graphs.Graph(m), totalIds)
	}

	modeStats, _, _, _ := a.Snapshot()
	assert.Contains(t, modeStats, "EXACT")
	assert.Contains(t, modeStats, "LOOP")
	assert.GreaterOrEqual(t, modeStats["LOOP"].Groups, int64(1))
}

func TestAccumulator_RecordCounters(t *testing.T) {
	a := New()
	a.RecordLoopTransformed()
	a.RecordLoopTransformed()
	a.RecordSyncsInserted(3)
	a.RecordSelfMappings(1)

	_, loops, syncs, selfMappings := a.Snapshot()
	assert.Equal(t, int64(2), loops)
	assert.Equal(t, int64(3), syncs)
	assert.Equal(t, int64(1), selfMappings)
}

func TestAccumulator_SnapshotIsACopy(t *testing.T) {
	a := New()
	a.modeStats["EXACT"] = model.ModeStats{Groups: 2, Merges: 0}

	snap, _, _, _ := a.Snapshot()
	snap["EXACT"] = model.ModeStats{Groups: 99, Merges: 99}

	fresh, _, _, _ := a.Snapshot()
	assert.Equal(t, int64(2), fresh["EXACT"].Groups)
}
