// Package metrics accumulates pass statistics as the lowering pipeline runs
// and snapshots them into a pkg/model.PassRun.
package metrics

import (
	"sync"

	"github.com/tensorfuse/fusegen/internal/idgraph"
	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
	"github.com/tensorfuse/fusegen/pkg/model"
)

// Accumulator records counters for one lowering run. The zero value is
// ready to use. Safe for concurrent Record calls from a worker pool running
// several fusions at once, each with its own Accumulator.
type Accumulator struct {
	mu sync.Mutex

	modeStats            map[string]model.ModeStats
	loopsTransformed     int64
	syncsInserted        int64
	selfMappingsDetected int64
}

// New creates an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{modeStats: map[string]model.ModeStats{}}
}

// RecordGraph records the group count for mode's IdGraph. Merges is derived
// as totalIds-groups: every union-find merge starting from one singleton
// group per IterDomain reduces the group count by exactly one.
func (a *Accumulator) RecordGraph(mode iterdomaingraphs.Mode, graph *idgraph.IdGraph, totalIds int64) {
	groups := int64(len(graph.AllGroups()))
	merges := totalIds - groups
	if merges < 0 {
		merges = 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.modeStats == nil {
		a.modeStats = map[string]model.ModeStats{}
	}
	a.modeStats[mode.String()] = model.ModeStats{Groups: groups, Merges: merges}
}

// RecordSelfMappings adds n self-mapping instances found during the
// IterDomainGraphs build.
func (a *Accumulator) RecordSelfMappings(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selfMappingsDetected += int64(n)
}

// RecordLoopTransformed counts one loop nest that the Inserter rewrote into
// its double-buffer stage sequence.
func (a *Accumulator) RecordLoopTransformed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loopsTransformed++
}

// RecordSyncsInserted adds n CpAsyncCommit/CpAsyncWait/BlockSync nodes
// emitted by the Inserter.
func (a *Accumulator) RecordSyncsInserted(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncsInserted += int64(n)
}

// Snapshot copies the current counters into a fresh map, safe to embed in a
// model.PassRun without aliasing the Accumulator's internal state.
func (a *Accumulator) Snapshot() (modeStats map[string]model.ModeStats, loopsTransformed, syncsInserted, selfMappingsDetected int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	modeStats = make(map[string]model.ModeStats, len(a.modeStats))
	for k, v := range a.modeStats {
		modeStats[k] = v
	}
	return modeStats, a.loopsTransformed, a.syncsInserted, a.selfMappingsDetected
}
