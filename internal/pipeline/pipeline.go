// Package pipeline orchestrates one fusion document through the
// IterDomainGraphs build and the double-buffer lowering pass: decode the
// IR payload, build the mapping-mode graphs, inspect, insert, render, and
// record the run's statistics. Stages are fixed and run in-process, unlike
// the polling task sources a scheduler would fan out to.
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/tensorfuse/fusegen/internal/doublebuffer"
	"github.com/tensorfuse/fusegen/internal/idgraphdump"
	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
	"github.com/tensorfuse/fusegen/internal/lowerctx"
	"github.com/tensorfuse/fusegen/internal/loopir"
	"github.com/tensorfuse/fusegen/internal/metrics"
	"github.com/tensorfuse/fusegen/internal/printer"
	"github.com/tensorfuse/fusegen/pkg/model"
	"github.com/tensorfuse/fusegen/pkg/utils"
)

const tracerName = "fusegen"

// tracer is read once at package init so tests and callers never have to
// thread an *otel.Tracer through the Runner; spans are no-ops until
// pkg/telemetry.Init has run.
var tracer = otel.Tracer(tracerName)

// Result is everything one Run produces: the pass statistics, the rewritten
// loop body, and its rendered text.
type Result struct {
	PassRun        model.PassRun
	Body           []loopir.Node
	RenderedKernel string
	IdGraphDumps   map[string]*idgraphdump.Dump
}

// Runner executes the fixed build-and-lower stage sequence for one fusion
// document at a time. The zero value is ready to use.
type Runner struct {
	version string
}

// New creates a Runner that stamps every PassRun with version.
func New(version string) *Runner {
	return &Runner{version: version}
}

// Run decodes req's IR payload, builds the IterDomainGraphs, runs the
// double-buffer pass, and returns the rewritten loop body plus statistics.
// A request whose IRPayload carries no Body runs the graph build and
// statistics collection only — nothing to lower without a starting loop
// nest, which the caller (or an earlier loop-generation pass, out of
// scope here) is responsible for providing.
func (r *Runner) Run(ctx context.Context, req model.LowerRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	timer := utils.NewTimer("pipeline:" + req.DocUUID)
	acc := metrics.New()

	var decoded *decodedFusion
	if _, err := timer.TimeFuncWithError("decode", func() error {
		var err error
		decoded, err = decodeIRPayload(req.IRPayload)
		return err
	}); err != nil {
		return nil, err
	}

	var graphs *iterdomaingraphs.IterDomainGraphs
	if _, err := timer.TimeFuncWithError("build_idgraphs", func() error {
		_, span := tracer.Start(ctx, "pipeline.buildIdGraphs")
		defer span.End()
		var err error
		graphs, err = iterdomaingraphs.Build(decoded.fusion, req.Options.AllowSelfMapping)
		return err
	}); err != nil {
		return nil, err
	}

	totalIds := int64(len(decoded.fusion.AllIterDomains()))
	for m := iterdomaingraphs.Exact; m <= iterdomaingraphs.Loop; m++ {
		acc.RecordGraph(m, graphs.Graph(m), totalIds)
	}
	acc.RecordSelfMappings(len(graphs.SelfMappings()))

	lowerCtx := lowerctx.New(graphs)
	body := decoded.body

	var info *doublebuffer.Info
	if _, err := timer.TimeFuncWithError("inspect_fusion", func() error {
		_, span := tracer.Start(ctx, "pipeline.inspectFusion")
		defer span.End()
		var err error
		info, err = doublebuffer.NewFusionInspector(lowerCtx).Inspect(decoded.fusion)
		return err
	}); err != nil {
		return nil, err
	}

	if len(body) > 0 {
		var loopInfo map[*loopir.For][]*loopir.LoadStoreOp
		if _, err := timer.TimeFuncWithError("inspect_loopnest", func() error {
			_, span := tracer.Start(ctx, "pipeline.inspectLoopNest")
			defer span.End()
			var err error
			loopInfo, err = doublebuffer.NewLoopNestInspector(lowerCtx, info).Inspect(body)
			return err
		}); err != nil {
			return nil, err
		}

		if len(loopInfo) > 0 {
			if _, err := timer.TimeFuncWithError("insert", func() error {
				_, span := tracer.Start(ctx, "pipeline.insert")
				defer span.End()
				var err error
				body, err = doublebuffer.NewInserter(lowerCtx, info).Insert(body, loopInfo)
				return err
			}); err != nil {
				return nil, err
			}
			for range loopInfo {
				acc.RecordLoopTransformed()
			}
			acc.RecordSyncsInserted(countSyncs(body))
		}
	}

	rendered := printer.New().Print(body)

	dumps := map[string]*idgraphdump.Dump{}
	for m := iterdomaingraphs.Exact; m <= iterdomaingraphs.Loop; m++ {
		dumps[m.String()] = idgraphdump.Build(m, graphs.Graph(m))
	}

	modeStats, loopsTransformed, syncsInserted, selfMappings := acc.Snapshot()
	return &Result{
		PassRun: model.PassRun{
			DocUUID:              req.DocUUID,
			ModeStats:            modeStats,
			LoopsTransformed:     loopsTransformed,
			SyncsInserted:        syncsInserted,
			SelfMappingsDetected: selfMappings,
			Version:              r.version,
		},
		Body:           body,
		RenderedKernel: rendered,
		IdGraphDumps:   dumps,
	}, nil
}

// countSyncs counts CpAsyncCommit/CpAsyncWait/BlockSync leaves the Inserter
// emitted, recursing through For/IfThenElse bodies.
func countSyncs(body []loopir.Node) int64 {
	var n int64
	for _, node := range body {
		switch v := node.(type) {
		case *loopir.CpAsyncCommit, *loopir.CpAsyncWait, *loopir.BlockSync:
			n++
		case *loopir.For:
			n += countSyncs(v.Body)
		case *loopir.IfThenElse:
			n += countSyncs(v.Then)
			n += countSyncs(v.Else)
		}
	}
	return n
}
