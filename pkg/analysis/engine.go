package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/azybler/route_impact/pkg/centrality"
	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/impact"
	"github.com/azybler/route_impact/pkg/synth"
)

// Result is the outcome of one route impact analysis.
type Result struct {
	Records  []impact.Record
	NumNodes int // nodes in the merged network
	NumEdges int
	NewStops int
	// RouteMeters is the summed length of the proposed routes as given.
	RouteMeters float64
	Elapsed     time.Duration
}

// Analyzer is the interface for route impact queries.
type Analyzer interface {
	Analyze(ctx context.Context, routes []synth.Route, svc synth.Service) (*Result, error)
	Baseline() *Baseline
}

// EngineConfig holds the per-request merge and report settings.
type EngineConfig struct {
	Merge  synth.Options
	Impact impact.Options
}

// Engine implements Analyzer against a fixed baseline.
type Engine struct {
	base *Baseline
	cfg  EngineConfig
}

// NewEngine creates an engine. When snapping is enabled and no snapper is
// configured, new stops snap to the baseline's index.
func NewEngine(base *Baseline, cfg EngineConfig) *Engine {
	if cfg.Merge.SnapRadiusMeters > 0 && cfg.Merge.Snapper == nil {
		cfg.Merge.Snapper = base.Index()
	}
	return &Engine{base: base, cfg: cfg}
}

func (e *Engine) Baseline() *Baseline { return e.base }

// Analyze merges routes into a copy of the baseline, recomputes centrality
// and reports the change at every baseline node. Cancellation is observed
// between stages; a centrality run in progress completes.
func (e *Engine) Analyze(ctx context.Context, routes []synth.Route, svc synth.Service) (*Result, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merged, err := synth.MergeAll(e.base.graph, routes, svc, e.cfg.Merge)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := centrality.Compute(merged, centrality.Options{Normalized: e.base.normalized, Workers: 1})

	records, err := impact.Diff(e.base.scores, scores, merged, e.cfg.Impact)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	var meters float64
	for _, r := range routes {
		meters += geo.PolylineLength(r.Stops)
	}

	return &Result{
		Records:     records,
		NumNodes:    merged.NumNodes(),
		NumEdges:    merged.NumEdges(),
		NewStops:    merged.NumNodes() - e.base.graph.NumNodes(),
		RouteMeters: meters,
		Elapsed:     time.Since(start),
	}, nil
}
