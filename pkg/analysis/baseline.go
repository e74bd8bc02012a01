// Package analysis ties the network, centrality, route merging and impact
// packages together into the baseline-then-compare workflow served over HTTP.
package analysis

import (
	"log"
	"time"

	"github.com/azybler/route_impact/pkg/centrality"
	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/graph"
	"github.com/azybler/route_impact/pkg/impact"
	"github.com/azybler/route_impact/pkg/spatial"
)

// Options configures baseline construction.
type Options struct {
	// BBox trims the network before scoring. A zero box keeps everything.
	BBox       geo.BBox
	Centrality centrality.Options
}

// Stats describes a baseline.
type Stats struct {
	NumNodes    int
	NumEdges    int
	Bounds      geo.BBox // extent of the trimmed network
	Percentiles impact.Percentiles
	Elapsed     time.Duration
}

// Baseline is the trimmed network and its centrality, computed once and
// shared read-only by every request.
type Baseline struct {
	graph      *graph.Graph
	scores     centrality.Scores
	bands      []impact.BandRecord
	index      *spatial.Index
	normalized bool
	stats      Stats
}

// NewBaseline trims g and scores it. g is not modified.
func NewBaseline(g *graph.Graph, opts Options) (*Baseline, error) {
	start := time.Now()

	var trimmed *graph.Graph
	if !opts.BBox.IsZero() {
		trimmed = graph.Trim(g, opts.BBox)
		log.Printf("Trimmed network to bbox: %d/%d nodes, %d/%d edges",
			trimmed.NumNodes(), g.NumNodes(), trimmed.NumEdges(), g.NumEdges())
	} else {
		trimmed = g.Clone()
	}

	t := time.Now()
	scores := centrality.Compute(trimmed, opts.Centrality)
	log.Printf("Computed baseline centrality for %d nodes in %v (workers=%d)",
		len(scores), time.Since(t).Round(time.Millisecond), max(opts.Centrality.Workers, 1))

	bands, err := impact.Bands(scores, trimmed)
	if err != nil {
		return nil, err
	}

	b := &Baseline{
		graph:      trimmed,
		scores:     scores,
		bands:      bands,
		index:      spatial.NewIndex(trimmed, nil),
		normalized: opts.Centrality.Normalized,
		stats: Stats{
			NumNodes:    trimmed.NumNodes(),
			NumEdges:    trimmed.NumEdges(),
			Bounds:      trimmed.Bounds(),
			Percentiles: impact.Summarize(scores),
			Elapsed:     time.Since(start),
		},
	}
	log.Printf("Baseline ready: %d strong/weak nodes, p10=%.5g p50=%.5g p90=%.5g",
		len(bands), b.stats.Percentiles.P10, b.stats.Percentiles.P50, b.stats.Percentiles.P90)
	return b, nil
}

// Graph returns the trimmed network. It must not be modified.
func (b *Baseline) Graph() *graph.Graph { return b.graph }

// Scores returns the baseline centrality. It must not be modified.
func (b *Baseline) Scores() centrality.Scores { return b.scores }

// Bands returns the strong and weak nodes of the baseline.
func (b *Baseline) Bands() []impact.BandRecord { return b.bands }

// Index returns the nearest-node index over the trimmed network.
func (b *Baseline) Index() *spatial.Index { return b.index }

func (b *Baseline) Stats() Stats { return b.stats }
