package impact

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/azybler/route_impact/pkg/centrality"
	"github.com/azybler/route_impact/pkg/graph"
)

// Band labels a node whose score lies in a distribution tail.
type Band string

const (
	Strong Band = "strong"
	Weak   Band = "weak"
)

// BandRecord is a node in the top or bottom decile of a score distribution.
// Magnitude is the distance of the score from the median.
type BandRecord struct {
	NodeID    graph.NodeID
	Lat       float64
	Lon       float64
	Magnitude float64
	Band      Band
}

// Percentiles summarizes a score distribution.
type Percentiles struct {
	P10, P50, P90 float64
}

// Percentile returns the p-th percentile (0..100) of sorted values using
// linear interpolation between closest ranks. sorted must be ascending and
// non-empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Summarize returns the 10th, 50th and 90th percentiles of scores. An empty
// mapping yields zeros.
func Summarize(scores centrality.Scores) Percentiles {
	if len(scores) == 0 {
		return Percentiles{}
	}
	vals := make([]float64, 0, len(scores))
	for _, v := range scores {
		vals = append(vals, v)
	}
	slices.Sort(vals)
	return Percentiles{
		P10: Percentile(vals, 10),
		P50: Percentile(vals, 50),
		P90: Percentile(vals, 90),
	}
}

// Bands classifies every node of g: scores at or above the 90th percentile
// and above the median are strong, scores at or below the 10th percentile
// and below the median are weak. A score equal to the median is never in a
// tail, so a uniform distribution yields no records while a zero-heavy one
// still reports its few high scorers. Records are ordered by NodeID.
func Bands(scores centrality.Scores, g *graph.Graph) ([]BandRecord, error) {
	nodes := slices.Clone(g.Nodes())
	slices.SortFunc(nodes, func(a, b graph.Node) int { return cmp.Compare(a.ID, b.ID) })
	for _, n := range nodes {
		if _, ok := scores[n.ID]; !ok {
			return nil, fmt.Errorf("bands: node %q has no score: %w", n.ID, graph.ErrUnknownNode)
		}
	}

	pct := Summarize(scores)

	var out []BandRecord
	for _, n := range nodes {
		s := scores[n.ID]
		switch {
		case s >= pct.P90 && s > pct.P50:
			out = append(out, BandRecord{NodeID: n.ID, Lat: n.Lat, Lon: n.Lon, Magnitude: s - pct.P50, Band: Strong})
		case s <= pct.P10 && s < pct.P50:
			out = append(out, BandRecord{NodeID: n.ID, Lat: n.Lat, Lon: n.Lon, Magnitude: pct.P50 - s, Band: Weak})
		}
	}
	return out, nil
}
