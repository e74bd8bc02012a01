// Package impact compares centrality before and after a network change and
// classifies a score distribution into percentile bands.
package impact

import (
	"fmt"
	"slices"

	"github.com/azybler/route_impact/pkg/centrality"
	"github.com/azybler/route_impact/pkg/graph"
)

// Policy selects which changes Diff reports.
type Policy int

const (
	// PolicyIncrease reports nodes whose centrality rose by more than the
	// threshold.
	PolicyIncrease Policy = iota
	// PolicyAll reports every node whose absolute change exceeds the
	// threshold, including decreases.
	PolicyAll
)

// ParsePolicy maps "increase" and "all" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "increase":
		return PolicyIncrease, nil
	case "all":
		return PolicyAll, nil
	}
	return 0, fmt.Errorf("unknown impact policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyAll {
		return "all"
	}
	return "increase"
}

// Options configures Diff.
type Options struct {
	Policy Policy
	// MinChange is the threshold a change must exceed to be reported.
	MinChange float64
}

// Record is the relative centrality change at one node.
type Record struct {
	NodeID graph.NodeID
	Lat    float64
	Lon    float64
	Change float64
}

// Change returns the relative change from b to n. A zero baseline maps any
// gain to 1 and no gain to 0.
func Change(b, n float64) float64 {
	if b == 0 {
		if n > 0 {
			return 1
		}
		return 0
	}
	return (n - b) / b
}

// Diff compares the scores of every baseline node against the scores after
// the change. Coordinates come from g, the changed graph. Records are ordered
// by NodeID. A baseline node missing from next or g is an error.
func Diff(base, next centrality.Scores, g *graph.Graph, opts Options) ([]Record, error) {
	ids := make([]graph.NodeID, 0, len(base))
	for id := range base {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []Record
	for _, id := range ids {
		n, ok := next[id]
		if !ok {
			return nil, fmt.Errorf("diff: node %q has no recomputed score: %w", id, graph.ErrUnknownNode)
		}
		node, ok := g.Node(id)
		if !ok {
			return nil, fmt.Errorf("diff: node %q: %w", id, graph.ErrUnknownNode)
		}

		c := Change(base[id], n)
		if !opts.reports(c) {
			continue
		}
		out = append(out, Record{NodeID: id, Lat: node.Lat, Lon: node.Lon, Change: c})
	}
	return out, nil
}

func (o Options) reports(c float64) bool {
	if o.Policy == PolicyAll {
		return c != 0 && (c > o.MinChange || -c > o.MinChange)
	}
	return c > o.MinChange
}
