// Package spatial provides nearest-node lookups over a graph's coordinates.
package spatial

import (
	"errors"

	"github.com/tidwall/rtree"

	"github.com/azybler/route_impact/pkg/geo"
	"github.com/azybler/route_impact/pkg/graph"
)

// ErrNoNodeInRadius is returned when no indexed node lies within the search
// radius.
var ErrNoNodeInRadius = errors.New("no node within radius")

// Match is the result of a nearest-node query.
type Match struct {
	ID   graph.NodeID
	Lat  float64
	Lon  float64
	Dist float64 // meters from the query point
}

type entry struct {
	id       graph.NodeID
	lat, lon float64
}

// Index is an R-tree over node positions. It is immutable after
// construction and safe for concurrent queries.
type Index struct {
	tr rtree.RTreeG[entry]
}

// Filter selects which nodes are indexed.
type Filter func(graph.Node) bool

// NewIndex indexes every node of g accepted by keep. A nil keep indexes all
// nodes.
func NewIndex(g *graph.Graph, keep Filter) *Index {
	idx := &Index{}
	for _, n := range g.Nodes() {
		if keep != nil && !keep(n) {
			continue
		}
		pt := [2]float64{n.Lon, n.Lat}
		idx.tr.Insert(pt, pt, entry{id: n.ID, lat: n.Lat, lon: n.Lon})
	}
	return idx
}

// Len returns the number of indexed nodes.
func (x *Index) Len() int { return x.tr.Len() }

// Nearest returns the closest indexed node within radius meters of
// (lat, lon). Ties on distance resolve to the smaller NodeID.
func (x *Index) Nearest(lat, lon, radius float64) (Match, error) {
	if radius < 0 {
		return Match{}, ErrNoNodeInRadius
	}
	dLat, dLon := geo.MetersToDegrees(lat, radius)
	lo := [2]float64{lon - dLon, lat - dLat}
	hi := [2]float64{lon + dLon, lat + dLat}

	best := Match{Dist: radius}
	found := false
	x.tr.Search(lo, hi, func(_, _ [2]float64, e entry) bool {
		d := geo.Haversine(lat, lon, e.lat, e.lon)
		if d > radius {
			return true
		}
		if !found || d < best.Dist || (d == best.Dist && e.id < best.ID) {
			best = Match{ID: e.id, Lat: e.lat, Lon: e.lon, Dist: d}
			found = true
		}
		return true
	})
	if !found {
		return Match{}, ErrNoNodeInRadius
	}
	return best, nil
}
