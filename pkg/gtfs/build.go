package gtfs

import (
	"cmp"
	"fmt"
	"log"
	"maps"
	"slices"

	"github.com/azybler/route_impact/pkg/graph"
)

// DefaultIDPrefix prefixes stop IDs to form node IDs.
const DefaultIDPrefix = "gtfs"

// BuildOptions configures Build.
type BuildOptions struct {
	IDPrefix string
}

// StopNodeID returns the node ID of a feed stop.
func StopNodeID(prefix, stopID string) graph.NodeID {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	return graph.NodeID(prefix + "_" + stopID)
}

type hopKey struct {
	route, from, to string
}

type hopTimes struct {
	total int
	count int
}

// Build converts the feed into a transit graph. Every stop with coordinates
// becomes a node; every (route, stop, next stop) hop served by at least one
// trip becomes an edge weighted by the mean scheduled travel time. Hops with
// blank or negative times, or touching unknown stops, are skipped.
func (f *Feed) Build(opts BuildOptions) (*graph.Graph, error) {
	hops := make(map[hopKey]*hopTimes)
	skipped := 0

	for _, tripID := range slices.Sorted(maps.Keys(f.StopTimes)) {
		trip, ok := f.Trips[tripID]
		if !ok {
			skipped++
			continue
		}
		times := f.StopTimes[tripID]
		for i := 1; i < len(times); i++ {
			prev, cur := times[i-1], times[i]
			_, okPrev := f.Stops[prev.StopID]
			_, okCur := f.Stops[cur.StopID]
			if !okPrev || !okCur || prev.StopID == cur.StopID {
				skipped++
				continue
			}
			if prev.Departure < 0 || cur.Arrival < 0 || cur.Arrival < prev.Departure {
				skipped++
				continue
			}
			k := hopKey{route: trip.RouteID, from: prev.StopID, to: cur.StopID}
			h := hops[k]
			if h == nil {
				h = &hopTimes{}
				hops[k] = h
			}
			h.total += cur.Arrival - prev.Departure
			h.count++
		}
	}

	g := graph.NewWithCapacity(len(f.Stops), len(hops))
	for _, id := range slices.Sorted(maps.Keys(f.Stops)) {
		s := f.Stops[id]
		err := g.AddNode(graph.Node{
			ID:     StopNodeID(opts.IDPrefix, id),
			Lat:    s.Lat,
			Lon:    s.Lon,
			Mode:   graph.ModeTransit,
			StopID: id,
			Name:   s.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("build GTFS graph: %w", err)
		}
	}

	keys := slices.SortedFunc(maps.Keys(hops), func(a, b hopKey) int {
		return cmp.Or(cmp.Compare(a.route, b.route), cmp.Compare(a.from, b.from), cmp.Compare(a.to, b.to))
	})
	for _, k := range keys {
		h := hops[k]
		err := g.AddEdge(graph.Edge{
			From:    StopNodeID(opts.IDPrefix, k.from),
			To:      StopNodeID(opts.IDPrefix, k.to),
			Weight:  float64(h.total) / float64(h.count),
			Mode:    graph.ModeTransit,
			RouteID: k.route,
		})
		if err != nil {
			return nil, fmt.Errorf("build GTFS graph: %w", err)
		}
	}

	log.Printf("GTFS graph: %d stop nodes, %d route hops (%d hops skipped)", g.NumNodes(), g.NumEdges(), skipped)
	return g, nil
}
