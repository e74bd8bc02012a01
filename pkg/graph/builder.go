package graph

import (
	"strconv"

	"github.com/paulmach/osm"

	osmparser "github.com/azybler/route_impact/pkg/osm"
)

// OSMNodeID returns the graph ID used for an OSM node.
func OSMNodeID(id osm.NodeID) NodeID {
	return NodeID("osm_" + strconv.FormatInt(int64(id), 10))
}

// Build creates a walking network Graph from parsed OSM edges.
// Nodes are inserted in the order edges first reference them.
func Build(result *osmparser.ParseResult) *Graph {
	edges := result.Edges
	if len(edges) == 0 {
		return New()
	}

	g := NewWithCapacity(len(edges)/2+1, len(edges))

	addNode := func(id osm.NodeID) NodeID {
		gid := OSMNodeID(id)
		if _, ok := g.index[gid]; ok {
			return gid
		}
		g.index[gid] = len(g.nodes)
		g.nodes = append(g.nodes, Node{
			ID:   gid,
			Lat:  result.NodeLat[id],
			Lon:  result.NodeLon[id],
			Mode: ModeWalk,
		})
		return gid
	}

	for _, e := range edges {
		from := addNode(e.FromNodeID)
		to := addNode(e.ToNodeID)
		g.edges = append(g.edges, Edge{
			From:   from,
			To:     to,
			Weight: e.Seconds,
			Mode:   ModeWalk,
		})
	}

	return g
}
